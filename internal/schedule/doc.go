// Package schedule runs independent jobs on a bounded set of goroutines and
// hands back their results keyed by the position the job was submitted at.
//
// Run collects every result before returning. Pipeline delivers results to a
// callback strictly in position order as soon as each prefix is complete,
// bounding the memory held by out-of-order completions.
//
// A failing job never cancels its siblings: every dispatched job runs to
// completion and all failures are reported together, in position order.
package schedule
