// Package zipfmt writes the PKZIP binary layout: local file headers,
// central directory headers and the end of central directory record.
//
// Offsets are computed from running counters rather than by inspecting the
// sink, so a Writer works with any append-only io.Writer. Zip64 is not
// written; anything that does not fit the 16/32-bit fields is rejected with
// ErrArchiveTooLarge before the offending record is emitted.
package zipfmt
