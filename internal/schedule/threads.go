package schedule

import "runtime"

// Available returns the platform parallelism used when no limit is given.
func Available() int {
	return runtime.GOMAXPROCS(0)
}

// ThreadCount returns the number of workers to use for the given number of
// independent jobs. A positive override caps the result, as do available and
// jobs. The result is at least 1 whenever there is work, and 0 otherwise.
func ThreadCount(override, available, jobs int) int {
	if jobs <= 0 {
		return 0
	}
	n := max(available, 1)
	if override > 0 {
		n = min(n, override)
	}
	return min(n, jobs)
}
