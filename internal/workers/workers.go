// Package workers sizes bounded worker pools for CPU-heavy fan-out such as
// batch thumbnail encoding.
package workers

import "runtime"

// Count returns how many workers to run for jobs pending items. The pool never
// exceeds GOMAXPROCS and never spawns more workers than there is work.
func Count(jobs int) int {
	if jobs <= 0 {
		return 0
	}
	max := runtime.GOMAXPROCS(0)
	if jobs < max {
		return jobs
	}
	return max
}
