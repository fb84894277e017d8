package pipeline

import "runtime"

// Workers returns the worker count for a batch of n sites on a machine with
// cpus logical CPUs. Small batches stay gentle on the target sites; large
// batches scale with the machine, capped at 16.
//
// A non-positive cpus uses runtime.NumCPU. The result is at least 1 when n
// is positive and never exceeds n.
func Workers(n, cpus int) int {
	if n <= 0 {
		return 0
	}
	if cpus <= 0 {
		cpus = runtime.NumCPU()
	}

	var w int
	switch {
	case n <= 100:
		w = min(cpus, 4, n)
	case n <= 300:
		w = min(cpus, 8, n)
	default:
		w = min(2*cpus, 16, n)
	}
	return max(w, 1)
}
