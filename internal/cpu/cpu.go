// Package cpu detects the parallelism available to build tools.
package cpu

import "runtime"

// Count returns the number of CPUs the current process may run on.
// It never returns less than 1.
func Count() int {
	if n := affinityCount(); n > 0 {
		return n
	}
	return max(runtime.NumCPU(), 1)
}
