package cpu

import "golang.org/x/sys/unix"

// affinityCount honors the scheduler affinity mask (taskset, cgroups cpusets).
func affinityCount() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return 0
	}
	return set.Count()
}
