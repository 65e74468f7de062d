package posemotion

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"
)

// maxCPU is the number of cores a mask can address
const maxCPU = int(unsafe.Sizeof(uintptr(0)) * 8)

// CPUCoreMask calculates the core mask from a list of CPU core numbers, eg:
// []int{4,5,6,7} for the fast cores of an RK3588
func CPUCoreMask(cores []int) uintptr {

	var mask uintptr

	for _, core := range cores {
		mask |= 1 << core
	}

	return mask
}

// ParseCPUList parses a CPU list in the format used by taskset and cgroups,
// eg: "4-7" or "0,2,4-5", into an affinity mask
func ParseCPUList(s string) (uintptr, error) {

	var cores []int

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)

		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")

		first, err := parseCore(lo)

		if err != nil {
			return 0, err
		}

		last := first

		if isRange {
			if last, err = parseCore(hi); err != nil {
				return 0, err
			}
		}

		if last < first {
			return 0, fmt.Errorf("invalid cpu range %q", part)
		}

		for c := first; c <= last; c++ {
			cores = append(cores, c)
		}
	}

	if len(cores) == 0 {
		return 0, fmt.Errorf("empty cpu list %q", s)
	}

	return CPUCoreMask(cores), nil
}

// parseCore parses a single core number
func parseCore(s string) (int, error) {

	core, err := strconv.Atoi(strings.TrimSpace(s))

	if err != nil {
		return 0, fmt.Errorf("invalid cpu number %q", s)
	}

	if core < 0 || core >= maxCPU {
		return 0, fmt.Errorf("cpu number %d out of range 0-%d", core, maxCPU-1)
	}

	return core, nil
}
