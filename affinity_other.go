//go:build !linux

package posemotion

import "errors"

var errAffinityUnsupported = errors.New("CPU affinity is only supported on linux")

// SetCPUAffinity is not supported on this platform
func SetCPUAffinity(mask uintptr) error {
	return errAffinityUnsupported
}

// CPUAffinity is not supported on this platform
func CPUAffinity() (uintptr, error) {
	return 0, errAffinityUnsupported
}
