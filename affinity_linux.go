//go:build linux

package posemotion

import (
	"fmt"
	"syscall"
	"unsafe"
)

// SetCPUAffinity sets the CPU affinity mask of the calling OS thread only.
// The Go scheduler moves goroutines between threads, so the caller must hold
// runtime.LockOSThread for the mask to apply to its later work, including
// worker processes it forks.
func SetCPUAffinity(mask uintptr) error {

	_, _, err := syscall.RawSyscall(syscall.SYS_SCHED_SETAFFINITY, 0,
		unsafe.Sizeof(mask), uintptr(unsafe.Pointer(&mask)))

	if err != 0 {
		return fmt.Errorf("failed to set CPU affinity: %w", err)
	}

	return nil
}

// CPUAffinity returns the CPU affinity mask of the calling thread
func CPUAffinity() (uintptr, error) {

	var mask uintptr

	_, _, err := syscall.RawSyscall(syscall.SYS_SCHED_GETAFFINITY, 0,
		unsafe.Sizeof(mask), uintptr(unsafe.Pointer(&mask)))

	if err != 0 {
		return 0, fmt.Errorf("failed to get CPU affinity: %w", err)
	}

	return mask, nil
}
