// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_windows.go, etc.) guarded by build tags.
//
// The simulated interrupt dispatcher pins itself here so "interrupts" are
// serviced on one core, the way a vector is routed to a fixed CPU.

package affinity

import (
	"fmt"
	"runtime"
)

// SetAffinity pins the current OS thread to a given logical CPU/core on supported platforms.
// The caller must have locked the goroutine to its thread (runtime.LockOSThread).
// On unsupported platforms returns an error.
func SetAffinity(cpuID int) error {
	if cpuID < 0 || cpuID >= runtime.NumCPU() {
		return fmt.Errorf("affinity: cpu %d out of range [0,%d)", cpuID, runtime.NumCPU())
	}
	return setAffinityPlatform(cpuID)
}
