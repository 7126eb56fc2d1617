//go:build !linux && !windows
// +build !linux,!windows

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Platforms without thread pinning. The dispatcher logs the error and runs unpinned.

package affinity

import (
	"fmt"
	"runtime"
)

func setAffinityPlatform(cpuID int) error {
	return fmt.Errorf("affinity: cannot pin to cpu %d on %s", cpuID, runtime.GOOS)
}
