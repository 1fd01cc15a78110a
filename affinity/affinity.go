// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral API for CPU affinity. Platform-specific
// implementations live in affinity_linux.go / affinity_stub.go behind
// build tags. Callers must hold runtime.LockOSThread for the pin to be
// meaningful.

package affinity

// SetAffinity pins the current OS thread to the given logical CPU on
// supported platforms. On unsupported platforms it returns an error.
func SetAffinity(cpuID int) error {
	return setAffinityPlatform(cpuID)
}
