// File: internal/memlock/memlock.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral API for locking buffer memory into physical RAM so
// the real-time path never takes a page fault. Platform implementations
// live in memlock_linux.go / memlock_stub.go behind build tags.

package memlock

// Lock pins the given slice's backing storage into physical memory.
// On platforms without a locking facility it logs once and succeeds,
// so callers treat a non-nil error as fatal.
func Lock(b []byte) error {
	return lockPlatform(b)
}

// Unlock releases a previous Lock. Safe to call on never-locked or
// already-unlocked memory.
func Unlock(b []byte) error {
	return unlockPlatform(b)
}
