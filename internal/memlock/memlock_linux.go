//go:build linux
// +build linux

// File: internal/memlock/memlock_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux implementation using mlock(2)/munlock(2) via golang.org/x/sys.

package memlock

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func lockPlatform(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := unix.Mlock(b); err != nil {
		return fmt.Errorf("memlock: mlock failed: %w", err)
	}
	return nil
}

func unlockPlatform(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := unix.Munlock(b); err != nil {
		return fmt.Errorf("memlock: munlock failed: %w", err)
	}
	return nil
}
