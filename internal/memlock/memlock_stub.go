//go:build !linux
// +build !linux

// File: internal/memlock/memlock_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fallback for platforms without an mlock facility. The degradation is
// logged once; it is never silent.

package memlock

import (
	"sync"

	"github.com/rs/zerolog/log"
)

var warnOnce sync.Once

func lockPlatform(b []byte) error {
	warnOnce.Do(func() {
		log.Warn().Msg("memlock: page locking not supported on this platform; buffers may page fault")
	})
	return nil
}

func unlockPlatform(b []byte) error {
	return nil
}
