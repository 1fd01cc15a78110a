// File: api/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Common error values shared across hioload-rec packages.

package api

import "errors"

var (
	// ErrAlreadyRunning is returned by Start when the consumer thread
	// is already running.
	ErrAlreadyRunning = errors.New("data thread already running")

	// ErrInvalidArgument indicates a malformed size, rate or channel
	// count passed at construction time.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSinkClosed is returned by sinks after Close.
	ErrSinkClosed = errors.New("sink is closed")

	// ErrNoEntry is returned by a sink Write with no open entry.
	ErrNoEntry = errors.New("no entry open")
)
