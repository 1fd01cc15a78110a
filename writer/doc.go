// File: writer/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package writer implements the buffered data thread: a ring-buffered
// bridge between a hard-real-time producer and a storage sink. The
// producer-facing calls never block beyond a bounded flag-only critical
// section; a dedicated consumer goroutine drains completed periods and
// forwards them to the sink, managing entry lifecycle and overrun
// bookkeeping.
package writer
