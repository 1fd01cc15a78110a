// File: control/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package control holds runtime observability for the capture pipeline:
// lock-free counters updated from the producer and consumer threads and
// snapshotted for monitoring without disturbing either.
package control
