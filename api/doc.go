// File: api/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package api defines the public contracts of hioload-rec: the period
// data model moved between the real-time producer and the disk thread,
// the storage sink abstraction, and the buffered data-thread surface.
//
// The package is deliberately dependency-free so that implementations
// remain swappable and importable from real-time code without pulling
// in I/O or logging machinery.
package api
