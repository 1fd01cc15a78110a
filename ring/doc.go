// File: ring/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package ring implements the lock-free buffering core: a
// single-producer/single-consumer byte ring with its backing storage
// locked into physical memory, and a period-framing layer that makes
// multichannel periods atomically visible to the consumer.
//
// All types in this package are correct only under exactly one producer
// thread and one consumer thread. Producer-side and consumer-side
// operations are wait-free; cross-thread visibility is established by
// publishing the write cursor after payload bytes are written and
// loading it before payload bytes are read.
package ring
