// File: sink/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package sink provides storage backends implementing api.Sink: a
// counting discard sink for tests and pipelines that only need the
// buffering behavior, and a WAV file sink that stores each entry as one
// multichannel 16-bit PCM file.
//
// Sinks are driven from the single consumer thread of a data thread and
// are not safe for concurrent use unless noted.
package sink
