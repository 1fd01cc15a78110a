// File: control/metrics_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import (
	"sync"
	"testing"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.PeriodsWritten.Add(3)
	m.FramesWritten.Add(192)
	m.FramesDropped.Add(64)
	m.Xruns.Add(1)

	snap := m.Snapshot()
	want := map[string]uint64{
		"periods_written": 3,
		"frames_written":  192,
		"frames_dropped":  64,
		"xruns":           1,
		"write_errors":    0,
		"entries_opened":  0,
		"entries_closed":  0,
	}
	if len(snap) != len(want) {
		t.Fatalf("snapshot has %d keys, want %d", len(snap), len(want))
	}
	for k, v := range want {
		if snap[k] != v {
			t.Errorf("snapshot[%q] = %d, want %d", k, snap[k], v)
		}
	}
}

func TestMetricsConcurrentUpdates(t *testing.T) {
	m := NewMetrics()
	const goroutines, perG = 8, 1000

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				m.PeriodsWritten.Add(1)
				m.FramesWritten.Add(64)
			}
		}()
	}
	wg.Wait()

	if got := m.PeriodsWritten.Load(); got != goroutines*perG {
		t.Errorf("periods = %d, want %d", got, goroutines*perG)
	}
	if got := m.FramesWritten.Load(); got != goroutines*perG*64 {
		t.Errorf("frames = %d, want %d", got, goroutines*perG*64)
	}
}
