package engine

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Durations are tracked in milliseconds from 1ms up to a day.
const maxTrackableMs = 24 * 60 * 60 * 1000

// RunStats aggregates run wall-clock durations so operators can see how
// long runs actually take on this host.
type RunStats struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

func NewRunStats() *RunStats {
	return &RunStats{hist: hdrhistogram.New(1, maxTrackableMs, 3)}
}

// Record adds one finished run.
func (s *RunStats) Record(d time.Duration) {
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	if ms > maxTrackableMs {
		ms = maxTrackableMs
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.hist.RecordValue(ms)
}

// RunStatsSnapshot is a point-in-time view of the run duration
// distribution, in milliseconds.
type RunStatsSnapshot struct {
	Count  int64   `json:"count"`
	MinMs  int64   `json:"minMs"`
	MaxMs  int64   `json:"maxMs"`
	MeanMs float64 `json:"meanMs"`
	P50Ms  int64   `json:"p50Ms"`
	P95Ms  int64   `json:"p95Ms"`
	P99Ms  int64   `json:"p99Ms"`
}

func (s *RunStats) Snapshot() RunStatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hist.TotalCount() == 0 {
		return RunStatsSnapshot{}
	}
	return RunStatsSnapshot{
		Count:  s.hist.TotalCount(),
		MinMs:  s.hist.Min(),
		MaxMs:  clampMs(s.hist.Max()),
		MeanMs: s.hist.Mean(),
		P50Ms:  clampMs(s.hist.ValueAtQuantile(50)),
		P95Ms:  clampMs(s.hist.ValueAtQuantile(95)),
		P99Ms:  clampMs(s.hist.ValueAtQuantile(99)),
	}
}

// clampMs keeps reported values inside the recordable range. The histogram
// rounds a recorded value up to its bucket's highest equivalent value, which
// can land past the ceiling Record enforces.
func clampMs(v int64) int64 {
	if v > maxTrackableMs {
		return maxTrackableMs
	}
	return v
}
