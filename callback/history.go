package callback

import (
	"context"
	"sync"
)

// History accumulates one logs record per epoch into an append-only
// ordered sequence and exposes deterministic snapshots for post-hoc
// inspection. Records are stored exactly as delivered, no transformation.
type History struct {
	Base

	mu      sync.RWMutex
	records []Logs
}

var _ Callback = (*History)(nil)

func NewHistory() *History {
	return &History{records: make([]Logs, 0)}
}

func (h *History) OnEpochEnd(_ context.Context, logs Logs) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, logs.Clone())
	return nil
}

// Records returns a snapshot of every recorded epoch, in epoch order.
func (h *History) Records() []Logs {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Logs, len(h.records))
	copy(out, h.records)
	return out
}

// Len reports the number of recorded epochs.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.records)
}

// Epochs returns the recorded epoch indexes as a parallel array.
func (h *History) Epochs() []int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]int, len(h.records))
	for i := range h.records {
		out[i] = h.records[i].Epoch
	}
	return out
}

// LogProbabilities returns the recorded log-probability series.
func (h *History) LogProbabilities() []float64 {
	return h.metricSeries(func(record Logs) float64 { return record.LogProbability })
}

// Improvements returns the recorded per-epoch improvement series.
func (h *History) Improvements() []float64 {
	return h.metricSeries(func(record Logs) float64 { return record.Improvement })
}

// Durations returns the recorded per-epoch duration series, in seconds.
func (h *History) Durations() []float64 {
	return h.metricSeries(func(record Logs) float64 { return record.Duration })
}

func (h *History) metricSeries(metric func(Logs) float64) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]float64, len(h.records))
	for i := range h.records {
		out[i] = metric(h.records[i])
	}
	return out
}
