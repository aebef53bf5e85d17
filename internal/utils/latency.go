package utils

import (
	"sync"

	"github.com/montanaflynn/stats"
)

// RTTWindow keeps the most recent round-trip times (seconds) in a ring buffer
// and answers percentile queries over them.
type RTTWindow struct {
	mu      sync.RWMutex
	samples []float64
	next    int
	full    bool
}

// NewRTTWindow creates a window holding up to size samples.
func NewRTTWindow(size int) *RTTWindow {
	if size <= 0 {
		size = 512
	}
	return &RTTWindow{samples: make([]float64, size)}
}

// Observe records a round-trip time, overwriting the oldest once full.
func (w *RTTWindow) Observe(seconds float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.samples[w.next] = seconds
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
}

// Count returns the number of samples held.
func (w *RTTWindow) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.count()
}

// Percentile returns the nearest-rank p-th percentile (0-100) of the held samples:
// the smallest sample with at least p% of samples at or below it. Returns zero
// when empty.
func (w *RTTWindow) Percentile(p float64) float64 {
	w.mu.RLock()
	held := append([]float64(nil), w.samples[:w.count()]...)
	w.mu.RUnlock()

	if len(held) == 0 {
		return 0
	}
	p = min(max(p, 0), 100)
	v, err := stats.PercentileNearestRank(held, p)
	if err != nil {
		return 0
	}
	return v
}

func (w *RTTWindow) count() int {
	if w.full {
		return len(w.samples)
	}
	return w.next
}
