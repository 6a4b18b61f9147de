// Package latency provides a per-operation timing instrument with bounded
// sample histories and percentile statistics.
package latency

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultMaxSamples bounds each operation's history when no explicit limit is
// configured.
const DefaultMaxSamples = 1000

// Stats summarizes the recorded samples for one operation. P95 is only
// meaningful once 20 samples exist and P99 once 100 exist; below those counts
// they fall back to the maximum.
type Stats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
}

// Instrument tracks elapsed-time measurements keyed by operation name. All
// methods are safe for concurrent use; calls under distinct names never
// contaminate each other, and interleaved calls under the same name are
// serialized by the internal mutex.
type Instrument struct {
	mu         sync.Mutex
	maxSamples int
	history    map[string][]float64
	startTimes map[string]time.Time
	logger     *slog.Logger
}

// New creates an Instrument keeping at most maxSamples measurements per
// operation. Non-positive maxSamples falls back to DefaultMaxSamples.
func New(maxSamples int, logger *slog.Logger) *Instrument {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Instrument{
		maxSamples: maxSamples,
		history:    make(map[string][]float64),
		startTimes: make(map[string]time.Time),
		logger:     logger.With(slog.String("component", "latency")),
	}
}

// Start records the start time for the named operation, replacing any
// unconsumed previous start.
func (i *Instrument) Start(name string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.startTimes[name] = time.Now()
}

// Stop computes the elapsed milliseconds since Start(name), appends the value
// to the operation's history (dropping the oldest entry past capacity), and
// returns it. Stopping an operation that was never started returns 0 with a
// warning.
func (i *Instrument) Stop(name string) float64 {
	i.mu.Lock()
	defer i.mu.Unlock()

	started, ok := i.startTimes[name]
	if !ok {
		i.logger.Warn("stop without start", slog.String("operation", name))
		return 0
	}
	delete(i.startTimes, name)

	elapsed := float64(time.Since(started)) / float64(time.Millisecond)

	samples := append(i.history[name], elapsed)
	if len(samples) > i.maxSamples {
		samples = samples[len(samples)-i.maxSamples:]
	}
	i.history[name] = samples

	return elapsed
}

// Record appends a pre-measured elapsed value (in milliseconds) to the named
// operation's history without a Start/Stop pair.
func (i *Instrument) Record(name string, elapsedMs float64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	samples := append(i.history[name], elapsedMs)
	if len(samples) > i.maxSamples {
		samples = samples[len(samples)-i.maxSamples:]
	}
	i.history[name] = samples
}

// Stats returns the statistics for one operation. An unknown or empty
// operation yields the zero Stats.
func (i *Instrument) Stats(name string) Stats {
	i.mu.Lock()
	defer i.mu.Unlock()

	samples := i.history[name]
	if len(samples) == 0 {
		return Stats{}
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	n := len(sorted)
	var sum float64
	for _, v := range sorted {
		sum += v
	}

	st := Stats{
		Count:  n,
		Min:    sorted[0],
		Max:    sorted[n-1],
		Mean:   sum / float64(n),
		Median: median(sorted),
		P95:    sorted[n-1],
		P99:    sorted[n-1],
	}
	if n >= 20 {
		st.P95 = sorted[int(0.95*float64(n))-1]
	}
	if n >= 100 {
		st.P99 = sorted[int(0.99*float64(n))-1]
	}
	return st
}

// AllStats returns statistics for every operation with at least one sample.
func (i *Instrument) AllStats() map[string]Stats {
	i.mu.Lock()
	names := make([]string, 0, len(i.history))
	for name := range i.history {
		names = append(names, name)
	}
	i.mu.Unlock()

	out := make(map[string]Stats, len(names))
	for _, name := range names {
		out[name] = i.Stats(name)
	}
	return out
}

// Reset clears the history for one operation.
func (i *Instrument) Reset(name string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.history, name)
	delete(i.startTimes, name)
}

// ResetAll clears all histories and pending start times.
func (i *Instrument) ResetAll() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.history = make(map[string][]float64)
	i.startTimes = make(map[string]time.Time)
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
