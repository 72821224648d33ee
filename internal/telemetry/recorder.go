package telemetry

import (
	"sync"
	"time"
)

// Recorder accumulates named timed sections for one translation request.
// It is owned by a single controller but guarded anyway because pooled
// batch instances may share statistics aggregation.
type Recorder struct {
	mu       sync.Mutex
	sections map[string]time.Duration
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{sections: make(map[string]time.Duration)}
}

// Time starts timing a named section and returns a stop function.
// Repeated sections accumulate.
func (r *Recorder) Time(name string) func() {
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		r.mu.Lock()
		r.sections[name] += elapsed
		r.mu.Unlock()
	}
}

// Record adds a pre-measured duration to a named section.
func (r *Recorder) Record(name string, d time.Duration) {
	r.mu.Lock()
	r.sections[name] += d
	r.mu.Unlock()
}

// Snapshot returns section durations in milliseconds.
func (r *Recorder) Snapshot() map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]float64, len(r.sections))
	for k, v := range r.sections {
		out[k] = float64(v.Microseconds()) / 1000.0
	}
	return out
}
