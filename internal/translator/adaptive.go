package translator

import (
	"time"

	"nl2code/internal/config"
	"nl2code/internal/logging"
)

// adaptiveSizer picks the next chunk size from an exponential moving
// average of observed chunk latency. A hysteresis band around the target
// prevents oscillation, and a cooldown window spaces out adjustments.
type adaptiveSizer struct {
	size     int
	min, max int

	target     time.Duration
	alpha      float64
	hysteresis float64
	cooldown   int

	ema        time.Duration
	haveSample bool
	sinceLast  int
}

func newAdaptiveSizer(cfg config.StreamingConfig) *adaptiveSizer {
	s := &adaptiveSizer{
		size:       cfg.InitialChunkSize,
		min:        cfg.MinChunkSize,
		max:        cfg.MaxChunkSize,
		target:     cfg.TargetLatency(),
		alpha:      cfg.LatencySmoothing,
		hysteresis: cfg.HysteresisPct,
		cooldown:   cfg.CooldownChunks,
	}
	if s.size <= 0 {
		s.size = s.min
	}
	if s.alpha <= 0 || s.alpha > 1 {
		s.alpha = 0.3
	}
	return s
}

// current is the chunk size to request next.
func (s *adaptiveSizer) current() int { return s.size }

// observe folds one chunk's latency into the EMA and resizes when the
// smoothed latency sits outside the hysteresis band and the cooldown has
// elapsed.
func (s *adaptiveSizer) observe(latency time.Duration) {
	if !s.haveSample {
		s.ema = latency
		s.haveSample = true
	} else {
		s.ema = time.Duration(s.alpha*float64(latency) + (1-s.alpha)*float64(s.ema))
	}

	s.sinceLast++
	if s.sinceLast <= s.cooldown || s.target <= 0 {
		return
	}

	ratio := float64(s.ema) / float64(s.target)
	switch {
	case ratio > 1+s.hysteresis:
		s.resize(s.size * 2 / 3)
	case ratio < 1-s.hysteresis:
		s.resize(s.size * 3 / 2)
	}
}

func (s *adaptiveSizer) resize(next int) {
	if next < s.min {
		next = s.min
	}
	if s.max > 0 && next > s.max {
		next = s.max
	}
	if next == s.size {
		return
	}
	logging.Stream("chunk size %d -> %d (ema %s, target %s)", s.size, next, s.ema, s.target)
	s.size = next
	s.sinceLast = 0
}
