package config

import "time"

// StreamingConfig configures chunked translation and its adaptive sizing
// controller.
type StreamingConfig struct {
	// Input longer than this many bytes goes through the streaming pipeline.
	StreamThreshold int `yaml:"stream_threshold"`

	// Chunk size bounds and starting point, in bytes.
	MinChunkSize     int `yaml:"min_chunk_size"`
	MaxChunkSize     int `yaml:"max_chunk_size"`
	InitialChunkSize int `yaml:"initial_chunk_size"`

	// Lines of trailing context carried between chunks.
	ContextLines int `yaml:"context_lines"`

	// Adaptive control constants.
	TargetChunkLatency string  `yaml:"target_chunk_latency"`
	LatencySmoothing   float64 `yaml:"latency_smoothing"` // EMA alpha in (0, 1]
	HysteresisPct      float64 `yaml:"hysteresis_pct"`    // dead band around target
	CooldownChunks     int     `yaml:"cooldown_chunks"`   // chunks to wait between resizes
}

func defaultStreamingConfig() StreamingConfig {
	return StreamingConfig{
		StreamThreshold:    16384,
		MinChunkSize:       512,
		MaxChunkSize:       8192,
		InitialChunkSize:   2048,
		ContextLines:       5,
		TargetChunkLatency: "2s",
		LatencySmoothing:   0.3,
		HysteresisPct:      0.25,
		CooldownChunks:     2,
	}
}

// TargetLatency returns the parsed per-chunk latency target.
func (s StreamingConfig) TargetLatency() time.Duration {
	return parseDuration(s.TargetChunkLatency, 2*time.Second)
}
