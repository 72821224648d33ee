// Package telemetry provides best-effort event emission and timed-section
// recording for the translation pipeline. Emission never blocks the caller
// and never returns an error; subscribers that fall behind drop events.
package telemetry

import "time"

// Event names. Each name has a fixed payload shape produced by the
// constructor below it.
const (
	EventTranslationStarted   = "translation.started"
	EventTranslationCompleted = "translation.completed"
	EventTranslationFailed    = "translation.failed"
	EventStreamStarted        = "stream.started"
	EventStreamChunk          = "stream.chunk_processed"
	EventStreamCompleted      = "stream.completed"
	EventOffloadFallback      = "offload.fallback"
)

// Event is a named telemetry record.
type Event struct {
	ID        uint64
	Name      string
	Timestamp time.Time
	RequestID string
	Fields    map[string]any
}

// Sink accepts events. Implementations must be safe for concurrent use and
// must never block or panic on Emit.
type Sink interface {
	Emit(Event)
}

// NopSink discards all events.
type NopSink struct{}

// Emit discards the event.
func (NopSink) Emit(Event) {}

// TranslationStarted builds the translation.started payload.
func TranslationStarted(requestID, approach string, inputLen int) Event {
	return Event{
		Name:      EventTranslationStarted,
		RequestID: requestID,
		Fields: map[string]any{
			"approach":  approach,
			"input_len": inputLen,
		},
	}
}

// TranslationCompleted builds the translation.completed payload.
func TranslationCompleted(requestID, approach string, duration time.Duration, warnings int) Event {
	return Event{
		Name:      EventTranslationCompleted,
		RequestID: requestID,
		Fields: map[string]any{
			"approach":    approach,
			"duration_ms": duration.Milliseconds(),
			"warnings":    warnings,
		},
	}
}

// TranslationFailed builds the translation.failed payload.
func TranslationFailed(requestID, approach, reason string) Event {
	return Event{
		Name:      EventTranslationFailed,
		RequestID: requestID,
		Fields: map[string]any{
			"approach": approach,
			"reason":   reason,
		},
	}
}

// StreamStarted builds the stream.started payload.
func StreamStarted(requestID string, inputLen, chunkSize int) Event {
	return Event{
		Name:      EventStreamStarted,
		RequestID: requestID,
		Fields: map[string]any{
			"input_len":  inputLen,
			"chunk_size": chunkSize,
		},
	}
}

// StreamChunk builds the stream.chunk_processed payload.
func StreamChunk(requestID string, index, size int, latency time.Duration) Event {
	return Event{
		Name:      EventStreamChunk,
		RequestID: requestID,
		Fields: map[string]any{
			"chunk_index": index,
			"chunk_size":  size,
			"latency_ms":  latency.Milliseconds(),
		},
	}
}

// StreamCompleted builds the stream.completed payload.
func StreamCompleted(requestID string, chunks int, duration time.Duration) Event {
	return Event{
		Name:      EventStreamCompleted,
		RequestID: requestID,
		Fields: map[string]any{
			"chunks":      chunks,
			"duration_ms": duration.Milliseconds(),
		},
	}
}

// FallbackReason names why an offload task ran locally.
type FallbackReason string

const (
	ReasonTimeout     FallbackReason = "timeout"
	ReasonBrokenPool  FallbackReason = "broken_pool"
	ReasonJobTooLarge FallbackReason = "job_too_large"
)

// OffloadFallback builds the offload.fallback payload.
func OffloadFallback(requestID string, kind string, reason FallbackReason) Event {
	return Event{
		Name:      EventOffloadFallback,
		RequestID: requestID,
		Fields: map[string]any{
			"task_kind": kind,
			"reason":    string(reason),
		},
	}
}
