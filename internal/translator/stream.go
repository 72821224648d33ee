package translator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nl2code/internal/errdefs"
	"nl2code/internal/logging"
	"nl2code/internal/resolver"
	"nl2code/internal/telemetry"
)

// TranslateStreaming runs the chunked structured pipeline, emitting one
// PartialResult per assembled chunk and a final one carrying the full
// Result. The channel closes after the final update. Input below the
// streaming threshold takes the ordinary structured path in one step.
func (s *Service) TranslateStreaming(ctx context.Context, input string) <-chan *PartialResult {
	ch := make(chan *PartialResult, 1)
	id := uuid.NewString()
	ctx = WithRequestID(ctx, id)
	go s.streamLoop(ctx, id, input, ch)
	return ch
}

func (s *Service) streamLoop(ctx context.Context, id, input string, ch chan<- *PartialResult) {
	defer close(ch)
	var final *Result
	defer func() {
		if r := recover(); r != nil {
			logging.Stream("streaming pipeline panicked: %v", r)
			final = failed(approachStructured, fmt.Sprintf("internal error: %v", r))
			deliver(ctx, ch, &PartialResult{Final: final})
		}
	}()

	start := time.Now()
	sizer := newAdaptiveSizer(s.cfg.Streaming)
	s.sink.Emit(telemetry.StreamStarted(id, len(input), sizer.current()))

	if !s.stream.NeedsStreaming(input) {
		final = s.structured.Translate(ctx, input)
		s.sink.Emit(telemetry.StreamCompleted(id, 1, time.Since(start)))
		deliver(ctx, ch, &PartialResult{Final: final})
		return
	}

	res := resolver.New(s.py)
	cur := s.stream.Cursor(input)
	assembled := ""
	var warnings []string
	chunks := 0

	for cur.Remaining() {
		if ctx.Err() != nil {
			deliver(ctx, ch, &PartialResult{Final: cancelled(approachStructured)})
			return
		}
		chunk, ok := cur.Next(sizer.current())
		if !ok {
			break
		}
		chunkStart := time.Now()

		parsed, err := s.stream.ParseChunk(chunk)
		if err != nil {
			serr := &errdefs.StreamingError{
				ChunkIndex: chunk.Index,
				Position:   chunk.Offset,
				Message:    "chunk parse failed",
				Err:        err,
			}
			final = failed(approachStructured, serr.Error())
			final.Warnings = warnings
			deliver(ctx, ch, &PartialResult{Final: final})
			return
		}
		warnings = append(warnings, parsed.Warnings...)
		for _, perr := range parsed.Errors {
			warnings = append(warnings, perr.Format())
		}

		blocks, w, _, cerr := s.structured.TranslateBlocks(ctx, res, parsed.Blocks)
		warnings = append(warnings, w...)
		if cerr != nil {
			deliver(ctx, ch, &PartialResult{Final: cancelled(approachStructured)})
			return
		}

		next, aw, aerr := s.asm.AssembleIncremental(ctx, assembled, blocks)
		warnings = append(warnings, aw...)
		if aerr != nil {
			serr := &errdefs.StreamingError{
				ChunkIndex: chunk.Index,
				Position:   chunk.Offset,
				Message:    "incremental assembly failed",
				Err:        aerr,
			}
			final = failed(approachStructured, serr.Error())
			final.Warnings = warnings
			deliver(ctx, ch, &PartialResult{Final: final})
			return
		}
		assembled = next

		latency := time.Since(chunkStart)
		sizer.observe(latency)
		chunks++
		s.sink.Emit(telemetry.StreamChunk(id, chunk.Index, len(chunk.Text), latency))

		if !deliver(ctx, ch, &PartialResult{ChunkIndex: chunk.Index, Code: assembled, Warnings: w}) {
			deliver(ctx, ch, &PartialResult{Final: cancelled(approachStructured)})
			return
		}
	}

	final = s.finishStream(ctx, assembled, warnings, chunks, start)
	s.sink.Emit(telemetry.StreamCompleted(id, chunks, time.Since(start)))
	deliver(ctx, ch, &PartialResult{ChunkIndex: chunks, Final: final})
}

// finishStream validates and repairs the accumulated output.
func (s *Service) finishStream(ctx context.Context, assembled string, warnings []string, chunks int, start time.Time) *Result {
	useModelFixes := s.cfg.Model.Provider != "none"
	result := newResult(approachStructured)
	result.Warnings = warnings

	code, vres := s.val.ValidateAndFix(ctx, assembled, defaultMaxFixAttempts, useModelFixes)
	result.Code = code
	result.Success = vres.Valid
	for _, e := range vres.Errors {
		result.Errors = append(result.Errors, e.Format())
	}

	lres := s.val.ValidateLogic(ctx, code)
	result.Warnings = append(result.Warnings, lres.Warnings...)
	result.Warnings = append(result.Warnings, s.val.SuggestImprovements(ctx, code)...)

	result.Metadata["chunks"] = chunks
	result.Metadata["streamed"] = true
	result.Metadata["offload"] = s.exec.Stats()
	return finish(result, start)
}

// deliver sends one update unless the consumer has gone away.
func deliver(ctx context.Context, ch chan<- *PartialResult, pr *PartialResult) bool {
	select {
	case ch <- pr:
		return true
	case <-ctx.Done():
		return false
	}
}
