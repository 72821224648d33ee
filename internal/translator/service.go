package translator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nl2code/internal/assembler"
	"nl2code/internal/config"
	"nl2code/internal/logging"
	"nl2code/internal/model"
	"nl2code/internal/offload"
	"nl2code/internal/parser"
	"nl2code/internal/pyast"
	"nl2code/internal/telemetry"
	"nl2code/internal/validator"
)

// defaultMaxFixAttempts bounds the validate-and-fix loop per request.
const defaultMaxFixAttempts = 3

// Service owns the full pipeline and the controller selection policy.
type Service struct {
	cfg    *config.Config
	py     *pyast.Parser
	parser *parser.Parser
	stream *parser.StreamParser
	asm    *assembler.Assembler
	val    *validator.Validator
	cap    model.Capability
	exec   *offload.Executor
	sink   telemetry.Sink

	modelFirst *ModelFirst
	structured *Structured
}

// NewService wires the pipeline: parser, resolver-per-request, assembler,
// validator (with the capability as its refiner), offload pool and both
// controllers. sink may be nil.
func NewService(cfg *config.Config, cap model.Capability, sink telemetry.Sink) *Service {
	if sink == nil {
		sink = telemetry.NopSink{}
	}

	py := pyast.New()
	p := parser.New(py, parser.Options{})
	opts := model.OptionsFromConfig(cfg.Model)
	useModelFixes := cfg.Model.Provider != "none"

	val := validator.New(py, cfg.Formatting, cap, opts)
	asm := assembler.New(py, cfg.Formatting)
	exec := offload.New(cfg.Offload, sink)
	exec.Register(offload.KindParse, func(_ context.Context, payload string) (any, error) {
		return p.Parse(payload)
	})
	exec.Register(offload.KindValidate, func(ctx context.Context, payload string) (any, error) {
		return val.ValidateSyntax(ctx, payload), nil
	})

	s := &Service{
		cfg:    cfg,
		py:     py,
		parser: p,
		stream: parser.NewStreamParser(p, cfg.Streaming),
		asm:    asm,
		val:    val,
		cap:    cap,
		exec:   exec,
		sink:   sink,
	}
	s.modelFirst = NewModelFirst(cap, val, opts, defaultMaxFixAttempts, useModelFixes)
	s.structured = NewStructured(py, p, asm, val, cap, exec, opts, defaultMaxFixAttempts, useModelFixes)
	return s
}

// Translate runs the try-model-first-then-structured policy.
func (s *Service) Translate(ctx context.Context, input string) *Result {
	id := uuid.NewString()
	ctx = WithRequestID(ctx, id)
	s.sink.Emit(telemetry.TranslationStarted(id, "auto", len(input)))

	result := s.modelFirst.Translate(ctx, input)
	if !result.Success {
		logging.Translator("model_first unsuccessful, retrying with structured parsing")
		structured := s.structured.Translate(ctx, input)
		structured.Warnings = append(structured.Warnings,
			"model-first translation did not produce valid code; used structured parsing")
		result = structured
	}

	s.emitOutcome(id, result)
	return result
}

// TranslateWith runs one named controller: "model_first" or
// "structured_parsing".
func (s *Service) TranslateWith(ctx context.Context, approach, input string) (*Result, error) {
	var c Controller
	switch approach {
	case approachModelFirst:
		c = s.modelFirst
	case approachStructured:
		c = s.structured
	default:
		return nil, fmt.Errorf("unknown approach %q", approach)
	}

	id := uuid.NewString()
	ctx = WithRequestID(ctx, id)
	s.sink.Emit(telemetry.TranslationStarted(id, approach, len(input)))
	result := c.Translate(ctx, input)
	s.emitOutcome(id, result)
	return result, nil
}

// CheckCode runs a standalone syntax check through the offload pool.
func (s *Service) CheckCode(ctx context.Context, code string) (*validator.Result, error) {
	v, err := s.exec.Execute(ctx, offload.Task{
		Kind:      offload.KindValidate,
		Payload:   code,
		RequestID: RequestIDFrom(ctx),
	})
	if err != nil {
		return nil, err
	}
	res, ok := v.(*validator.Result)
	if !ok {
		return nil, fmt.Errorf("validate task returned %T", v)
	}
	return res, nil
}

// OffloadStats exposes the pool counters.
func (s *Service) OffloadStats() offload.Stats { return s.exec.Stats() }

// Close stops the offload pool.
func (s *Service) Close() { s.exec.Close() }

func durationFromMetadata(r *Result) time.Duration {
	ms, _ := r.Metadata["duration_ms"].(int64)
	return time.Duration(ms) * time.Millisecond
}

func (s *Service) emitOutcome(id string, r *Result) {
	approach, _ := r.Metadata["approach"].(string)
	if r.Success {
		duration := durationFromMetadata(r)
		s.sink.Emit(telemetry.TranslationCompleted(id, approach, duration, len(r.Warnings)))
		return
	}
	reason := "validation failed"
	if len(r.Errors) > 0 {
		reason = r.Errors[0]
	}
	s.sink.Emit(telemetry.TranslationFailed(id, approach, reason))
}
