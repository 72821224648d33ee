package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nl2code/internal/assembler"
	"nl2code/internal/logging"
	"nl2code/internal/model"
	"nl2code/internal/offload"
	"nl2code/internal/parser"
	"nl2code/internal/pyast"
	"nl2code/internal/resolver"
	"nl2code/internal/telemetry"
	"nl2code/internal/validator"
)

type requestIDKey struct{}

// WithRequestID tags the context so downstream offload tasks and events
// share the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the tagged request id, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Structured translates by splitting the input into blocks, translating
// only the natural-language ones, and reassembling. Fatal on parse or
// assembly failure; everything else degrades to warnings.
type Structured struct {
	py            *pyast.Parser
	parser        *parser.Parser
	asm           *assembler.Assembler
	val           *validator.Validator
	cap           model.Capability
	exec          *offload.Executor
	opts          model.Options
	maxFix        int
	useModelFixes bool
}

// NewStructured builds the structured controller. exec may be nil, in
// which case parsing runs in-process.
func NewStructured(py *pyast.Parser, p *parser.Parser, asm *assembler.Assembler, val *validator.Validator,
	cap model.Capability, exec *offload.Executor, opts model.Options, maxFix int, useModelFixes bool) *Structured {
	if maxFix <= 0 {
		maxFix = 3
	}
	return &Structured{
		py: py, parser: p, asm: asm, val: val, cap: cap, exec: exec,
		opts: opts, maxFix: maxFix, useModelFixes: useModelFixes,
	}
}

func (s *Structured) Name() string { return approachStructured }

// Translate implements Controller.
func (s *Structured) Translate(ctx context.Context, input string) (result *Result) {
	defer guard(approachStructured, &result)
	start := time.Now()
	rec := telemetry.NewRecorder()

	parsed, err := s.parse(ctx, input)
	if err != nil {
		return finish(failed(approachStructured,
			fmt.Sprintf("parse failed: %v", err)), start)
	}
	if len(parsed.Blocks) == 0 {
		return finish(failed(approachStructured, "input produced no translatable blocks"), start)
	}

	result = newResult(approachStructured)
	result.Warnings = append(result.Warnings, parsed.Warnings...)
	for _, perr := range parsed.Errors {
		result.Warnings = append(result.Warnings, perr.Format())
	}

	res := resolver.New(s.py)
	blocks, warnings, translated, cerr := s.TranslateBlocks(ctx, res, parsed.Blocks)
	result.Warnings = append(result.Warnings, warnings...)
	if cerr != nil {
		return finish(cancelled(approachStructured), start)
	}

	code, asmWarnings, aerr := s.asm.Assemble(ctx, blocks)
	result.Warnings = append(result.Warnings, asmWarnings...)
	if aerr != nil {
		return finish(failed(approachStructured, formatAssemblyError(aerr)), start)
	}

	// Unlike model-first, the fix loop's re-validation counts toward the
	// request's timed sections.
	stop := rec.Time("validate_fix")
	code, vres := s.val.ValidateAndFix(ctx, code, s.maxFix, s.useModelFixes)
	stop()

	result.Code = code
	result.Success = vres.Valid
	for _, e := range vres.Errors {
		result.Errors = append(result.Errors, e.Format())
	}

	lres := s.val.ValidateLogic(ctx, code)
	result.Warnings = append(result.Warnings, lres.Warnings...)
	result.Warnings = append(result.Warnings, s.val.SuggestImprovements(ctx, code)...)

	result.Metadata["blocks_processed"] = len(parsed.Blocks)
	result.Metadata["blocks_translated"] = translated
	result.Metadata["timings_ms"] = rec.Snapshot()
	if s.exec != nil {
		result.Metadata["offload"] = s.exec.Stats()
	}

	logging.Translator("structured finished: success=%v, %d/%d blocks translated",
		result.Success, translated, len(parsed.Blocks))
	return finish(result, start)
}

// parse splits the input, preferring the offload pool.
func (s *Structured) parse(ctx context.Context, input string) (*parser.ParseResult, error) {
	if s.exec == nil {
		return s.parser.Parse(input)
	}
	v, err := s.exec.Execute(ctx, offload.Task{
		Kind:      offload.KindParse,
		Payload:   input,
		RequestID: RequestIDFrom(ctx),
	})
	if err != nil {
		return nil, err
	}
	parsed, ok := v.(*parser.ParseResult)
	if !ok {
		return nil, fmt.Errorf("parse task returned %T", v)
	}
	return parsed, nil
}

// TranslateBlocks runs the per-block model translation pass, feeding each
// result through the resolver so later blocks see earlier definitions.
// Code and Comment blocks pass through. Per-block model failures degrade
// to warnings; the returned error is non-nil only on cancellation.
func (s *Structured) TranslateBlocks(ctx context.Context, res *resolver.Resolver, blocks []*parser.Block) ([]*parser.Block, []string, int, error) {
	out := make([]*parser.Block, 0, len(blocks))
	var warnings []string
	translated := 0

	for _, b := range blocks {
		if err := ctx.Err(); err != nil {
			return out, warnings, translated, err
		}

		switch b.Type {
		case parser.BlockNaturalLanguage, parser.BlockMixed:
			nb, ok := s.translateBlock(ctx, res, b, &warnings)
			if ok {
				translated++
			}
			if nb != nil {
				out = append(out, nb)
			}
		default:
			res.Annotate(ctx, b)
			out = append(out, b)
		}
	}
	return out, warnings, translated, nil
}

// translateBlock sends one block to the model. On failure the block
// degrades: natural language becomes comments, mixed content passes
// through as-is.
func (s *Structured) translateBlock(ctx context.Context, res *resolver.Resolver, b *parser.Block, warnings *[]string) (*parser.Block, bool) {
	out, err := s.cap.Translate(ctx, b.Content, s.opts, modelContext(res.Snapshot(), b.Context))
	if err != nil || out == nil || strings.TrimSpace(out.Code) == "" {
		if err != nil {
			*warnings = append(*warnings, fmt.Sprintf(
				"block at lines %d-%d not translated: %v", b.StartLine, b.EndLine, err))
		} else {
			*warnings = append(*warnings, fmt.Sprintf(
				"block at lines %d-%d: model returned no code", b.StartLine, b.EndLine))
		}
		if b.Type == parser.BlockMixed {
			res.Annotate(ctx, b)
			return b, false
		}
		return commentBlock(b), false
	}

	nb := &parser.Block{
		Type:      parser.BlockCode,
		Content:   strings.TrimRight(out.Code, "\n"),
		StartLine: b.StartLine,
		EndLine:   b.EndLine,
		Metadata:  map[string]any{parser.MetaTranslated: true},
		Context:   b.Context,
	}
	res.Annotate(ctx, nb)
	return nb, true
}

// commentBlock turns untranslatable prose into a comment block. The
// failure is recorded as a warning by the caller; the assembler emits
// code blocks only, so the commented prose stays out of the output.
func commentBlock(b *parser.Block) *parser.Block {
	lines := strings.Split(b.Content, "\n")
	for i, l := range lines {
		lines[i] = "# " + l
	}
	return &parser.Block{
		Type:      parser.BlockComment,
		Content:   strings.Join(lines, "\n"),
		StartLine: b.StartLine,
		EndLine:   b.EndLine,
		Metadata:  map[string]any{parser.MetaTranslated: false},
	}
}

func formatAssemblyError(err error) string {
	type formatter interface{ Format() string }
	if f, ok := err.(formatter); ok {
		return f.Format()
	}
	return err.Error()
}
