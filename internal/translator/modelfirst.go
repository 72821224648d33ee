package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nl2code/internal/logging"
	"nl2code/internal/model"
	"nl2code/internal/validator"
)

// ModelFirst translates the whole input with a single model call and then
// repairs the result. Fatal only when the model rejects the input or
// returns no code.
type ModelFirst struct {
	cap           model.Capability
	val           *validator.Validator
	opts          model.Options
	maxFix        int
	useModelFixes bool
}

// NewModelFirst builds the model-first controller.
func NewModelFirst(cap model.Capability, val *validator.Validator, opts model.Options, maxFix int, useModelFixes bool) *ModelFirst {
	if maxFix <= 0 {
		maxFix = 3
	}
	return &ModelFirst{cap: cap, val: val, opts: opts, maxFix: maxFix, useModelFixes: useModelFixes}
}

func (m *ModelFirst) Name() string { return approachModelFirst }

// Translate implements Controller.
func (m *ModelFirst) Translate(ctx context.Context, input string) (result *Result) {
	defer guard(approachModelFirst, &result)
	start := time.Now()

	if err := m.cap.ValidateInput(ctx, input); err != nil {
		return finish(failed(approachModelFirst,
			fmt.Sprintf("model rejected input: %v", err)), start)
	}

	out, err := m.cap.Translate(ctx, input, m.opts, "")
	if err != nil {
		return finish(failed(approachModelFirst,
			fmt.Sprintf("model translation failed: %v", err)), start)
	}
	if out == nil || strings.TrimSpace(out.Code) == "" {
		return finish(failed(approachModelFirst, "model returned no code"), start)
	}

	result = newResult(approachModelFirst)
	result.Warnings = append(result.Warnings, out.Errors...)
	for k, v := range out.Metadata {
		result.Metadata["model_"+k] = v
	}

	// Re-validation is deliberately not telemetry-timed on this path; the
	// single model call dominates and the timing would only add noise.
	code, vres := m.val.ValidateAndFix(ctx, out.Code, m.maxFix, m.useModelFixes)
	result.Code = code
	result.Success = vres.Valid
	for _, e := range vres.Errors {
		result.Errors = append(result.Errors, e.Format())
	}

	lres := m.val.ValidateLogic(ctx, code)
	result.Warnings = append(result.Warnings, lres.Warnings...)
	result.Warnings = append(result.Warnings, m.val.SuggestImprovements(ctx, code)...)

	logging.Translator("model_first finished: success=%v, %d warnings",
		result.Success, len(result.Warnings))
	return finish(result, start)
}
