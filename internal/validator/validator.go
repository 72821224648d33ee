// Package validator checks generated Python for structural and logical
// problems and drives the bounded fix loop.
package validator

import (
	"context"
	"fmt"
	"strings"

	"nl2code/internal/config"
	"nl2code/internal/errdefs"
	"nl2code/internal/logging"
	"nl2code/internal/model"
	"nl2code/internal/pyast"
)

// Result is the outcome of one validation pass. Errors make the code
// invalid; warnings and suggestions do not.
type Result struct {
	Valid       bool
	Errors      []*errdefs.ValidationError
	Warnings    []string
	Suggestions []string
}

// Refiner repairs code given validator feedback. Satisfied by
// model.Capability; nil disables model-backed fixes.
type Refiner interface {
	RefineCode(ctx context.Context, code, errorContext string, opts model.Options) (string, error)
}

// Validator runs syntax and logic checks over generated code.
type Validator struct {
	py      *pyast.Parser
	cfg     config.FormattingConfig
	refiner Refiner
	opts    model.Options
}

// New builds a Validator. refiner may be nil.
func New(py *pyast.Parser, cfg config.FormattingConfig, refiner Refiner, opts model.Options) *Validator {
	if cfg.IndentWidth <= 0 {
		cfg.IndentWidth = 4
	}
	return &Validator{py: py, cfg: cfg, refiner: refiner, opts: opts}
}

// maxSyntaxIssues bounds how many structural errors one pass reports.
const maxSyntaxIssues = 10

// ValidateSyntax reports structural errors with line and column.
func (v *Validator) ValidateSyntax(ctx context.Context, code string) *Result {
	result := &Result{Valid: true}
	if strings.TrimSpace(code) == "" {
		return result
	}

	tree, err := v.py.Parse(ctx, code)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, &errdefs.ValidationError{
			Kind:    errdefs.KindSyntax,
			Message: fmt.Sprintf("parse failed: %v", err),
		})
		return result
	}
	defer tree.Close()

	for _, issue := range pyast.Issues(tree.RootNode(), code, maxSyntaxIssues) {
		result.Errors = append(result.Errors, &errdefs.ValidationError{
			Kind:    errdefs.KindSyntax,
			Message: issue.Message,
			Line:    issue.Line,
			Col:     issue.Col,
			Snippet: issue.Snippet,
		})
	}
	result.Valid = len(result.Errors) == 0
	if !result.Valid {
		logging.Get(logging.CategoryValidator).Debug(
			"syntax check found %d issues", len(result.Errors))
	}
	return result
}

// ValidateLogic flags likely bugs as warnings: reads of undefined names,
// runtime risks, and performance smells. Logic findings never make the
// result invalid.
func (v *Validator) ValidateLogic(ctx context.Context, code string) *Result {
	result := &Result{Valid: true}
	if strings.TrimSpace(code) == "" {
		return result
	}

	tree, err := v.py.Parse(ctx, code)
	if err == nil {
		defer tree.Close()
		for _, name := range undefinedNames(tree.RootNode(), code) {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"name %q at line %d is not defined in any enclosing scope", name.text, name.line))
		}
	}

	result.Warnings = append(result.Warnings, runtimeRisks(code)...)
	result.Warnings = append(result.Warnings, performanceSmells(code)...)
	return result
}

// SuggestImprovements returns style advice that is never applied
// automatically.
func (v *Validator) SuggestImprovements(ctx context.Context, code string) []string {
	var out []string

	for i, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if v.cfg.MaxLineLength > 0 && len(line) > v.cfg.MaxLineLength {
			out = append(out, fmt.Sprintf("line %d exceeds %d characters; consider wrapping",
				i+1, v.cfg.MaxLineLength))
		}
		if strings.Contains(trimmed, "== None") || strings.Contains(trimmed, "!= None") {
			out = append(out, fmt.Sprintf("line %d: compare to None with 'is' / 'is not'", i+1))
		}
		if strings.Contains(trimmed, "range(len(") {
			out = append(out, fmt.Sprintf("line %d: iterate with enumerate() instead of range(len())", i+1))
		}
	}

	if tree, err := v.py.Parse(ctx, code); err == nil {
		defer tree.Close()
		for _, name := range undocumentedFunctions(tree.RootNode(), code) {
			out = append(out, fmt.Sprintf("function %q has no docstring", name))
		}
	}
	return out
}

// formatErrorContext renders validation errors for the model refiner.
func formatErrorContext(res *Result) string {
	var sb strings.Builder
	for _, e := range res.Errors {
		sb.WriteString(e.Error())
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}
