// Package model defines the language-model capability consumed by the
// translation controllers, plus the concrete clients. The capability is
// deliberately opaque: failures surface as ordinary errors, and callers
// decide how to degrade.
package model

import (
	"context"
	"fmt"
	"strings"

	"nl2code/internal/config"
)

// Capability is the model contract the pipeline depends on.
type Capability interface {
	// ValidateInput checks whether the text is acceptable for translation.
	ValidateInput(ctx context.Context, text string) error

	// Translate converts a pseudocode instruction into Python code.
	// context carries surrounding already-translated code, may be empty.
	Translate(ctx context.Context, instruction string, opts Options, context string) (*Output, error)

	// RefineCode asks the model to repair code given validator feedback.
	RefineCode(ctx context.Context, code, errorContext string, opts Options) (string, error)
}

// Options holds per-call sampling parameters.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// OptionsFromConfig derives call options from resolved model config.
func OptionsFromConfig(cfg config.ModelConfig) Options {
	return Options{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxOutputTokens,
	}
}

// Output is one model translation result.
type Output struct {
	Code     string
	Errors   []string
	Metadata map[string]any
}

// checkInput implements the shared local acceptability checks used by all
// clients before any network call.
func checkInput(text string, maxContextTokens int) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fmt.Errorf("input is empty")
	}
	// Rough 4-chars-per-token heuristic against the context budget.
	if maxContextTokens > 0 && len(text) > maxContextTokens*4 {
		return fmt.Errorf("input too large: %d chars exceeds context budget (%d tokens)",
			len(text), maxContextTokens)
	}
	return nil
}
