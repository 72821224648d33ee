// Package translator drives pseudocode-to-Python translation: two
// controller strategies sharing one result shape, a try-model-first
// policy, and the chunked streaming pipeline.
package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nl2code/internal/logging"
	"nl2code/internal/resolver"
)

// Controller is one translation strategy. Translate never panics and
// never returns nil; failures come back as a failed Result.
type Controller interface {
	Name() string
	Translate(ctx context.Context, input string) *Result
}

const (
	approachModelFirst = "model_first"
	approachStructured = "structured_parsing"
)

// guard converts a stage panic into a failed result. Every controller
// wraps its Translate body with it.
func guard(approach string, result **Result) {
	if r := recover(); r != nil {
		logging.Translator("%s controller panicked: %v", approach, r)
		*result = failed(approach, fmt.Sprintf("internal error: %v", r))
	}
}

// finish stamps the shared trailing metadata.
func finish(r *Result, start time.Time) *Result {
	r.Metadata["duration_ms"] = time.Since(start).Milliseconds()
	return r
}

// modelContext renders the accumulated annotation plus any stream carry
// into the context string handed to the model.
func modelContext(ann resolver.Annotation, carry string) string {
	var parts []string
	if len(ann.RequiredImports) > 0 {
		parts = append(parts, "Imports so far: "+strings.Join(ann.RequiredImports, "; "))
	}
	if len(ann.DefinedNames) > 0 {
		parts = append(parts, "Names already defined: "+strings.Join(ann.DefinedNames, ", "))
	}
	if carry != "" {
		parts = append(parts, "Preceding code:\n"+carry)
	}
	return strings.Join(parts, "\n")
}
