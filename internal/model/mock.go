package model

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Mock is a deterministic offline capability. It turns instructions into
// stub functions so the pipeline stays usable without a model endpoint,
// and it is the fixture the controller tests run against.
type Mock struct {
	MaxContextTokens int

	// TranslateFunc/RefineFunc override the defaults when set.
	TranslateFunc func(ctx context.Context, instruction string, opts Options, context string) (*Output, error)
	RefineFunc    func(ctx context.Context, code, errorContext string, opts Options) (string, error)
}

var _ Capability = (*Mock)(nil)

// ValidateInput applies the shared local checks only.
func (m *Mock) ValidateInput(_ context.Context, text string) error {
	max := m.MaxContextTokens
	if max == 0 {
		max = 8192
	}
	return checkInput(text, max)
}

var nonIdentRe = regexp.MustCompile(`[^a-z0-9]+`)

// Translate produces a deterministic stub: one function named after the
// instruction's leading words, with the instruction as its docstring.
func (m *Mock) Translate(ctx context.Context, instruction string, opts Options, context string) (*Output, error) {
	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, instruction, opts, context)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := mockFunctionName(instruction)
	code := fmt.Sprintf("def %s():\n    \"\"\"%s\"\"\"\n    pass\n",
		name, strings.ReplaceAll(strings.TrimSpace(instruction), `"`, "'"))
	return &Output{
		Code:     code,
		Metadata: map[string]any{"provider": "mock"},
	}, nil
}

// RefineCode returns the code unchanged; the mock cannot repair anything.
func (m *Mock) RefineCode(ctx context.Context, code, errorContext string, opts Options) (string, error) {
	if m.RefineFunc != nil {
		return m.RefineFunc(ctx, code, errorContext, opts)
	}
	return code, nil
}

// mockFunctionName derives a snake_case identifier from the first words
// of an instruction.
func mockFunctionName(instruction string) string {
	words := strings.Fields(strings.ToLower(instruction))
	if len(words) > 4 {
		words = words[:4]
	}
	name := nonIdentRe.ReplaceAllString(strings.Join(words, "_"), "_")
	name = strings.Trim(name, "_")
	if name == "" || name[0] >= '0' && name[0] <= '9' {
		name = "generated_" + name
	}
	return strings.Trim(name, "_")
}
