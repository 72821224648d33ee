package errdefs

import (
	"errors"
	"strings"
	"testing"
)

func TestParsingErrorFormat(t *testing.T) {
	e := &ParsingError{
		Message:     "unterminated string literal",
		Line:        12,
		Snippet:     "msg = \"hello",
		Suggestions: []string{"close the string with a matching quote"},
	}

	got := e.Format()
	if !strings.Contains(got, "line 12") {
		t.Errorf("Format() missing line number: %q", got)
	}
	if !strings.Contains(got, "near: msg =") {
		t.Errorf("Format() missing snippet: %q", got)
	}
	if !strings.Contains(got, "suggestion: close the string") {
		t.Errorf("Format() missing suggestion: %q", got)
	}
}

func TestAssemblyErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := &AssemblyError{Stage: StageMerging, Message: "merge failed", Err: cause}

	if !errors.Is(e, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !strings.Contains(e.Error(), "merging") {
		t.Errorf("Error() should name the stage: %q", e.Error())
	}
}

func TestAssemblyErrorDefaultSuggestions(t *testing.T) {
	e := &AssemblyError{Stage: StageImports, Message: "bad import line"}
	if !strings.Contains(e.Format(), "suggestion:") {
		t.Errorf("stage-tagged error should carry a default suggestion: %q", e.Format())
	}
}

func TestTruncateSnippet(t *testing.T) {
	long := strings.Repeat("x", 200)
	got := truncateSnippet(long)
	if len(got) != 80 {
		t.Errorf("truncateSnippet length = %d, want 80", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated snippet should end with ellipsis: %q", got)
	}

	multi := "first line\nsecond line"
	if got := truncateSnippet(multi); got != "first line" {
		t.Errorf("truncateSnippet(%q) = %q, want first line only", multi, got)
	}
}

func TestStreamingError(t *testing.T) {
	e := &StreamingError{ChunkIndex: 3, Position: 4096, Message: "chunk parse failed"}
	if !strings.Contains(e.Error(), "chunk 3") || !strings.Contains(e.Error(), "4096") {
		t.Errorf("StreamingError should carry chunk and position: %q", e.Error())
	}
}
