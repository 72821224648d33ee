// Package errdefs defines the error taxonomy shared by the translation
// pipeline. Every error carries enough position/context information to
// produce an actionable message, plus remediation suggestions tailored to
// where the failure happened.
package errdefs

import (
	"fmt"
	"strings"
)

// ParsingError reports bad block structure in the input text.
type ParsingError struct {
	Message     string
	Line        int // 1-based, 0 when unknown
	Col         int
	BlockIndex  int // index of the block being parsed, -1 when not block-local
	Snippet     string
	Suggestions []string
}

func (e *ParsingError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Format renders the full user-facing text including snippet and suggestions.
func (e *ParsingError) Format() string {
	return formatWithContext(e.Error(), e.Snippet, e.Suggestions)
}

// AssemblyStage identifies which assembler pass failed.
type AssemblyStage string

const (
	StageFiltering   AssemblyStage = "filtering"
	StageImports     AssemblyStage = "imports"
	StageSections    AssemblyStage = "sections"
	StageMerging     AssemblyStage = "merging"
	StageGlobals     AssemblyStage = "globals"
	StageMain        AssemblyStage = "main"
	StageConsistency AssemblyStage = "consistency"
	StageCleanup     AssemblyStage = "cleanup"
	StageIndentation AssemblyStage = "indentation"
)

// AssemblyError reports a failure in one assembler stage.
type AssemblyError struct {
	Stage       AssemblyStage
	Message     string
	Snippet     string
	Suggestions []string
	Err         error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembly failed during %s: %s", e.Stage, e.Message)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// Format renders the full user-facing text.
func (e *AssemblyError) Format() string {
	suggestions := e.Suggestions
	if len(suggestions) == 0 {
		suggestions = stageSuggestions(e.Stage)
	}
	return formatWithContext(e.Error(), e.Snippet, suggestions)
}

// ValidationKind distinguishes syntax, logic and security findings.
type ValidationKind string

const (
	KindSyntax   ValidationKind = "syntax"
	KindLogic    ValidationKind = "logic"
	KindSecurity ValidationKind = "security"
)

// ValidationError reports a single validation finding.
type ValidationError struct {
	Kind        ValidationKind
	Message     string
	Line        int
	Col         int
	Snippet     string
	Suggestions []string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s error at line %d: %s", e.Kind, e.Line, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Format renders the full user-facing text.
func (e *ValidationError) Format() string {
	return formatWithContext(e.Error(), e.Snippet, e.Suggestions)
}

// ConfigurationError is raised only under strict config validation.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// StreamingError reports a failure tied to one chunk of a streaming
// translation.
type StreamingError struct {
	ChunkIndex int
	Position   int // byte offset into the original input
	Message    string
	Err        error
}

func (e *StreamingError) Error() string {
	return fmt.Sprintf("streaming error in chunk %d (offset %d): %s", e.ChunkIndex, e.Position, e.Message)
}

func (e *StreamingError) Unwrap() error { return e.Err }

// formatWithContext builds the multi-line message shape used across the
// pipeline: message, optional snippet, optional suggestion list.
func formatWithContext(msg, snippet string, suggestions []string) string {
	var sb strings.Builder
	sb.WriteString(msg)
	if snippet != "" {
		sb.WriteString("\n  near: ")
		sb.WriteString(truncateSnippet(snippet))
	}
	for _, s := range suggestions {
		sb.WriteString("\n  suggestion: ")
		sb.WriteString(s)
	}
	return sb.String()
}

func truncateSnippet(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > 80 {
		s = s[:77] + "..."
	}
	return s
}

// stageSuggestions returns default remediation hints per assembly stage.
func stageSuggestions(stage AssemblyStage) []string {
	switch stage {
	case StageImports:
		return []string{"check that import statements are on their own lines"}
	case StageSections:
		return []string{"ensure top-level definitions start at column zero"}
	case StageMerging:
		return []string{"remove conflicting duplicate definitions"}
	case StageIndentation:
		return []string{"use a consistent indentation character throughout the input"}
	case StageMain:
		return []string{"move executable statements below function definitions"}
	default:
		return nil
	}
}
