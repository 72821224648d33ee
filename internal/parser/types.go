package parser

import "nl2code/internal/errdefs"

// BlockType classifies a contiguous span of input.
type BlockType string

const (
	BlockCode            BlockType = "code"
	BlockNaturalLanguage BlockType = "natural_language"
	BlockMixed           BlockType = "mixed"
	BlockComment         BlockType = "comment"
)

// Metadata keys written by the parser and later mutated in place by the
// dependency resolver and controllers.
const (
	MetaHasImport       = "has_import"
	MetaHasDef          = "has_def"
	MetaHasClass        = "has_class"
	MetaHasDocstring    = "has_docstring"
	MetaIndentConsistent = "indent_consistent"
	MetaLikelyComplete  = "likely_complete"
	MetaDefinedNames    = "defined_names"
	MetaRequiredImports = "required_imports"
	MetaTranslated      = "translated"
)

// Block is one classified span. Line numbers are 1-based and inclusive;
// ranges across a ParseResult are monotonic and non-overlapping. Type is
// fixed once classified; Metadata is mutated in place downstream.
type Block struct {
	Type      BlockType
	Content   string
	StartLine int
	EndLine   int
	Metadata  map[string]any

	// Context carries trailing lines from the previous stream chunk.
	// Empty outside the streaming pipeline.
	Context string
}

// ParseResult is the outcome of one parse call or one stream chunk.
type ParseResult struct {
	Blocks   []*Block
	Errors   []*errdefs.ParsingError
	Warnings []string
}
