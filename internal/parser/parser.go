// Package parser splits mixed natural-language/code input into classified
// blocks. Splitting and scoring are deliberately decoupled: boundaries come
// from structural heuristics, classification from a pluggable LineScorer.
package parser

import (
	"context"
	"fmt"
	"strings"

	"nl2code/internal/errdefs"
	"nl2code/internal/logging"
	"nl2code/internal/pyast"
)

// Options configures a Parser. Zero values select the defaults.
type Options struct {
	Scorer        LineScorer
	CodeThreshold float64
	LangThreshold float64
}

// Parser turns raw input text into a ParseResult.
type Parser struct {
	scorer        LineScorer
	codeThreshold float64
	langThreshold float64
	py            *pyast.Parser
}

// New creates a Parser. py may be nil, in which case per-block structural
// checks are skipped.
func New(py *pyast.Parser, opts Options) *Parser {
	p := &Parser{
		scorer:        opts.Scorer,
		codeThreshold: opts.CodeThreshold,
		langThreshold: opts.LangThreshold,
		py:            py,
	}
	if p.scorer == nil {
		p.scorer = DefaultScorer{}
	}
	if p.codeThreshold == 0 {
		p.codeThreshold = DefaultCodeThreshold
	}
	if p.langThreshold == 0 {
		p.langThreshold = DefaultLangThreshold
	}
	return p
}

// Parse splits text into classified blocks. Individual block failures are
// recorded as non-fatal errors; the rest of the document still parses.
func (p *Parser) Parse(text string) (*ParseResult, error) {
	return p.parseAt(text, 1)
}

// parseAt parses with a 1-based starting line number, used by the
// streaming pipeline to keep chunk line ranges absolute.
func (p *Parser) parseAt(text string, startLine int) (*ParseResult, error) {
	timer := logging.StartTimer(logging.CategoryParser, "Parse")
	defer timer.Stop()

	result := &ParseResult{}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	segments := p.split(lines)
	logging.ParserDebug("split %d lines into %d segments", len(lines), len(segments))

	for i, seg := range segments {
		block, err := p.buildBlock(lines, seg, startLine, result)
		if err != nil {
			perr := &errdefs.ParsingError{
				Message:    err.Error(),
				Line:       startLine + seg.start,
				BlockIndex: i,
			}
			result.Errors = append(result.Errors, perr)
			continue
		}
		if block != nil {
			result.Blocks = append(result.Blocks, block)
		}
	}

	logging.Parser("parsed %d blocks (%d errors, %d warnings)",
		len(result.Blocks), len(result.Errors), len(result.Warnings))
	return result, nil
}

// segment is a half-open line range [start, end) into the input.
type segment struct {
	start, end int
}

// split finds block boundaries. A boundary opens before a line that starts
// a top-level definition or import, returns to zero indentation, or dedents
// by more than one level. Boundaries are suppressed while a triple-quoted
// string literal is open.
func (p *Parser) split(lines []string) []segment {
	indentUnit := detectIndentUnit(lines)

	var segments []segment
	segStart := 0
	prevIndent := 0 // indent of previous non-blank line
	tripleOpen := ""

	flush := func(end int) {
		if end > segStart && !allBlank(lines[segStart:end]) {
			segments = append(segments, segment{segStart, end})
		}
		segStart = end
	}

	for i, line := range lines {
		inString := tripleOpen != ""
		trimmed := strings.TrimSpace(line)

		if !inString && trimmed != "" && i > segStart {
			indent := indentWidth(line)
			switch {
			case indent == 0 && isTopLevelStart(trimmed):
				flush(i)
			case indent == 0 && prevIndent > 0:
				flush(i)
			case prevIndent-indent > indentUnit:
				flush(i)
			}
		}

		tripleOpen = pyast.ScanTripleQuotes(line, tripleOpen)
		if trimmed != "" {
			prevIndent = indentWidth(line)
		}
	}
	flush(len(lines))
	return segments
}

// buildBlock classifies one segment and attaches metadata.
func (p *Parser) buildBlock(lines []string, seg segment, startLine int, result *ParseResult) (block *Block, err error) {
	defer func() {
		if r := recover(); r != nil {
			block, err = nil, fmt.Errorf("block processing panicked: %v", r)
		}
	}()

	// Trim surrounding blank lines but keep absolute line numbers.
	first, last := seg.start, seg.end-1
	for first <= last && strings.TrimSpace(lines[first]) == "" {
		first++
	}
	for last >= first && strings.TrimSpace(lines[last]) == "" {
		last--
	}
	if first > last {
		return nil, nil
	}

	content := strings.Join(lines[first:last+1], "\n")
	blockLines := lines[first : last+1]

	block = &Block{
		Type:      p.classify(blockLines),
		Content:   content,
		StartLine: startLine + first,
		EndLine:   startLine + last,
		Metadata:  make(map[string]any),
	}
	p.attachMetadata(block, blockLines, result)

	if block.Type == BlockCode && p.py != nil {
		p.checkStructure(block, result)
	}
	return block, nil
}

// classify applies the code-line ratio thresholds.
func (p *Parser) classify(lines []string) BlockType {
	considered, codeCount := 0, 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		considered++
		code, lang := p.scorer.Score(line)
		if code > lang {
			codeCount++
		}
	}
	if considered == 0 {
		return BlockComment
	}

	ratio := float64(codeCount) / float64(considered)
	switch {
	case ratio >= p.codeThreshold:
		return BlockCode
	case ratio <= p.langThreshold:
		return BlockNaturalLanguage
	default:
		return BlockMixed
	}
}

// attachMetadata records structural facts about the block.
func (p *Parser) attachMetadata(block *Block, lines []string, result *ParseResult) {
	var hasImport, hasDef, hasClass bool
	var sawTab, sawSpace bool

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "from ") {
			hasImport = true
		}
		if strings.HasPrefix(trimmed, "def ") {
			hasDef = true
		}
		if strings.HasPrefix(trimmed, "class ") {
			hasClass = true
		}
		for _, r := range line {
			if r == '\t' {
				sawTab = true
			} else if r == ' ' {
				sawSpace = true
			} else {
				break
			}
		}
	}

	firstLine := strings.TrimSpace(lines[0])
	hasDocstring := strings.HasPrefix(firstLine, `"""`) || strings.HasPrefix(firstLine, "'''")

	lastLine := ""
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			lastLine = strings.TrimSpace(lines[i])
			break
		}
	}
	likelyComplete := !strings.HasSuffix(lastLine, ":")

	consistent := !(sawTab && sawSpace)
	if !consistent {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"mixed tabs and spaces in block at lines %d-%d", block.StartLine, block.EndLine))
	}

	block.Metadata[MetaHasImport] = hasImport
	block.Metadata[MetaHasDef] = hasDef
	block.Metadata[MetaHasClass] = hasClass
	block.Metadata[MetaHasDocstring] = hasDocstring
	block.Metadata[MetaIndentConsistent] = consistent
	block.Metadata[MetaLikelyComplete] = likelyComplete
}

// checkStructure records the first structural problem of a Code block as a
// non-fatal error.
func (p *Parser) checkStructure(block *Block, result *ParseResult) {
	tree, err := p.py.Parse(context.Background(), block.Content)
	if err != nil {
		result.Errors = append(result.Errors, &errdefs.ParsingError{
			Message: fmt.Sprintf("block parse failed: %v", err),
			Line:    block.StartLine,
		})
		return
	}
	defer tree.Close()

	if issue := pyast.FirstIssue(tree.RootNode(), block.Content); issue != nil {
		result.Errors = append(result.Errors, &errdefs.ParsingError{
			Message: issue.Message,
			Line:    block.StartLine + issue.Line - 1,
			Col:     issue.Col,
			Snippet: issue.Snippet,
			Suggestions: []string{
				"check for unbalanced brackets or missing colons near this line",
			},
		})
	}
}

// isTopLevelStart reports a line that opens a new top-level statement.
func isTopLevelStart(trimmed string) bool {
	for _, prefix := range []string{"def ", "class ", "import ", "from ", "@"} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// indentWidth measures leading whitespace with tabs counted as 4 columns.
func indentWidth(line string) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width
		}
	}
	return width
}

// detectIndentUnit returns the smallest positive indentation seen,
// defaulting to 4.
func detectIndentUnit(lines []string) int {
	unit := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if w := indentWidth(line); w > 0 && (unit == 0 || w < unit) {
			unit = w
		}
	}
	if unit == 0 {
		return 4
	}
	return unit
}

// allBlank reports whether every line is whitespace.
func allBlank(lines []string) bool {
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			return false
		}
	}
	return true
}
