package parser

import (
	"strings"

	"nl2code/internal/config"
	"nl2code/internal/pyast"
)

// Chunk is one slice of streaming input. Context carries trailing lines of
// the previous chunk for model context only; it is never re-yielded as
// chunk text.
type Chunk struct {
	Index     int
	Text      string
	Offset    int // byte offset of Text within the original input
	StartLine int // 1-based line number of the first line of Text
	Context   string
}

// StreamParser splits oversized input into chunks at clean boundaries and
// parses each chunk with absolute line numbers.
type StreamParser struct {
	p            *Parser
	threshold    int
	minSize      int
	maxSize      int
	contextLines int
}

// NewStreamParser wraps a Parser for chunked use.
func NewStreamParser(p *Parser, cfg config.StreamingConfig) *StreamParser {
	return &StreamParser{
		p:            p,
		threshold:    cfg.StreamThreshold,
		minSize:      cfg.MinChunkSize,
		maxSize:      cfg.MaxChunkSize,
		contextLines: cfg.ContextLines,
	}
}

// NeedsStreaming reports whether input is large enough for the chunked
// pipeline.
func (sp *StreamParser) NeedsStreaming(text string) bool {
	return len(text) > sp.threshold
}

// ParseChunk parses one chunk, keeping line numbers absolute.
func (sp *StreamParser) ParseChunk(c Chunk) (*ParseResult, error) {
	result, err := sp.p.parseAt(c.Text, c.StartLine)
	if err != nil {
		return nil, err
	}
	if c.Context != "" {
		for _, b := range result.Blocks {
			b.Context = c.Context
		}
	}
	return result, nil
}

// Cursor returns a chunk cursor over text. Each Next call may request a
// different target size, which is how adaptive sizing feeds back into
// splitting.
func (sp *StreamParser) Cursor(text string) *ChunkCursor {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	// Precompute byte offsets and triple-quote state per line so boundary
	// checks never cut inside a multi-line string.
	offsets := make([]int, len(lines))
	inString := make([]bool, len(lines))
	offset := 0
	state := ""
	for i, line := range lines {
		offsets[i] = offset
		offset += len(line) + 1
		inString[i] = state != ""
		state = pyast.ScanTripleQuotes(line, state)
	}

	return &ChunkCursor{
		sp:       sp,
		lines:    lines,
		offsets:  offsets,
		inString: inString,
	}
}

// ChunkCursor yields successive chunks of the input.
type ChunkCursor struct {
	sp       *StreamParser
	lines    []string
	offsets  []int
	inString []bool
	pos      int // next line to yield
	index    int
}

// Remaining reports whether more input is left.
func (c *ChunkCursor) Remaining() bool {
	return c.pos < len(c.lines) && !allBlank(c.lines[c.pos:])
}

// Next yields the next chunk of roughly targetSize bytes, cut at the first
// clean boundary at or past the target, bounded by the configured maximum.
// ok is false when the input is exhausted.
func (c *ChunkCursor) Next(targetSize int) (chunk Chunk, ok bool) {
	if !c.Remaining() {
		return Chunk{}, false
	}
	if targetSize < c.sp.minSize {
		targetSize = c.sp.minSize
	}
	if targetSize > c.sp.maxSize {
		targetSize = c.sp.maxSize
	}

	start := c.pos
	size := 0
	cut := -1
	for i := start; i < len(c.lines); i++ {
		size += len(c.lines[i]) + 1
		if size >= targetSize && i+1 < len(c.lines) {
			if j := c.nextBoundary(i + 1); j > 0 {
				cut = j
			} else {
				cut = c.hardCut(i + 1)
			}
			break
		}
		if size >= c.sp.maxSize {
			cut = c.hardCut(i + 1)
			break
		}
	}
	if cut < 0 {
		cut = len(c.lines)
	}

	text := strings.Join(c.lines[start:cut], "\n")
	chunk = Chunk{
		Index:     c.index,
		Text:      text,
		Offset:    c.offsets[start],
		StartLine: start + 1,
		Context:   c.contextTail(start),
	}
	c.pos = cut
	c.index++
	return chunk, true
}

// hardCut returns the first line at or after from that is not inside a
// multi-line string, so even a forced cut never lands mid-literal.
func (c *ChunkCursor) hardCut(from int) int {
	for i := from; i < len(c.lines); i++ {
		if !c.inString[i] {
			return i
		}
	}
	return len(c.lines)
}

// nextBoundary scans forward for a clean cut line: a blank line or the
// start of a top-level statement, outside any multi-line string. Returns 0
// when no boundary exists within the max chunk size.
func (c *ChunkCursor) nextBoundary(from int) int {
	budget := c.sp.maxSize
	size := 0
	for i := from; i < len(c.lines); i++ {
		if c.inString[i] {
			size += len(c.lines[i]) + 1
			continue
		}
		trimmed := strings.TrimSpace(c.lines[i])
		if trimmed == "" {
			return i
		}
		if indentWidth(c.lines[i]) == 0 && isTopLevelStart(trimmed) {
			return i
		}
		size += len(c.lines[i]) + 1
		if size > budget {
			return 0
		}
	}
	return len(c.lines)
}

// contextTail returns up to contextLines trailing non-blank lines before
// start, used as model context for the next chunk.
func (c *ChunkCursor) contextTail(start int) string {
	if start == 0 || c.sp.contextLines <= 0 {
		return ""
	}
	from := start - c.sp.contextLines
	if from < 0 {
		from = 0
	}
	tail := c.lines[from:start]
	for len(tail) > 0 && strings.TrimSpace(tail[0]) == "" {
		tail = tail[1:]
	}
	if len(tail) == 0 {
		return ""
	}
	return strings.Join(tail, "\n")
}
