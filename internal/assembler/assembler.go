// Package assembler stitches translated code blocks into one well-formed
// Python module: deduplicated imports, bucketed sections, merged duplicate
// definitions, a guarded entry point, and normalized indentation.
package assembler

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"nl2code/internal/config"
	"nl2code/internal/errdefs"
	"nl2code/internal/logging"
	"nl2code/internal/parser"
	"nl2code/internal/pyast"
)

// Assembler combines code blocks into a single module.
type Assembler struct {
	py  *pyast.Parser
	cfg config.FormattingConfig
}

// New builds an Assembler. py must be non-nil.
func New(py *pyast.Parser, cfg config.FormattingConfig) *Assembler {
	if cfg.IndentWidth <= 0 {
		cfg.IndentWidth = 4
	}
	return &Assembler{py: py, cfg: cfg}
}

// Assemble merges the Code blocks of a document into one module. Returns
// "" with no error when there is nothing to assemble. Blocks that fail to
// parse are appended to the main section with a warning rather than
// dropped.
func (a *Assembler) Assemble(ctx context.Context, blocks []*parser.Block) (code string, warnings []string, err error) {
	timer := logging.StartTimer(logging.CategoryAssembler, "Assemble")
	defer timer.Stop()

	stage := errdefs.StageFiltering
	defer func() {
		if r := recover(); r != nil {
			code, warnings = "", nil
			err = &errdefs.AssemblyError{
				Stage:   stage,
				Message: fmt.Sprintf("internal failure: %v", r),
			}
		}
	}()

	codeBlocks := filterCode(blocks)
	if len(codeBlocks) == 0 {
		return "", nil, nil
	}

	stage = errdefs.StageSections
	doc := newDocument()
	for _, b := range codeBlocks {
		if ok := a.addBlock(ctx, doc, b.Content); !ok {
			doc.main = append(doc.main, b.Content)
			warnings = append(warnings, fmt.Sprintf(
				"block at lines %d-%d did not parse cleanly; kept verbatim in main",
				b.StartLine, b.EndLine))
		}
	}

	stage = errdefs.StageImports
	importSection := buildImportSection(doc.imports, doc.bodyText(), a.cfg.AutoImport)

	stage = errdefs.StageMerging
	doc.functions = mergeDefinitions(doc.functions)
	doc.classes = mergeDefinitions(doc.classes)

	stage = errdefs.StageMain
	mainSection := buildMainSection(doc.main)

	stage = errdefs.StageConsistency
	out := stitch(doc, importSection, mainSection)

	stage = errdefs.StageIndentation
	out = a.fixIndentation(out)

	stage = errdefs.StageCleanup
	out = cleanup(out)

	logging.Get(logging.CategoryAssembler).Info(
		"assembled %d blocks into %d bytes (%d warnings)", len(codeBlocks), len(out), len(warnings))
	return out, warnings, nil
}

// AssembleIncremental extends previously assembled output with new blocks.
// Imports, functions and classes already present in previous are never
// re-emitted. If previous does not parse, the fresh assembly is appended
// verbatim instead.
func (a *Assembler) AssembleIncremental(ctx context.Context, previous string, blocks []*parser.Block) (string, []string, error) {
	if strings.TrimSpace(previous) == "" {
		return a.Assemble(ctx, blocks)
	}

	codeBlocks := filterCode(blocks)
	if len(codeBlocks) == 0 {
		return ensureTrailingNewline(previous), nil, nil
	}

	existingImports, existingNames, parsed := a.scanPrevious(ctx, previous)
	if !parsed {
		fresh, warnings, err := a.Assemble(ctx, blocks)
		if err != nil {
			return "", warnings, err
		}
		warnings = append(warnings, "previous output did not parse; appending fresh assembly verbatim")
		return joinAddition(previous, fresh), warnings, nil
	}

	var warnings []string
	doc := newDocument()
	for _, b := range codeBlocks {
		if ok := a.addBlock(ctx, doc, b.Content); !ok {
			doc.main = append(doc.main, b.Content)
			warnings = append(warnings, fmt.Sprintf(
				"block at lines %d-%d did not parse cleanly; kept verbatim in main",
				b.StartLine, b.EndLine))
		}
	}

	doc.docstring = "" // the previous output already owns the module header
	doc.imports = filterStrings(doc.imports, func(s string) bool {
		_, dup := existingImports[s]
		return !dup
	})
	doc.functions = filterDefs(mergeDefinitions(doc.functions), existingNames)
	doc.classes = filterDefs(mergeDefinitions(doc.classes), existingNames)

	importSection := buildImportSection(doc.imports, doc.bodyText(), false)
	mainSection := buildMainSection(doc.main)
	addition := stitch(doc, importSection, mainSection)
	if strings.TrimSpace(addition) == "" {
		return ensureTrailingNewline(previous), warnings, nil
	}
	addition = a.fixIndentation(addition)
	return cleanup(joinAddition(previous, addition)), warnings, nil
}

// scanPrevious collects import statements and definition names from
// already-assembled output. parsed is false when the output has syntax
// errors, which triggers the verbatim-append fallback.
func (a *Assembler) scanPrevious(ctx context.Context, previous string) (map[string]struct{}, map[string]struct{}, bool) {
	tree, err := a.py.Parse(ctx, previous)
	if err != nil {
		return nil, nil, false
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, nil, false
	}

	imports := make(map[string]struct{})
	for _, stmt := range pyast.ImportStrings(root, previous) {
		imports[stmt] = struct{}{}
	}
	names := make(map[string]struct{})
	for _, n := range pyast.TopLevelDefNames(root, previous) {
		names[n] = struct{}{}
	}
	return imports, names, true
}

func filterCode(blocks []*parser.Block) []*parser.Block {
	var out []*parser.Block
	for _, b := range blocks {
		if b.Type == parser.BlockCode {
			out = append(out, b)
		}
	}
	return out
}

func filterStrings(in []string, keep func(string) bool) []string {
	var out []string
	for _, s := range in {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func filterDefs(in []definition, existing map[string]struct{}) []definition {
	var out []definition
	for _, d := range in {
		if _, dup := existing[d.name]; !dup {
			out = append(out, d)
		}
	}
	return out
}

// stitch joins the non-empty sections with two blank lines, in module
// order: docstring, imports, constants, variables, functions, classes,
// main.
func stitch(doc *document, importSection, mainSection string) string {
	sections := []string{
		doc.docstring,
		importSection,
		strings.Join(doc.constants, "\n"),
		strings.Join(doc.variables, "\n"),
		joinDefs(doc.functions),
		joinDefs(doc.classes),
		mainSection,
	}
	var kept []string
	for _, s := range sections {
		if strings.TrimSpace(s) != "" {
			kept = append(kept, strings.TrimRight(s, "\n"))
		}
	}
	return strings.Join(kept, "\n\n\n")
}

func joinDefs(defs []definition) string {
	parts := make([]string, 0, len(defs))
	for _, d := range defs {
		parts = append(parts, d.text)
	}
	return strings.Join(parts, "\n\n\n")
}

func joinAddition(previous, addition string) string {
	previous = strings.TrimRight(previous, "\n")
	addition = strings.TrimRight(addition, "\n")
	return previous + "\n\n\n" + addition + "\n"
}

var (
	ioCallRe   = regexp.MustCompile(`\b(?:print|input|open)\s*\(`)
	mainCallRe = regexp.MustCompile(`\b\w*(?:main|run|execute)\w*\s*\(`)

	// Four or more blank lines in a row (five newlines) collapse to two.
	blankRunRe = regexp.MustCompile(`\n{5,}`)
)

// buildMainSection wraps loose statements in an entry-point guard, but
// only when they perform I/O or call something that looks like a program
// entry point. Pure computation stays unguarded at module level.
func buildMainSection(stmts []string) string {
	if len(stmts) == 0 {
		return ""
	}
	body := strings.Join(stmts, "\n")
	if !ioCallRe.MatchString(body) && !mainCallRe.MatchString(body) {
		return body
	}

	var sb strings.Builder
	sb.WriteString("if __name__ == \"__main__\":\n")
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			sb.WriteString("\n")
			continue
		}
		sb.WriteString("    " + line + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// cleanup collapses runs of four or more blank lines to two, guarantees
// exactly one trailing newline, and puts two blank lines before each
// top-level definition.
func cleanup(code string) string {
	code = blankRunRe.ReplaceAllString(code, "\n\n\n")

	lines := strings.Split(strings.TrimRight(code, "\n"), "\n")
	var out []string
	open := ""
	for i, line := range lines {
		wasInString := open != ""
		open = pyast.ScanTripleQuotes(line, open)
		if wasInString {
			out = append(out, line)
			continue
		}
		trimmed := strings.TrimSpace(line)
		topLevelDef := (strings.HasPrefix(trimmed, "def ") ||
			strings.HasPrefix(trimmed, "class ") ||
			strings.HasPrefix(trimmed, "@")) &&
			indentOf(line) == 0
		prevDecorator := i > 0 && strings.HasPrefix(strings.TrimSpace(lines[i-1]), "@")
		if topLevelDef && len(out) > 0 && !prevDecorator {
			for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
				out = out[:len(out)-1]
			}
			out = append(out, "", "")
		}
		out = append(out, line)
	}
	return ensureTrailingNewline(strings.Join(out, "\n"))
}

func ensureTrailingNewline(code string) string {
	return strings.TrimRight(code, "\n") + "\n"
}

func indentOf(line string) int {
	for i, r := range line {
		if r != ' ' && r != '\t' {
			return i
		}
	}
	return len(line)
}
