// Package pyast wraps Tree-sitter parsing of Python source for the rest of
// the pipeline. It centralizes the grammar-specific node-type knowledge so
// the parser, resolver, assembler and validator all query one place.
package pyast

import (
	"context"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Parser is a reusable, mutex-guarded Tree-sitter parser.
// Tree-sitter parsers are not safe for concurrent use.
type Parser struct {
	mu sync.Mutex
	p  *sitter.Parser
}

// New creates a Python parser.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{p: p}
}

// Parse parses src and returns the tree. Callers own the tree and must
// Close it.
func (p *Parser) Parse(ctx context.Context, src string) (*sitter.Tree, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.p.ParseCtx(ctx, nil, []byte(src))
}

// Text returns the source text covered by a node.
func Text(n *sitter.Node, src string) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if int(end) > len(src) {
		end = uint32(len(src))
	}
	if start > end {
		return ""
	}
	return src[start:end]
}

// Line returns the 1-based line of a node's start.
func Line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// Col returns the 0-based column of a node's start.
func Col(n *sitter.Node) int {
	return int(n.StartPoint().Column)
}

// TopLevel returns the named children of the module node.
func TopLevel(root *sitter.Node) []*sitter.Node {
	if root == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, root.NamedChildCount())
	for i := 0; i < int(root.NamedChildCount()); i++ {
		out = append(out, root.NamedChild(i))
	}
	return out
}

// Walk visits every node depth-first until fn returns false.
func Walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		Walk(n.Child(i), fn)
	}
}

// IsImport reports whether the node is any form of import statement.
func IsImport(n *sitter.Node) bool {
	switch n.Type() {
	case "import_statement", "import_from_statement", "future_import_statement":
		return true
	}
	return false
}

// IsDefinition reports whether the node is a function or class definition,
// unwrapping decorated definitions.
func IsDefinition(n *sitter.Node) bool {
	t := n.Type()
	return t == "function_definition" || t == "class_definition" || t == "decorated_definition"
}

// DefinitionName returns the name of a function/class definition node,
// unwrapping decorators. Empty string when the node is not a definition.
func DefinitionName(n *sitter.Node, src string) string {
	inner := unwrapDecorated(n)
	if inner == nil {
		return ""
	}
	name := inner.ChildByFieldName("name")
	return Text(name, src)
}

// unwrapDecorated returns the wrapped definition, or the node itself.
func unwrapDecorated(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() != "decorated_definition" {
		if IsDefinition(n) {
			return n
		}
		return nil
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "function_definition" || c.Type() == "class_definition" {
			return c
		}
	}
	return nil
}

// ImportStrings returns canonical import statements found anywhere in the
// tree, in document order. The canonical form is the statement's own source
// text with whitespace collapsed.
func ImportStrings(root *sitter.Node, src string) []string {
	var out []string
	Walk(root, func(n *sitter.Node) bool {
		if IsImport(n) {
			out = append(out, canonicalImport(Text(n, src)))
			return false
		}
		return true
	})
	return out
}

func canonicalImport(stmt string) string {
	return strings.Join(strings.Fields(stmt), " ")
}

// TopLevelDefNames returns names of module-level function and class
// definitions, in document order.
func TopLevelDefNames(root *sitter.Node, src string) []string {
	var out []string
	for _, n := range TopLevel(root) {
		if name := DefinitionName(n, src); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// TopLevelAssignTargets returns identifiers assigned at module level.
func TopLevelAssignTargets(root *sitter.Node, src string) []string {
	var out []string
	for _, n := range TopLevel(root) {
		if n.Type() != "expression_statement" {
			continue
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() != "assignment" && c.Type() != "augmented_assignment" {
				continue
			}
			left := c.ChildByFieldName("left")
			out = append(out, assignTargets(left, src)...)
		}
	}
	return out
}

// AssignTargets flattens an assignment left-hand side into identifiers.
func AssignTargets(left *sitter.Node, src string) []string {
	return assignTargets(left, src)
}

// assignTargets flattens an assignment left-hand side into identifiers.
func assignTargets(left *sitter.Node, src string) []string {
	if left == nil {
		return nil
	}
	switch left.Type() {
	case "identifier":
		return []string{Text(left, src)}
	case "pattern_list", "tuple_pattern", "list_pattern":
		var out []string
		for i := 0; i < int(left.NamedChildCount()); i++ {
			out = append(out, assignTargets(left.NamedChild(i), src)...)
		}
		return out
	}
	return nil
}
