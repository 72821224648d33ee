package pyast

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Issue is one structural problem found in a parse tree.
type Issue struct {
	Line    int
	Col     int
	Message string
	Snippet string
}

// FirstIssue returns the first structural error in document order, or nil
// when the tree is clean.
func FirstIssue(root *sitter.Node, src string) *Issue {
	issues := collectIssues(root, src, 1)
	if len(issues) == 0 {
		return nil
	}
	return &issues[0]
}

// Issues returns up to limit structural errors in document order.
// limit <= 0 means all.
func Issues(root *sitter.Node, src string, limit int) []Issue {
	return collectIssues(root, src, limit)
}

func collectIssues(root *sitter.Node, src string, limit int) []Issue {
	if root == nil || !root.HasError() {
		return nil
	}
	var out []Issue
	Walk(root, func(n *sitter.Node) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}
		if n.IsMissing() {
			out = append(out, Issue{
				Line:    Line(n),
				Col:     Col(n),
				Message: fmt.Sprintf("missing %s", n.Type()),
				Snippet: lineAt(src, Line(n)),
			})
			return false
		}
		if n.Type() == "ERROR" {
			out = append(out, Issue{
				Line:    Line(n),
				Col:     Col(n),
				Message: "invalid syntax",
				Snippet: lineAt(src, Line(n)),
			})
			return false
		}
		// Only descend into subtrees that actually contain an error.
		return n.HasError()
	})
	return out
}

// lineAt returns the 1-based line from src, trimmed.
func lineAt(src string, line int) string {
	if line < 1 {
		return ""
	}
	lines := strings.Split(src, "\n")
	if line > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[line-1])
}
