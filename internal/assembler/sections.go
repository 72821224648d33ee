package assembler

import (
	"context"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"nl2code/internal/pyast"
)

// document holds the section buckets while blocks are being folded in.
// It is transient state, discarded once stitched.
type document struct {
	docstring string
	imports   []string
	functions []definition
	classes   []definition
	constants []string
	variables []string
	main      []string
}

type definition struct {
	name string
	text string
}

func newDocument() *document {
	return &document{}
}

// bodyText is everything except imports, used to detect call patterns for
// import auto-augmentation.
func (d *document) bodyText() string {
	var sb strings.Builder
	for _, f := range d.functions {
		sb.WriteString(f.text)
		sb.WriteByte('\n')
	}
	for _, c := range d.classes {
		sb.WriteString(c.text)
		sb.WriteByte('\n')
	}
	for _, s := range d.constants {
		sb.WriteString(s)
		sb.WriteByte('\n')
	}
	for _, s := range d.variables {
		sb.WriteString(s)
		sb.WriteByte('\n')
	}
	for _, s := range d.main {
		sb.WriteString(s)
		sb.WriteByte('\n')
	}
	return sb.String()
}

var constantNameRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// addBlock parses one block and distributes its top-level statements into
// the buckets. Returns false when the block has syntax errors, in which
// case the caller keeps it verbatim.
func (a *Assembler) addBlock(ctx context.Context, doc *document, content string) bool {
	tree, err := a.py.Parse(ctx, content)
	if err != nil {
		return false
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return false
	}

	for _, n := range pyast.TopLevel(root) {
		text := strings.TrimRight(pyast.Text(n, content), "\n")
		switch {
		case pyast.IsImport(n):
			doc.imports = append(doc.imports, strings.Join(strings.Fields(text), " "))
		case pyast.IsDefinition(n):
			name := pyast.DefinitionName(n, content)
			def := definition{name: name, text: text}
			if isClassDef(n) {
				doc.classes = append(doc.classes, def)
			} else {
				doc.functions = append(doc.functions, def)
			}
		case isDocstringNode(n):
			if doc.docstring == "" { // first wins
				doc.docstring = text
			}
		case isAssignmentNode(n):
			if name, ok := soleAssignTarget(n, content); ok && constantNameRe.MatchString(name) {
				doc.constants = append(doc.constants, text)
			} else {
				doc.variables = append(doc.variables, text)
			}
		default:
			doc.main = append(doc.main, text)
		}
	}
	return true
}

// mergeDefinitions drops earlier duplicates: the later definition wins,
// but it takes the position of the first occurrence.
func mergeDefinitions(defs []definition) []definition {
	index := make(map[string]int)
	var out []definition
	for _, d := range defs {
		if i, seen := index[d.name]; seen && d.name != "" {
			out[i] = d
			continue
		}
		index[d.name] = len(out)
		out = append(out, d)
	}
	return out
}

func isClassDef(n *sitter.Node) bool {
	if n.Type() == "decorated_definition" {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if n.NamedChild(i).Type() == "class_definition" {
				return true
			}
		}
		return false
	}
	return n.Type() == "class_definition"
}

// isDocstringNode matches a bare string expression statement.
func isDocstringNode(n *sitter.Node) bool {
	if n.Type() != "expression_statement" || n.NamedChildCount() != 1 {
		return false
	}
	return n.NamedChild(0).Type() == "string"
}

func isAssignmentNode(n *sitter.Node) bool {
	if n.Type() != "expression_statement" || n.NamedChildCount() != 1 {
		return false
	}
	t := n.NamedChild(0).Type()
	return t == "assignment" || t == "augmented_assignment"
}

// soleAssignTarget returns the target name when the statement assigns to
// exactly one plain identifier.
func soleAssignTarget(n *sitter.Node, src string) (string, bool) {
	assign := n.NamedChild(0)
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return "", false
	}
	return pyast.Text(left, src), true
}
