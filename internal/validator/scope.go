package validator

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"nl2code/internal/pyast"
)

// pythonBuiltins are names that resolve without any binding. Kept to the
// commonly used subset; an unknown exotic builtin costs one spurious
// warning, never an error.
var pythonBuiltins = map[string]struct{}{
	"abs": {}, "all": {}, "any": {}, "bin": {}, "bool": {}, "bytearray": {},
	"bytes": {}, "callable": {}, "chr": {}, "classmethod": {}, "complex": {},
	"dict": {}, "dir": {}, "divmod": {}, "enumerate": {}, "eval": {},
	"exec": {}, "filter": {}, "float": {}, "format": {}, "frozenset": {},
	"getattr": {}, "globals": {}, "hasattr": {}, "hash": {}, "help": {},
	"hex": {}, "id": {}, "input": {}, "int": {}, "isinstance": {},
	"issubclass": {}, "iter": {}, "len": {}, "list": {}, "locals": {},
	"map": {}, "max": {}, "min": {}, "next": {}, "object": {}, "oct": {},
	"open": {}, "ord": {}, "pow": {}, "print": {}, "property": {},
	"range": {}, "repr": {}, "reversed": {}, "round": {}, "set": {},
	"setattr": {}, "slice": {}, "sorted": {}, "staticmethod": {}, "str": {},
	"sum": {}, "super": {}, "tuple": {}, "type": {}, "vars": {}, "zip": {},
	"Exception": {}, "ValueError": {}, "TypeError": {}, "KeyError": {},
	"IndexError": {}, "AttributeError": {}, "RuntimeError": {},
	"StopIteration": {}, "ZeroDivisionError": {}, "FileNotFoundError": {},
	"OSError": {}, "IOError": {}, "NotImplementedError": {}, "OverflowError": {},
	"ArithmeticError": {}, "AssertionError": {}, "BaseException": {},
	"KeyboardInterrupt": {}, "NotImplemented": {}, "Ellipsis": {},
	"__name__": {}, "__file__": {}, "__doc__": {}, "self": {}, "cls": {},
	"True": {}, "False": {}, "None": {},
}

type nameRef struct {
	text string
	line int
}

type scope struct {
	names  map[string]struct{}
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{names: make(map[string]struct{}), parent: parent}
}

func (s *scope) bind(name string) {
	if name != "" {
		s.names[name] = struct{}{}
	}
}

func (s *scope) resolves(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if _, ok := cur.names[name]; ok {
			return true
		}
	}
	_, builtin := pythonBuiltins[name]
	return builtin
}

// undefinedNames walks the tree scope by scope and reports identifier
// reads that no enclosing scope binds. Each name is reported once, at its
// first occurrence.
func undefinedNames(root *sitter.Node, src string) []nameRef {
	global := newScope(nil)
	collectBindings(root, src, global)

	var out []nameRef
	seen := make(map[string]struct{})
	checkScope(root, src, global, &out, seen)
	return out
}

// collectBindings records every name bound directly in the scope that
// owner opens. Nested function/class bodies are skipped; their names
// still bind here.
func collectBindings(owner *sitter.Node, src string, sc *scope) {
	pyast.Walk(owner, func(n *sitter.Node) bool {
		if n != owner {
			switch n.Type() {
			case "function_definition", "class_definition":
				sc.bind(pyast.Text(n.ChildByFieldName("name"), src))
				return false
			case "lambda":
				return false
			}
		}

		switch n.Type() {
		case "assignment", "augmented_assignment":
			for _, t := range pyast.AssignTargets(n.ChildByFieldName("left"), src) {
				sc.bind(t)
			}
		case "named_expression":
			sc.bind(pyast.Text(n.ChildByFieldName("name"), src))
		case "for_statement", "for_in_clause":
			for _, t := range pyast.AssignTargets(n.ChildByFieldName("left"), src) {
				sc.bind(t)
			}
		case "as_pattern":
			// with ... as x / except ... as x
			if alias := n.ChildByFieldName("alias"); alias != nil {
				sc.bind(strings.TrimSpace(pyast.Text(alias, src)))
			}
		case "global_statement", "nonlocal_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				sc.bind(pyast.Text(n.NamedChild(i), src))
			}
		case "import_statement", "import_from_statement", "future_import_statement":
			bindImportNames(n, src, sc)
			return false
		case "parameters", "lambda_parameters":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				sc.bind(parameterName(n.NamedChild(i), src))
			}
			return false
		}
		return true
	})
}

// bindImportNames binds what an import statement brings into scope: the
// alias when present, otherwise the first path component (import a.b
// binds a; from m import x binds x).
func bindImportNames(n *sitter.Node, src string, sc *scope) {
	bindTarget := func(c *sitter.Node) {
		switch c.Type() {
		case "aliased_import":
			sc.bind(pyast.Text(c.ChildByFieldName("alias"), src))
		case "dotted_name":
			name := pyast.Text(c, src)
			if i := strings.Index(name, "."); i > 0 {
				name = name[:i]
			}
			sc.bind(name)
		case "wildcard_import":
			// from m import *: nothing checkable.
		}
	}

	if n.Type() == "import_statement" {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			bindTarget(n.NamedChild(i))
		}
		return
	}
	// from-import: skip the module path, bind only the imported names.
	module := n.ChildByFieldName("module_name")
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if module != nil && c.Equal(module) {
			continue
		}
		if c.Type() == "dotted_name" {
			sc.bind(pyast.Text(c, src))
			continue
		}
		bindTarget(c)
	}
}

func parameterName(p *sitter.Node, src string) string {
	switch p.Type() {
	case "identifier":
		return pyast.Text(p, src)
	case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
		for i := 0; i < int(p.NamedChildCount()); i++ {
			if c := p.NamedChild(i); c.Type() == "identifier" {
				return pyast.Text(c, src)
			}
		}
	case "default_parameter", "typed_default_parameter":
		return pyast.Text(p.ChildByFieldName("name"), src)
	}
	return ""
}

// checkScope flags unresolved identifier reads in the scope sc, recursing
// into nested scopes with fresh binding sets.
func checkScope(owner *sitter.Node, src string, sc *scope, out *[]nameRef, seen map[string]struct{}) {
	pyast.Walk(owner, func(n *sitter.Node) bool {
		if n != owner {
			switch n.Type() {
			case "function_definition", "class_definition":
				inner := newScope(sc)
				collectBindings(n, src, inner)
				checkScope(n, src, inner, out, seen)
				return false
			}
		}
		if n.Type() != "identifier" || !isLoad(n) {
			return true
		}
		name := pyast.Text(n, src)
		if sc.resolves(name) {
			return true
		}
		if _, dup := seen[name]; dup {
			return true
		}
		seen[name] = struct{}{}
		*out = append(*out, nameRef{text: name, line: pyast.Line(n)})
		return true
	})
}

// isLoad filters out identifier occurrences that are not reads: attribute
// names, keyword-argument names, binding positions, import paths.
func isLoad(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return true
	}
	switch parent.Type() {
	case "attribute":
		attr := parent.ChildByFieldName("attribute")
		return attr == nil || !attr.Equal(n)
	case "keyword_argument":
		name := parent.ChildByFieldName("name")
		return name == nil || !name.Equal(n)
	case "dotted_name", "aliased_import", "relative_import",
		"import_statement", "import_from_statement", "future_import_statement",
		"global_statement", "nonlocal_statement":
		return false
	case "function_definition", "class_definition":
		name := parent.ChildByFieldName("name")
		return name == nil || !name.Equal(n)
	case "parameters", "lambda_parameters", "default_parameter",
		"typed_default_parameter", "typed_parameter",
		"list_splat_pattern", "dictionary_splat_pattern":
		return false
	case "as_pattern_target":
		return false
	}
	return true
}

// undocumentedFunctions returns names of module-level functions whose body
// does not start with a docstring.
func undocumentedFunctions(root *sitter.Node, src string) []string {
	var out []string
	for _, n := range pyast.TopLevel(root) {
		if !pyast.IsDefinition(n) {
			continue
		}
		name := pyast.DefinitionName(n, src)
		if name == "" || hasDocstring(n) {
			continue
		}
		out = append(out, name)
	}
	return out
}

func hasDocstring(def *sitter.Node) bool {
	body := def.ChildByFieldName("body")
	if body == nil {
		// decorated definition: look one level down
		for i := 0; i < int(def.NamedChildCount()); i++ {
			c := def.NamedChild(i)
			if c.Type() == "function_definition" || c.Type() == "class_definition" {
				body = c.ChildByFieldName("body")
				break
			}
		}
	}
	if body == nil || body.NamedChildCount() == 0 {
		return false
	}
	first := body.NamedChild(0)
	return first.Type() == "expression_statement" &&
		first.NamedChildCount() == 1 &&
		first.NamedChild(0).Type() == "string"
}
