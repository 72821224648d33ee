// Package resolver tracks names and imports across blocks so later blocks
// can be translated with knowledge of what earlier ones defined.
package resolver

import (
	"context"
	"sort"
	"sync"

	"nl2code/internal/logging"
	"nl2code/internal/parser"
	"nl2code/internal/pyast"
)

// Annotation is the accumulated context visible to one block: everything
// defined or imported by it and all blocks before it.
type Annotation struct {
	DefinedNames    []string
	RequiredImports []string
}

// Extractor pulls definitions and imports out of one block. The resolver
// picks an implementation once at construction and sticks with it.
type Extractor interface {
	Extract(ctx context.Context, content string) (names, imports []string, err error)
}

// Resolver accumulates definitions across a document. Safe for use from
// one goroutine at a time per document; the accumulator is guarded so the
// streaming pipeline can share one resolver across chunk workers.
type Resolver struct {
	ex Extractor

	mu      sync.Mutex
	defined map[string]struct{}
	imports map[string]struct{}
}

// New builds a Resolver. With a non-nil pyast parser the syntax-tree
// extractor is used; otherwise the heuristic one. The choice is permanent
// for the resolver's lifetime.
func New(py *pyast.Parser) *Resolver {
	var ex Extractor
	if py != nil {
		ex = &treeExtractor{py: py}
		logging.Resolver("using syntax-tree extraction")
	} else {
		ex = heuristicExtractor{}
		logging.Resolver("using heuristic extraction")
	}
	return &Resolver{
		ex:      ex,
		defined: make(map[string]struct{}),
		imports: make(map[string]struct{}),
	}
}

// Annotate extracts from block, folds the results into the accumulator,
// and writes the accumulated view into the block's metadata. Extraction
// failures degrade to an empty contribution; the error is reported but the
// accumulated state is still attached.
func (r *Resolver) Annotate(ctx context.Context, block *parser.Block) Annotation {
	var names, imports []string
	if block.Type == parser.BlockCode || block.Type == parser.BlockMixed {
		var err error
		names, imports, err = r.ex.Extract(ctx, block.Content)
		if err != nil {
			logging.Resolver("extraction failed for block at line %d: %v", block.StartLine, err)
			names, imports = nil, nil
		}
	}

	r.mu.Lock()
	for _, n := range names {
		r.defined[n] = struct{}{}
	}
	for _, imp := range imports {
		r.imports[imp] = struct{}{}
	}
	ann := r.snapshotLocked()
	r.mu.Unlock()

	if block.Metadata == nil {
		block.Metadata = make(map[string]any)
	}
	block.Metadata[parser.MetaDefinedNames] = ann.DefinedNames
	block.Metadata[parser.MetaRequiredImports] = ann.RequiredImports
	return ann
}

// Snapshot returns the current accumulated state, sorted.
func (r *Resolver) Snapshot() Annotation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Reset clears the accumulator for a new document.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defined = make(map[string]struct{})
	r.imports = make(map[string]struct{})
}

func (r *Resolver) snapshotLocked() Annotation {
	ann := Annotation{
		DefinedNames:    make([]string, 0, len(r.defined)),
		RequiredImports: make([]string, 0, len(r.imports)),
	}
	for n := range r.defined {
		ann.DefinedNames = append(ann.DefinedNames, n)
	}
	for imp := range r.imports {
		ann.RequiredImports = append(ann.RequiredImports, imp)
	}
	sort.Strings(ann.DefinedNames)
	sort.Strings(ann.RequiredImports)
	return ann
}

// treeExtractor reads definitions from a parsed syntax tree.
type treeExtractor struct {
	py *pyast.Parser
}

func (e *treeExtractor) Extract(ctx context.Context, content string) ([]string, []string, error) {
	tree, err := e.py.Parse(ctx, content)
	if err != nil {
		return nil, nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	names := pyast.TopLevelDefNames(root, content)
	names = append(names, pyast.TopLevelAssignTargets(root, content)...)
	imports := pyast.ImportStrings(root, content)
	return names, imports, nil
}
