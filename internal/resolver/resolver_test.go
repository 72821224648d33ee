package resolver

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nl2code/internal/parser"
	"nl2code/internal/pyast"
)

func codeBlock(content string) *parser.Block {
	return &parser.Block{
		Type:     parser.BlockCode,
		Content:  content,
		Metadata: make(map[string]any),
	}
}

func TestAnnotateAccumulates(t *testing.T) {
	r := New(pyast.New())
	ctx := context.Background()

	first := codeBlock("import os\n\ndef alpha():\n    return 1\n")
	second := codeBlock("from sys import argv\n\nbeta = alpha()\n")

	ann1 := r.Annotate(ctx, first)
	if diff := cmp.Diff([]string{"alpha"}, ann1.DefinedNames); diff != "" {
		t.Errorf("first block names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"import os"}, ann1.RequiredImports); diff != "" {
		t.Errorf("first block imports mismatch (-want +got):\n%s", diff)
	}

	ann2 := r.Annotate(ctx, second)
	if diff := cmp.Diff([]string{"alpha", "beta"}, ann2.DefinedNames); diff != "" {
		t.Errorf("accumulated names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"from sys import argv", "import os"}, ann2.RequiredImports); diff != "" {
		t.Errorf("accumulated imports mismatch (-want +got):\n%s", diff)
	}

	// The block metadata carries the accumulated view.
	got, _ := second.Metadata[parser.MetaDefinedNames].([]string)
	if diff := cmp.Diff(ann2.DefinedNames, got); diff != "" {
		t.Errorf("metadata names mismatch (-want +got):\n%s", diff)
	}
}

func TestAnnotateSkipsProseBlocks(t *testing.T) {
	r := New(pyast.New())
	block := &parser.Block{
		Type:     parser.BlockNaturalLanguage,
		Content:  "define a function called ghost",
		Metadata: make(map[string]any),
	}
	ann := r.Annotate(context.Background(), block)
	if len(ann.DefinedNames) != 0 {
		t.Errorf("prose block contributed names: %v", ann.DefinedNames)
	}
	// Metadata is still attached so downstream stages see the running state.
	if _, ok := block.Metadata[parser.MetaDefinedNames]; !ok {
		t.Error("metadata not attached to prose block")
	}
}

func TestAnnotateBrokenBlockDegradesToEmpty(t *testing.T) {
	r := New(pyast.New())
	ctx := context.Background()
	r.Annotate(ctx, codeBlock("x = 1\n"))

	ann := r.Annotate(ctx, codeBlock("def broken(((:\n"))
	// Broken extraction may find partial results via error recovery, but it
	// must never lose previously accumulated state.
	found := false
	for _, n := range ann.DefinedNames {
		if n == "x" {
			found = true
		}
	}
	if !found {
		t.Errorf("accumulated state lost after broken block: %v", ann.DefinedNames)
	}
}

func TestReset(t *testing.T) {
	r := New(pyast.New())
	r.Annotate(context.Background(), codeBlock("x = 1\n"))
	r.Reset()
	if snap := r.Snapshot(); len(snap.DefinedNames) != 0 || len(snap.RequiredImports) != 0 {
		t.Errorf("state survived reset: %+v", snap)
	}
}

func TestHeuristicExtractor(t *testing.T) {
	content := `import os
from collections import Counter

def top():
    inner = 1
    return inner

CONST: int = 5
result = top()

doc = """
fake = 1
import fake_module
"""
`
	names, imports, err := heuristicExtractor{}.Extract(context.Background(), content)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if diff := cmp.Diff([]string{"top", "CONST", "result", "doc"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"import os", "from collections import Counter"}, imports); diff != "" {
		t.Errorf("imports mismatch (-want +got):\n%s", diff)
	}
}

func TestHeuristicVariantChosenWhenNoParser(t *testing.T) {
	r := New(nil)
	if _, ok := r.ex.(heuristicExtractor); !ok {
		t.Fatalf("expected heuristic extractor, got %T", r.ex)
	}
	ann := r.Annotate(context.Background(), codeBlock("value = 42\n"))
	if diff := cmp.Diff([]string{"value"}, ann.DefinedNames); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}
