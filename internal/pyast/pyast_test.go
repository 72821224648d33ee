package pyast

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTopLevelDefNames(t *testing.T) {
	src := `import os

def foo():
    pass

@decorator
def bar():
    pass

class Baz:
    def method(self):
        pass
`
	p := New()
	tree, err := p.Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()

	got := TopLevelDefNames(tree.RootNode(), src)
	want := []string{"foo", "bar", "Baz"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TopLevelDefNames mismatch (-want +got):\n%s", diff)
	}
}

func TestImportStrings(t *testing.T) {
	src := `import os
from   collections import OrderedDict

def f():
    import json
    return json
`
	p := New()
	tree, err := p.Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()

	got := ImportStrings(tree.RootNode(), src)
	want := []string{
		"import os",
		"from collections import OrderedDict",
		"import json",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ImportStrings mismatch (-want +got):\n%s", diff)
	}
}

func TestTopLevelAssignTargets(t *testing.T) {
	src := `X = 1
a, b = 2, 3
obj.attr = 4

def f():
    local = 5
`
	p := New()
	tree, err := p.Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()

	got := TopLevelAssignTargets(tree.RootNode(), src)
	want := []string{"X", "a", "b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TopLevelAssignTargets mismatch (-want +got):\n%s", diff)
	}
}

func TestFirstIssueOnBrokenCode(t *testing.T) {
	src := "def f(:\n    pass\n"
	p := New()
	tree, err := p.Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()

	issue := FirstIssue(tree.RootNode(), src)
	if issue == nil {
		t.Fatal("expected an issue for broken code")
	}
	if issue.Line != 1 {
		t.Errorf("issue.Line = %d, want 1", issue.Line)
	}
	if issue.Snippet == "" {
		t.Error("issue should carry a snippet")
	}
}

func TestFirstIssueCleanCode(t *testing.T) {
	src := "def f():\n    return 1\n"
	p := New()
	tree, err := p.Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()

	if issue := FirstIssue(tree.RootNode(), src); issue != nil {
		t.Errorf("clean code should have no issues, got %+v", issue)
	}
}

func TestScanTripleQuotes(t *testing.T) {
	tests := []struct {
		line string
		open string
		want string
	}{
		{`x = """start`, "", `"""`},
		{`still inside`, `"""`, `"""`},
		{`end"""`, `"""`, ""},
		{`s = """one line"""`, "", ""},
		{`a = '''x''' + """y`, "", `"""`},
	}
	for _, tt := range tests {
		if got := ScanTripleQuotes(tt.line, tt.open); got != tt.want {
			t.Errorf("ScanTripleQuotes(%q, %q) = %q, want %q", tt.line, tt.open, got, tt.want)
		}
	}
}
