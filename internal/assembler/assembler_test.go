package assembler

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nl2code/internal/config"
	"nl2code/internal/parser"
	"nl2code/internal/pyast"
)

func newTestAssembler() *Assembler {
	return New(pyast.New(), config.Default().Formatting)
}

func blocks(contents ...string) []*parser.Block {
	out := make([]*parser.Block, 0, len(contents))
	for i, c := range contents {
		out = append(out, &parser.Block{
			Type:      parser.BlockCode,
			Content:   c,
			StartLine: i*10 + 1,
			EndLine:   i*10 + 5,
			Metadata:  make(map[string]any),
		})
	}
	return out
}

func TestAssembleEmptyWithoutCodeBlocks(t *testing.T) {
	a := newTestAssembler()
	code, warnings, err := a.Assemble(context.Background(), []*parser.Block{
		{Type: parser.BlockNaturalLanguage, Content: "do a thing"},
		{Type: parser.BlockComment, Content: "# note"},
	})
	require.NoError(t, err)
	assert.Empty(t, code)
	assert.Empty(t, warnings)
}

func TestAssembleImportBuckets(t *testing.T) {
	a := newTestAssembler()
	code, _, err := a.Assemble(context.Background(), blocks(
		"import sys\nimport requests\nimport os\n\ndef f():\n    return 1\n",
		"import os\nfrom .local_helper import thing\n",
	))
	require.NoError(t, err)

	osIdx := strings.Index(code, "import os")
	sysIdx := strings.Index(code, "import sys")
	reqIdx := strings.Index(code, "import requests")
	localIdx := strings.Index(code, "from .local_helper import thing")
	require.True(t, osIdx >= 0 && sysIdx >= 0 && reqIdx >= 0 && localIdx >= 0, "missing imports in:\n%s", code)

	assert.Less(t, osIdx, sysIdx, "stdlib bucket should be sorted")
	assert.Less(t, sysIdx, reqIdx, "stdlib before third-party")
	assert.Less(t, reqIdx, localIdx, "third-party before local")
	assert.Equal(t, 1, strings.Count(code, "import os"), "duplicate import survived")
}

func TestAssembleAutoImport(t *testing.T) {
	a := newTestAssembler()
	code, _, err := a.Assemble(context.Background(), blocks(
		"def area(r):\n    return math.pi * r ** 2\n",
	))
	require.NoError(t, err)
	assert.Contains(t, code, "import math")

	off := config.Default().Formatting
	off.AutoImport = false
	a2 := New(pyast.New(), off)
	code2, _, err := a2.Assemble(context.Background(), blocks(
		"def area(r):\n    return math.pi * r ** 2\n",
	))
	require.NoError(t, err)
	assert.NotContains(t, code2, "import math")
}

func TestAssembleDocstringFirstWins(t *testing.T) {
	a := newTestAssembler()
	code, _, err := a.Assemble(context.Background(), blocks(
		"\"\"\"First module docstring.\"\"\"\nx = 1\n",
		"\"\"\"Second docstring.\"\"\"\ny = 2\n",
	))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(code, "\"\"\"First module docstring.\"\"\""), "got:\n%s", code)
}

func TestAssembleMergesDuplicateFunctions(t *testing.T) {
	a := newTestAssembler()
	code, _, err := a.Assemble(context.Background(), blocks(
		"def greet():\n    return 'old'\n\ndef other():\n    return 2\n",
		"def greet():\n    return 'new'\n",
	))
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(code, "def greet"), "duplicate not merged:\n%s", code)
	assert.Contains(t, code, "'new'", "later definition should win")
	assert.NotContains(t, code, "'old'")
	assert.Less(t, strings.Index(code, "def greet"), strings.Index(code, "def other"),
		"merged definition should keep its first-seen position")
}

func TestAssembleMainGuard(t *testing.T) {
	a := newTestAssembler()

	code, _, err := a.Assemble(context.Background(), blocks(
		"def f():\n    return 1\n\nprint(f())\n",
	))
	require.NoError(t, err)
	assert.Contains(t, code, "if __name__ == \"__main__\":")
	assert.Contains(t, code, "    print(f())")

	code2, _, err := a.Assemble(context.Background(), blocks(
		"def f():\n    return 1\n\ntotal = f() + 1\n",
	))
	require.NoError(t, err)
	assert.NotContains(t, code2, "__main__", "pure computation should not be guarded")
}

func TestAssembleConstantsBeforeVariables(t *testing.T) {
	a := newTestAssembler()
	code, _, err := a.Assemble(context.Background(), blocks(
		"counter = 0\nMAX_SIZE = 100\n",
	))
	require.NoError(t, err)
	assert.Less(t, strings.Index(code, "MAX_SIZE = 100"), strings.Index(code, "counter = 0"))
}

func TestAssembleUnparseableBlockKeptInMain(t *testing.T) {
	a := newTestAssembler()
	code, warnings, err := a.Assemble(context.Background(), blocks(
		"def ok():\n    return 1\n",
		"def broken(((:\n",
	))
	require.NoError(t, err)
	assert.Contains(t, code, "def broken", "unparseable block must not be dropped")
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0], "verbatim")
}

func TestAssembleOutputHygiene(t *testing.T) {
	a := newTestAssembler()
	code, _, err := a.Assemble(context.Background(), blocks(
		"import os\n\ndef one():\n    return os.name\n",
		"def two():\n    return 2\n",
	))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(code, "\n"), "missing trailing newline")
	assert.False(t, strings.HasSuffix(code, "\n\n"), "more than one trailing newline")
	assert.NotContains(t, code, "\n\n\n\n", "blank runs not collapsed")

	for _, name := range []string{"def one", "def two"} {
		idx := strings.Index(code, name)
		require.GreaterOrEqual(t, idx, 0)
		assert.True(t, strings.HasSuffix(code[:idx], "\n\n\n"),
			"expected two blank lines before %s in:\n%s", name, code)
	}
}

func TestFixIndentation(t *testing.T) {
	a := newTestAssembler()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "tabs normalized to spaces",
			in:   "def f():\n\tx = 1\n\treturn x",
			want: "def f():\n    x = 1\n    return x",
		},
		{
			name: "else written one level too deep",
			in:   "if x:\n    y = 1\n    else:\n        z = 2",
			want: "if x:\n    y = 1\nelse:\n    z = 2",
		},
		{
			name: "nested else untouched",
			in:   "for i in r:\n    if i:\n        a()\n    else:\n        b()",
			want: "for i in r:\n    if i:\n        a()\n    else:\n        b()",
		},
		{
			name: "narrow two-space body widened to configured width",
			in:   "if True:\n  x = 1",
			want: "if True:\n    x = 1",
		},
		{
			name: "identifier sharing a keyword prefix stays in its block",
			in:   "if x:\n    elsewhere = 1",
			want: "if x:\n    elsewhere = 1",
		},
		{
			name: "keyword with clause still recognized",
			in:   "try:\n    f()\n    except ValueError:\n        pass",
			want: "try:\n    f()\nexcept ValueError:\n    pass",
		},
		{
			name: "docstring body untouched",
			in:   "def f():\n    \"\"\"doc\n  weird   indent\n    \"\"\"\n    return 1",
			want: "def f():\n    \"\"\"doc\n  weird   indent\n    \"\"\"\n    return 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.fixIndentation(tt.in))
		})
	}
}

func TestAssembleDeterministic(t *testing.T) {
	a := newTestAssembler()
	ctx := context.Background()
	in := blocks(
		"import os\n\ndef check(path):\n    if os.path.exists(path):\n        exception = None\n    return exception\n",
		"MAX_RETRIES = 3\nprint(check('x'))\n",
	)

	first, _, err := a.Assemble(ctx, in)
	require.NoError(t, err)
	second, _, err := a.Assemble(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first, second, "same blocks must assemble identically")
	assert.Contains(t, first, "        exception = None",
		"body line must keep its nesting depth:\n%s", first)
}

func TestAssembleIncrementalSkipsExisting(t *testing.T) {
	a := newTestAssembler()
	ctx := context.Background()

	previous, _, err := a.Assemble(ctx, blocks(
		"import os\n\ndef existing():\n    return os.name\n",
	))
	require.NoError(t, err)

	combined, _, err := a.AssembleIncremental(ctx, previous, blocks(
		"import os\n\ndef existing():\n    return 'shadow'\n\ndef fresh():\n    return 1\n",
	))
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(combined, "import os"))
	assert.Equal(t, 1, strings.Count(combined, "def existing"))
	assert.NotContains(t, combined, "'shadow'", "existing definition must not be re-emitted")
	assert.Contains(t, combined, "def fresh")
	assert.True(t, strings.HasSuffix(combined, "\n"))
	assert.False(t, strings.HasSuffix(combined, "\n\n"))
}

func TestAssembleIncrementalBadPreviousAppendsVerbatim(t *testing.T) {
	a := newTestAssembler()
	previous := "def broken(((:\n"
	combined, warnings, err := a.AssembleIncremental(context.Background(), previous, blocks(
		"def fresh():\n    return 1\n",
	))
	require.NoError(t, err)
	assert.Contains(t, combined, "def broken(((:")
	assert.Contains(t, combined, "def fresh")
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[len(warnings)-1], "previous output did not parse")
}

func TestAssembleIncrementalNoNewCode(t *testing.T) {
	a := newTestAssembler()
	previous := "def existing():\n    return 1\n"
	combined, _, err := a.AssembleIncremental(context.Background(), previous, blocks(
		"def existing():\n    return 1\n",
	))
	require.NoError(t, err)
	assert.Equal(t, previous, combined, "nothing new should leave previous output unchanged")
}
