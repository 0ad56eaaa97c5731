package render

import (
	"strings"
	"testing"

	reconciler_models "github.com/meysamhadeli/codai-scope/context_reconciler/models"
	hypothesis_models "github.com/meysamhadeli/codai-scope/hypothesis_mapper/models"
	scope_models "github.com/meysamhadeli/codai-scope/scope_store/models"
	"github.com/meysamhadeli/codai-scope/session"
	tree_models "github.com/meysamhadeli/codai-scope/tree_model/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() session.State {
	two := 2
	return session.State{
		Tree: []session.TreeEntry{
			{Path: "src", Name: "src", Type: tree_models.Dir, FileCount: &two, Expanded: true, InScope: true},
			{Path: "src/main.go", Name: "main.go", Type: tree_models.File, Depth: 1, InScope: true},
			{Path: "src/util.go", Name: "util.go", Type: tree_models.File, Depth: 1, Excluded: true, InScope: true, Central: true},
			{Path: "docs", Name: "docs", Type: tree_models.Dir, Excluded: true},
		},
		Scope: scope_models.ScopeSnapshot{
			ExcludedPaths: []string{"docs", "src/util.go"},
			CentralFiles:  []string{"src/util.go"},
			ExternalFiles: []scope_models.ExternalFile{{Path: "/tmp/notes.md", Name: "notes.md"}},
		},
		Channel: reconciler_models.Search,
		Context: []reconciler_models.ContextItem{
			{FilePath: "src/main.go", Score: 0.9, Excerpt: "func main() {}", Source: "search", Checked: true},
			{FilePath: "src/util.go", Score: 0.4, Source: "total_recall"},
		},
		Selected: []string{"src/main.go"},
		Hypotheses: []hypothesis_models.Hypothesis{
			{ID: "h1", Title: "entry point", Description: strings.Repeat("word ", 30), Confidence: 0.8, FileIndices: []int{1, 7}, Selected: true},
		},
	}
}

func TestTree(t *testing.T) {
	out := Tree(sampleState())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "[x]")
	assert.Contains(t, lines[0], "▾ src/")
	assert.Contains(t, lines[0], "(2)")
	assert.True(t, strings.HasPrefix(lines[1], "  "))
	assert.Contains(t, lines[2], "[*]")
	assert.Contains(t, lines[3], "[ ]")
	assert.Contains(t, lines[3], "▸ docs/")
}

func TestTree_Empty(t *testing.T) {
	assert.Contains(t, Tree(session.State{}), "empty tree")
}

func TestScopeSummary(t *testing.T) {
	out := ScopeSummary(sampleState())

	assert.Contains(t, out, "excluded entries: 2")
	assert.Contains(t, out, "* src/util.go")
	assert.Contains(t, out, "+ /tmp/notes.md")
}

func TestContextList(t *testing.T) {
	out, err := ContextList(sampleState(), "")

	require.NoError(t, err)
	assert.Contains(t, out, "Context: search (1 selected of 2)")
	lines := strings.Split(out, "\n")
	assert.Contains(t, lines[1], "[x]")
	assert.Contains(t, lines[1], "src/main.go")
	assert.Contains(t, lines[3], "[ ] src/util.go")
	assert.Contains(t, out, "     func main() {}")
}

func TestContextList_Highlighted(t *testing.T) {
	out, err := ContextList(sampleState(), "monokai")

	require.NoError(t, err)
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "main")
}

func TestHypotheses(t *testing.T) {
	out := Hypotheses(sampleState())

	assert.Contains(t, out, "(x)")
	assert.Contains(t, out, "entry point")
	assert.Contains(t, out, "80%")
	assert.Contains(t, out, "- src/main.go")
	assert.Contains(t, out, "#7 (not in list)")
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "word") {
			assert.LessOrEqual(t, len(line), descriptionWidth+4)
		}
	}
}

func TestHighlight_UnknownExtension(t *testing.T) {
	out, err := Highlight("just text", "NOTES", "monokai")

	require.NoError(t, err)
	assert.Contains(t, out, "just text")
}

func TestTrimLines(t *testing.T) {
	assert.Equal(t, "a\nb\n...", trimLines("a\nb\nc\n", 2))
	assert.Equal(t, "a", trimLines("a\n", 2))
}
