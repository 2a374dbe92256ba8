//go:build !integration

package cst

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleWorkflow = `name: CI
on:
  push:
    branches: [main]
  pull_request:

jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - name: Run tests
        run: go test ./...
`

// topLevelKeys returns the key texts of the root mapping's pairs.
func topLevelKeys(t *testing.T, tree *Tree, source string) []string {
	t.Helper()
	require.NotNil(t, tree)
	require.NotNil(t, tree.Root)
	var mapping *Node
	for _, c := range tree.Root.Children {
		if c.Kind == KindMapping {
			mapping = c
			break
		}
	}
	require.NotNil(t, mapping, "expected a top-level mapping")
	var keys []string
	for _, c := range mapping.Children {
		if c.Kind != KindPair || len(c.Children) == 0 {
			continue
		}
		keys = append(keys, c.Children[0].Text(source))
	}
	return keys
}

func TestParseEmptyDocument(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"empty string", ""},
		{"whitespace only", "   \n\t\n  "},
		{"newlines only", "\n\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := NewParser().Parse(tt.source)
			assert.ErrorIs(t, err, ErrEmptyDocument)
			assert.Nil(t, tree, "no tree handle may exist for an empty document")
		})
	}
}

func TestParseWorkflowStructure(t *testing.T) {
	tree, err := NewParser().Parse(sampleWorkflow)
	require.NoError(t, err)
	assert.False(t, tree.HadError)

	keys := topLevelKeys(t, tree, sampleWorkflow)
	assert.Equal(t, []string{"name", "on", "jobs"}, keys)
}

func TestParseNestedSpans(t *testing.T) {
	tree, err := NewParser().Parse(sampleWorkflow)
	require.NoError(t, err)

	// Every node's span must cover its children and slice cleanly.
	tree.Root.Walk(func(n *Node) bool {
		assert.LessOrEqual(t, n.Start, n.End)
		for _, c := range n.Children {
			assert.GreaterOrEqual(t, c.Start, n.Start, "child starts before parent")
			assert.LessOrEqual(t, c.End, n.End, "child ends after parent")
		}
		return true
	})
}

func TestParseSequenceItems(t *testing.T) {
	source := "steps:\n  - run: echo one\n  - run: echo two\n  - uses: actions/checkout@v4\n"
	tree, err := NewParser().Parse(source)
	require.NoError(t, err)
	assert.False(t, tree.HadError)

	var seq *Node
	tree.Root.Walk(func(n *Node) bool {
		if n.Kind == KindSequence && seq == nil {
			seq = n
		}
		return true
	})
	require.NotNil(t, seq)
	items := 0
	for _, c := range seq.Children {
		if c.Kind == KindItem {
			items++
		}
	}
	assert.Equal(t, 3, items)
}

func TestParseCommentsPreserved(t *testing.T) {
	source := "# header comment\nname: CI # trailing\non:\n  # nested comment\n  push:\n"
	tree, err := NewParser().Parse(source)
	require.NoError(t, err)

	var comments []string
	tree.Root.Walk(func(n *Node) bool {
		if n.Kind == KindComment {
			comments = append(comments, n.Text(source))
		}
		return true
	})
	assert.Contains(t, comments, "# header comment")
	assert.Contains(t, comments, "# nested comment")
}

func TestParseTrailingCommentExcludedFromScalar(t *testing.T) {
	source := "name: CI # trailing\n"
	tree, err := NewParser().Parse(source)
	require.NoError(t, err)

	var value string
	tree.Root.Walk(func(n *Node) bool {
		if n.Kind == KindPair {
			last := n.Children[len(n.Children)-1]
			if last.Kind == KindScalar && last.Text(source) != "name" {
				value = last.Text(source)
			}
		}
		return true
	})
	assert.Equal(t, "CI", value)
}

func TestParseBlockScalar(t *testing.T) {
	source := "run: |\n  echo one\n  echo two\nname: CI\n"
	tree, err := NewParser().Parse(source)
	require.NoError(t, err)
	assert.False(t, tree.HadError)

	var block *Node
	tree.Root.Walk(func(n *Node) bool {
		if n.Kind == KindScalar && n.Style == StyleLiteral {
			block = n
		}
		return true
	})
	require.NotNil(t, block)
	assert.Contains(t, block.Text(source), "echo two")

	keys := topLevelKeys(t, tree, source)
	assert.Equal(t, []string{"run", "name"}, keys)
}

func TestParseFlowCollections(t *testing.T) {
	source := "on:\n  push:\n    branches: [main, 'release/*']\nenv: {FOO: bar, BAZ: 2}\n"
	tree, err := NewParser().Parse(source)
	require.NoError(t, err)
	assert.False(t, tree.HadError)

	var flowSeq, flowMap *Node
	tree.Root.Walk(func(n *Node) bool {
		if n.Style == StyleFlow {
			if n.Kind == KindSequence {
				flowSeq = n
			}
			if n.Kind == KindMapping {
				flowMap = n
			}
		}
		return true
	})
	require.NotNil(t, flowSeq)
	require.NotNil(t, flowMap)
	assert.Len(t, flowSeq.Children, 2)
	assert.Len(t, flowMap.Children, 2)
	assert.Equal(t, "[main, 'release/*']", flowSeq.Text(source))
}

func TestParseMalformedRecovers(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"unterminated quote", "name: \"unclosed\njobs:\n  build:\n    runs-on: ubuntu-latest\n"},
		{"unbalanced flow", "branches: [main\njobs:\n  build:\n"},
		{"stray deep mapping", "name: CI\n      nested: deeper\njobs:\n  build:\n"},
		{"tab soup", "name: CI\n\t\t:::\njobs:\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := NewParser().Parse(tt.source)
			require.NoError(t, err, "malformed input must still yield a tree")
			assert.True(t, tree.HadError)
		})
	}
}

func TestParseArbitraryBytesNeverPanics(t *testing.T) {
	inputs := []string{
		"\x00\x01\x02",
		strings.Repeat("[", 2000),
		strings.Repeat("- ", 1000),
		"a:\n" + strings.Repeat("  b:\n", 600),
		"\xff\xfe invalid utf8: \x80",
		"{" + strings.Repeat("a:{", 500),
		"key: 'unterminated",
		"---\n---\n---\n",
	}
	for _, in := range inputs {
		tree, err := NewParser().Parse(in)
		if err != nil {
			assert.ErrorIs(t, err, ErrEmptyDocument)
			continue
		}
		require.NotNil(t, tree.Root)
	}
}

func TestReparseMatchesFullParse(t *testing.T) {
	old := sampleWorkflow
	updated := strings.Replace(old, "Run tests", "Run unit tests", 1)
	at := strings.Index(old, "Run tests")

	p := NewParser()
	oldTree, err := p.Parse(old)
	require.NoError(t, err)

	edit := Edit{
		StartByte:  at,
		OldEndByte: at + len("Run tests"),
		NewEndByte: at + len("Run unit tests"),
	}
	incTree, err := p.Reparse(oldTree, []Edit{edit}, updated)
	require.NoError(t, err)

	fullTree, err := NewParser().Parse(updated)
	require.NoError(t, err)

	assert.Equal(t, fullTree.HadError, incTree.HadError)
	assertSameShape(t, fullTree.Root, incTree.Root)
}

func TestReparseUnchangedReturnsSameTree(t *testing.T) {
	p := NewParser()
	tree, err := p.Parse(sampleWorkflow)
	require.NoError(t, err)

	again, err := p.Reparse(tree, nil, sampleWorkflow)
	require.NoError(t, err)
	assert.Same(t, tree, again)
}

func TestReparseRejectsInvalidEdit(t *testing.T) {
	p := NewParser()
	tree, err := p.Parse(sampleWorkflow)
	require.NoError(t, err)

	tests := []struct {
		name string
		edit Edit
	}{
		{"negative start", Edit{StartByte: -1, OldEndByte: 0, NewEndByte: 0}},
		{"old end before start", Edit{StartByte: 10, OldEndByte: 5, NewEndByte: 12}},
		{"new end past source", Edit{StartByte: 0, OldEndByte: 0, NewEndByte: len(sampleWorkflow) + 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Reparse(tree, []Edit{tt.edit}, sampleWorkflow)
			assert.Error(t, err)
		})
	}
}

// assertSameShape checks structural equality of two trees.
func assertSameShape(t *testing.T, a, b *Node) {
	t.Helper()
	require.Equal(t, a.Kind, b.Kind)
	require.Equal(t, a.Start, b.Start)
	require.Equal(t, a.End, b.End)
	require.Len(t, b.Children, len(a.Children))
	for i := range a.Children {
		assertSameShape(t, a.Children[i], b.Children[i])
	}
}

func TestLineIndexPosition(t *testing.T) {
	source := "abc\ndef\n\nxyz"
	ix := NewLineIndex(source)

	tests := []struct {
		offset int
		line   int
		column int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{4, 2, 1},
		{8, 3, 1},
		{9, 4, 1},
		{12, 4, 4},
		{-5, 1, 1},
		{100, 4, 4},
	}
	for _, tt := range tests {
		line, col := ix.Position(tt.offset)
		assert.Equal(t, tt.line, line, "line for offset %d", tt.offset)
		assert.Equal(t, tt.column, col, "column for offset %d", tt.offset)
	}
}

func TestSliceUTF8Boundaries(t *testing.T) {
	source := "name: café"
	assert.Equal(t, "café", Slice(source, 6, len(source)))
	assert.Equal(t, "", Slice(source, 0, len(source)-1), "mid-rune end must yield empty")
	assert.Equal(t, "", Slice(source, -1, 3))
	assert.Equal(t, "", Slice(source, 4, 2))
}
