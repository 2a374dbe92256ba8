//go:build !integration

package astquery

import (
	"testing"

	"github.com/trussci/truss/pkg/cst"
)

func mustParse(t *testing.T, source string) *cst.Tree {
	t.Helper()
	tree, err := cst.NewParser().Parse(source)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return tree
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"name", "name"},
		{"name:", "name"},
		{`"quoted"`, "quoted"},
		{"'single'", "single"},
		{"  spaced  ", "spaced"},
		{`"on":`, "on"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanKey(tt.input); got != tt.expected {
			t.Errorf("CleanKey(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFindValueForKey(t *testing.T) {
	source := "name: CI\njobs:\n  build:\n    runs-on: ubuntu-latest\n"
	tree := mustParse(t, source)

	v := FindValueForKey(tree.Root, source, "runs-on")
	if v == nil {
		t.Fatal("expected to find runs-on value")
	}
	if got := v.Text(source); got != "ubuntu-latest" {
		t.Errorf("runs-on value = %q, want %q", got, "ubuntu-latest")
	}

	if v := FindValueForKey(tree.Root, source, "missing"); v != nil {
		t.Errorf("expected nil for missing key, got %q", v.Text(source))
	}
}

func TestFindValueForKeyQuotedKey(t *testing.T) {
	source := "\"on\":\n  push:\n"
	tree := mustParse(t, source)
	if v := FindValueForKey(tree.Root, source, "on"); v == nil {
		t.Error("quoted key should match its cleaned form")
	}
}

func TestKeyExists(t *testing.T) {
	source := "jobs:\n  build:\n    runs-on:\n"
	tree := mustParse(t, source)

	if !KeyExists(tree.Root, source, "runs-on") {
		t.Error("runs-on exists even without a value")
	}
	if KeyExists(tree.Root, source, "steps") {
		t.Error("steps should not exist")
	}
}

func TestIsWorkflow(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected bool
	}{
		{"on and jobs", "on: push\njobs:\n  a:\n    runs-on: ubuntu-latest\n", true},
		{"jobs only", "jobs:\n  a:\n", true},
		{"on only", "on: push\n", true},
		{"uppercase ON", "ON: push\n", true},
		{"plain yaml", "foo: bar\nlist:\n  - one\n", false},
		{"name only", "name: not a workflow\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := mustParse(t, tt.source)
			if got := IsWorkflow(tree, tt.source); got != tt.expected {
				t.Errorf("IsWorkflow = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestVisitJobs(t *testing.T) {
	source := "jobs:\n  build:\n    runs-on: ubuntu-latest\n  test:\n    runs-on: macos-latest\n"
	tree := mustParse(t, source)

	var names []string
	VisitJobs(tree, source, func(name string, key, value *cst.Node) {
		names = append(names, name)
		if key == nil {
			t.Errorf("job %q has nil key node", name)
		}
		if value == nil {
			t.Errorf("job %q has nil value node", name)
		}
	})
	if len(names) != 2 || names[0] != "build" || names[1] != "test" {
		t.Errorf("job names = %v, want [build test]", names)
	}
}

func TestVisitSteps(t *testing.T) {
	source := `jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - run: make
  deploy:
    runs-on: ubuntu-latest
    steps:
      - run: make deploy
`
	tree := mustParse(t, source)

	counts := map[string]int{}
	VisitSteps(tree, source, func(job string, index int, step *cst.Node) {
		counts[job]++
		if step.Kind != cst.KindMapping {
			t.Errorf("step %s[%d] kind = %v, want mapping", job, index, step.Kind)
		}
	})
	if counts["build"] != 2 || counts["deploy"] != 1 {
		t.Errorf("step counts = %v, want build:2 deploy:1", counts)
	}
}

func TestPairValueSkipsComments(t *testing.T) {
	source := "key: # explains the value\n  nested: true\n"
	tree := mustParse(t, source)

	var pair *cst.Node
	tree.Root.Walk(func(n *cst.Node) bool {
		if n.Kind == cst.KindPair && pair == nil {
			pair = n
			return false
		}
		return true
	})
	v := PairValue(pair)
	if v == nil {
		t.Fatal("expected a value past the inline comment")
	}
	if v.Kind != cst.KindMapping {
		t.Errorf("value kind = %v, want mapping", v.Kind)
	}
}

func TestMappingValueDoesNotRecurse(t *testing.T) {
	source := "outer:\n  inner:\n    target: deep\ntarget: shallow\n"
	tree := mustParse(t, source)

	var root *cst.Node
	for _, c := range tree.Root.Children {
		if c.Kind == cst.KindMapping {
			root = c
		}
	}
	v := MappingValue(root, source, "target")
	if v == nil {
		t.Fatal("expected top-level target")
	}
	if got := v.Text(source); got != "shallow" {
		t.Errorf("MappingValue = %q, want %q", got, "shallow")
	}
}
