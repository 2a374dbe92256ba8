package rules

import (
	"fmt"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
)

// jobNeedsRule validates the `needs` dependency graph: every referenced job
// exists, no job depends on itself, and the graph is acyclic.
type jobNeedsRule struct{}

func (jobNeedsRule) ID() string             { return "job_needs" }
func (jobNeedsRule) RequiresWorkflow() bool { return true }

func (jobNeedsRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	names := jobNames(tree, source)
	if len(names) == 0 {
		return nil
	}

	var diags []Diagnostic
	deps := map[string][]string{}
	astquery.VisitJobs(tree, source, func(name string, _, value *cst.Node) {
		if value == nil {
			return
		}
		needs := astquery.MappingValue(value, source, "needs")
		if needs == nil {
			return
		}
		for _, item := range sequenceScalars(needs) {
			dep := valueText(item, source)
			if dep == "" {
				continue
			}
			deps[name] = append(deps[name], dep)
			switch {
			case dep == name:
				diags = append(diags, Diagnostic{
					Message:  fmt.Sprintf("Job '%s' cannot reference self in 'needs'", name),
					Severity: SeverityError,
					Span:     spanOf(item),
				})
			case !containsString(names, dep):
				diags = append(diags, Diagnostic{
					Message:  fmt.Sprintf("Job '%s' references nonexistent job: '%s'", name, dep),
					Severity: SeverityError,
					Span:     spanOf(item),
				})
			}
		}
	})

	// Cycle detection over the declared edges, one report per entry job.
	visited := map[string]bool{}
	inStack := map[string]bool{}
	var visit func(job string) bool
	visit = func(job string) bool {
		visited[job] = true
		inStack[job] = true
		for _, dep := range deps[job] {
			if dep == job {
				continue
			}
			if inStack[dep] {
				return true
			}
			if !visited[dep] && visit(dep) {
				return true
			}
		}
		inStack[job] = false
		return false
	}
	for _, name := range names {
		if visited[name] {
			continue
		}
		if visit(name) {
			diags = append(diags, Diagnostic{
				Message:  fmt.Sprintf("circular dependency detected involving job '%s'", name),
				Severity: SeverityError,
				Span:     docStartSpan(source),
			})
		}
	}
	return diags
}
