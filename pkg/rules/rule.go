package rules

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
	"github.com/trussci/truss/pkg/logger"
)

var runLog = logger.New("rules:run")

// Rule is one stateless validation check. Validate must be safe to call
// concurrently with other rules on the same tree and must not retain the
// tree or source beyond the call.
type Rule interface {
	// ID is the stable identifier stamped onto every diagnostic this rule
	// produces. IDs are lowercase snake_case and never change once shipped.
	ID() string

	// Validate inspects the tree and returns diagnostics in document order.
	// The runner owns rule-id attribution and the final sort.
	Validate(tree *cst.Tree, source string) []Diagnostic

	// RequiresWorkflow reports whether the rule only applies to documents
	// that look like CI workflows. The runner evaluates the workflow check
	// once and skips these rules for arbitrary YAML.
	RequiresWorkflow() bool
}

// registry lists every built-in rule in its canonical order. Order here is
// cosmetic (the output sort is what callers observe) but it is kept stable
// so `truss rules` prints a predictable catalog.
var registry = []Rule{
	syntaxRule{},
	nonEmptyRule{},
	workflowSchemaRule{},
	workflowTriggerRule{},
	workflowNameRule{},
	workflowInputsRule{},
	workflowCallInputsRule{},
	workflowCallOutputsRule{},
	workflowCallSecretsRule{},
	eventPayloadRule{},
	permissionsRule{},
	environmentRule{},
	concurrencyRule{},
	defaultsRule{},
	deprecatedCommandsRule{},
	expressionRule{},
	scriptInjectionRule{},
	secretsValidationRule{},
	timeoutRule{},
	jobNameRule{},
	jobNeedsRule{},
	jobOutputsRule{},
	jobStrategyRule{},
	jobContainerRule{},
	jobIfExpressionRule{},
	matrixStrategyRule{},
	runsOnRequiredRule{},
	runnerLabelRule{},
	actionReferenceRule{},
	reusableWorkflowCallRule{},
	artifactRule{},
	stepRule{},
	stepIDUniquenessRule{},
	stepNameRule{},
	stepEnvRule{},
	stepIfExpressionRule{},
	stepContinueOnErrorRule{},
	stepShellRule{},
	stepTimeoutRule{},
	stepWorkingDirectoryRule{},
	stepOutputReferenceRule{},
}

// All returns the built-in rules in registration order.
func All() []Rule {
	out := make([]Rule, len(registry))
	copy(out, registry)
	return out
}

// ByID returns the built-in rule with the given id, or nil.
func ByID(id string) Rule {
	for _, r := range registry {
		if r.ID() == id {
			return r
		}
	}
	return nil
}

// parallelThreshold is the rule count below which Run stays sequential.
// Goroutine fan-out only pays off once there is enough work to spread.
const parallelThreshold = 8

// Run executes the given rules against one parsed document and returns the
// merged, deterministically sorted diagnostics. The workflow check runs
// once; rules that require a workflow are skipped for other YAML documents.
func Run(tree *cst.Tree, source string, ruleSet []Rule) []Diagnostic {
	if tree == nil || tree.Root == nil {
		return nil
	}

	isWorkflow := astquery.IsWorkflow(tree, source)
	applicable := ruleSet[:0:0]
	for _, r := range ruleSet {
		if r.RequiresWorkflow() && !isWorkflow {
			continue
		}
		applicable = append(applicable, r)
	}
	runLog.Printf("running %d/%d rules (workflow=%v)", len(applicable), len(ruleSet), isWorkflow)

	results := make([][]Diagnostic, len(applicable))
	if len(applicable) < parallelThreshold {
		for i, r := range applicable {
			results[i] = r.Validate(tree, source)
		}
	} else {
		p := pool.New().WithMaxGoroutines(runtime.GOMAXPROCS(0))
		for i, r := range applicable {
			p.Go(func() {
				results[i] = r.Validate(tree, source)
			})
		}
		p.Wait()
	}

	var merged []Diagnostic
	for i, r := range applicable {
		for _, d := range results[i] {
			d.RuleID = r.ID()
			merged = append(merged, d)
		}
	}
	sortDiagnostics(merged)
	return merged
}
