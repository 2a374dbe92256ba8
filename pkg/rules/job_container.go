package rules

import (
	"fmt"
	"strings"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
)

// jobContainerRule validates job `container` and `services` declarations:
// required image, image reference shape, and port mappings.
type jobContainerRule struct{}

func (jobContainerRule) ID() string             { return "job_container" }
func (jobContainerRule) RequiresWorkflow() bool { return true }

func (jobContainerRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitJobs(tree, source, func(name string, _, value *cst.Node) {
		if value == nil {
			return
		}
		if container := astquery.MappingValue(value, source, "container"); container != nil {
			diags = append(diags, checkContainer(container, source, name)...)
		}
		if services := astquery.MappingValue(value, source, "services"); services != nil {
			for _, pair := range astquery.Pairs(services) {
				if svc := astquery.Unwrap(astquery.PairValue(pair)); svc != nil {
					diags = append(diags, checkContainer(svc, source, name)...)
				}
			}
		}
	})
	return diags
}

func checkContainer(container *cst.Node, source, job string) []Diagnostic {
	// Scalar form is just the image reference.
	if container.Kind == cst.KindScalar {
		return checkContainerImage(container, source, job)
	}
	if container.Kind != cst.KindMapping {
		return nil
	}

	var diags []Diagnostic
	image := astquery.MappingValue(container, source, "image")
	if image == nil {
		diags = append(diags, Diagnostic{
			Message: fmt.Sprintf(
				"Job '%s' container is missing required 'image' field. Container must specify an image.", job),
			Severity: SeverityError,
			Span:     spanOf(container),
		})
	} else {
		diags = append(diags, checkContainerImage(image, source, job)...)
	}

	if ports := astquery.MappingValue(container, source, "ports"); ports != nil {
		for _, item := range sequenceScalars(ports) {
			text := valueText(item, source)
			if text == "" || hasExpression(text) || strings.Contains(text, ":") {
				continue
			}
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf(
					"Job '%s' container has invalid port format: '%s'. Ports should be in format 'host:container'.",
					job, text),
				Severity: SeverityError,
				Span:     spanOf(item),
			})
		}
	}
	return diags
}

func checkContainerImage(image *cst.Node, source, job string) []Diagnostic {
	text := valueText(image, source)
	if hasExpression(text) {
		return nil
	}
	if text == "" {
		return []Diagnostic{{
			Message: fmt.Sprintf(
				"Job '%s' container has empty image field. Container image is required.", job),
			Severity: SeverityError,
			Span:     spanOf(image),
		}}
	}
	if !strings.ContainsAny(text, "/:@") {
		return []Diagnostic{{
			Message: fmt.Sprintf(
				"Job '%s' container has potentially invalid image reference: '%s'. Image should be in format 'repository:tag' or 'registry/repository:tag'.",
				job, text),
			Severity: SeverityWarning,
			Span:     spanOf(image),
		}}
	}
	return nil
}
