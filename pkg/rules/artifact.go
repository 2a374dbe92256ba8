package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
)

// artifactRule validates `with:` inputs of the upload-artifact and
// download-artifact actions.
type artifactRule struct{}

func (artifactRule) ID() string             { return "artifact" }
func (artifactRule) RequiresWorkflow() bool { return true }

var compressionKeywords = []string{"fastest", "fast", "default", "best"}

func (artifactRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	var diags []Diagnostic
	astquery.VisitSteps(tree, source, func(_ string, _ int, step *cst.Node) {
		uses := astquery.MappingValue(step, source, "uses")
		if uses == nil {
			return
		}
		action := valueText(uses, source)
		isUpload := strings.HasPrefix(action, "actions/upload-artifact")
		isDownload := strings.HasPrefix(action, "actions/download-artifact")
		if !isUpload && !isDownload {
			return
		}
		with := astquery.MappingValue(step, source, "with")
		if with == nil || with.Kind != cst.KindMapping {
			return
		}

		if name := astquery.MappingValue(with, source, "name"); name != nil {
			text := valueText(name, source)
			switch {
			case hasExpression(text):
			case text == "":
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Artifact action '%s' has empty name. Artifact name cannot be empty.", action),
					Severity: SeverityError,
					Span:     spanOf(name),
				})
			case !validArtifactName(text):
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Artifact action '%s' has invalid name format: '%s'. Artifact names should contain only alphanumeric characters, hyphens, underscores, dots, and spaces.",
						action, text),
					Severity: SeverityWarning,
					Span:     spanOf(name),
				})
			}
		}

		if isUpload {
			if path := astquery.MappingValue(with, source, "path"); path != nil {
				if valueText(path, source) == "" {
					diags = append(diags, Diagnostic{
						Message: fmt.Sprintf(
							"Artifact action '%s' has empty path. Path is required for upload-artifact.", action),
						Severity: SeverityError,
						Span:     spanOf(path),
					})
				}
			}
		}

		if retention := astquery.MappingValue(with, source, "retention-days"); retention != nil {
			text := valueText(retention, source)
			if !hasExpression(text) {
				n, err := strconv.Atoi(text)
				switch {
				case err != nil:
					diags = append(diags, Diagnostic{
						Message: fmt.Sprintf(
							"Artifact action '%s' has invalid retention-days: '%s'. retention-days must be a number between 1 and 90.",
							action, text),
						Severity: SeverityError,
						Span:     spanOf(retention),
					})
				case n < 1 || n > 90:
					diags = append(diags, Diagnostic{
						Message: fmt.Sprintf(
							"Artifact action '%s' has invalid retention-days: '%s'. retention-days must be between 1 and 90.",
							action, text),
						Severity: SeverityError,
						Span:     spanOf(retention),
					})
				}
			}
		}

		if level := astquery.MappingValue(with, source, "compression-level"); level != nil {
			text := valueText(level, source)
			if !hasExpression(text) && !validCompressionLevel(text) {
				diags = append(diags, Diagnostic{
					Message: fmt.Sprintf(
						"Artifact action '%s' has invalid compression-level: '%s'. compression-level must be between 0 and 9, or one of: fastest, fast, default, best.",
						action, text),
					Severity: SeverityError,
					Span:     spanOf(level),
				})
			}
		}
	})
	return diags
}

func validArtifactName(name string) bool {
	if hasExpression(name) {
		return true
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !isIdentChar(c) && c != '.' && c != ' ' {
			return false
		}
	}
	return true
}

func validCompressionLevel(text string) bool {
	if containsString(compressionKeywords, strings.ToLower(text)) {
		return true
	}
	n, err := strconv.Atoi(text)
	return err == nil && n >= 0 && n <= 9
}
