package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/trussci/truss/pkg/astquery"
	"github.com/trussci/truss/pkg/cst"
)

// eventPayloadRule validates event-specific fields under `on:` mapping-form
// triggers: field whitelists per event, mutually exclusive filter pairs,
// activity type catalogs, and cron expressions for schedule.
type eventPayloadRule struct{}

func (eventPayloadRule) ID() string             { return "event_payload" }
func (eventPayloadRule) RequiresWorkflow() bool { return true }

var pullRequestTypes = []string{
	"opened", "closed", "synchronize", "reopened", "assigned", "unassigned",
	"labeled", "unlabeled", "review_requested", "review_request_removed",
	"edited", "ready_for_review", "converted_to_draft", "auto_merge_enabled",
	"auto_merge_disabled", "enqueued", "dequeued", "milestoned",
	"demilestoned", "locked", "unlocked",
}

var issuesTypes = []string{
	"opened", "edited", "deleted", "closed", "reopened", "assigned",
	"unassigned", "labeled", "unlabeled", "locked", "unlocked",
	"transferred", "milestoned", "demilestoned", "pinned", "unpinned",
}

func (eventPayloadRule) Validate(tree *cst.Tree, source string) []Diagnostic {
	on := onValueNode(tree, source)
	if on == nil || on.Kind != cst.KindMapping {
		return nil
	}

	var diags []Diagnostic
	for _, pair := range astquery.Pairs(on) {
		event := astquery.PairKeyText(pair, source)
		value := astquery.Unwrap(astquery.PairValue(pair))
		if value == nil {
			continue
		}
		switch event {
		case "push":
			diags = append(diags, checkExclusiveFilters(value, source, "branches", "tags", "paths")...)
			diags = append(diags, checkEventFields(value, source, "push",
				[]string{"branches", "branches-ignore", "paths", "paths-ignore", "tags", "tags-ignore"}, nil)...)
		case "pull_request":
			diags = append(diags, checkExclusiveFilters(value, source, "branches", "paths")...)
			diags = append(diags, checkEventFields(value, source, "pull_request",
				[]string{"types", "branches", "branches-ignore", "paths", "paths-ignore"},
				func(types *cst.Node) []Diagnostic {
					return checkActivityTypes(types, source, "Invalid pull_request type", pullRequestTypes)
				})...)
		case "schedule":
			diags = append(diags, checkSchedule(value, source)...)
		case "workflow_dispatch":
			diags = append(diags, checkEventFields(value, source, "workflow_dispatch", []string{"inputs"}, nil)...)
		case "workflow_call":
			diags = append(diags, checkEventFields(value, source, "workflow_call", []string{"inputs", "secrets", "outputs"}, nil)...)
		case "issues":
			diags = append(diags, checkEventFields(value, source, "issues", []string{"types"},
				func(types *cst.Node) []Diagnostic {
					return checkActivityTypes(types, source, "Invalid issues activity type", issuesTypes)
				})...)
		}
	}
	return diags
}

// checkExclusiveFilters flags filter fields used together with their
// -ignore counterpart on the same event.
func checkExclusiveFilters(event *cst.Node, source string, fields ...string) []Diagnostic {
	var diags []Diagnostic
	for _, field := range fields {
		if astquery.MappingValue(event, source, field) == nil {
			continue
		}
		ignoreNode := astquery.MappingValue(event, source, field+"-ignore")
		if ignoreNode == nil {
			continue
		}
		diags = append(diags, Diagnostic{
			Message: fmt.Sprintf(
				"Cannot use both '%s' and '%s-ignore' on the same event. They are mutually exclusive.",
				field, field),
			Severity: SeverityError,
			Span:     spanOf(ignoreNode),
		})
	}
	return diags
}

// checkEventFields validates an event mapping's direct fields against the
// whitelist for that event. typesCheck, when set, runs on the `types` value.
func checkEventFields(event *cst.Node, source, eventName string, valid []string, typesCheck func(*cst.Node) []Diagnostic) []Diagnostic {
	if event.Kind != cst.KindMapping {
		return nil
	}
	var diags []Diagnostic
	for _, pair := range astquery.Pairs(event) {
		key := astquery.PairKey(pair)
		name := astquery.CleanKey(key.Text(source))
		if !containsString(valid, name) {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("Invalid field '%s' for %s event. Valid fields are: %s",
					name, eventName, strings.Join(valid, ", ")),
				Severity: SeverityError,
				Span:     spanOf(key),
			})
		}
		if name == "types" && typesCheck != nil {
			if value := astquery.Unwrap(astquery.PairValue(pair)); value != nil {
				diags = append(diags, typesCheck(value)...)
			}
		}
	}
	return diags
}

func checkActivityTypes(types *cst.Node, source, label string, valid []string) []Diagnostic {
	var diags []Diagnostic
	for _, item := range sequenceScalars(types) {
		name := valueText(item, source)
		if containsString(valid, name) {
			continue
		}
		diags = append(diags, Diagnostic{
			Message: fmt.Sprintf("%s: '%s'. Valid types are: %s",
				label, name, strings.Join(valid, ", ")),
			Severity: SeverityError,
			Span:     spanOf(item),
		})
	}
	return diags
}

// checkSchedule validates the schedule trigger: a sequence of mappings each
// carrying a cron field.
func checkSchedule(schedule *cst.Node, source string) []Diagnostic {
	var diags []Diagnostic

	if schedule.Kind == cst.KindSequence {
		foundCron := false
		for _, item := range astquery.Items(schedule) {
			if item.Kind != cst.KindMapping {
				continue
			}
			cron := astquery.MappingValue(item, source, "cron")
			if cron == nil {
				continue
			}
			foundCron = true
			diags = append(diags, checkCronExpression(valueText(cron, source), cron)...)
		}
		if foundCron {
			return diags
		}
	}

	cron := astquery.FindValueForKey(schedule, source, "cron")
	if cron == nil {
		diags = append(diags, Diagnostic{
			Message:  "schedule event is missing required 'cron' field.",
			Severity: SeverityError,
			Span:     spanOf(schedule),
		})
	} else {
		diags = append(diags, checkCronExpression(valueText(cron, source), cron)...)
	}

	if schedule.Kind == cst.KindSequence {
		for _, item := range astquery.Items(schedule) {
			diags = append(diags, checkEventFields(item, source, "schedule", []string{"cron"}, nil)...)
		}
	} else {
		diags = append(diags, checkEventFields(schedule, source, "schedule", []string{"cron"}, nil)...)
	}
	return diags
}

type cronField struct {
	name string
	min  int
	max  int
}

var cronFields = []cronField{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day of month", 1, 31},
	{"month", 1, 12},
	{"day of week", 0, 6},
}

func checkCronExpression(cron string, node *cst.Node) []Diagnostic {
	if strings.HasPrefix(cron, "${{") {
		return nil
	}

	parts := strings.Fields(cron)
	if len(parts) != 5 {
		return []Diagnostic{{
			Message: fmt.Sprintf(
				"Invalid cron expression: '%s'. Cron expression must have 5 space-separated fields (minute hour day month weekday).",
				cron),
			Severity: SeverityError,
			Span:     spanOf(node),
		}}
	}

	var diags []Diagnostic
	for i, spec := range cronFields {
		if err := checkCronField(parts[i], spec); err != "" {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("Invalid cron %s: '%s' in '%s'. %s",
					spec.name, parts[i], cron, err),
				Severity: SeverityError,
				Span:     spanOf(node),
			})
		}
	}
	return diags
}

// checkCronField validates one cron field ("*/15", "1-5", "0,30", "MON-FRI").
// Returns "" when valid. Month and weekday names are accepted unchecked.
func checkCronField(field string, spec cronField) string {
	if field == "*" {
		return ""
	}

	if step, ok := strings.CutPrefix(field, "*/"); ok {
		n, err := strconv.Atoi(step)
		switch {
		case err != nil:
			return fmt.Sprintf("Invalid step value '%s' for %s", step, spec.name)
		case n == 0:
			return fmt.Sprintf("Step value must be greater than 0 for %s", spec.name)
		}
		return ""
	}

	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return fmt.Sprintf("Empty value in %s field", spec.name)
		}

		rangePart := part
		if idx := strings.IndexByte(part, '/'); idx >= 0 {
			rangePart = part[:idx]
			step := part[idx+1:]
			n, err := strconv.Atoi(step)
			switch {
			case err != nil:
				return fmt.Sprintf("Invalid step value '%s' for %s", step, spec.name)
			case n == 0:
				return fmt.Sprintf("Step value must be greater than 0 for %s", spec.name)
			}
		}

		if lo, hi, ok := strings.Cut(rangePart, "-"); ok {
			loV, loErr := strconv.Atoi(lo)
			hiV, hiErr := strconv.Atoi(hi)
			if loErr != nil || hiErr != nil {
				// Month/weekday names (JAN, MON) pass through unchecked.
				continue
			}
			if loV < spec.min || loV > spec.max {
				return fmt.Sprintf("Value %d is out of range (%d-%d) for %s", loV, spec.min, spec.max, spec.name)
			}
			if hiV < spec.min || hiV > spec.max {
				return fmt.Sprintf("Value %d is out of range (%d-%d) for %s", hiV, spec.min, spec.max, spec.name)
			}
			continue
		}

		v, err := strconv.Atoi(rangePart)
		if err != nil {
			continue
		}
		if v < spec.min || v > spec.max {
			return fmt.Sprintf("Value %d is out of range (%d-%d) for %s", v, spec.min, spec.max, spec.name)
		}
	}
	return ""
}
