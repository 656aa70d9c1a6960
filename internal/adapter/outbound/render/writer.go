package render

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/odrlplan/odrlplan/internal/domain/planner"
)

// WriteJSON renders plan as indented JSON to w.
func WriteJSON(w io.Writer, plan *planner.EvaluationPlan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(FromPlan(plan)); err != nil {
		return fmt.Errorf("render: encode json: %w", err)
	}
	return nil
}

// WriteYAML renders plan as YAML to w.
func WriteYAML(w io.Writer, plan *planner.EvaluationPlan) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	if err := enc.Encode(FromPlan(plan)); err != nil {
		return fmt.Errorf("render: encode yaml: %w", err)
	}
	return nil
}

// Diagnostics flattens every filtering reason recorded anywhere in plan
// into a single ordered list, prefixed with where it was found. It exists
// for operators who want "why was this filtered" without reading the
// full tree.
func Diagnostics(plan *planner.EvaluationPlan) []string {
	var out []string
	collectRuleStep := func(label string, r RuleStep) {
		for _, reason := range r.Reasons {
			out = append(out, fmt.Sprintf("%s: %s", label, reason))
		}
		collectConstraintReasons(&out, label, r.Constraints)
	}
	rendered := FromPlan(plan)
	for i, p := range rendered.Permissions {
		collectRuleStep(fmt.Sprintf("permission[%d]", i), p.RuleStep)
		for j, d := range p.Duties {
			collectRuleStep(fmt.Sprintf("permission[%d].duty[%d]", i, j), d)
		}
	}
	for i, p := range rendered.Prohibitions {
		collectRuleStep(fmt.Sprintf("prohibition[%d]", i), p)
	}
	for i, d := range rendered.Duties {
		collectRuleStep(fmt.Sprintf("duty[%d]", i), d)
	}
	return out
}

func collectConstraintReasons(out *[]string, label string, cs []ConstraintStep) {
	for i, c := range cs {
		childLabel := fmt.Sprintf("%s.constraint[%d]", label, i)
		for _, reason := range c.Reasons {
			*out = append(*out, fmt.Sprintf("%s: %s", childLabel, reason))
		}
		collectConstraintReasons(out, childLabel, c.Children)
	}
}
