// Package render turns an *planner.EvaluationPlan into the wire formats
// an operator or a web UI would consume. Rendering is a separate concern
// from planning: the core planner package never imports this one.
package render

import (
	"github.com/odrlplan/odrlplan/internal/domain/planner"
)

// Plan is the JSON/YAML-friendly projection of an EvaluationPlan. Every
// field has explicit tags so the wire shape is stable regardless of the
// internal plan-node layout.
type Plan struct {
	PreValidators  []ValidatorStep  `json:"pre_validators" yaml:"pre_validators"`
	PostValidators []ValidatorStep  `json:"post_validators" yaml:"post_validators"`
	Permissions    []PermissionStep `json:"permissions" yaml:"permissions"`
	Prohibitions   []RuleStep       `json:"prohibitions" yaml:"prohibitions"`
	Duties         []RuleStep       `json:"duties" yaml:"duties"`
}

// ValidatorStep renders a planner.ValidatorStep.
type ValidatorStep struct {
	FunctionName string `json:"function_name" yaml:"function_name"`
}

// RuleFunctionStep renders a planner.RuleFunctionStep.
type RuleFunctionStep struct {
	FunctionName string `json:"function_name" yaml:"function_name"`
}

// RuleStep renders the shared shape behind PermissionStep, ProhibitionStep
// and DutyStep.
type RuleStep struct {
	ActionType    string             `json:"action_type,omitempty" yaml:"action_type,omitempty"`
	Filtered      bool               `json:"filtered" yaml:"filtered"`
	Reasons       []string           `json:"reasons,omitempty" yaml:"reasons,omitempty"`
	RuleFunctions []RuleFunctionStep `json:"rule_functions,omitempty" yaml:"rule_functions,omitempty"`
	Constraints   []ConstraintStep   `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// PermissionStep renders a planner.PermissionStep, additionally carrying
// its duty sub-steps.
type PermissionStep struct {
	RuleStep `yaml:",inline"`
	Duties   []RuleStep `json:"duties,omitempty" yaml:"duties,omitempty"`
}

// ConstraintStep is the tagged-union rendering of a planner.ConstraintStep.
// Type is one of "atomic", "and", "or", "xone"; fields outside a variant's
// shape are left zero in the Go value, and every field except Type is
// omitempty, so zero fields are omitted from the JSON/YAML output. Every
// ConstraintStep decodes to the same Go type regardless of which variant
// produced it.
type ConstraintStep struct {
	Type         string           `json:"type" yaml:"type"`
	LeftOperand  string           `json:"left_operand,omitempty" yaml:"left_operand,omitempty"`
	Operator     string           `json:"operator,omitempty" yaml:"operator,omitempty"`
	FunctionName string           `json:"function_name,omitempty" yaml:"function_name,omitempty"`
	HasFunction  bool             `json:"has_function,omitempty" yaml:"has_function,omitempty"`
	Reasons      []string         `json:"reasons,omitempty" yaml:"reasons,omitempty"`
	Children     []ConstraintStep `json:"children,omitempty" yaml:"children,omitempty"`
}

// FromPlan converts an *planner.EvaluationPlan into its Plan projection.
func FromPlan(p *planner.EvaluationPlan) Plan {
	out := Plan{}
	for _, v := range p.PreValidators {
		out.PreValidators = append(out.PreValidators, fromValidatorStep(v))
	}
	for _, v := range p.PostValidators {
		out.PostValidators = append(out.PostValidators, fromValidatorStep(v))
	}
	for _, perm := range p.Permissions {
		out.Permissions = append(out.Permissions, fromPermissionStep(perm))
	}
	for _, pro := range p.Prohibitions {
		out.Prohibitions = append(out.Prohibitions, fromRuleStep(pro.RuleStep))
	}
	for _, d := range p.Duties {
		out.Duties = append(out.Duties, fromRuleStep(d.RuleStep))
	}
	return out
}

func fromValidatorStep(v planner.ValidatorStep) ValidatorStep {
	name := ""
	if v.Function != nil {
		name = v.Function.Name()
	}
	return ValidatorStep{FunctionName: name}
}

func fromRuleStep(r planner.RuleStep) RuleStep {
	out := RuleStep{Filtered: r.Filtered, Reasons: r.Reasons}
	if r.Rule != nil && r.Rule.Action != nil {
		out.ActionType = r.Rule.Action.Type
	}
	for _, rf := range r.RuleFunctions {
		name := ""
		if rf.Function != nil {
			name = rf.Function.Name()
		}
		out.RuleFunctions = append(out.RuleFunctions, RuleFunctionStep{FunctionName: name})
	}
	for _, c := range r.Constraints {
		out.Constraints = append(out.Constraints, fromConstraintStep(c))
	}
	return out
}

func fromPermissionStep(p planner.PermissionStep) PermissionStep {
	out := PermissionStep{RuleStep: fromRuleStep(p.RuleStep)}
	for _, d := range p.Duties {
		out.Duties = append(out.Duties, fromRuleStep(d.RuleStep))
	}
	return out
}

func fromConstraintStep(c planner.ConstraintStep) ConstraintStep {
	switch typed := c.(type) {
	case planner.AtomicConstraintStep:
		return ConstraintStep{
			Type:         "atomic",
			LeftOperand:  typed.Constraint.Left.Value(),
			Operator:     string(typed.Constraint.Operator),
			FunctionName: typed.FunctionName,
			HasFunction:  typed.HasFunction,
			Reasons:      typed.Reasons,
		}
	case planner.AndConstraintStep:
		return ConstraintStep{Type: "and", Children: fromConstraintSteps(typed.Children)}
	case planner.OrConstraintStep:
		return ConstraintStep{Type: "or", Children: fromConstraintSteps(typed.Children)}
	case planner.XoneConstraintStep:
		return ConstraintStep{Type: "xone", Children: fromConstraintSteps(typed.Children)}
	default:
		return ConstraintStep{Type: "unknown"}
	}
}

func fromConstraintSteps(cs []planner.ConstraintStep) []ConstraintStep {
	out := make([]ConstraintStep, 0, len(cs))
	for _, c := range cs {
		out = append(out, fromConstraintStep(c))
	}
	return out
}
