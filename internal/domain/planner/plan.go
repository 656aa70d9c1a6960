package planner

import "github.com/odrlplan/odrlplan/internal/domain/odrl"

// ValidatorStep wraps a single pre- or post-policy PolicyValidatorFunction
// at the root of a plan. The planner never calls the wrapped function; it
// only records that it would run.
type ValidatorStep struct {
	Function PolicyValidatorFunction
}

// RuleFunctionStep records one RulePolicyFunction that would fire against
// the enclosing rule.
type RuleFunctionStep struct {
	Function RulePolicyFunction
	Rule     *odrl.Rule
}

// ConstraintStep is the closed sum of constraint-shaped plan nodes,
// mirroring odrl.Constraint one-to-one.
type ConstraintStep interface {
	isConstraintStep()
}

// AtomicConstraintStep is the plan node for a leaf constraint. FunctionName
// is absent (empty, HasFunction == false) when no function resolved; in
// that case Reasons carries at least one explanation.
type AtomicConstraintStep struct {
	Constraint   odrl.AtomicConstraint
	Rule         *odrl.Rule
	FunctionName string
	HasFunction  bool
	Reasons      []string
}

func (AtomicConstraintStep) isConstraintStep() {}

// AndConstraintStep, OrConstraintStep, and XoneConstraintStep wrap a
// multiplicity constraint's planned children in source order. Empty
// Children is legal.
type AndConstraintStep struct{ Children []ConstraintStep }

func (AndConstraintStep) isConstraintStep() {}

type OrConstraintStep struct{ Children []ConstraintStep }

func (OrConstraintStep) isConstraintStep() {}

type XoneConstraintStep struct{ Children []ConstraintStep }

func (XoneConstraintStep) isConstraintStep() {}

// RuleStep is the shared shape behind PermissionStep, ProhibitionStep, and
// DutyStep: the common bookkeeping visitRuleSkeleton produces before the
// kind-specific wrapping happens.
type RuleStep struct {
	Rule          *odrl.Rule
	Filtered      bool
	Reasons       []string
	RuleFunctions []RuleFunctionStep
	Constraints   []ConstraintStep
}

// PermissionStep additionally carries the permission's duty sub-rules, in
// source order.
type PermissionStep struct {
	RuleStep
	Duties []DutyStep
}

// ProhibitionStep is a RuleStep for a Prohibition rule.
type ProhibitionStep struct {
	RuleStep
}

// DutyStep is a RuleStep for a Duty rule, whether top-level (an
// obligation) or nested under a PermissionStep.
type DutyStep struct {
	RuleStep
}

// EvaluationPlan is the root of the produced tree: the pre/post validator
// steps, then the three rule-step lists. Field order here mirrors the
// Policy struct (permissions, prohibitions, obligations) for readability;
// see Planner.Plan for the order they're actually populated in
// (permissions, obligations, prohibitions).
type EvaluationPlan struct {
	PreValidators  []ValidatorStep
	PostValidators []ValidatorStep
	Permissions    []PermissionStep
	Prohibitions   []ProhibitionStep
	Duties         []DutyStep
}
