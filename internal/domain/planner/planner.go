package planner

import (
	"errors"
	"fmt"

	"github.com/odrlplan/odrlplan/internal/domain/odrl"
)

// ErrNoRuleValidator is returned by Builder.Build when no RuleValidator
// was configured.
var ErrNoRuleValidator = errors.New("planner: build requires a RuleValidator")

// ErrEmptyRuleContext is the contract-violation error raised when an
// atomic constraint is visited with no enclosing rule on the call-local
// stack. A well-formed odrl.Policy can never trigger this; seeing it
// means the policy tree is malformed (an AtomicConstraint reachable
// outside any Rule).
var ErrEmptyRuleContext = errors.New("planner: atomic constraint visited with no enclosing rule")

// Planner is the immutable, reusable tree walker built by Builder.Build.
// A Planner holds no per-invocation state: every Plan call allocates its
// own rule-context stack, so a single Planner value is safe to call from
// multiple goroutines concurrently as long as the injected RuleValidator
// and registered functions are themselves safe for concurrent use.
type Planner struct {
	scope          odrl.Scope
	delimitedScope string
	validator      RuleValidator
	registry       *FunctionRegistry
	preValidators  []PolicyValidatorFunction
	postValidators []PolicyValidatorFunction
}

// visit is the call-local state threaded through one Plan invocation. It
// is never stored on the Planner and never shared across calls, making
// the rule-context stack trivially re-entrant.
type visit struct {
	p     *Planner
	stack []*odrl.Rule
}

func (v *visit) push(r *odrl.Rule) { v.stack = append(v.stack, r) }

func (v *visit) pop() { v.stack = v.stack[:len(v.stack)-1] }

func (v *visit) current() (*odrl.Rule, bool) {
	if len(v.stack) == 0 {
		return nil, false
	}
	return v.stack[len(v.stack)-1], true
}

// Plan walks policy and produces its EvaluationPlan. Traversal order is
// permissions, then obligations, then prohibitions — preserved in that
// order for plan stability even though it differs from the field order
// on EvaluationPlan and Policy themselves.
//
// Plan performs no recovery: any error from the injected RuleValidator or
// from a registered function's Name()/CanHandle() propagates untouched,
// and a malformed policy (an atomic constraint outside any rule) returns
// ErrEmptyRuleContext immediately with no partial plan.
func (p *Planner) Plan(policy *odrl.Policy) (*EvaluationPlan, error) {
	v := &visit{p: p}

	plan := &EvaluationPlan{
		PreValidators:  make([]ValidatorStep, 0, len(p.preValidators)),
		PostValidators: make([]ValidatorStep, 0, len(p.postValidators)),
	}
	for _, fn := range p.preValidators {
		plan.PreValidators = append(plan.PreValidators, ValidatorStep{Function: fn})
	}
	for _, fn := range p.postValidators {
		plan.PostValidators = append(plan.PostValidators, ValidatorStep{Function: fn})
	}

	for i := range policy.Permissions {
		step, visitErr := v.visitPermission(&policy.Permissions[i])
		if visitErr != nil {
			return nil, visitErr
		}
		plan.Permissions = append(plan.Permissions, step)
	}
	for i := range policy.Obligations {
		step, visitErr := v.visitDuty(&policy.Obligations[i])
		if visitErr != nil {
			return nil, visitErr
		}
		plan.Duties = append(plan.Duties, step)
	}
	for i := range policy.Prohibitions {
		step, visitErr := v.visitProhibition(&policy.Prohibitions[i])
		if visitErr != nil {
			return nil, visitErr
		}
		plan.Prohibitions = append(plan.Prohibitions, step)
	}

	if len(v.stack) != 0 {
		return nil, fmt.Errorf("planner: rule-context stack not balanced after Plan (depth %d)", len(v.stack))
	}

	return plan, nil
}

// visitRuleSkeleton is the shared shape behind visitPermission,
// visitProhibition, and visitDuty: push the rule onto the context stack,
// check its action is bound, attach matching rule functions, dispatch
// its constraints, then pop on every exit path, including failure.
func (v *visit) visitRuleSkeleton(rule *odrl.Rule) (step RuleStep, err error) {
	v.push(rule)
	defer v.pop()

	step.Rule = rule

	if rule.Action != nil && !v.p.validator.IsBounded(rule.Action.Type) {
		step.Filtered = true
		step.Reasons = append(step.Reasons, fmt.Sprintf(
			"action '%s' is not bound to scope '%s'", rule.Action.Type, string(v.p.scope)))
	}

	for _, fn := range v.p.registry.RuleFunctionsFor(rule.Kind) {
		step.RuleFunctions = append(step.RuleFunctions, RuleFunctionStep{Function: fn, Rule: rule})
	}

	for _, c := range rule.Constraints {
		cs, cErr := v.visitConstraint(c)
		if cErr != nil {
			return RuleStep{}, cErr
		}
		step.Constraints = append(step.Constraints, cs)
	}

	return step, nil
}

func (v *visit) visitPermission(rule *odrl.Rule) (PermissionStep, error) {
	base, err := v.visitRuleSkeleton(rule)
	if err != nil {
		return PermissionStep{}, err
	}
	out := PermissionStep{RuleStep: base}
	for i := range rule.Duties {
		d, err := v.visitDuty(&rule.Duties[i])
		if err != nil {
			return PermissionStep{}, err
		}
		out.Duties = append(out.Duties, d)
	}
	return out, nil
}

func (v *visit) visitProhibition(rule *odrl.Rule) (ProhibitionStep, error) {
	base, err := v.visitRuleSkeleton(rule)
	if err != nil {
		return ProhibitionStep{}, err
	}
	return ProhibitionStep{RuleStep: base}, nil
}

func (v *visit) visitDuty(rule *odrl.Rule) (DutyStep, error) {
	base, err := v.visitRuleSkeleton(rule)
	if err != nil {
		return DutyStep{}, err
	}
	return DutyStep{RuleStep: base}, nil
}

// visitConstraint dispatches on the constraint's concrete type, mapping
// each shape to its corresponding plan-node wrapper.
func (v *visit) visitConstraint(c odrl.Constraint) (ConstraintStep, error) {
	switch typed := c.(type) {
	case odrl.AtomicConstraint:
		return v.visitAtomicConstraint(typed)
	case odrl.AndConstraint:
		children, err := v.visitChildren(typed.Children)
		if err != nil {
			return nil, err
		}
		return AndConstraintStep{Children: children}, nil
	case odrl.OrConstraint:
		children, err := v.visitChildren(typed.Children)
		if err != nil {
			return nil, err
		}
		return OrConstraintStep{Children: children}, nil
	case odrl.XoneConstraint:
		children, err := v.visitChildren(typed.Children)
		if err != nil {
			return nil, err
		}
		return XoneConstraintStep{Children: children}, nil
	default:
		return nil, fmt.Errorf("planner: unknown constraint type %T", c)
	}
}

func (v *visit) visitChildren(children []odrl.Constraint) ([]ConstraintStep, error) {
	out := make([]ConstraintStep, 0, len(children))
	for _, c := range children {
		cs, err := v.visitConstraint(c)
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, nil
}

// visitAtomicConstraint requires a non-empty rule-context stack. Its
// absence is a contract violation, not a filtering outcome: it means the
// policy tree holds an AtomicConstraint outside any Rule, and it is
// fatal (ErrEmptyRuleContext).
func (v *visit) visitAtomicConstraint(c odrl.AtomicConstraint) (AtomicConstraintStep, error) {
	current, ok := v.current()
	if !ok {
		return AtomicConstraintStep{}, ErrEmptyRuleContext
	}

	left := c.Left.Value()
	step := AtomicConstraintStep{Constraint: c, Rule: current}

	if !v.p.validator.IsInScope(left, v.p.delimitedScope) {
		step.Reasons = append(step.Reasons, fmt.Sprintf(
			"leftOperand '%s' is not bound to scope '%s'", left, string(v.p.scope)))
	}

	name, ok := v.p.registry.ResolveFunctionName(left, current.Kind)
	if ok {
		step.FunctionName = name
		step.HasFunction = true
	} else {
		step.Reasons = append(step.Reasons, fmt.Sprintf(
			"leftOperand '%s' is not bound to any function within scope '%s'", left, string(v.p.scope)))
	}

	return step, nil
}
