// Package planner implements the Policy Evaluation Planner: a pure,
// synchronous tree walk over an odrl.Policy that produces an
// EvaluationPlan describing which functions would fire at runtime and
// which elements would be filtered out. The planner never evaluates a
// constraint and never mutates the policy it walks.
package planner

import "github.com/odrlplan/odrlplan/internal/domain/odrl"

// RuleValidator is the injected oracle the planner consults at every
// leaf. Implementations typically test `key == scope || strings.HasPrefix(key,
// delimitedScope)` plus an allow-list of explicitly bound keys, but the
// planner treats it as an opaque predicate and never catches anything it
// panics or errors with — any failure is fatal and propagates untouched.
type RuleValidator interface {
	// IsInScope reports whether key is bound to the scope whose
	// delimited form (scope + odrl.Delimiter) is delimitedScope.
	IsInScope(key, delimitedScope string) bool
	// IsBounded reports whether actionType is known to the current scope.
	IsBounded(actionType string) bool
}

// AtomicConstraintFunction is a statically-keyed handler for an atomic
// constraint. Its rule-kind bound is supplied at registration
// (FunctionRegistry.RegisterStatic) and consulted via odrl.Assignable
// against the rule actually being visited.
type AtomicConstraintFunction interface {
	// Name returns the stable identifier shown in rendered plans.
	Name() string
}

// DynamicAtomicConstraintFunction is a handler chosen by predicate rather
// than by exact key match.
type DynamicAtomicConstraintFunction interface {
	Name() string
	// CanHandle reports whether this function applies to the given
	// left-operand key. Called only after no static registration under
	// key matched.
	CanHandle(key string) bool
}

// RulePolicyFunction is an opaque rule-level handler attached to a
// RuleStep of a matching kind. It carries identity only; the planner
// never calls it.
type RulePolicyFunction interface {
	Name() string
}

// PolicyValidatorFunction is an opaque pre/post validator wrapped in a
// ValidatorStep at the root of the plan. The planner never calls it.
type PolicyValidatorFunction interface {
	Name() string
}

// staticEntry binds one AtomicConstraintFunction to the rule kind it was
// registered for, in the order it was registered.
type staticEntry struct {
	kind odrl.RuleKind
	fn   AtomicConstraintFunction
}

// dynamicEntry binds one DynamicAtomicConstraintFunction the same way.
type dynamicEntry struct {
	kind odrl.RuleKind
	fn   DynamicAtomicConstraintFunction
}

// ruleEntry binds one RulePolicyFunction to the rule kind it was
// registered for.
type ruleEntry struct {
	kind odrl.RuleKind
	fn   RulePolicyFunction
}
