package regfile

// named implements planner.AtomicConstraintFunction, planner.RulePolicyFunction,
// and planner.PolicyValidatorFunction: every registration in a
// registrations file is identity-only except dynamic functions, which
// additionally carry a CEL predicate (see celfn.DynamicFunction, which
// Apply builds for each dynamic entry).
type named struct{ name string }

func (n named) Name() string { return n.name }
