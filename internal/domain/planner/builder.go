package planner

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/odrlplan/odrlplan/internal/domain/odrl"
)

// builderConfig is validated via struct tags with go-playground/validator,
// the same library and idiom internal/config uses for PlannerConfig: a
// required field fails Build() with an actionable message instead of a
// hand-rolled nil check.
type builderConfig struct {
	Scope     string        `validate:"required"`
	Validator RuleValidator `validate:"required"`
}

// Builder accumulates the construction-time configuration for a Planner:
// the scope, the RuleValidator, pre/post policy-validator lists (order
// preserved, duplicates kept), and the three kinds of function
// registrations (each appended in call order). Build() yields an
// immutable, reusable Planner or fails if RuleValidator is absent.
type Builder struct {
	scope          odrl.Scope
	validator      RuleValidator
	preValidators  []PolicyValidatorFunction
	postValidators []PolicyValidatorFunction
	registry       *FunctionRegistry
}

// NewBuilder returns an empty Builder for the given scope.
func NewBuilder(scope odrl.Scope) *Builder {
	return &Builder{
		scope:    scope,
		registry: NewFunctionRegistry(),
	}
}

// WithRuleValidator sets the required RuleValidator. Required for Build
// to succeed.
func (b *Builder) WithRuleValidator(v RuleValidator) *Builder {
	b.validator = v
	return b
}

// WithPreValidator appends a pre-policy validator function, preserving
// call order and keeping duplicates.
func (b *Builder) WithPreValidator(fn PolicyValidatorFunction) *Builder {
	b.preValidators = append(b.preValidators, fn)
	return b
}

// WithPostValidator appends a post-policy validator function.
func (b *Builder) WithPostValidator(fn PolicyValidatorFunction) *Builder {
	b.postValidators = append(b.postValidators, fn)
	return b
}

// RegisterStatic registers a static constraint function under key for
// the given rule kind.
func (b *Builder) RegisterStatic(key string, kind odrl.RuleKind, fn AtomicConstraintFunction) *Builder {
	b.registry.RegisterStatic(key, kind, fn)
	return b
}

// RegisterDynamic registers a dynamic (predicate-matched) constraint
// function for the given rule kind.
func (b *Builder) RegisterDynamic(kind odrl.RuleKind, fn DynamicAtomicConstraintFunction) *Builder {
	b.registry.RegisterDynamic(kind, fn)
	return b
}

// RegisterRule registers a whole-rule function for the given rule kind.
func (b *Builder) RegisterRule(kind odrl.RuleKind, fn RulePolicyFunction) *Builder {
	b.registry.RegisterRule(kind, fn)
	return b
}

// Build validates the accumulated configuration and returns an immutable
// Planner. Calling Build twice on an unchanged Builder yields two Planner
// values that produce equal plans for equal input policies: the
// Builder's own state is never mutated by Build, only read.
func (b *Builder) Build() (*Planner, error) {
	cfg := builderConfig{Scope: string(b.scope), Validator: b.validator}

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		if b.validator == nil {
			return nil, fmt.Errorf("%w: %v", ErrNoRuleValidator, err)
		}
		return nil, fmt.Errorf("planner: invalid builder configuration: %w", err)
	}

	return &Planner{
		scope:          b.scope,
		delimitedScope: b.scope.Delimited(),
		validator:      b.validator,
		registry:       b.registry,
		preValidators:  append([]PolicyValidatorFunction(nil), b.preValidators...),
		postValidators: append([]PolicyValidatorFunction(nil), b.postValidators...),
	}, nil
}
