package celfn

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// RuleValidator implements planner.RuleValidator with two compiled CEL
// predicates, letting a host declare scope bindings at config time (e.g.
// `key == "k1" || key.startsWith(delimitedScope)`) instead of shipping a
// bespoke Go type for every deployment's binding rules.
type RuleValidator struct {
	inScope cel.Program
	bounded cel.Program
}

// NewRuleValidator compiles inScopeExpr (referencing key, delimitedScope)
// and boundedExpr (referencing actionType) against a shared validator
// environment.
func NewRuleValidator(inScopeExpr, boundedExpr string) (*RuleValidator, error) {
	env, err := newValidatorEnv()
	if err != nil {
		return nil, fmt.Errorf("celfn: new environment: %w", err)
	}
	inScope, err := compile(env, inScopeExpr)
	if err != nil {
		return nil, fmt.Errorf("celfn: in-scope expression: %w", err)
	}
	bounded, err := compile(env, boundedExpr)
	if err != nil {
		return nil, fmt.Errorf("celfn: bounded expression: %w", err)
	}
	return &RuleValidator{inScope: inScope, bounded: bounded}, nil
}

// IsInScope evaluates the in-scope predicate against key and delimitedScope.
func (v *RuleValidator) IsInScope(key, delimitedScope string) bool {
	ok, err := evalBool(v.inScope, map[string]any{
		"key": key, "delimitedScope": delimitedScope, "actionType": "",
	})
	if err != nil {
		return false
	}
	return ok
}

// IsBounded evaluates the bounded predicate against actionType.
func (v *RuleValidator) IsBounded(actionType string) bool {
	ok, err := evalBool(v.bounded, map[string]any{
		"key": "", "delimitedScope": "", "actionType": actionType,
	})
	if err != nil {
		return false
	}
	return ok
}
