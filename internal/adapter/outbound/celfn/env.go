// Package celfn provides CEL-backed implementations of the planner's
// collaborator interfaces, for hosts that want to express "which keys
// does this function handle" or "which keys/actions are bound to this
// scope" declaratively rather than in Go code.
//
// It follows the same compile-once, cost-limited evaluation pattern as
// the CEL policy evaluator it is grounded on: each constructor builds its
// own *cel.Env, expressions are compiled to cel.Program at registration
// time, and a hard
// cost budget so a malformed or adversarial expression cannot hang
// planning.
package celfn

import (
	"fmt"
	"reflect"

	"github.com/google/cel-go/cel"
)

// maxCostBudget bounds CEL runtime cost to keep evaluation of a
// predicate bounded, mirroring the policy evaluator's cost limit.
const maxCostBudget = 10_000

// newKeyEnv returns a CEL environment with a single string variable,
// "key", the only input a DynamicAtomicConstraintFunction's CanHandle
// predicate needs.
func newKeyEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("key", cel.StringType),
	)
}

// newValidatorEnv returns a CEL environment with the three string
// variables a RuleValidator predicate may reference: the left-operand
// key, the scope's delimited form, and an action type.
func newValidatorEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("key", cel.StringType),
		cel.Variable("delimitedScope", cel.StringType),
		cel.Variable("actionType", cel.StringType),
	)
}

// compile parses, type-checks, and builds a cost-limited program for expr
// against env.
func compile(env *cel.Env, expr string) (cel.Program, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("celfn: compilation failed: %w", issues.Err())
	}
	if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
		return nil, fmt.Errorf("celfn: expression must return a boolean, got %v", ast.OutputType())
	}
	prg, err := env.Program(ast, cel.EvalOptions(cel.OptOptimize), cel.CostLimit(maxCostBudget))
	if err != nil {
		return nil, fmt.Errorf("celfn: program creation failed: %w", err)
	}
	return prg, nil
}

// evalBool runs prg against vars and requires a boolean result.
func evalBool(prg cel.Program, vars map[string]any) (bool, error) {
	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("celfn: evaluation failed: %w", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("celfn: expression did not return a boolean, got %T", out.Value())
	}
	return b, nil
}
