package celfn

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// DynamicFunction implements planner.DynamicAtomicConstraintFunction by
// compiling a CEL boolean expression over a single "key" variable, e.g.
// `key.startsWith("geo.")` or `key in ["age", "dateOfBirth"]`.
// NewDynamicFunction returns an error if the expression fails to
// compile, so a bad registration is caught at startup rather than
// surfacing as a runtime planning failure.
type DynamicFunction struct {
	name string
	prg  cel.Program
}

// NewDynamicFunction compiles expr against a fresh key-only CEL
// environment and returns a DynamicFunction named name. Returns an error
// if expr fails to compile or does not type-check to bool.
func NewDynamicFunction(name, expr string) (*DynamicFunction, error) {
	env, err := newKeyEnv()
	if err != nil {
		return nil, fmt.Errorf("celfn: new environment: %w", err)
	}
	prg, err := compile(env, expr)
	if err != nil {
		return nil, err
	}
	return &DynamicFunction{name: name, prg: prg}, nil
}

// Name returns the function's configured name.
func (f *DynamicFunction) Name() string { return f.name }

// CanHandle evaluates the compiled predicate against key. A runtime
// evaluation error (e.g. cost limit exceeded) is treated as "does not
// handle" rather than propagated, since CanHandle's contract is a bare
// bool; compile-time errors are already surfaced by the constructor.
func (f *DynamicFunction) CanHandle(key string) bool {
	ok, err := evalBool(f.prg, map[string]any{"key": key})
	if err != nil {
		return false
	}
	return ok
}
