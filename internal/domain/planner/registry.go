package planner

import (
	"sort"
	"sync"

	"github.com/odrlplan/odrlplan/internal/domain/odrl"
)

// FunctionRegistry holds the three indexed collections of function
// bindings the planner consults: static-key, dynamic-predicate, and
// whole-rule. Registration is append-only; re-registering under the same
// key never overwrites an earlier entry, it only adds a competitor that
// will never be chosen over the first (see ResolveFunctionName).
//
// A FunctionRegistry is safe for concurrent registration and concurrent
// resolution, but registrations are meant to be write-once at build time:
// after a Builder calls Build(), the registry backing the resulting
// Planner should not be mutated further.
type FunctionRegistry struct {
	mu      sync.RWMutex
	static  map[string][]staticEntry
	dynamic []dynamicEntry
	rule    []ruleEntry
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		static: make(map[string][]staticEntry),
	}
}

// RegisterStatic appends fn to the list of functions bound to key for the
// given rule kind, in call order.
func (r *FunctionRegistry) RegisterStatic(key string, kind odrl.RuleKind, fn AtomicConstraintFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.static[key] = append(r.static[key], staticEntry{kind: kind, fn: fn})
}

// RegisterDynamic appends fn to the dynamic-predicate list, in call order.
func (r *FunctionRegistry) RegisterDynamic(kind odrl.RuleKind, fn DynamicAtomicConstraintFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dynamic = append(r.dynamic, dynamicEntry{kind: kind, fn: fn})
}

// RegisterRule appends fn to the rule-function list, in call order.
func (r *FunctionRegistry) RegisterRule(kind odrl.RuleKind, fn RulePolicyFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rule = append(r.rule, ruleEntry{kind: kind, fn: fn})
}

// ResolveFunctionName runs a two-phase lookup: static entries under key
// first (first assignable match wins), then dynamic entries in
// registration order (first assignable match whose CanHandle(key) is
// true wins). Returns ("", false) if nothing matches.
func (r *FunctionRegistry) ResolveFunctionName(key string, kind odrl.RuleKind) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.static[key] {
		if odrl.Assignable(e.kind, kind) {
			return e.fn.Name(), true
		}
	}
	for _, e := range r.dynamic {
		if odrl.Assignable(e.kind, kind) && e.fn.CanHandle(key) {
			return e.fn.Name(), true
		}
	}
	return "", false
}

// RuleFunctionsFor returns every registered RulePolicyFunction whose
// registered kind is assignable from kind, in registration order.
func (r *FunctionRegistry) RuleFunctionsFor(kind odrl.RuleKind) []RulePolicyFunction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []RulePolicyFunction
	for _, e := range r.rule {
		if odrl.Assignable(e.kind, kind) {
			out = append(out, e.fn)
		}
	}
	return out
}

// StaticKeys returns every key with at least one static registration, in
// sorted order. The source registry's iteration over the whole keyspace
// is observably sorted; callers that render or diagnose the full
// registry (rather than resolve a single key) should use this instead of
// ranging over a Go map directly, whose iteration order is undefined.
func (r *FunctionRegistry) StaticKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.static))
	for k := range r.static {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
