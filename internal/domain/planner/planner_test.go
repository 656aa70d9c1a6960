package planner_test

import (
	"reflect"
	"testing"

	"github.com/odrlplan/odrlplan/internal/domain/odrl"
	"github.com/odrlplan/odrlplan/internal/domain/planner"
)

// stubValidator is a RuleValidator test double: inScope/bounded lists the
// keys/action-types it reports true for; everything else reports false.
type stubValidator struct {
	inScope map[string]bool
	bounded map[string]bool
}

func newStub() *stubValidator {
	return &stubValidator{inScope: map[string]bool{}, bounded: map[string]bool{}}
}

func (s *stubValidator) IsInScope(key, _ string) bool { return s.inScope[key] }
func (s *stubValidator) IsBounded(actionType string) bool { return s.bounded[actionType] }

func atomic(left string) odrl.AtomicConstraint {
	return odrl.AtomicConstraint{Left: odrl.Literal(left), Operator: odrl.OpEq, Right: odrl.Literal("v")}
}

// S1: empty policy, no registrations -> empty plan.
func TestS1_EmptyPolicy(t *testing.T) {
	b := planner.NewBuilder("request.catalog").WithRuleValidator(newStub())
	p, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	plan, err := p.Plan(&odrl.Policy{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Permissions) != 0 || len(plan.Prohibitions) != 0 || len(plan.Duties) != 0 {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
	if len(plan.PreValidators) != 0 || len(plan.PostValidators) != 0 {
		t.Fatalf("expected empty validator lists, got %+v", plan)
	}
}

// S2: static function resolves, key in scope -> unfiltered step, empty reasons.
func TestS2_StaticMatch_InScope(t *testing.T) {
	v := newStub()
	v.inScope["k1"] = true

	b := planner.NewBuilder("s").WithRuleValidator(v).
		RegisterStatic("k1", odrl.Permission, namedFn{"f1"})
	p, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	policy := &odrl.Policy{Permissions: []odrl.Rule{
		{Kind: odrl.Permission, Constraints: []odrl.Constraint{atomic("k1")}},
	}}
	plan, err := p.Plan(policy)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if len(plan.Permissions) != 1 {
		t.Fatalf("expected one PermissionStep, got %d", len(plan.Permissions))
	}
	perm := plan.Permissions[0]
	if perm.Filtered {
		t.Fatalf("expected unfiltered PermissionStep, got %+v", perm)
	}
	if len(perm.Constraints) != 1 {
		t.Fatalf("expected one constraint step, got %d", len(perm.Constraints))
	}
	atomStep, ok := perm.Constraints[0].(planner.AtomicConstraintStep)
	if !ok {
		t.Fatalf("expected AtomicConstraintStep, got %T", perm.Constraints[0])
	}
	if !atomStep.HasFunction || atomStep.FunctionName != "f1" {
		t.Fatalf("expected function f1 resolved, got %+v", atomStep)
	}
	if len(atomStep.Reasons) != 0 {
		t.Fatalf("expected no reasons, got %v", atomStep.Reasons)
	}
}

// S3: same as S2 but validator reports k1 out of scope -> resolution still
// succeeds, but a scope reason is attached.
func TestS3_StaticMatch_OutOfScope(t *testing.T) {
	v := newStub() // k1 not marked in scope

	b := planner.NewBuilder("s").WithRuleValidator(v).
		RegisterStatic("k1", odrl.Permission, namedFn{"f1"})
	p, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	policy := &odrl.Policy{Permissions: []odrl.Rule{
		{Kind: odrl.Permission, Constraints: []odrl.Constraint{atomic("k1")}},
	}}
	plan, err := p.Plan(policy)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	atomStep := plan.Permissions[0].Constraints[0].(planner.AtomicConstraintStep)
	if !atomStep.HasFunction || atomStep.FunctionName != "f1" {
		t.Fatalf("expected function resolution to still succeed, got %+v", atomStep)
	}
	want := []string{"leftOperand 'k1' is not bound to scope 's'"}
	if !reflect.DeepEqual(atomStep.Reasons, want) {
		t.Fatalf("got reasons %v, want %v", atomStep.Reasons, want)
	}
}

// S4: action type not bounded -> PermissionStep filtered with reason.
func TestS4_UnboundedAction(t *testing.T) {
	v := newStub() // "use" not bounded

	b := planner.NewBuilder("s").WithRuleValidator(v)
	p, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	policy := &odrl.Policy{Permissions: []odrl.Rule{
		{Kind: odrl.Permission, Action: &odrl.Action{Type: "use"}},
	}}
	plan, err := p.Plan(policy)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	perm := plan.Permissions[0]
	if !perm.Filtered {
		t.Fatalf("expected filtered PermissionStep")
	}
	want := []string{"action 'use' is not bound to scope 's'"}
	if !reflect.DeepEqual(perm.Reasons, want) {
		t.Fatalf("got reasons %v, want %v", perm.Reasons, want)
	}
}

// S5: dynamic function resolves when no static registration exists.
func TestS5_DynamicMatch(t *testing.T) {
	v := newStub()
	v.inScope["k2"] = true

	b := planner.NewBuilder("s").WithRuleValidator(v).
		RegisterDynamic(odrl.Any, dynamicFn{"dyn", func(k string) bool { return k == "k2" }})
	p, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	policy := &odrl.Policy{Prohibitions: []odrl.Rule{
		{Kind: odrl.Prohibition, Constraints: []odrl.Constraint{atomic("k2")}},
	}}
	plan, err := p.Plan(policy)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	atomStep := plan.Prohibitions[0].Constraints[0].(planner.AtomicConstraintStep)
	if !atomStep.HasFunction || atomStep.FunctionName != "dyn" {
		t.Fatalf("expected dyn to resolve, got %+v", atomStep)
	}
}

// S6: nested And/Or with no registrations -> tree shape preserved, every
// leaf carries both filtering reasons.
func TestS6_NestedMultiplicity_BothReasons(t *testing.T) {
	v := newStub() // nothing in scope, nothing registered

	b := planner.NewBuilder("s").WithRuleValidator(v)
	p, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	policy := &odrl.Policy{Permissions: []odrl.Rule{
		{Kind: odrl.Permission, Constraints: []odrl.Constraint{
			odrl.AndConstraint{Children: []odrl.Constraint{
				atomic("a"),
				odrl.OrConstraint{Children: []odrl.Constraint{atomic("b"), atomic("c")}},
			}},
		}},
	}}
	plan, err := p.Plan(policy)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	andStep, ok := plan.Permissions[0].Constraints[0].(planner.AndConstraintStep)
	if !ok || len(andStep.Children) != 2 {
		t.Fatalf("expected AndConstraintStep with 2 children, got %#v", plan.Permissions[0].Constraints[0])
	}
	aStep, ok := andStep.Children[0].(planner.AtomicConstraintStep)
	if !ok {
		t.Fatalf("expected atomic 'a', got %T", andStep.Children[0])
	}
	orStep, ok := andStep.Children[1].(planner.OrConstraintStep)
	if !ok || len(orStep.Children) != 2 {
		t.Fatalf("expected OrConstraintStep with 2 children, got %#v", andStep.Children[1])
	}
	bStep := orStep.Children[0].(planner.AtomicConstraintStep)
	cStep := orStep.Children[1].(planner.AtomicConstraintStep)

	for name, step := range map[string]planner.AtomicConstraintStep{"a": aStep, "b": bStep, "c": cStep} {
		if len(step.Reasons) != 2 {
			t.Fatalf("constraint %q: expected 2 reasons, got %v", name, step.Reasons)
		}
		if step.HasFunction {
			t.Fatalf("constraint %q: expected no function resolved", name)
		}
	}
}

func TestOrderPreservation(t *testing.T) {
	v := newStub()
	b := planner.NewBuilder("s").WithRuleValidator(v)
	p, _ := b.Build()

	policy := &odrl.Policy{
		Permissions:  []odrl.Rule{{Kind: odrl.Permission}, {Kind: odrl.Permission}},
		Prohibitions: []odrl.Rule{{Kind: odrl.Prohibition}},
		Obligations:  []odrl.Rule{{Kind: odrl.Duty}, {Kind: odrl.Duty}, {Kind: odrl.Duty}},
	}
	plan, err := p.Plan(policy)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Permissions) != 2 || len(plan.Prohibitions) != 1 || len(plan.Duties) != 3 {
		t.Fatalf("list lengths did not mirror source: %+v", plan)
	}
}

func TestEmptyMultiplicityChildrenAreLegal(t *testing.T) {
	v := newStub()
	b := planner.NewBuilder("s").WithRuleValidator(v)
	p, _ := b.Build()

	policy := &odrl.Policy{Permissions: []odrl.Rule{
		{Kind: odrl.Permission, Constraints: []odrl.Constraint{odrl.AndConstraint{}}},
	}}
	plan, err := p.Plan(policy)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	andStep := plan.Permissions[0].Constraints[0].(planner.AndConstraintStep)
	if len(andStep.Children) != 0 {
		t.Fatalf("expected empty children, got %v", andStep.Children)
	}
}

func TestDeterminism(t *testing.T) {
	v := newStub()
	v.inScope["k1"] = true
	b := planner.NewBuilder("s").WithRuleValidator(v).
		RegisterStatic("k1", odrl.Permission, namedFn{"f1"})
	p, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	policy := &odrl.Policy{Permissions: []odrl.Rule{
		{Kind: odrl.Permission, Constraints: []odrl.Constraint{atomic("k1")}},
	}}

	plan1, err := p.Plan(policy)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	plan2, err := p.Plan(policy)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !reflect.DeepEqual(plan1, plan2) {
		t.Fatalf("two invocations of the same planner on equal policies must produce equal plans")
	}
}

func TestIdempotentBuild(t *testing.T) {
	v := newStub()
	v.inScope["k1"] = true
	b := planner.NewBuilder("s").WithRuleValidator(v).
		RegisterStatic("k1", odrl.Permission, namedFn{"f1"})

	p1, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	p2, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	policy := &odrl.Policy{Permissions: []odrl.Rule{
		{Kind: odrl.Permission, Constraints: []odrl.Constraint{atomic("k1")}},
	}}
	plan1, err := p1.Plan(policy)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	plan2, err := p2.Plan(policy)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !reflect.DeepEqual(plan1, plan2) {
		t.Fatalf("Build called twice on an unchanged Builder must yield planners producing equal plans")
	}
}

func TestBuild_MissingRuleValidator(t *testing.T) {
	_, err := planner.NewBuilder("s").Build()
	if err == nil {
		t.Fatalf("expected an error when no RuleValidator was configured")
	}
}

func TestBuild_MissingScope(t *testing.T) {
	_, err := planner.NewBuilder("").WithRuleValidator(newStub()).Build()
	if err == nil {
		t.Fatalf("expected an error when scope is empty")
	}
}
