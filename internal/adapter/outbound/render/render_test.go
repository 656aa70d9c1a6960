package render_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/odrlplan/odrlplan/internal/adapter/outbound/render"
	"github.com/odrlplan/odrlplan/internal/domain/odrl"
	"github.com/odrlplan/odrlplan/internal/domain/planner"
)

type namedValidatorFn struct{ name string }

func (n namedValidatorFn) Name() string { return n.name }

func samplePlan() *planner.EvaluationPlan {
	rule := &odrl.Rule{Kind: odrl.Permission, Action: &odrl.Action{Type: "use"}}
	return &planner.EvaluationPlan{
		PreValidators: []planner.ValidatorStep{{Function: namedValidatorFn{name: "schemaCheck"}}},
		Permissions: []planner.PermissionStep{
			{
				RuleStep: planner.RuleStep{
					Rule:     rule,
					Filtered: true,
					Reasons:  []string{`action 'use' is not bound to scope 'request'`},
					Constraints: []planner.ConstraintStep{
						planner.AtomicConstraintStep{
							Constraint:  odrl.AtomicConstraint{Left: odrl.Literal("purpose"), Operator: odrl.OpEq, Right: odrl.Literal("research")},
							Rule:        rule,
							HasFunction: false,
							Reasons:     []string{`leftOperand 'purpose' is not bound to scope 'request'`},
						},
						planner.AndConstraintStep{Children: []planner.ConstraintStep{
							planner.AtomicConstraintStep{
								Constraint:   odrl.AtomicConstraint{Left: odrl.Literal("age"), Operator: odrl.OpGteq, Right: odrl.Literal("18")},
								Rule:         rule,
								FunctionName: "checkAge",
								HasFunction:  true,
							},
						}},
					},
				},
			},
		},
	}
}

func TestFromPlan(t *testing.T) {
	plan := samplePlan()
	rendered := render.FromPlan(plan)

	if len(rendered.PreValidators) != 1 || rendered.PreValidators[0].FunctionName != "schemaCheck" {
		t.Fatalf("PreValidators = %+v", rendered.PreValidators)
	}
	if len(rendered.Permissions) != 1 {
		t.Fatalf("Permissions = %+v", rendered.Permissions)
	}
	perm := rendered.Permissions[0]
	if !perm.Filtered || perm.ActionType != "use" {
		t.Fatalf("permission rendering = %+v", perm)
	}
	if len(perm.Constraints) != 2 {
		t.Fatalf("Constraints = %+v", perm.Constraints)
	}
	if perm.Constraints[0].Type != "atomic" || perm.Constraints[0].HasFunction {
		t.Fatalf("Constraints[0] = %+v", perm.Constraints[0])
	}
	if perm.Constraints[1].Type != "and" || len(perm.Constraints[1].Children) != 1 {
		t.Fatalf("Constraints[1] = %+v", perm.Constraints[1])
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := render.WriteJSON(&buf, samplePlan()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if !strings.Contains(buf.String(), `"action_type": "use"`) {
		t.Errorf("output missing action_type: %s", buf.String())
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := render.WriteYAML(&buf, samplePlan()); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	if !strings.Contains(buf.String(), "action_type: use") {
		t.Errorf("output missing action_type: %s", buf.String())
	}
}

func TestDiagnostics(t *testing.T) {
	diags := render.Diagnostics(samplePlan())
	if len(diags) != 2 {
		t.Fatalf("Diagnostics = %v, want 2 entries", diags)
	}
	if !strings.Contains(diags[0], "permission[0]: action 'use' is not bound") {
		t.Errorf("diags[0] = %q", diags[0])
	}
	if !strings.Contains(diags[1], "permission[0].constraint[0]: leftOperand 'purpose'") {
		t.Errorf("diags[1] = %q", diags[1])
	}
}
