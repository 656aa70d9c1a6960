package service_test

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/odrlplan/odrlplan/internal/domain/odrl"
	"github.com/odrlplan/odrlplan/internal/domain/planner"
	"github.com/odrlplan/odrlplan/internal/metrics"
	"github.com/odrlplan/odrlplan/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type stubValidator struct{}

func (stubValidator) IsInScope(key, delimitedScope string) bool { return true }
func (stubValidator) IsBounded(actionType string) bool          { return true }

func buildPlanner(t *testing.T) *planner.Planner {
	t.Helper()
	p, err := planner.NewBuilder(odrl.Scope("request")).
		WithRuleValidator(stubValidator{}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return p
}

func samplePolicy() *odrl.Policy {
	return &odrl.Policy{
		Permissions: []odrl.Rule{
			{
				Kind:   odrl.Permission,
				Action: &odrl.Action{Type: "use"},
				Constraints: []odrl.Constraint{
					odrl.AtomicConstraint{Left: odrl.Literal("purpose"), Operator: odrl.OpEq, Right: odrl.Literal("research")},
				},
			},
		},
	}
}

func TestPlanService_Plan(t *testing.T) {
	svc := service.NewPlanService(buildPlanner(t), odrl.Scope("request"))
	run, err := svc.Plan(context.Background(), samplePolicy())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if run.ID == "" {
		t.Error("expected a non-empty run ID")
	}
	if run.Plan == nil || len(run.Plan.Permissions) != 1 {
		t.Fatalf("unexpected plan: %+v", run.Plan)
	}
}

func TestPlanService_PlanCached(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := service.NewPlanService(buildPlanner(t), odrl.Scope("request"),
		service.WithCache(service.NewPlanCache(10)),
		service.WithMetrics(m))

	raw := []byte("permissions: []")
	first, err := svc.PlanCached(context.Background(), raw, samplePolicy())
	if err != nil {
		t.Fatalf("PlanCached (first): %v", err)
	}
	if first.CacheHit {
		t.Error("expected a miss on first call")
	}

	second, err := svc.PlanCached(context.Background(), raw, samplePolicy())
	if err != nil {
		t.Fatalf("PlanCached (second): %v", err)
	}
	if !second.CacheHit {
		t.Error("expected a hit on second call with identical raw bytes")
	}
}

func TestPlanService_RecordsUnboundAtomics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := service.NewPlanService(buildPlanner(t), odrl.Scope("request"), service.WithMetrics(m))

	// samplePolicy's "purpose" leftOperand resolves to no registered
	// function, since buildPlanner registers none.
	if _, err := svc.Plan(context.Background(), samplePolicy()); err != nil {
		t.Fatalf("Plan: %v", err)
	}

	got := testutil.ToFloat64(m.UnboundAtomics)
	if got != 1 {
		t.Errorf("UnboundAtomics = %v, want 1", got)
	}
}

func TestPlanService_ConcurrentReuse(t *testing.T) {
	defer goleak.VerifyNone(t)

	svc := service.NewPlanService(buildPlanner(t), odrl.Scope("request"))
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Plan(context.Background(), samplePolicy()); err != nil {
				t.Errorf("Plan: %v", err)
			}
		}()
	}
	wg.Wait()
}
