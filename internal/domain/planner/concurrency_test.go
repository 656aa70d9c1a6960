package planner_test

import (
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/odrlplan/odrlplan/internal/domain/odrl"
	"github.com/odrlplan/odrlplan/internal/domain/planner"
)

// TestPlan_ConcurrentReuse proves a built Planner is safe to call from
// many goroutines over distinct inputs: each Plan call allocates its own
// call-local rule-context stack rather than sharing one on the Planner,
// so concurrent callers never observe each other's stack.
func TestPlan_ConcurrentReuse(t *testing.T) {
	defer goleak.VerifyNone(t)

	v := &stubValidator{inScope: map[string]bool{"k1": true}, bounded: map[string]bool{}}
	p, err := planner.NewBuilder("s").WithRuleValidator(v).
		RegisterStatic("k1", odrl.Permission, namedFn{"f1"}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			policy := &odrl.Policy{Permissions: []odrl.Rule{
				{Kind: odrl.Permission, Constraints: []odrl.Constraint{atomic("k1")}},
			}}
			if _, err := p.Plan(policy); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Plan call failed: %v", err)
	}
}
