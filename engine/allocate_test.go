package engine_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/warp/invoice-engine/engine"
)

// failingStrategy always reports the problem infeasible.
type failingStrategy struct{}

func (failingStrategy) Name() string { return "failing" }
func (failingStrategy) Allocate([]engine.StockGroup, int, *rand.Rand) ([]int, error) {
	return nil, &engine.OptimizationError{Strategy: "failing", Err: engine.ErrInfeasible}
}

// =============================================================================
// SNAPPING
// =============================================================================

func TestAllocation_SnapsToMultipleUnderCap(t *testing.T) {
	// GIVEN: one group with 1000 eggs at 500, target 1000, multiple 150
	// WHEN: allocating exactly
	// THEN: the raw 1000 rounds to 1050, overshoots the stock, and drops
	//       to 900 - the nearest multiple that fits

	cfg := engine.DefaultConfig()
	cfg.TargetSales = 1000

	planner := engine.NewPlanner(cfg, engine.NewExactLPAllocation())
	plan, err := planner.Run(context.Background(), []engine.SalesRecord{
		record("HUEVO AA", 500, 1000, "900111"),
	}, march2026())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := plan.Groups[0].Allocated; got != 900 {
		t.Fatalf("expected allocation snapped to 900, got %d", got)
	}
}

func TestAllocation_InvariantsHoldForEveryGroup(t *testing.T) {
	records := []engine.SalesRecord{
		record("HUEVO AA", 500, 4800, "1"),
		record("HUEVO AAA", 550, 2250, "2"),
		record("HUEVO B", 430, 1000, "3"),
		record("HUEVO C", 400, 170, "4"),
	}

	for _, strategy := range []engine.AllocationStrategy{
		engine.NewExactLPAllocation(),
		engine.NewHeuristicAllocation(engine.DefaultConfig()),
	} {
		cfg := engine.DefaultConfig()
		planner := engine.NewPlanner(cfg, strategy)
		plan, err := planner.Run(context.Background(), records, march2026())
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", strategy.Name(), err)
		}

		total := 0
		for _, g := range plan.Groups {
			if g.Allocated < 0 || g.Allocated > g.Available {
				t.Errorf("%s: group %d allocated %d outside [0, %d]", strategy.Name(), g.ID, g.Allocated, g.Available)
			}
			if g.Allocated%cfg.Multiple != 0 {
				t.Errorf("%s: group %d allocated %d not a multiple of %d", strategy.Name(), g.ID, g.Allocated, cfg.Multiple)
			}
			total += g.Allocated
		}
		if target := 4800 + 2250 + 1000 + 170; total > target {
			t.Errorf("%s: total allocation %d exceeds target %d", strategy.Name(), total, target)
		}
	}
}

// =============================================================================
// EXACT STRATEGY
// =============================================================================

func TestExactAllocation_PrefersHighValueGroups(t *testing.T) {
	// GIVEN: two equally stocked groups, one twice the price, and a target
	//        that only covers one of them
	// WHEN: solving exactly
	// THEN: the expensive group gets the full allocation

	cfg := engine.DefaultConfig()
	cfg.TargetSales = 300

	planner := engine.NewPlanner(cfg, engine.NewExactLPAllocation())
	plan, err := planner.Run(context.Background(), []engine.SalesRecord{
		record("HUEVO BARATO", 200, 300, "1"),
		record("HUEVO CARO", 400, 300, "2"),
	}, march2026())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, g := range plan.Groups {
		switch g.Type {
		case "HUEVO CARO":
			if g.Allocated != 300 {
				t.Errorf("expected expensive group fully allocated, got %d", g.Allocated)
			}
		case "HUEVO BARATO":
			if g.Allocated != 0 {
				t.Errorf("expected cheap group unallocated, got %d", g.Allocated)
			}
		}
	}
}

// =============================================================================
// HEURISTIC STRATEGY
// =============================================================================

func TestHeuristicAllocation_DeterministicUnderSeed(t *testing.T) {
	groups := []engine.StockGroup{
		{ID: 1, Available: 4800},
		{ID: 2, Available: 2250},
	}
	h := engine.NewHeuristicAllocation(engine.DefaultConfig())

	a, _ := h.Allocate(groups, 7050, rand.New(rand.NewSource(7)))
	b, _ := h.Allocate(groups, 7050, rand.New(rand.NewSource(7)))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different allocations: %v vs %v", a, b)
		}
	}

	c, _ := h.Allocate(groups, 7050, rand.New(rand.NewSource(8)))
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Error("different seeds produced identical perturbations (suspicious)")
	}
}

// =============================================================================
// INFEASIBILITY POLICY
// =============================================================================

func TestInfeasiblePolicy_FallbackRunsHeuristic(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.OnInfeasible = engine.FallbackHeuristic

	planner := engine.NewPlanner(cfg, failingStrategy{})
	plan, err := planner.Run(context.Background(), []engine.SalesRecord{
		record("HUEVO AA", 500, 3000, "1"),
	}, march2026())
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if plan.Groups[0].Allocated == 0 {
		t.Error("fallback heuristic allocated nothing")
	}
}

func TestInfeasiblePolicy_FailSurfacesError(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.OnInfeasible = engine.FailOnInfeasible

	planner := engine.NewPlanner(cfg, failingStrategy{})
	_, err := planner.Run(context.Background(), []engine.SalesRecord{
		record("HUEVO AA", 500, 3000, "1"),
	}, march2026())

	if !engine.IsOptimization(err) {
		t.Fatalf("expected OptimizationError, got %v", err)
	}
	if !errors.Is(err, engine.ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible sentinel, got %v", err)
	}
}
