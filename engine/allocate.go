/*
allocate.go - Allocation strategies

PURPOSE:
  Decides, per stock group, how many eggs to sell this month. Two
  interchangeable strategies implement AllocationStrategy:

  ExactLPAllocation (lp.go):
    - Linear program: one bounded variable per group, maximize total value,
      single aggregate cap on the total allocation
    - Solved with gonum's simplex on the continuous relaxation; the
      multiple-of-N snap below does the integer rounding

  HeuristicAllocation (this file):
    - allocated = available, perturbed by a bounded random factor (+/-3%)
      and floored at the minimum sale size
    - Used when no solver is wanted, or as the infeasibility fallback

SNAPPING:
  Both paths run through snapAllocation afterwards: round to the nearest
  multiple of cfg.Multiple, and if that overshoots the available stock,
  drop to the largest multiple that fits. Snapping can reduce an
  allocation but never push it past the cap.

SEE ALSO:
  - lp.go: exact strategy
  - pipeline.go: strategy selection and fallback policy
*/
package engine

import (
	"math/rand"
)

// =============================================================================
// STRATEGY INTERFACE
// =============================================================================

// AllocationStrategy fills in Allocated for every group such that
// 0 <= Allocated <= Available and the sum stays within target. The caller
// (Planner) injects the strategy; rng carries the run's seeded generator.
type AllocationStrategy interface {
	// Name identifies the strategy in errors and logs.
	Name() string

	// Allocate returns the raw (pre-snap) allocation per group, aligned
	// by index with groups.
	Allocate(groups []StockGroup, target int, rng *rand.Rand) ([]int, error)
}

// =============================================================================
// HEURISTIC STRATEGY
// =============================================================================

// HeuristicAllocation is the solver-free path: sell everything, with a
// small random perturbation per group so repeated months don't produce
// identical patterns. Deterministic under a fixed seed.
type HeuristicAllocation struct {
	// Jitter is the maximum relative perturbation (0.03 = +/-3%).
	Jitter float64

	// MinSale floors each perturbed allocation.
	MinSale int
}

func NewHeuristicAllocation(cfg Config) *HeuristicAllocation {
	return &HeuristicAllocation{Jitter: 0.03, MinSale: cfg.MinInvoiceQty}
}

func (h *HeuristicAllocation) Name() string { return "heuristic" }

func (h *HeuristicAllocation) Allocate(groups []StockGroup, target int, rng *rand.Rand) ([]int, error) {
	out := make([]int, len(groups))
	for i, g := range groups {
		factor := 1 - h.Jitter + rng.Float64()*2*h.Jitter
		qty := int(float64(g.Available)*factor + 0.5)
		if qty < h.MinSale {
			qty = h.MinSale
		}
		out[i] = qty
	}
	return out, nil
}

// =============================================================================
// SNAPPING - Multiple-of-N granularity and availability cap
// =============================================================================

// snapToMultiple rounds qty to the nearest multiple of m, then caps at the
// largest multiple <= available if rounding overshot the stock.
func snapToMultiple(qty, m, available int) int {
	if m <= 0 {
		if qty > available {
			return available
		}
		return qty
	}
	snapped := ((qty + m/2) / m) * m
	if snapped > available {
		snapped = (available / m) * m
	}
	if snapped < 0 {
		snapped = 0
	}
	return snapped
}

// snapAllocation applies snapToMultiple to a raw allocation vector and
// writes the results onto the groups.
func snapAllocation(groups []StockGroup, raw []int, cfg Config) {
	for i := range groups {
		groups[i].Allocated = snapToMultiple(raw[i], cfg.Multiple, groups[i].Available)
	}
}
