/*
lp.go - Exact allocation via linear programming

PURPOSE:
  Formulates the allocation as a knapsack-style linear program and solves
  it with gonum's simplex:

    maximize   sum(price_i * x_i)
    subject to 0 <= x_i <= available_i     (per group)
               sum(x_i) <= target          (aggregate cap)

  The model is built directly in standard form (minimize c'x, Ax = b,
  x >= 0) with one slack per upper bound and one for the aggregate cap, so
  no conversion pass is needed and the solve is deterministic.

INTEGRALITY:
  The relaxation is solved continuously; the multiple-of-N snap applied to
  every strategy's output (allocate.go) performs the rounding an integer
  program would otherwise need. With a single aggregate constraint
  the relaxed optimum is at most one fractional group away from integral.

SEE ALSO:
  - allocate.go: strategy interface and snapping
*/
package engine

import (
	"errors"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// ExactLPAllocation maximizes total sale value subject to the aggregate
// sales target. Implements AllocationStrategy.
type ExactLPAllocation struct{}

func NewExactLPAllocation() *ExactLPAllocation { return &ExactLPAllocation{} }

func (e *ExactLPAllocation) Name() string { return "exact_lp" }

// Allocate solves the relaxed program. The rng parameter is unused: the
// exact path has no random component.
func (e *ExactLPAllocation) Allocate(groups []StockGroup, target int, _ *rand.Rand) ([]int, error) {
	n := len(groups)
	if n == 0 {
		return nil, nil
	}

	// Standard form: n allocation variables, n bound slacks, 1 cap slack.
	//   x_i + s_i           = available_i
	//   sum(x_i)       + t  = target
	cols := 2*n + 1
	rows := n + 1

	c := make([]float64, cols)
	b := make([]float64, rows)
	a := mat.NewDense(rows, cols, nil)

	for i, g := range groups {
		c[i] = -priceWeight(g) // simplex minimizes
		a.Set(i, i, 1)
		a.Set(i, n+i, 1)
		b[i] = float64(g.Available)

		a.Set(n, i, 1)
	}
	a.Set(n, cols-1, 1)
	b[n] = float64(target)

	_, x, err := lp.Simplex(c, a, b, 1e-10, nil)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return nil, &OptimizationError{Strategy: e.Name(), Err: ErrInfeasible}
		}
		return nil, &OptimizationError{Strategy: e.Name(), Err: err}
	}

	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = int(x[i] + 0.5)
	}
	return out, nil
}

func priceWeight(g StockGroup) float64 {
	f, _ := g.UnitPrice.Float64()
	return f
}
