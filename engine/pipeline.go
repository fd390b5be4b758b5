/*
pipeline.go - The Planner: one batch run end to end

PURPOSE:
  Wires the five stages into a single synchronous pass:

    Aggregate -> Allocate (+snap) -> Fragment -> Distribute -> Synthesize

  The Planner owns strategy selection and the infeasibility fallback, and
  threads one seeded random generator through every stage so a given input
  plus seed always reproduces the same plan byte for byte.

FAILURE:
  The run either returns a complete Plan or fails fast with a typed error.
  No partial output, no retries. Persistence is the caller's problem.

SEE ALSO:
  - config.go: knobs, fallback and remainder policies
  - types.go:  Plan shape
*/
package engine

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Planner executes batch runs. Strategy is injected by the caller; the
// zero value is not usable, construct with NewPlanner.
type Planner struct {
	Config   Config
	Strategy AllocationStrategy
	Log      logrus.FieldLogger
}

// NewPlanner builds a planner with the given config and strategy.
// A nil strategy selects the exact LP solver.
func NewPlanner(cfg Config, strategy AllocationStrategy) *Planner {
	if strategy == nil {
		strategy = NewExactLPAllocation()
	}
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	return &Planner{Config: cfg, Strategy: strategy, Log: quiet}
}

// Run executes one batch: aggregates records, allocates against the sales
// target, fragments and distributes the allocations over the reference
// month's business days, and prices the resulting invoices.
func (p *Planner) Run(ctx context.Context, records []SalesRecord, reference time.Time) (*Plan, error) {
	cfg := p.Config
	rng := rand.New(rand.NewSource(cfg.Seed))

	groups, err := Aggregate(records, cfg, reference)
	if err != nil {
		return nil, err
	}

	target := cfg.TargetSales
	if target <= 0 {
		target = TotalAvailable(groups) // policy: sell everything
	}
	p.Log.WithFields(logrus.Fields{
		"groups": len(groups),
		"target": target,
	}).Info("stock aggregated")

	if err := p.allocate(groups, target, rng); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plan, err := p.generate(groups, rng)
	if err != nil {
		return nil, err
	}

	p.Log.WithFields(logrus.Fields{
		"invoices": len(plan.Invoices),
		"months":   len(plan.Months),
		"total":    plan.TotalValue.String(),
	}).Info("plan generated")
	return plan, nil
}

// =============================================================================
// ALLOCATION STAGE
// =============================================================================

func (p *Planner) allocate(groups []StockGroup, target int, rng *rand.Rand) error {
	strategy := p.Strategy
	raw, err := strategy.Allocate(groups, target, rng)
	if err != nil {
		if !IsOptimization(err) || p.Config.OnInfeasible != FallbackHeuristic {
			return err
		}
		if _, isHeuristic := strategy.(*HeuristicAllocation); isHeuristic {
			return err
		}
		p.Log.WithField("cause", err.Error()).Warn("exact allocation failed, falling back to heuristic")
		strategy = NewHeuristicAllocation(p.Config)
		raw, err = strategy.Allocate(groups, target, rng)
		if err != nil {
			return err
		}
	}

	snapAllocation(groups, raw, p.Config)
	p.trimToTarget(groups, target)
	return nil
}

// trimToTarget walks allocations down in Multiple-sized steps, cheapest
// groups first, until the aggregate target holds. The heuristic path can
// overshoot it (the exact path cannot).
func (p *Planner) trimToTarget(groups []StockGroup, target int) {
	total := 0
	for _, g := range groups {
		total += g.Allocated
	}
	if total <= target {
		return
	}

	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return groups[order[a]].UnitPrice.LessThan(groups[order[b]].UnitPrice)
	})

	step := p.Config.Multiple
	if step <= 0 {
		step = 1
	}
	for total > target {
		reduced := false
		for _, i := range order {
			if total <= target {
				break
			}
			if groups[i].Allocated >= step {
				groups[i].Allocated -= step
				total -= step
				reduced = true
			}
		}
		if !reduced {
			break
		}
	}
}

// =============================================================================
// GENERATION STAGE - Fragment, distribute, synthesize
// =============================================================================

func (p *Planner) generate(groups []StockGroup, rng *rand.Rand) (*Plan, error) {
	cfg := p.Config
	synth := newSynthesizer(cfg, rng)
	plan := &Plan{Groups: groups, TotalValue: decimal.Zero}

	// Groups are bucketed by reference month; months processed in order
	// so numbering and random draws stay reproducible.
	byMonth := make(map[MonthKey][]int)
	var monthKeys []MonthKey
	for i, g := range groups {
		k := MonthOf(g.ReferenceDate)
		if _, seen := byMonth[k]; !seen {
			monthKeys = append(monthKeys, k)
		}
		byMonth[k] = append(byMonth[k], i)
	}
	sort.Slice(monthKeys, func(a, b int) bool {
		if monthKeys[a].Year != monthKeys[b].Year {
			return monthKeys[a].Year < monthKeys[b].Year
		}
		return monthKeys[a].Month < monthKeys[b].Month
	})

	for _, mk := range monthKeys {
		idxs := byMonth[mk]
		cal := NewMonthCalendar(groups[idxs[0]].ReferenceDate, cfg)
		month := MonthPlan{Month: mk, TotalValue: decimal.Zero}

		for _, gi := range idxs {
			g := groups[gi]
			if g.Allocated <= 0 {
				continue
			}
			chunks := applyRemainderPolicy(Fragment(g.ID, g.Allocated, cfg, rng), cfg, plan)
			for _, ch := range chunks {
				inv := synth.emit(g, ch.Quantity, cal.Pick(rng))
				month.Invoices = append(month.Invoices, inv)
				month.TotalValue = month.TotalValue.Add(inv.TotalValue)
				plan.Invoices = append(plan.Invoices, inv)
				plan.TotalValue = plan.TotalValue.Add(inv.TotalValue)
			}
		}

		sortInvoices(month.Invoices)
		plan.Months = append(plan.Months, month)
	}

	if err := p.reconcile(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// applyRemainderPolicy rewrites a group's chunk list according to the
// configured remainder handling. Quantities are conserved: omitted
// remainders are accounted on the plan.
func applyRemainderPolicy(chunks []InvoiceChunk, cfg Config, plan *Plan) []InvoiceChunk {
	if len(chunks) == 0 {
		return chunks
	}
	last := len(chunks) - 1
	if !chunks[last].Remainder {
		return chunks
	}

	switch cfg.Remainders {
	case RemainderOmit:
		plan.HeldBack += chunks[last].Quantity
		return chunks[:last]
	case RemainderMerge:
		if last > 0 && chunks[last-1].Quantity+chunks[last].Quantity <= cfg.MaxInvoiceQty {
			chunks[last-1].Quantity += chunks[last].Quantity
			return chunks[:last]
		}
		return chunks
	default: // RemainderEmit
		return chunks
	}
}

func sortInvoices(invs []SyntheticInvoice) {
	sort.Slice(invs, func(a, b int) bool {
		if !invs[a].Date.Equal(invs[b].Date) {
			return invs[a].Date.Before(invs[b].Date)
		}
		// Numbers share a prefix; shorter means numerically smaller.
		if len(invs[a].Number) != len(invs[b].Number) {
			return len(invs[a].Number) < len(invs[b].Number)
		}
		return invs[a].Number < invs[b].Number
	})
}

// reconcile cross-checks the optimizer's allocation against what the
// later stages actually produced.
func (p *Planner) reconcile(plan *Plan) error {
	allocated := plan.AllocatedQuantity()
	accounted := plan.InvoicedQuantity() + plan.HeldBack
	diff := allocated - accounted
	if diff < 0 {
		diff = -diff
	}
	if diff > p.Config.ReconcileTolerance {
		return fmt.Errorf("reconciliation failed: allocated %d eggs but accounted for %d (tolerance %d)",
			allocated, accounted, p.Config.ReconcileTolerance)
	}
	return nil
}
