/*
config.go - Run configuration and tunable constants

PURPOSE:
  Bundles every knob of the pipeline in one struct. Defaults match the
  production values the business runs with (10/50 trays per invoice, 5-tray
  granularity, Tuesday/Friday as strong sale days, 3-5 COP margin per egg).

  Quantities are eggs. A tray (cubeta) holds PackSize eggs.

OVERRIDES:
  Everything is overridable by the caller; FromEnv applies environment
  overrides on top of the defaults (the cmds load a .env first).
*/
package engine

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// POLICIES
// =============================================================================

// InfeasiblePolicy decides what happens when the exact solver fails or
// reports the problem infeasible.
type InfeasiblePolicy string

const (
	// FallbackHeuristic retries the run with the heuristic strategy.
	FallbackHeuristic InfeasiblePolicy = "fallback_heuristic"

	// FailOnInfeasible surfaces an OptimizationError instead.
	FailOnInfeasible InfeasiblePolicy = "fail"
)

// RemainderPolicy decides what the synthesizer does with a trailing chunk
// smaller than the per-invoice minimum.
type RemainderPolicy string

const (
	// RemainderEmit invoices the remainder as-is, below the minimum.
	RemainderEmit RemainderPolicy = "emit"

	// RemainderOmit drops the remainder from the plan and reports the
	// held-back quantity on Plan.HeldBack.
	RemainderOmit RemainderPolicy = "omit"

	// RemainderMerge folds the remainder into the previous chunk of the
	// same group when the merged quantity stays within the maximum;
	// otherwise the remainder is emitted.
	RemainderMerge RemainderPolicy = "merge"
)

// =============================================================================
// CONFIG
// =============================================================================

type Config struct {
	// Per-invoice quantity constraints.
	MinInvoiceQty int // minimum eggs per invoice
	MaxInvoiceQty int // maximum eggs per invoice
	Multiple      int // every quantity must be a multiple of this
	PackSize      int // eggs per tray

	// TargetSales caps the total allocation across all groups.
	// Zero means "sell everything" (target = total available).
	TargetSales int

	// Strong weekdays get triple the sampling weight when invoices are
	// assigned to business days.
	StrongDays   []time.Weekday
	StrongWeight int
	BaseWeight   int

	// Per-egg margin range, inclusive, in minor currency units.
	MarginMin int
	MarginMax int

	// Invoice numbering, scoped to one run.
	NumberPrefix string
	NumberStart  int

	// Exclusion sets applied before aggregation. Product types are
	// compared case-insensitively.
	ExcludeVendors  []string
	ExcludeProducts []string

	// ReconcileTolerance is the allowed gap (eggs) between the allocated
	// total and the invoiced + held-back total.
	ReconcileTolerance int

	// Seed drives every random draw of the run. Same input + same seed
	// reproduces the plan exactly.
	Seed int64

	OnInfeasible InfeasiblePolicy
	Remainders   RemainderPolicy
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MinInvoiceQty:      300,
		MaxInvoiceQty:      1500,
		Multiple:           150,
		PackSize:           30,
		StrongDays:         []time.Weekday{time.Tuesday, time.Friday},
		StrongWeight:       3,
		BaseWeight:         1,
		MarginMin:          3,
		MarginMax:          5,
		NumberPrefix:       "LSFE",
		NumberStart:        7000,
		ReconcileTolerance: 150,
		Seed:               42,
		OnInfeasible:       FallbackHeuristic,
		Remainders:         RemainderEmit,
	}
}

// FromEnv applies environment overrides on top of the defaults.
// Only the numeric knobs and exclusion lists are exposed; strategy
// selection stays with the caller.
func FromEnv() Config {
	cfg := DefaultConfig()
	envInt(&cfg.MinInvoiceQty, "ENGINE_MIN_INVOICE_QTY")
	envInt(&cfg.MaxInvoiceQty, "ENGINE_MAX_INVOICE_QTY")
	envInt(&cfg.Multiple, "ENGINE_MULTIPLE")
	envInt(&cfg.PackSize, "ENGINE_PACK_SIZE")
	envInt(&cfg.MarginMin, "ENGINE_MARGIN_MIN")
	envInt(&cfg.MarginMax, "ENGINE_MARGIN_MAX")
	envInt(&cfg.NumberStart, "ENGINE_NUMBER_START")
	envInt(&cfg.ReconcileTolerance, "ENGINE_RECONCILE_TOLERANCE")
	if v := os.Getenv("ENGINE_NUMBER_PREFIX"); v != "" {
		cfg.NumberPrefix = v
	}
	if v := os.Getenv("ENGINE_EXCLUDE_VENDORS"); v != "" {
		cfg.ExcludeVendors = splitList(v)
	}
	if v := os.Getenv("ENGINE_EXCLUDE_PRODUCTS"); v != "" {
		cfg.ExcludeProducts = splitList(v)
	}
	if v := os.Getenv("ENGINE_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = n
		}
	}
	return cfg
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// isStrongDay reports whether d carries the heavier sampling weight.
func (c Config) isStrongDay(d time.Weekday) bool {
	for _, sd := range c.StrongDays {
		if sd == d {
			return true
		}
	}
	return false
}
