/*
Package engine implements the stock allocation and synthetic invoice
generation pipeline.

PURPOSE:
  This package contains the core batch transform: it takes consolidated
  sales records (product type, unit price, quantity), decides how much of
  each stock group to sell in the month, fragments those quantities into
  realistically sized invoices, spreads them over the month's business
  days, and prices them.

PIPELINE:
  Aggregate -> Allocate -> Fragment -> Distribute -> Synthesize

  A single forward pass with no feedback. One batch in, one Plan out.

KEY CONCEPTS IN THIS FILE (types.go):
  - SalesRecord:     Immutable input row from the ingestion collaborator
  - StockGroup:      Aggregation of sales by (type, unit price), with the
                     quantity the optimizer decided to sell
  - InvoiceChunk:    One invoice-sized slice of a group's allocation
  - SyntheticInvoice: A dated, numbered, priced invoice record
  - Plan:            The complete output, grouped by calendar month

DESIGN PRINCIPLES:
  1. Immutability: records flow forward, nothing is mutated across stages
  2. Precision: prices use decimal.Decimal, quantities are plain integers
  3. Determinism: all randomness comes from one seeded generator threaded
     through the run (see pipeline.go)

SEE ALSO:
  - config.go:     Tunable constants (invoice bounds, pack size, weights)
  - allocate.go:   Allocation strategies
  - fragment.go:   Chunking heuristic
  - synthesize.go: Pricing and numbering
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SALES RECORD - One consolidated line item from the ingestion side
// =============================================================================

// SalesRecord is one row of the consolidated sales table. The ingestion
// collaborator has already applied vendor unit conversions, so Quantity is
// always in base units (eggs).
type SalesRecord struct {
	Type      string
	UnitPrice decimal.Decimal
	Quantity  int
	VendorID  string
}

// =============================================================================
// STOCK GROUP - Allocation target, keyed by (type, unit price)
// =============================================================================

// GroupID is the sequential id of a stock group within a run.
type GroupID int

// StockGroup aggregates sales records sharing a (type, unit price) key.
// Available is the summed quantity; Allocated is filled in by the optimizer
// and never changed afterwards.
//
// Invariants (enforced by snapAllocation, checked by tests):
//   - 0 <= Allocated <= Available
//   - Allocated % Multiple == 0
type StockGroup struct {
	ID        GroupID
	Type      string
	UnitPrice decimal.Decimal
	Available int
	Allocated int

	// ReferenceDate anchors the group to the calendar month the invoices
	// will be generated for.
	ReferenceDate time.Time
}

// =============================================================================
// INVOICE CHUNK - One slice of a group's allocation
// =============================================================================

// InvoiceChunk is a single invoice-sized quantity cut from a group's
// allocation. Remainder marks the trailing sub-minimum leftover that could
// not be packed into a full invoice; the synthesizer applies a separate
// policy to those (see RemainderPolicy).
type InvoiceChunk struct {
	Group     GroupID
	Quantity  int
	Remainder bool
}

// =============================================================================
// SYNTHETIC INVOICE - The unit of output
// =============================================================================

// SyntheticInvoice is one generated invoice: a chunk assigned to a business
// day and priced with a randomized per-unit margin.
type SyntheticInvoice struct {
	Date          time.Time
	Number        string
	Type          string
	BasePrice     decimal.Decimal
	Quantity      int
	Packs         int
	UnitMargin    int
	SaleUnitPrice decimal.Decimal
	SalePackPrice decimal.Decimal
	TotalValue    decimal.Decimal
	Group         GroupID
}

// =============================================================================
// PLAN - Monthly and global result sets
// =============================================================================

// MonthKey identifies a calendar month.
type MonthKey struct {
	Year  int
	Month time.Month
}

func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// String renders the key as "January 2026" (sheet/report naming).
func (m MonthKey) String() string {
	return m.Month.String() + " " + time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006")
}

// MonthPlan holds the invoices of one calendar month, ordered by date then
// invoice number.
type MonthPlan struct {
	Month      MonthKey
	Invoices   []SyntheticInvoice
	TotalValue decimal.Decimal
}

// Plan is the engine's complete output for one batch run.
type Plan struct {
	Groups []StockGroup
	Months []MonthPlan

	// All invoices across months, in generation order.
	Invoices []SyntheticInvoice

	// TotalValue is the sum of every invoice's TotalValue.
	TotalValue decimal.Decimal

	// HeldBack is the total quantity of remainder chunks that were not
	// invoiced (RemainderOmit policy). Always zero under RemainderEmit.
	HeldBack int
}

// InvoicedQuantity returns the total quantity across all generated invoices.
func (p *Plan) InvoicedQuantity() int {
	total := 0
	for _, inv := range p.Invoices {
		total += inv.Quantity
	}
	return total
}

// AllocatedQuantity returns the total quantity the optimizer allocated.
func (p *Plan) AllocatedQuantity() int {
	total := 0
	for _, g := range p.Groups {
		total += g.Allocated
	}
	return total
}
