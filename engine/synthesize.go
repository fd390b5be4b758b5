/*
synthesize.go - Pricing, numbering and remainder handling

PURPOSE:
  Turns (chunk, day) pairs into finished invoices: draws a per-egg margin,
  derives unit/tray sale prices and the invoice total, and stamps a
  sequential invoice number. Numbers are scoped to the run, never
  persisted across runs.

REMAINDERS:
  Chunks tagged Remainder are below the per-invoice minimum. The policy
  decides their fate:
    emit   invoice them anyway (default)
    omit   hold them back; the quantity is reported on Plan.HeldBack
    merge  fold into the previous invoice of the same group when the
           merged quantity stays within the maximum, else emit
*/
package engine

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// synthesizer accumulates invoices for one run.
type synthesizer struct {
	cfg    Config
	rng    *rand.Rand
	next   int
	packSz decimal.Decimal
}

func newSynthesizer(cfg Config, rng *rand.Rand) *synthesizer {
	return &synthesizer{
		cfg:    cfg,
		rng:    rng,
		next:   cfg.NumberStart,
		packSz: decimal.NewFromInt(int64(cfg.PackSize)),
	}
}

// emit prices one chunk on the given day and returns the invoice.
func (s *synthesizer) emit(group StockGroup, qty int, day time.Time) SyntheticInvoice {
	margin := s.cfg.MarginMin
	if s.cfg.MarginMax > s.cfg.MarginMin {
		margin += s.rng.Intn(s.cfg.MarginMax - s.cfg.MarginMin + 1)
	}

	saleUnit := group.UnitPrice.Add(decimal.NewFromInt(int64(margin)))
	inv := SyntheticInvoice{
		Date:          day,
		Number:        fmt.Sprintf("%s %d", s.cfg.NumberPrefix, s.next),
		Type:          group.Type,
		BasePrice:     group.UnitPrice,
		Quantity:      qty,
		Packs:         qty / s.cfg.PackSize,
		UnitMargin:    margin,
		SaleUnitPrice: saleUnit,
		SalePackPrice: saleUnit.Mul(s.packSz),
		TotalValue:    saleUnit.Mul(decimal.NewFromInt(int64(qty))),
		Group:         group.ID,
	}
	s.next++
	return inv
}
