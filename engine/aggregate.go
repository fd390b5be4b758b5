/*
aggregate.go - Sales aggregation into stock groups

PURPOSE:
  Turns the flat sequence of sales records into stock groups keyed by
  (product type, unit price), summing quantities into the available stock.
  Exclusion filters (vendor ids, product types) run before grouping.

ORDERING:
  Group order does not affect correctness, but it MUST be stable: group ids
  seed into downstream random draws, so a reordered input with the same
  content has to produce the same groups in the same sequence. Groups are
  sorted by (type, unit price).
*/
package engine

import (
	"sort"
	"strings"
	"time"
)

type groupKey struct {
	Type  string
	Price string // decimal rendered canonically, usable as map key
}

// Aggregate validates and groups sales records. Returns a ValidationError
// if a record is malformed or nothing survives the exclusion filters.
// The reference date anchors every group to its target month.
func Aggregate(records []SalesRecord, cfg Config, reference time.Time) ([]StockGroup, error) {
	excludedVendor := make(map[string]bool, len(cfg.ExcludeVendors))
	for _, v := range cfg.ExcludeVendors {
		excludedVendor[v] = true
	}
	excludedProduct := make(map[string]bool, len(cfg.ExcludeProducts))
	for _, p := range cfg.ExcludeProducts {
		excludedProduct[strings.ToUpper(p)] = true
	}

	totals := make(map[groupKey]*StockGroup)
	for i, r := range records {
		if strings.TrimSpace(r.Type) == "" {
			return nil, &ValidationError{Field: "type", Record: i, Reason: "empty product type"}
		}
		if r.Quantity < 0 {
			return nil, &ValidationError{Field: "quantity", Record: i, Reason: "negative quantity"}
		}
		if r.UnitPrice.IsNegative() {
			return nil, &ValidationError{Field: "unit_price", Record: i, Reason: "negative unit price"}
		}

		if excludedVendor[r.VendorID] || excludedProduct[strings.ToUpper(r.Type)] {
			continue
		}

		k := groupKey{Type: r.Type, Price: r.UnitPrice.String()}
		g, ok := totals[k]
		if !ok {
			g = &StockGroup{
				Type:          r.Type,
				UnitPrice:     r.UnitPrice,
				ReferenceDate: reference,
			}
			totals[k] = g
		}
		g.Available += r.Quantity
	}

	if len(totals) == 0 {
		return nil, &ValidationError{Record: -1, Reason: "no sales records after filtering"}
	}

	groups := make([]StockGroup, 0, len(totals))
	for _, g := range totals {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Type != groups[j].Type {
			return groups[i].Type < groups[j].Type
		}
		return groups[i].UnitPrice.LessThan(groups[j].UnitPrice)
	})
	for i := range groups {
		groups[i].ID = GroupID(i + 1)
	}
	return groups, nil
}

// TotalAvailable sums the available stock across groups.
func TotalAvailable(groups []StockGroup) int {
	total := 0
	for _, g := range groups {
		total += g.Available
	}
	return total
}
