package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/invoice-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func price(v int) decimal.Decimal { return decimal.NewFromInt(int64(v)) }

func march2026() time.Time {
	return time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
}

func record(typ string, unitPrice, qty int, vendor string) engine.SalesRecord {
	return engine.SalesRecord{Type: typ, UnitPrice: price(unitPrice), Quantity: qty, VendorID: vendor}
}

// =============================================================================
// AGGREGATION
// =============================================================================

func TestAggregate_GroupsByTypeAndPrice(t *testing.T) {
	// GIVEN: records sharing and differing in (type, unit price)
	// WHEN: aggregating
	// THEN: same-key quantities are summed, distinct keys stay separate

	records := []engine.SalesRecord{
		record("HUEVO AA", 500, 1000, "900111"),
		record("HUEVO AA", 500, 500, "900222"),
		record("HUEVO AA", 520, 300, "900111"),
		record("HUEVO B", 450, 900, "900333"),
	}

	groups, err := engine.Aggregate(records, engine.DefaultConfig(), march2026())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if groups[0].Type != "HUEVO AA" || groups[0].Available != 1500 {
		t.Errorf("expected HUEVO AA @500 with 1500 eggs, got %s with %d", groups[0].Type, groups[0].Available)
	}
	if groups[1].Available != 300 {
		t.Errorf("expected HUEVO AA @520 with 300 eggs, got %d", groups[1].Available)
	}
}

func TestAggregate_StableOrderAndSequentialIDs(t *testing.T) {
	// GIVEN: the same records in two different input orders
	// WHEN: aggregating both
	// THEN: groups come out identically ordered with ids 1..n

	a := []engine.SalesRecord{
		record("HUEVO B", 450, 900, "1"),
		record("HUEVO AA", 500, 1000, "2"),
	}
	b := []engine.SalesRecord{a[1], a[0]}

	ga, _ := engine.Aggregate(a, engine.DefaultConfig(), march2026())
	gb, _ := engine.Aggregate(b, engine.DefaultConfig(), march2026())

	for i := range ga {
		if ga[i].Type != gb[i].Type || ga[i].ID != gb[i].ID {
			t.Fatalf("group order differs at %d: %v vs %v", i, ga[i], gb[i])
		}
		if ga[i].ID != engine.GroupID(i+1) {
			t.Errorf("expected id %d, got %d", i+1, ga[i].ID)
		}
	}
}

func TestAggregate_ExclusionFilters(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.ExcludeVendors = []string{"79389881"}
	cfg.ExcludeProducts = []string{"huevo quebrado"} // case-insensitive

	records := []engine.SalesRecord{
		record("HUEVO AA", 500, 1000, "900111"),
		record("HUEVO AA", 500, 700, "79389881"),
		record("HUEVO QUEBRADO", 200, 400, "900111"),
	}

	groups, err := engine.Aggregate(records, cfg, march2026())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 1 || groups[0].Available != 1000 {
		t.Fatalf("exclusions not applied: %+v", groups)
	}
}

func TestAggregate_EmptyAfterFiltering(t *testing.T) {
	// Everything excluded -> ValidationError, no output.
	cfg := engine.DefaultConfig()
	cfg.ExcludeProducts = []string{"HUEVO AA"}

	groups, err := engine.Aggregate([]engine.SalesRecord{
		record("HUEVO AA", 500, 1000, "900111"),
	}, cfg, march2026())

	if groups != nil {
		t.Fatalf("expected no output, got %v", groups)
	}
	if !engine.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !errors.Is(err, engine.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput sentinel, got %v", err)
	}
}

func TestAggregate_MalformedRecord(t *testing.T) {
	_, err := engine.Aggregate([]engine.SalesRecord{
		{Type: "", UnitPrice: price(500), Quantity: 10, VendorID: "1"},
	}, engine.DefaultConfig(), march2026())

	if !errors.Is(err, engine.ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}
