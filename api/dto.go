package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/invoice-engine/engine"
	"github.com/warp/invoice-engine/store/sqlite"
)

// =============================================================================
// REQUESTS
// =============================================================================

// SalesRecordDTO mirrors engine.SalesRecord on the wire. UnitPrice is a
// string so clients keep decimal exactness.
type SalesRecordDTO struct {
	Type      string `json:"type"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	VendorID  string `json:"vendor_id"`
}

// RunRequest triggers one batch run.
type RunRequest struct {
	Records       []SalesRecordDTO `json:"records"`
	ReferenceDate string           `json:"reference_date,omitempty"` // YYYY-MM-DD, defaults to today
	Seed          *int64           `json:"seed,omitempty"`
	TargetSales   int              `json:"target_sales,omitempty"`
	Strategy      string           `json:"strategy,omitempty"` // "exact" (default) or "heuristic"

	ExcludeVendors  []string `json:"exclude_vendors,omitempty"`
	ExcludeProducts []string `json:"exclude_products,omitempty"`

	OnInfeasible string `json:"on_infeasible,omitempty"` // "fallback_heuristic" or "fail"
	Remainders   string `json:"remainders,omitempty"`    // "emit", "omit" or "merge"
}

// =============================================================================
// RESPONSES
// =============================================================================

type RunDTO struct {
	ID           string `json:"id"`
	CreatedAt    string `json:"created_at"`
	Seed         int64  `json:"seed"`
	Strategy     string `json:"strategy"`
	TargetSales  int    `json:"target_sales"`
	GroupCount   int    `json:"group_count"`
	InvoiceCount int    `json:"invoice_count"`
	TotalValue   string `json:"total_value"`
	HeldBack     int    `json:"held_back"`
}

type GroupDTO struct {
	ID            int    `json:"id"`
	Type          string `json:"type"`
	UnitPrice     string `json:"unit_price"`
	Available     int    `json:"available"`
	Allocated     int    `json:"allocated"`
	ReferenceDate string `json:"reference_date"`
}

type InvoiceDTO struct {
	Date          string `json:"date"` // DD/MM/YYYY, the report format
	Number        string `json:"number"`
	Type          string `json:"type"`
	BasePrice     string `json:"base_price"`
	Quantity      int    `json:"quantity"`
	Packs         int    `json:"packs"`
	UnitMargin    int    `json:"unit_margin"`
	SaleUnitPrice string `json:"sale_unit_price"`
	SalePackPrice string `json:"sale_pack_price"`
	TotalValue    string `json:"total_value"`
	GroupID       int    `json:"group_id"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// MAPPING
// =============================================================================

func toRunDTO(r sqlite.Run) RunDTO {
	return RunDTO{
		ID:           r.ID,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		Seed:         r.Seed,
		Strategy:     r.Strategy,
		TargetSales:  r.TargetSales,
		GroupCount:   r.GroupCount,
		InvoiceCount: r.InvoiceCount,
		TotalValue:   r.TotalValue.String(),
		HeldBack:     r.HeldBack,
	}
}

func toGroupDTO(g engine.StockGroup) GroupDTO {
	return GroupDTO{
		ID:            int(g.ID),
		Type:          g.Type,
		UnitPrice:     g.UnitPrice.String(),
		Available:     g.Available,
		Allocated:     g.Allocated,
		ReferenceDate: g.ReferenceDate.Format("2006-01-02"),
	}
}

func toInvoiceDTO(inv engine.SyntheticInvoice) InvoiceDTO {
	return InvoiceDTO{
		Date:          inv.Date.Format("02/01/2006"),
		Number:        inv.Number,
		Type:          inv.Type,
		BasePrice:     inv.BasePrice.String(),
		Quantity:      inv.Quantity,
		Packs:         inv.Packs,
		UnitMargin:    inv.UnitMargin,
		SaleUnitPrice: inv.SaleUnitPrice.String(),
		SalePackPrice: inv.SalePackPrice.String(),
		TotalValue:    inv.TotalValue.String(),
		GroupID:       int(inv.Group),
	}
}

func (r SalesRecordDTO) toRecord() (engine.SalesRecord, error) {
	price, err := decimal.NewFromString(r.UnitPrice)
	if err != nil {
		return engine.SalesRecord{}, err
	}
	return engine.SalesRecord{
		Type:      r.Type,
		UnitPrice: price,
		Quantity:  r.Quantity,
		VendorID:  r.VendorID,
	}, nil
}
