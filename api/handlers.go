/*
handlers.go - HTTP handlers for the invoice generation service

PURPOSE:
  Exposes the batch engine over REST: trigger a run, inspect its
  allocation and invoices, download the invoice workbook.

ENDPOINTS:
  POST   /api/runs                 Run the pipeline on posted records
  GET    /api/runs                 List run summaries
  GET    /api/runs/{id}            One run summary
  GET    /api/runs/{id}/groups     The run's stock allocation table
  GET    /api/runs/{id}/invoices   The run's generated invoices
  GET    /api/runs/{id}/export     Invoice workbook (xlsx attachment)

ERROR HANDLING:
  Errors are returned as JSON with the matching HTTP status:
  - 400: validation errors, malformed request body
  - 404: unknown run
  - 422: optimization failure (infeasible with fail policy)
  - 500: storage or internal errors

SEE ALSO:
  - dto.go: wire types
  - server.go: router and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/invoice-engine/engine"
	"github.com/warp/invoice-engine/store/sqlite"
	"github.com/warp/invoice-engine/xlsx"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store
	Log   *logrus.Logger

	// Defaults applies before per-request overrides.
	Defaults engine.Config
}

// NewHandler creates a handler with the given store and config defaults.
func NewHandler(store *sqlite.Store, defaults engine.Config, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{Store: store, Log: log, Defaults: defaults}
}

// =============================================================================
// RUN EXECUTION
// =============================================================================

// CreateRun executes the pipeline on the posted sales records and persists
// the result.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	records := make([]engine.SalesRecord, 0, len(req.Records))
	for i, dto := range req.Records {
		rec, err := dto.toRecord()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid unit price", &engine.ValidationError{
				Field: "unit_price", Record: i, Reason: err.Error(),
			})
			return
		}
		records = append(records, rec)
	}

	cfg, reference, err := h.buildConfig(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run parameters", err)
		return
	}

	strategy := h.selectStrategy(req.Strategy)
	planner := engine.NewPlanner(cfg, strategy)
	planner.Log = h.Log

	plan, err := planner.Run(r.Context(), records, reference)
	if err != nil {
		switch {
		case engine.IsValidation(err):
			writeError(w, http.StatusBadRequest, "validation failed", err)
		case engine.IsOptimization(err):
			writeError(w, http.StatusUnprocessableEntity, "optimization failed", err)
		default:
			writeError(w, http.StatusInternalServerError, "run failed", err)
		}
		return
	}

	run := sqlite.Run{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Seed:        cfg.Seed,
		Strategy:    strategy.Name(),
		TargetSales: cfg.TargetSales,
		TotalValue:  plan.TotalValue,
		HeldBack:    plan.HeldBack,
	}
	if err := h.Store.SaveRun(r.Context(), run, plan); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to persist run", err)
		return
	}

	run.GroupCount = len(plan.Groups)
	run.InvoiceCount = len(plan.Invoices)
	h.Log.WithFields(logrus.Fields{
		"run":      run.ID,
		"invoices": run.InvoiceCount,
		"total":    plan.TotalValue.String(),
	}).Info("run completed")
	writeJSON(w, http.StatusCreated, toRunDTO(run))
}

func (h *Handler) buildConfig(req RunRequest) (engine.Config, time.Time, error) {
	cfg := h.Defaults
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if req.TargetSales > 0 {
		cfg.TargetSales = req.TargetSales
	}
	if len(req.ExcludeVendors) > 0 {
		cfg.ExcludeVendors = req.ExcludeVendors
	}
	if len(req.ExcludeProducts) > 0 {
		cfg.ExcludeProducts = req.ExcludeProducts
	}
	if req.OnInfeasible != "" {
		cfg.OnInfeasible = engine.InfeasiblePolicy(req.OnInfeasible)
	}
	if req.Remainders != "" {
		cfg.Remainders = engine.RemainderPolicy(req.Remainders)
	}

	reference := time.Now().UTC().Truncate(24 * time.Hour)
	if req.ReferenceDate != "" {
		parsed, err := time.Parse("2006-01-02", req.ReferenceDate)
		if err != nil {
			return cfg, reference, &engine.ValidationError{
				Field: "reference_date", Record: -1, Reason: err.Error(),
			}
		}
		reference = parsed
	}
	return cfg, reference, nil
}

func (h *Handler) selectStrategy(name string) engine.AllocationStrategy {
	if name == "heuristic" {
		return engine.NewHeuristicAllocation(h.Defaults)
	}
	return engine.NewExactLPAllocation()
}

// =============================================================================
// RUN INSPECTION
// =============================================================================

// ListRuns returns run summaries, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs", err)
		return
	}
	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRun returns one run summary.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*run))
}

// GetGroups returns the stock allocation table of a run.
func (h *Handler) GetGroups(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	groups, err := h.Store.ListGroups(r.Context(), run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load groups", err)
		return
	}
	dtos := make([]GroupDTO, len(groups))
	for i, g := range groups {
		dtos[i] = toGroupDTO(g)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetInvoices returns the generated invoices of a run.
func (h *Handler) GetInvoices(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	invs, err := h.Store.ListInvoices(r.Context(), run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load invoices", err)
		return
	}
	dtos := make([]InvoiceDTO, len(invs))
	for i, inv := range invs {
		dtos[i] = toInvoiceDTO(inv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ExportRun streams the run's invoice workbook as an xlsx attachment.
func (h *Handler) ExportRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	invs, err := h.Store.ListInvoices(r.Context(), run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load invoices", err)
		return
	}
	groups, err := h.Store.ListGroups(r.Context(), run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load groups", err)
		return
	}

	plan := rebuildPlan(groups, invs, run.HeldBack)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename=facturas_`+run.ID+`.xlsx`)
	if err := xlsx.WriteInvoices(w, plan); err != nil {
		h.Log.WithField("run", run.ID).WithError(err).Error("export failed")
	}
}

func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request) (*sqlite.Run, bool) {
	id := chi.URLParam(r, "id")
	run, err := h.Store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load run", err)
		return nil, false
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found", nil)
		return nil, false
	}
	return run, true
}

// rebuildPlan reassembles a Plan from persisted rows so exports reuse the
// same workbook writer as the batch CLI. Invoices arrive date-ordered.
func rebuildPlan(groups []engine.StockGroup, invs []engine.SyntheticInvoice, heldBack int) *engine.Plan {
	plan := &engine.Plan{Groups: groups, Invoices: invs, HeldBack: heldBack}
	byMonth := make(map[engine.MonthKey]int)
	for _, inv := range invs {
		key := engine.MonthOf(inv.Date)
		idx, ok := byMonth[key]
		if !ok {
			idx = len(plan.Months)
			byMonth[key] = idx
			plan.Months = append(plan.Months, engine.MonthPlan{Month: key, TotalValue: decimal.Zero})
		}
		plan.Months[idx].Invoices = append(plan.Months[idx].Invoices, inv)
		plan.Months[idx].TotalValue = plan.Months[idx].TotalValue.Add(inv.TotalValue)
		plan.TotalValue = plan.TotalValue.Add(inv.TotalValue)
	}
	return plan
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
