/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Run creation (CreateRun) with default and overridden parameters
- Run inspection (GetRun, GetGroups, GetInvoices)
- Export streaming (ExportRun)
- Error mapping (400 validation, 404 unknown run)
*/
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/invoice-engine/engine"
	"github.com/warp/invoice-engine/store/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	h := NewHandler(store, engine.DefaultConfig(), log)
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv
}

func runRequestFixture() RunRequest {
	return RunRequest{
		Records: []SalesRecordDTO{
			{Type: "HUEVO AA", UnitPrice: "500", Quantity: 3000, VendorID: "900111"},
			{Type: "HUEVO B", UnitPrice: "430", Quantity: 1500, VendorID: "900222"},
		},
		ReferenceDate: "2026-03-15",
	}
}

func postRun(t *testing.T, srv *httptest.Server, req RunRequest) (*http.Response, RunDTO) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/api/runs", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var run RunDTO
	if resp.StatusCode == http.StatusCreated {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	}
	return resp, run
}

func TestCreateRun_Success(t *testing.T) {
	// GIVEN: A server with an empty store
	srv := newTestServer(t)

	// WHEN: Posting a valid run request
	resp, run := postRun(t, srv, runRequestFixture())

	// THEN: The run is created with plan-derived counts
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, run.ID)
	require.Equal(t, "exact_lp", run.Strategy)
	require.Equal(t, 2, run.GroupCount)
	require.Greater(t, run.InvoiceCount, 0)
	require.NotEqual(t, "0", run.TotalValue)
}

func TestCreateRun_HeuristicStrategyAndSeedOverride(t *testing.T) {
	srv := newTestServer(t)

	req := runRequestFixture()
	seed := int64(7)
	req.Seed = &seed
	req.Strategy = "heuristic"

	resp, run := postRun(t, srv, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "heuristic", run.Strategy)
	require.Equal(t, seed, run.Seed)
}

func TestCreateRun_BadPriceIsBadRequest(t *testing.T) {
	srv := newTestServer(t)

	req := runRequestFixture()
	req.Records[0].UnitPrice = "not-a-number"

	resp, _ := postRun(t, srv, req)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRun_AllRecordsExcludedIsBadRequest(t *testing.T) {
	srv := newTestServer(t)

	req := runRequestFixture()
	req.ExcludeVendors = []string{"900111", "900222"}

	resp, _ := postRun(t, srv, req)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetRun_UnknownIDIsNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/runs/no-such-run")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunInspection_GroupsAndInvoices(t *testing.T) {
	// GIVEN: A completed run
	srv := newTestServer(t)
	resp, run := postRun(t, srv, runRequestFixture())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// WHEN: Fetching its groups
	gResp, err := http.Get(srv.URL + "/api/runs/" + run.ID + "/groups")
	require.NoError(t, err)
	defer gResp.Body.Close()
	require.Equal(t, http.StatusOK, gResp.StatusCode)

	var groups []GroupDTO
	require.NoError(t, json.NewDecoder(gResp.Body).Decode(&groups))
	require.Len(t, groups, run.GroupCount)

	// THEN: Allocations respect the stock bound
	for _, g := range groups {
		require.LessOrEqual(t, g.Allocated, g.Available)
	}

	// AND: Invoices come back date-ordered
	iResp, err := http.Get(srv.URL + "/api/runs/" + run.ID + "/invoices")
	require.NoError(t, err)
	defer iResp.Body.Close()
	require.Equal(t, http.StatusOK, iResp.StatusCode)

	var invs []InvoiceDTO
	require.NoError(t, json.NewDecoder(iResp.Body).Decode(&invs))
	require.Len(t, invs, run.InvoiceCount)
}

func TestListRuns_ReturnsCreatedRuns(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := postRun(t, srv, runRequestFixture())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	lResp, err := http.Get(srv.URL + "/api/runs")
	require.NoError(t, err)
	defer lResp.Body.Close()
	require.Equal(t, http.StatusOK, lResp.StatusCode)

	var runs []RunDTO
	require.NoError(t, json.NewDecoder(lResp.Body).Decode(&runs))
	require.Len(t, runs, 1)
}

func TestExportRun_StreamsWorkbook(t *testing.T) {
	// GIVEN: A completed run
	srv := newTestServer(t)
	resp, run := postRun(t, srv, runRequestFixture())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// WHEN: Downloading the export
	eResp, err := http.Get(srv.URL + "/api/runs/" + run.ID + "/export")
	require.NoError(t, err)
	defer eResp.Body.Close()
	require.Equal(t, http.StatusOK, eResp.StatusCode)
	require.Contains(t, eResp.Header.Get("Content-Disposition"), run.ID)

	// THEN: The body is a readable workbook with the union sheet
	data, err := io.ReadAll(eResp.Body)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	require.Contains(t, f.GetSheetList(), "all_facturas")

	rows, err := f.GetRows("all_facturas")
	require.NoError(t, err)
	require.Equal(t, run.InvoiceCount+1, len(rows))
}
