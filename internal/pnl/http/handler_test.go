package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/helios-fin/helios-pnl/internal/pnl"
)

type fakeBuilder struct {
	result pnl.BuildResult
	err    error
	calls  int
}

func (f *fakeBuilder) BuildReport(_ context.Context, _ pnl.ReportRequest) (pnl.BuildResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeAccounts struct{ accounts []pnl.AccountNode }

func (f *fakeAccounts) AccountHierarchy(context.Context) ([]pnl.AccountNode, error) {
	return f.accounts, nil
}

func testAccounts() []pnl.AccountNode {
	return []pnl.AccountNode{
		{Label: "Income"},
		{Label: "Revenue", ParentLabel: "Income"},
		{Label: "Internal", ParentLabel: "Income", DisplayExcluded: true},
	}
}

func keptResult() pnl.BuildResult {
	return pnl.BuildResult{
		Kept: true,
		Report: pnl.Report{
			Level: pnl.LevelDistrict,
			Key:   "d1",
			Root: pnl.ReportNode{
				Level:      pnl.LevelDistrict,
				EntityName: "North",
				MonthActual: map[string]decimal.Decimal{
					"Income":  decimal.NewFromInt(1500),
					"Revenue": decimal.NewFromInt(1500),
				},
				Counts: pnl.ChildCounts{Facilities: 2},
			},
		},
	}
}

func newTestHandler(builder *fakeBuilder) *Handler {
	return NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), builder, &fakeAccounts{accounts: testAccounts()}, nil)
}

func serve(h *Handler, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.MountRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandleGetRendersFormattedRows(t *testing.T) {
	builder := &fakeBuilder{result: keptResult()}
	rec := serve(newTestHandler(builder), "/reports/pnl?level=district&key=d1&period=2026-06")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, builder.calls)

	var view ReportView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "DISTRICT", view.Root.Level)
	require.Equal(t, "North", view.Root.Name)
	require.Equal(t, 2, view.Root.Facilities)

	// Display-excluded accounts are omitted from rows.
	require.Len(t, view.Root.Rows, 2)
	require.Equal(t, "Income", view.Root.Rows[0].Label)
	require.Equal(t, "1,500", view.Root.Rows[0].MonthActual)
	require.Equal(t, "100%", view.Root.Rows[0].MonthActualPct)
	// Zero budget income means every budget percentage is a dash.
	require.Equal(t, pnl.Dash, view.Root.Rows[0].MonthBudgetPct)
}

func TestHandleGetValidatesParams(t *testing.T) {
	builder := &fakeBuilder{result: keptResult()}
	h := newTestHandler(builder)

	for _, target := range []string{
		"/reports/pnl",
		"/reports/pnl?level=galaxy&key=d1&period=2026-06",
		"/reports/pnl?level=district&key=d1&period=June",
	} {
		rec := serve(h, target)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	require.Zero(t, builder.calls)
}

func TestHandleGetMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{pnl.ErrSelectorNotFound, http.StatusNotFound},
		{pnl.ErrNoEntities, http.StatusNotFound},
		{pnl.ErrReportingExcluded, http.StatusNotFound},
		{pnl.ErrHierarchyCycle, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := serve(newTestHandler(&fakeBuilder{err: tc.err}), "/reports/pnl?level=district&key=d1&period=2026-06")
		require.Equal(t, tc.status, rec.Code, tc.err)
	}
}

func TestHandleGetPrunedFacility(t *testing.T) {
	builder := &fakeBuilder{result: pnl.BuildResult{Kept: false}}
	rec := serve(newTestHandler(builder), "/reports/pnl?level=facility&key=f9&period=2026-06")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["pruned"])
}

func TestHandleCSVExport(t *testing.T) {
	builder := &fakeBuilder{result: keptResult()}
	rec := serve(newTestHandler(builder), "/reports/pnl.csv?level=district&key=d1&period=2026-06")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	require.Contains(t, rec.Body.String(), "North")
	require.Contains(t, rec.Body.String(), "1,500")
}
