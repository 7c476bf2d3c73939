// Package http exposes the P&L reporting endpoints.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/helios-fin/helios-pnl/internal/pnl"
	"github.com/helios-fin/helios-pnl/internal/platform/httpx"
)

// ReportBuilder is the orchestration surface the handler calls into.
type ReportBuilder interface {
	BuildReport(ctx context.Context, req pnl.ReportRequest) (pnl.BuildResult, error)
}

// AccountSource supplies the account hierarchy for row layout.
type AccountSource interface {
	AccountHierarchy(ctx context.Context) ([]pnl.AccountNode, error)
}

// ReportMetrics counts successful report builds.
type ReportMetrics interface {
	ObserveReportBuild(level string)
}

// Handler wires HTTP interactions for the P&L report feature.
type Handler struct {
	logger    *slog.Logger
	builder   ReportBuilder
	accounts  AccountSource
	cache     *pnl.ReportCache
	metrics   ReportMetrics
	formatter *pnl.Formatter
	validate  *validator.Validate
	rateLimit func(http.Handler) http.Handler
}

// SetMetrics attaches an optional report build counter.
func (h *Handler) SetMetrics(metrics ReportMetrics) {
	h.metrics = metrics
}

// NewHandler constructs the report handler. The cache may be nil.
func NewHandler(logger *slog.Logger, builder ReportBuilder, accounts AccountSource, cache *pnl.ReportCache) *Handler {
	limiter := httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr, nil
		}
		return "ip:" + host, nil
	}))
	return &Handler{
		logger:    logger,
		builder:   builder,
		accounts:  accounts,
		cache:     cache,
		formatter: pnl.NewFormatter(),
		validate:  validator.New(),
		rateLimit: limiter,
	}
}

// MountRoutes registers the report endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Get("/reports/pnl", h.HandleGet)
		r.Get("/reports/pnl.csv", h.HandleCSV)
	})
}

type reportParams struct {
	Level  string `validate:"required,oneof=SUBSIDIARY REGION DISTRICT FACILITY"`
	Key    string `validate:"required"`
	Period string `validate:"required"`
	Mode   string `validate:"omitempty,oneof=display operational"`
}

func (h *Handler) parseRequest(r *http.Request) (pnl.ReportRequest, error) {
	params := reportParams{
		Level:  strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("level"))),
		Key:    strings.TrimSpace(r.URL.Query().Get("key")),
		Period: strings.TrimSpace(r.URL.Query().Get("period")),
		Mode:   strings.ToLower(strings.TrimSpace(r.URL.Query().Get("mode"))),
	}
	if err := h.validate.Struct(params); err != nil {
		return pnl.ReportRequest{}, err
	}
	period, err := time.Parse("2006-01", params.Period)
	if err != nil {
		return pnl.ReportRequest{}, errors.New("period must be formatted as YYYY-MM")
	}
	mode := pnl.ModeDisplay
	if params.Mode == "operational" {
		mode = pnl.ModeOperational
	}
	return pnl.ReportRequest{
		Level:  pnl.Level(params.Level),
		Key:    params.Key,
		Period: period,
		Mode:   mode,
	}, nil
}

// HandleGet serves the assembled report as JSON.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, accounts, err := h.build(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !result.Kept {
		httpx.JSON(w, http.StatusOK, map[string]any{"pruned": true})
		return
	}
	httpx.JSON(w, http.StatusOK, NewReportView(result.Report, accounts, h.formatter))
}

// HandleCSV serves the assembled report as a flat CSV export.
func (h *Handler) HandleCSV(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, accounts, err := h.build(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !result.Kept {
		httpx.Problem(w, http.StatusNotFound, "No Revenue", "the selected facility has no revenue for the period")
		return
	}
	view := NewReportView(result.Report, accounts, h.formatter)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="pnl.csv"`)
	if err := writeReportCSV(w, view); err != nil {
		h.logger.Error("write csv export", slog.Any("error", err))
	}
}

func (h *Handler) build(ctx context.Context, req pnl.ReportRequest) (pnl.BuildResult, []pnl.AccountNode, error) {
	accounts, err := h.accounts.AccountHierarchy(ctx)
	if err != nil {
		return pnl.BuildResult{}, nil, err
	}
	key, err := h.cache.Key(ctx, req)
	if err != nil {
		return pnl.BuildResult{}, nil, err
	}
	result, err := h.cache.Fetch(ctx, key, func(ctx context.Context) (pnl.BuildResult, error) {
		return h.builder.BuildReport(ctx, req)
	})
	if err != nil {
		return pnl.BuildResult{}, nil, err
	}
	if h.metrics != nil {
		h.metrics.ObserveReportBuild(string(req.Level))
	}
	return result, accounts, nil
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pnl.ErrSelectorNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, pnl.ErrNoEntities):
		httpx.Problem(w, http.StatusNotFound, "No Data", err.Error())
	case errors.Is(err, pnl.ErrReportingExcluded):
		httpx.Problem(w, http.StatusNotFound, "Reporting Excluded", err.Error())
	case errors.Is(err, pnl.ErrHierarchyCycle):
		h.logger.Error("account hierarchy misconfigured", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Configuration Error", "account hierarchy is invalid")
	default:
		h.logger.Error("build report", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
