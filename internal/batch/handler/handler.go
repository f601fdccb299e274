// Package handler exposes the batch service over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"istr/internal/batch"
	"istr/internal/platform/metrics"
	"istr/internal/projection"
	dErrors "istr/pkg/domain-errors"
	"istr/pkg/platform/httputil"
	"istr/pkg/platform/middleware/request"
)

// Service defines the batch operations the handler needs.
type Service interface {
	Run(ctx context.Context, req batch.Request) (*batch.Result, error)
	Functions() []projection.Function
	GetRun(ctx context.Context, id string) (*batch.RunSummary, error)
	ListRuns(ctx context.Context, limit int) ([]batch.RunSummary, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a batch Handler. metrics may be nil.
func New(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{service: service, logger: logger, metrics: metrics}
}

// Register registers the batch routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.metrics.LatencyMiddleware)
		r.Get("/v1/functions", h.handleListFunctions)
		r.Post("/v1/functions/{name}", h.handleRun)
		r.Get("/v1/runs", h.handleListRuns)
		r.Get("/v1/runs/{id}", h.handleGetRun)
	})
}

func (h *Handler) handleListFunctions(w http.ResponseWriter, _ *http.Request) {
	fns := h.service.Functions()
	resp := FunctionsResponse{Functions: make([]FunctionInfo, 0, len(fns))}
	for _, fn := range fns {
		resp.Functions = append(resp.Functions, toFunctionInfo(fn))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// handleRun applies the named function to the posted column.
func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	name := chi.URLParam(r, "name")

	req, ok := httputil.DecodeAndPrepare[RunRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Run(ctx, batch.Request{Function: name, Column: req.Column, Values: req.Values})
	if err != nil {
		h.writeServiceError(ctx, w, err, "batch run failed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, RunResponse{
		Function: res.Function,
		RunID:    res.RunID,
		Rows:     res.Output.Len(),
		Stats:    res.Stats,
		Columns:  []ColumnOutput{toColumnOutput(res.Output)},
	})
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	run, err := h.service.GetRun(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load run")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, run)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	runs, err := h.service.ListRuns(ctx, limit)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []batch.RunSummary{}
	}
	httputil.WriteJSON(w, http.StatusOK, RunsResponse{Runs: runs})
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	requestID := request.GetRequestID(ctx)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"error", err,
			"request_id", requestID,
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"error", err,
			"request_id", requestID,
		)
	}
	httputil.WriteError(w, err)
}
