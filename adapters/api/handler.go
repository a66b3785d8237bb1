// Package api exposes the rm-ANOVA engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"rmanova/domain/core"
	"rmanova/domain/tensor"
	"rmanova/internal/anova"
	"rmanova/internal/errors"
	"rmanova/internal/report"
)

// ComputeRequest carries a row-major observation array
type ComputeRequest struct {
	Shape  []int     `json:"shape"`
	Data   []float64 `json:"data"`
	Labels []string  `json:"labels,omitempty"`
}

// ErrorResponse is returned for every non-2xx status
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// Handler serves the rm-ANOVA endpoints
type Handler struct {
	engine  *anova.Engine
	logger  *slog.Logger
	maxBody int64
}

// NewHandler creates a handler. maxBody caps request bodies in bytes.
func NewHandler(engine *anova.Engine, logger *slog.Logger, maxBody int64) *Handler {
	return &Handler{engine: engine, logger: logger, maxBody: maxBody}
}

// Routes builds the router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.handleHealth)
	r.Post("/v1/rmanova", h.handleCompute)
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.CodeInvalidInput, "malformed request body: "+err.Error())
		return
	}

	data, err := tensor.New(req.Shape, req.Data)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, errors.CodeInvalidShape, err.Error())
		return
	}

	res, err := h.engine.Compute(r.Context(), data)
	if err != nil {
		switch {
		case stderrors.Is(err, errors.ErrInvalidShape), stderrors.Is(err, errors.ErrDegenerateDesign):
			writeError(w, http.StatusUnprocessableEntity, errors.GetCode(err), err.Error())
		case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, errors.CodeInternalError, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, errors.CodeInternalError, err.Error())
		}
		return
	}

	if req.Labels != nil && len(req.Labels) != res.Len() {
		writeError(w, http.StatusUnprocessableEntity, errors.CodeInvalidInput, "labels must name every batch cell")
		return
	}

	runID := core.NewRunID()
	h.logger.Info("rm-anova computed",
		"run_id", runID,
		"request_id", middleware.GetReqID(r.Context()),
		"shape", req.Shape,
		"cells", res.Len())
	writeJSON(w, http.StatusOK, report.NewPayload(runID, res, req.Labels))
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", float64(time.Since(start).Microseconds())/1e3,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Code: code, Error: msg})
}
