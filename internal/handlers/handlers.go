// Package handlers implements the HTTP surface of the scoring engine.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/skyward-systems/proctorwatch/internal/catalog"
	"github.com/skyward-systems/proctorwatch/internal/httputil"
	"github.com/skyward-systems/proctorwatch/internal/logging"
	"github.com/skyward-systems/proctorwatch/internal/models"
	"github.com/skyward-systems/proctorwatch/internal/repository"
	"github.com/skyward-systems/proctorwatch/internal/scorer"
)

const serviceName = "proctorwatch"

// Service is the processing surface the handlers call into.
type Service interface {
	ProcessBatch(ctx context.Context, batch *models.ObservationBatch) (*models.ScoreResult, []*models.Flag, bool, error)
	Monitor(ctx context.Context, sessionID string, heartbeat json.RawMessage) (*models.SessionSnapshot, []*models.Flag, bool, error)
	SessionFlags(ctx context.Context, sessionID string, page, limit int) (*models.ListFlagsResponse, error)
}

// Handler holds the HTTP handlers for the engine.
type Handler struct {
	svc     Service
	catalog *catalog.Catalog
	log     *logging.Logger
}

// New creates a Handler.
func New(svc Service, cat *catalog.Catalog, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Default()
	}
	return &Handler{svc: svc, catalog: cat, log: log}
}

// ScoreCategory handles POST /api/v1/signals/score/{category}.
func (h *Handler) ScoreCategory(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimPrefix(r.URL.Path, "/api/v1/signals/score/")
	if category == "" || strings.Contains(category, "/") {
		httputil.WriteError(w, http.StatusBadRequest, "category is required")
		return
	}

	var req models.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	batch := &models.ObservationBatch{
		SessionID:   req.SessionID,
		Category:    models.Category(category),
		Payload:     req.Payload,
		SubmittedAt: time.Now().UTC(),
	}

	result, flags, stale, err := h.svc.ProcessBatch(r.Context(), batch)
	if err != nil {
		h.writeProcessError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &models.ScoreResponse{
		Success:     true,
		Stale:       stale,
		ScoreResult: result,
		Flags:       flags,
	})
}

// Monitor handles POST /api/v1/signals/monitor.
func (h *Handler) Monitor(w http.ResponseWriter, r *http.Request) {
	var req models.MonitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	snap, alerts, stale, err := h.svc.Monitor(r.Context(), req.SessionID, req.MonitoringData)
	if err != nil {
		h.writeProcessError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &models.MonitorResponse{
		Success:  true,
		Stale:    stale,
		Snapshot: snap,
		Alerts:   alerts,
	})
}

// ListSessionFlags handles GET /api/v1/sessions/{id}/flags.
func (h *Handler) ListSessionFlags(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/sessions/")
	sessionID, tail, ok := strings.Cut(rest, "/")
	if !ok || tail != "flags" || sessionID == "" {
		httputil.WriteError(w, http.StatusNotFound, "not found")
		return
	}

	p := httputil.ParsePagination(r, 50, 1000)

	resp, err := h.svc.SessionFlags(r.Context(), sessionID, p.Page, p.Limit)
	if err != nil {
		h.writeProcessError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Health handles GET /health. The signal count doubles as a readiness
// check that the catalog loaded.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil || h.catalog.Size() == 0 {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, &models.HealthResponse{
			Status:  "unavailable",
			Service: serviceName,
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &models.HealthResponse{
		Status:      "healthy",
		Service:     serviceName,
		SignalCount: h.catalog.Size(),
	})
}

// writeProcessError maps domain errors to HTTP status codes. Storage
// details are logged but never leaked to clients.
func (h *Handler) writeProcessError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *scorer.InvalidPayloadError
	switch {
	case errors.As(err, &invalid):
		httputil.WriteError(w, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, scorer.ErrUnsupportedCategory):
		httputil.WriteError(w, http.StatusBadRequest, "unsupported category")
	default:
		var storageErr *repository.StorageError
		if errors.As(err, &storageErr) {
			h.log.ErrorContext(r.Context(), "durable flag write failed", logging.Error(err))
		} else {
			h.log.ErrorContext(r.Context(), "batch processing failed", logging.Error(err))
		}
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
