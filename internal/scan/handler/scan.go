package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/boxscan/scan-service/internal/scan/domain"
	"github.com/boxscan/scan-service/internal/scan/repository"
	"github.com/boxscan/scan-service/pkg/errors"
	"github.com/boxscan/scan-service/pkg/httputil"
	"github.com/boxscan/scan-service/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ScanService is the session workflow the handler drives
type ScanService interface {
	CreateSession(ctx context.Context, sel domain.StoreSelection) (*domain.ScanSession, error)
	GetSession(ctx context.Context, id string) (*domain.ScanSession, error)
	UpdateSelection(ctx context.Context, id string, sel domain.StoreSelection) (*domain.ScanSession, error)
	Scan(ctx context.Context, id, rawCode string) (*domain.ScanResult, error)
	Confirm(ctx context.Context, id string) (*domain.ScanResult, error)
	Cancel(ctx context.Context, id string) (*domain.ScanResult, error)
	DeleteSession(ctx context.Context, id string) error
	ListStores(ctx context.Context) ([]domain.Store, error)
}

// AuditHistory reads a session's recorded scan outcomes
type AuditHistory interface {
	ListBySession(ctx context.Context, sessionID string, limit int) ([]repository.AuditEntry, error)
}

// SelectionRequest is the body of session create and selection updates
type SelectionRequest struct {
	StoreID      *int64 `json:"store_id" validate:"omitempty,gt=0"`
	TransferMode bool   `json:"transfer_mode"`
}

func (r SelectionRequest) selection() domain.StoreSelection {
	return domain.StoreSelection{SelectedStoreID: r.StoreID, TransferMode: r.TransferMode}
}

// ScanRequest carries one scanned code
type ScanRequest struct {
	Code string `json:"code" validate:"required,max=200"`
}

// ScanHandler handles scan session endpoints
type ScanHandler struct {
	service ScanService
	history AuditHistory
	logger  *logger.Logger
}

// NewScanHandler creates a new scan handler. history may be nil.
func NewScanHandler(svc ScanService, history AuditHistory, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		service: svc,
		history: history,
		logger:  log,
	}
}

// Routes mounts the scan API on r
func (h *ScanHandler) Routes(r chi.Router) {
	r.Get("/stores", h.ListStores)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Get("/{id}", h.GetSession)
		r.Delete("/{id}", h.DeleteSession)
		r.Put("/{id}/selection", h.UpdateSelection)
		r.Post("/{id}/scans", h.Scan)
		r.Post("/{id}/confirm", h.Confirm)
		r.Post("/{id}/cancel", h.Cancel)
		r.Get("/{id}/history", h.History)
	})
}

// sessionID reads the {id} URL param. Anything that is not a UUID cannot
// name a session.
func sessionID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return "", domain.ErrSessionNotFound
	}
	return id, nil
}

func decodeSelection(r *http.Request) (domain.StoreSelection, error) {
	var req SelectionRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			return domain.StoreSelection{}, err
		}
	}
	if err := httputil.Validate(req); err != nil {
		return domain.StoreSelection{}, err
	}
	return req.selection(), nil
}

// CreateSession opens a scan session
func (h *ScanHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sel, err := decodeSelection(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	sess, err := h.service.CreateSession(r.Context(), sel)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, sess)
}

// GetSession returns a scan session
func (h *ScanHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	sess, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, sess)
}

// UpdateSelection replaces the session's store selection
func (h *ScanHandler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	sel, err := decodeSelection(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	sess, err := h.service.UpdateSelection(r.Context(), id, sel)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, sess)
}

// Scan evaluates one scanned code. Scan failures are results, not errors.
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req ScanRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.Scan(r.Context(), id, req.Code)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// Confirm runs the pending stock-out
func (h *ScanHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.Confirm(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// Cancel declines the pending stock-out
func (h *ScanHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// DeleteSession closes a scan session
func (h *ScanHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.DeleteSession(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// ListStores returns the selectable stores
func (h *ScanHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.service.ListStores(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, stores)
}

// History returns the session's recorded scan outcomes, oldest first
func (h *ScanHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		httputil.Error(w, errors.NotFound("scan history"))
		return
	}

	id, err := sessionID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httputil.Error(w, errors.BadRequest("limit must be a non-negative integer"))
			return
		}
	}

	entries, err := h.history.ListBySession(r.Context(), id, limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, entries, &httputil.Meta{Total: int64(len(entries))})
}
