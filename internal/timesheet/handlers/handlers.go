// Package handlers provides the HTTP JSON API of the service, bridging
// the transport layer and the workflow facade.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gartstein/timetrack/internal/timesheet/auth"
	e "github.com/gartstein/timetrack/internal/timesheet/errors"
	"github.com/gartstein/timetrack/internal/timesheet/export"
	"github.com/gartstein/timetrack/internal/timesheet/models"
	"github.com/gartstein/timetrack/internal/timesheet/workflow"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkflowService defines the business logic interface the HTTP
// handlers invoke.
type WorkflowService interface {
	SubmitEntry(ctx context.Context, actorID uuid.UUID, input *workflow.EntryInput) (*models.TimeEntry, error)
	SubmitDraft(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error)
	ApproveEntry(ctx context.Context, actorID, entryID uuid.UUID, notes string) (*models.TimeEntry, error)
	RejectEntry(ctx context.Context, actorID, entryID uuid.UUID, reason string) (*models.TimeEntry, error)
	UnsubmitEntry(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error)
	ResubmitEntry(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error)
	UnapproveEntry(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error)
	DeleteEntry(ctx context.Context, actorID, entryID uuid.UUID) error
	RestoreEntry(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error)
	UpdateEntry(ctx context.Context, actorID uuid.UUID, update *models.EntryUpdate) (*models.TimeEntry, error)
	BatchApprove(ctx context.Context, actorID uuid.UUID, entryIDs []uuid.UUID) (*workflow.BatchResult, error)
	GetEntry(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error)
	ListEntries(ctx context.Context, actorID, userID uuid.UUID, from, to time.Time) ([]models.TimeEntry, error)
	PendingApprovals(ctx context.Context, actorID uuid.UUID) ([]models.TimeEntry, error)
	GetStats(ctx context.Context, actorID, userID uuid.UUID) (*models.UserStats, error)
	GetCompany(ctx context.Context, actorID, companyID uuid.UUID) (*models.Company, error)
	UpdateCompany(ctx context.Context, actorID uuid.UUID, update *models.CompanyUpdate) (*models.Company, error)
	ProcessPayroll(ctx context.Context, actorID, companyID uuid.UUID, from, to time.Time) ([]workflow.PayrollRow, error)
}

// Handler holds the HTTP handlers for the service.
type Handler struct {
	service WorkflowService
	auth    *auth.Service
	logger  *zap.Logger
}

func NewHandler(service WorkflowService, authService *auth.Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		auth:    authService,
		logger:  logger.Named("http_handler"),
	}
}

// Login exchanges credentials for a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.mapServiceError(w, fmt.Errorf("%w: invalid request body", e.ErrInvalidInput))
		return
	}
	token, user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"token":   token,
		"user_id": user.ID,
		"role":    user.Role,
	})
}

// SubmitEntry creates (and normally submits) a new entry for the actor.
func (h *Handler) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	var req submitEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.mapServiceError(w, fmt.Errorf("%w: invalid request body", e.ErrInvalidInput))
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.mapServiceError(w, fmt.Errorf("%w: invalid date format", e.ErrInvalidInput))
		return
	}
	entry, err := h.service.SubmitEntry(r.Context(), h.actorID(r), input)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) SubmitDraft(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error) {
		return h.service.SubmitDraft(ctx, actorID, entryID)
	})
}

func (h *Handler) ApproveEntry(w http.ResponseWriter, r *http.Request) {
	entryID, err := h.entryID(r)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	var req decisionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.mapServiceError(w, fmt.Errorf("%w: invalid request body", e.ErrInvalidInput))
			return
		}
	}
	entry, err := h.service.ApproveEntry(r.Context(), h.actorID(r), entryID, req.Notes)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) RejectEntry(w http.ResponseWriter, r *http.Request) {
	entryID, err := h.entryID(r)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.mapServiceError(w, fmt.Errorf("%w: invalid request body", e.ErrInvalidInput))
		return
	}
	entry, err := h.service.RejectEntry(r.Context(), h.actorID(r), entryID, req.Reason)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) UnsubmitEntry(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error) {
		return h.service.UnsubmitEntry(ctx, actorID, entryID)
	})
}

func (h *Handler) ResubmitEntry(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error) {
		return h.service.ResubmitEntry(ctx, actorID, entryID)
	})
}

func (h *Handler) UnapproveEntry(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error) {
		return h.service.UnapproveEntry(ctx, actorID, entryID)
	})
}

func (h *Handler) RestoreEntry(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error) {
		return h.service.RestoreEntry(ctx, actorID, entryID)
	})
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	entryID, err := h.entryID(r)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	if err := h.service.DeleteEntry(r.Context(), h.actorID(r), entryID); err != nil {
		h.mapServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	entryID, err := h.entryID(r)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	var req updateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.mapServiceError(w, fmt.Errorf("%w: invalid request body", e.ErrInvalidInput))
		return
	}
	update, err := req.toUpdate(entryID)
	if err != nil {
		h.mapServiceError(w, fmt.Errorf("%w: invalid date format", e.ErrInvalidInput))
		return
	}
	entry, err := h.service.UpdateEntry(r.Context(), h.actorID(r), update)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) BatchApprove(w http.ResponseWriter, r *http.Request) {
	var req batchApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.mapServiceError(w, fmt.Errorf("%w: invalid request body", e.ErrInvalidInput))
		return
	}
	result, err := h.service.BatchApprove(r.Context(), h.actorID(r), req.EntryIDs)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toBatchResponse(result))
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entryID, err := h.entryID(r)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	entry, err := h.service.GetEntry(r.Context(), h.actorID(r), entryID)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

// ListEntries returns entries for ?user_id (default: the actor) within
// ?from/?to (default: the current month).
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	actorID := h.actorID(r)
	userID := actorID
	if v := r.URL.Query().Get("user_id"); v != "" {
		parsed, err := uuid.Parse(v)
		if err != nil {
			h.mapServiceError(w, fmt.Errorf("%w: invalid user_id", e.ErrInvalidInput))
			return
		}
		userID = parsed
	}
	from, to, err := dateRange(r)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	entries, err := h.service.ListEntries(r.Context(), actorID, userID, from, to)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toEntryResponses(entries))
}

func (h *Handler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.PendingApprovals(r.Context(), h.actorID(r))
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toEntryResponses(entries))
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		h.mapServiceError(w, fmt.Errorf("%w: invalid user id", e.ErrInvalidInput))
		return
	}
	st, err := h.service.GetStats(r.Context(), h.actorID(r), userID)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toStatsResponse(st))
}

func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	companyID, err := uuid.Parse(chi.URLParam(r, "companyID"))
	if err != nil {
		h.mapServiceError(w, fmt.Errorf("%w: invalid company id", e.ErrInvalidInput))
		return
	}
	company, err := h.service.GetCompany(r.Context(), h.actorID(r), companyID)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, company)
}

func (h *Handler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	companyID, err := uuid.Parse(chi.URLParam(r, "companyID"))
	if err != nil {
		h.mapServiceError(w, fmt.Errorf("%w: invalid company id", e.ErrInvalidInput))
		return
	}
	var req updateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.mapServiceError(w, fmt.Errorf("%w: invalid request body", e.ErrInvalidInput))
		return
	}
	company, err := h.service.UpdateCompany(r.Context(), h.actorID(r), req.toUpdate(companyID))
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, company)
}

// ExportPayroll streams a CSV of the month's approved entries, marking
// each exported entry as processed.
func (h *Handler) ExportPayroll(w http.ResponseWriter, r *http.Request) {
	claims := auth.FromContext(r.Context())
	year, month, err := yearMonth(r)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)

	rows, err := h.service.ProcessPayroll(r.Context(), claims.UserID, claims.CompanyID, from, to)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.Filename(year, month)))
	if err := export.WriteCSV(w, rows); err != nil {
		h.logger.Error("Failed to write payroll CSV", zap.Error(err))
	}
}

// --- helpers ---

func (h *Handler) actorID(r *http.Request) uuid.UUID {
	claims := auth.FromContext(r.Context())
	if claims == nil {
		return uuid.Nil
	}
	return claims.UserID
}

func (h *Handler) entryID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid entry id", e.ErrInvalidInput)
	}
	return id, nil
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error)) {
	entryID, err := h.entryID(r)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	entry, err := fn(r.Context(), h.actorID(r), entryID)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func dateRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			return from, to, fmt.Errorf("%w: invalid from date", e.ErrInvalidInput)
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			return from, to, fmt.Errorf("%w: invalid to date", e.ErrInvalidInput)
		}
		to = parsed
	}
	return from, to, nil
}

func yearMonth(r *http.Request) (int, int, error) {
	var year, month int
	if _, err := fmt.Sscanf(r.URL.Query().Get("year"), "%d", &year); err != nil || year < 2000 || year > 2100 {
		return 0, 0, fmt.Errorf("%w: invalid year", e.ErrInvalidInput)
	}
	if _, err := fmt.Sscanf(r.URL.Query().Get("month"), "%d", &month); err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w: invalid month", e.ErrInvalidInput)
	}
	return year, month, nil
}
