package handlers

import (
	"errors"
	"net/http"
	"time"

	e "github.com/gartstein/timetrack/internal/timesheet/errors"
	"github.com/gartstein/timetrack/internal/timesheet/models"
	"github.com/gartstein/timetrack/internal/timesheet/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// --- requests ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type submitEntryRequest struct {
	Date          string             `json:"date"`
	RegularHours  float64            `json:"regular_hours"`
	OvertimeHours float64            `json:"overtime_hours"`
	PTOHours      float64            `json:"pto_hours"`
	UnpaidHours   float64            `json:"unpaid_hours"`
	IsTimeOff     bool               `json:"is_time_off"`
	TimeOffType   models.TimeOffType `json:"time_off_type,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	AsDraft       bool               `json:"as_draft,omitempty"`
}

func (r *submitEntryRequest) toInput() (*workflow.EntryInput, error) {
	date, err := time.Parse(dateLayout, r.Date)
	if err != nil {
		return nil, err
	}
	return &workflow.EntryInput{
		Date:          date,
		RegularHours:  r.RegularHours,
		OvertimeHours: r.OvertimeHours,
		PTOHours:      r.PTOHours,
		UnpaidHours:   r.UnpaidHours,
		IsTimeOff:     r.IsTimeOff,
		TimeOffType:   r.TimeOffType,
		Notes:         r.Notes,
		AsDraft:       r.AsDraft,
	}, nil
}

type updateEntryRequest struct {
	Date             *string             `json:"date,omitempty"`
	RegularHours     *float64            `json:"regular_hours,omitempty"`
	OvertimeHours    *float64            `json:"overtime_hours,omitempty"`
	PTOHours         *float64            `json:"pto_hours,omitempty"`
	UnpaidHours      *float64            `json:"unpaid_hours,omitempty"`
	IsTimeOff        *bool               `json:"is_time_off,omitempty"`
	TimeOffType      *models.TimeOffType `json:"time_off_type,omitempty"`
	Notes            *string             `json:"notes,omitempty"`
	ManagerApproved  *bool               `json:"manager_approved,omitempty"`
	OvertimeApproved *bool               `json:"overtime_approved,omitempty"`
	ManagerNotes     *string             `json:"manager_notes,omitempty"`
}

func (r *updateEntryRequest) toUpdate(id uuid.UUID) (*models.EntryUpdate, error) {
	update := &models.EntryUpdate{
		ID:               id,
		RegularHours:     r.RegularHours,
		OvertimeHours:    r.OvertimeHours,
		PTOHours:         r.PTOHours,
		UnpaidHours:      r.UnpaidHours,
		IsTimeOff:        r.IsTimeOff,
		TimeOffType:      r.TimeOffType,
		Notes:            r.Notes,
		ManagerApproved:  r.ManagerApproved,
		OvertimeApproved: r.OvertimeApproved,
		ManagerNotes:     r.ManagerNotes,
	}
	if r.Date != nil {
		date, err := time.Parse(dateLayout, *r.Date)
		if err != nil {
			return nil, err
		}
		update.Date = &date
	}
	return update, nil
}

type decisionRequest struct {
	Notes  string `json:"notes,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type batchApproveRequest struct {
	EntryIDs []uuid.UUID `json:"entry_ids"`
}

type updateCompanyRequest struct {
	Name                    *string  `json:"name,omitempty"`
	RequireManagerApproval  *bool    `json:"require_manager_approval,omitempty"`
	AutoApproveRegularHours *bool    `json:"auto_approve_regular_hours,omitempty"`
	AutoApproveMaxHours     *float64 `json:"auto_approve_max_hours,omitempty"`
	RequireOvertimeApproval *bool    `json:"require_overtime_approval,omitempty"`
	MaxDaysForEditing       *int     `json:"max_days_for_editing,omitempty"`
	AllowFutureEntries      *bool    `json:"allow_future_entries,omitempty"`
	RequireNotes            *bool    `json:"require_notes,omitempty"`
	StartDay                *int     `json:"start_day,omitempty"`
	WorkWeekLength          *int     `json:"work_week_length,omitempty"`
	OvertimeThreshold       *float64 `json:"overtime_threshold,omitempty"`
	Timezone                *string  `json:"timezone,omitempty"`
}

func (r *updateCompanyRequest) toUpdate(id uuid.UUID) *models.CompanyUpdate {
	return &models.CompanyUpdate{
		ID:                      id,
		Name:                    r.Name,
		RequireManagerApproval:  r.RequireManagerApproval,
		AutoApproveRegularHours: r.AutoApproveRegularHours,
		AutoApproveMaxHours:     r.AutoApproveMaxHours,
		RequireOvertimeApproval: r.RequireOvertimeApproval,
		MaxDaysForEditing:       r.MaxDaysForEditing,
		AllowFutureEntries:      r.AllowFutureEntries,
		RequireNotes:            r.RequireNotes,
		StartDay:                r.StartDay,
		WorkWeekLength:          r.WorkWeekLength,
		OvertimeThreshold:       r.OvertimeThreshold,
		Timezone:                r.Timezone,
	}
}

// --- responses ---

type entryResponse struct {
	ID               uuid.UUID          `json:"id"`
	UserID           uuid.UUID          `json:"user_id"`
	CompanyID        uuid.UUID          `json:"company_id"`
	Date             string             `json:"date"`
	RegularHours     float64            `json:"regular_hours"`
	OvertimeHours    float64            `json:"overtime_hours"`
	PTOHours         float64            `json:"pto_hours"`
	UnpaidHours      float64            `json:"unpaid_hours"`
	Status           models.EntryStatus `json:"status"`
	IsSubmitted      bool               `json:"is_submitted"`
	NeedsApproval    bool               `json:"needs_approval"`
	ManagerApproved  bool               `json:"manager_approved"`
	OvertimeApproved bool               `json:"overtime_approved"`
	IsTimeOff        bool               `json:"is_time_off"`
	IsDeleted        bool               `json:"is_deleted"`
	SystemApproved   bool               `json:"system_approved"`
	TimeOffType      models.TimeOffType `json:"time_off_type,omitempty"`
	Notes            string             `json:"notes,omitempty"`
	ManagerID        *uuid.UUID         `json:"manager_id,omitempty"`
	ManagerNotes     string             `json:"manager_notes,omitempty"`
	ApprovedAt       *time.Time         `json:"approved_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func toEntryResponse(entry *models.TimeEntry) *entryResponse {
	return &entryResponse{
		ID:               entry.ID,
		UserID:           entry.UserID,
		CompanyID:        entry.CompanyID,
		Date:             entry.Date.Format(dateLayout),
		RegularHours:     entry.RegularHours,
		OvertimeHours:    entry.OvertimeHours,
		PTOHours:         entry.PTOHours,
		UnpaidHours:      entry.UnpaidHours,
		Status:           entry.Status,
		IsSubmitted:      entry.IsSubmitted,
		NeedsApproval:    entry.NeedsApproval,
		ManagerApproved:  entry.ManagerApproved,
		OvertimeApproved: entry.OvertimeApproved,
		IsTimeOff:        entry.IsTimeOff,
		IsDeleted:        entry.IsDeleted,
		SystemApproved:   entry.SystemApproved,
		TimeOffType:      entry.TimeOffType,
		Notes:            entry.Notes,
		ManagerID:        entry.ManagerID,
		ManagerNotes:     entry.ManagerNotes,
		ApprovedAt:       entry.ApprovedAt,
		CreatedAt:        entry.CreatedAt,
		UpdatedAt:        entry.UpdatedAt,
	}
}

func toEntryResponses(entries []models.TimeEntry) []*entryResponse {
	out := make([]*entryResponse, len(entries))
	for i := range entries {
		out[i] = toEntryResponse(&entries[i])
	}
	return out
}

type statsResponse struct {
	UserID             uuid.UUID  `json:"user_id"`
	TotalHoursWorked   float64    `json:"total_hours_worked"`
	TotalOvertimeHours float64    `json:"total_overtime_hours"`
	TotalPTOUsed       float64    `json:"total_pto_used"`
	SickDaysUsed       int        `json:"sick_days_used"`
	SubmissionStreak   int        `json:"submission_streak"`
	LastSubmission     *time.Time `json:"last_submission,omitempty"`
}

func toStatsResponse(st *models.UserStats) *statsResponse {
	return &statsResponse{
		UserID:             st.UserID,
		TotalHoursWorked:   st.TotalHoursWorked,
		TotalOvertimeHours: st.TotalOvertimeHours,
		TotalPTOUsed:       st.TotalPTOUsed,
		SickDaysUsed:       st.SickDaysUsed,
		SubmissionStreak:   st.SubmissionStreak,
		LastSubmission:     st.LastSubmission,
	}
}

type batchFailureResponse struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

type batchApproveResponse struct {
	Succeeded []*entryResponse       `json:"succeeded"`
	Failed    []batchFailureResponse `json:"failed"`
}

func toBatchResponse(result *workflow.BatchResult) *batchApproveResponse {
	resp := &batchApproveResponse{
		Succeeded: make([]*entryResponse, 0, len(result.Succeeded)),
		Failed:    make([]batchFailureResponse, 0, len(result.Failed)),
	}
	for _, entry := range result.Succeeded {
		resp.Succeeded = append(resp.Succeeded, toEntryResponse(entry))
	}
	for _, f := range result.Failed {
		resp.Failed = append(resp.Failed, batchFailureResponse{ID: f.ID, Reason: f.Reason})
	}
	return resp
}

type errorResponse struct {
	Error  string         `json:"error"`
	Fields []e.FieldError `json:"fields,omitempty"`
}

// mapServiceError maps domain errors to HTTP status codes and bodies.
func (h *Handler) mapServiceError(w http.ResponseWriter, err error) {
	var verr *e.ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, e.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, e.ErrForbidden):
		h.writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, e.ErrUnauthorized):
		h.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, e.ErrConflict):
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, e.ErrInvalidInput):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		h.logger.Error("Internal server error", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
