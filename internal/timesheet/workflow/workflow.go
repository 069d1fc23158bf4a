// Package workflow implements the core business logic (service layer)
// of the time-entry approval engine. It composes validation,
// authorization, the status state machine and the aggregate updater
// into atomic operations, and sends relevant events.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gartstein/timetrack/internal/timesheet/authz"
	"github.com/gartstein/timetrack/internal/timesheet/db"
	e "github.com/gartstein/timetrack/internal/timesheet/errors"
	"github.com/gartstein/timetrack/internal/timesheet/events"
	"github.com/gartstein/timetrack/internal/timesheet/models"
	"github.com/gartstein/timetrack/internal/timesheet/stats"
	"github.com/gartstein/timetrack/internal/timesheet/validate"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(eventType events.EventType, entry *models.TimeEntry)
}

// Repository defines the storage interface the workflow operates on.
type Repository interface {
	CreateEntry(ctx context.Context, entry *models.TimeEntry) error
	GetEntry(ctx context.Context, id uuid.UUID) (*models.TimeEntry, error)
	UpdateEntryIfStatus(ctx context.Context, entry *models.TimeEntry, expected models.EntryStatus) error
	ListEntries(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.TimeEntry, error)
	ListPendingForManager(ctx context.Context, managerID uuid.UUID) ([]models.TimeEntry, error)
	ListApprovedInRange(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]models.TimeEntry, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	UpdateCompany(ctx context.Context, update *models.CompanyUpdate) error
	GetOrCreateStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
	SaveStats(ctx context.Context, st *models.UserStats) error
	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
	Close() error
}

// Service provides the workflow facade: every exported method runs
// validate, authorize, transition and stats update as one atomic
// operation against the repository.
type Service struct {
	repo     Repository
	producer EventProducer
	logger   *zap.Logger
	now      func() time.Time
}

// NewService constructs a Service with a repository, an event producer,
// and a logger. The clock is injectable for deterministic tests.
func NewService(repo Repository, producer EventProducer, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("workflow"),
		now:      time.Now,
	}
}

// EntryInput is the payload for creating a time entry.
type EntryInput struct {
	Date          time.Time
	RegularHours  float64
	OvertimeHours float64
	PTOHours      float64
	UnpaidHours   float64
	IsTimeOff     bool
	TimeOffType   models.TimeOffType
	Notes         string
	// AsDraft keeps the entry in draft instead of submitting it.
	AsDraft bool
}

// SubmitEntry creates an entry for the actor and, unless AsDraft is
// set, submits it for approval. When the company's auto-approval rule
// matches, the entry goes straight to approved with a nil manager.
func (s *Service) SubmitEntry(ctx context.Context, actorID uuid.UUID, input *EntryInput) (*models.TimeEntry, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: entry input required", e.ErrInvalidInput)
	}
	actor, err := s.repo.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	company, err := s.repo.GetCompany(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entry := &models.TimeEntry{
		ID:            uuid.New(),
		UserID:        actor.ID,
		CompanyID:     company.ID,
		Date:          input.Date,
		RegularHours:  input.RegularHours,
		OvertimeHours: input.OvertimeHours,
		PTOHours:      input.PTOHours,
		UnpaidHours:   input.UnpaidHours,
		IsTimeOff:     input.IsTimeOff,
		TimeOffType:   input.TimeOffType,
		Notes:         input.Notes,
		Status:        models.StatusDraft,
		UpdatedBy:     actor.ID,
	}

	fields, err := validate.Entry(entry, company, now)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, e.Validation(fields)
	}

	submitted := !input.AsDraft
	if submitted {
		entry.Status = models.StatusPending
		entry.IsSubmitted = true
		entry.NeedsApproval = company.RequireManagerApproval
		if s.autoApproves(company, entry) {
			s.systemApprove(entry, now)
		}
	}

	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		st, err := tx.GetOrCreateStats(ctx, entry.UserID)
		if err != nil {
			return err
		}
		if submitted {
			s.advanceStreak(st, now)
		}
		if entry.Status == models.StatusApproved && !entry.StatsApplied {
			stats.Apply(stats.EventApproved, entry).AddTo(st)
			entry.StatsApplied = true
		}
		if err := tx.SaveStats(ctx, st); err != nil {
			return err
		}
		return tx.CreateEntry(ctx, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	if submitted {
		go func() {
			s.producer.Produce(events.EntrySubmitted, entry)
			if entry.Status == models.StatusApproved {
				s.producer.Produce(events.EntryApproved, entry)
			}
		}()
	}
	return entry, nil
}

// SubmitDraft moves an existing draft to pending, applying the same
// auto-approval rule as a direct submit.
func (s *Service) SubmitDraft(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error) {
	actor, entry, owner, company, err := s.load(ctx, actorID, entryID)
	if err != nil {
		return nil, err
	}
	if !authz.Authorize(actor, owner, entry, company, authz.ActionSubmit) {
		return nil, fmt.Errorf("submit entry %s: %w", entryID, e.ErrForbidden)
	}

	now := s.now()
	fields, err := validate.Entry(entry, company, now)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, e.Validation(fields)
	}

	expected := entry.Status
	entry.Status = models.StatusPending
	entry.IsSubmitted = true
	entry.NeedsApproval = company.RequireManagerApproval
	entry.UpdatedBy = actor.ID
	if s.autoApproves(company, entry) {
		s.systemApprove(entry, now)
	}

	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		st, err := tx.GetOrCreateStats(ctx, entry.UserID)
		if err != nil {
			return err
		}
		s.advanceStreak(st, now)
		if entry.Status == models.StatusApproved && !entry.StatsApplied {
			stats.Apply(stats.EventApproved, entry).AddTo(st)
			entry.StatsApplied = true
		}
		if err := tx.SaveStats(ctx, st); err != nil {
			return err
		}
		return tx.UpdateEntryIfStatus(ctx, entry, expected)
	})
	if err != nil {
		return nil, err
	}

	go func() {
		s.producer.Produce(events.EntrySubmitted, entry)
		if entry.Status == models.StatusApproved {
			s.producer.Produce(events.EntryApproved, entry)
		}
	}()
	return entry, nil
}

// ApproveEntry moves a pending entry to approved on behalf of a manager
// or admin, crediting the owner's aggregates exactly once.
func (s *Service) ApproveEntry(ctx context.Context, actorID, entryID uuid.UUID, notes string) (*models.TimeEntry, error) {
	actor, entry, owner, company, err := s.load(ctx, actorID, entryID)
	if err != nil {
		return nil, err
	}
	if !authz.Authorize(actor, owner, entry, company, authz.ActionApprove) {
		return nil, fmt.Errorf("approve entry %s: %w", entryID, e.ErrForbidden)
	}

	now := s.now()
	entry.Status = models.StatusApproved
	entry.ManagerApproved = true
	entry.NeedsApproval = false
	entry.ApprovedAt = &now
	entry.ManagerID = &actor.ID
	entry.UpdatedBy = actor.ID
	if notes != "" {
		entry.ManagerNotes = notes
	}

	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if !entry.StatsApplied {
			st, err := tx.GetOrCreateStats(ctx, entry.UserID)
			if err != nil {
				return err
			}
			stats.Apply(stats.EventApproved, entry).AddTo(st)
			entry.StatsApplied = true
			if err := tx.SaveStats(ctx, st); err != nil {
				return err
			}
		}
		return tx.UpdateEntryIfStatus(ctx, entry, models.StatusPending)
	})
	if err != nil {
		if errors.Is(err, e.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to approve entry: %w", err)
	}

	go func() {
		s.producer.Produce(events.EntryApproved, entry)
	}()
	return entry, nil
}

// RejectEntry declines a pending entry with a reason. The rejection
// event doubles as the notification hook for the owner.
func (s *Service) RejectEntry(ctx context.Context, actorID, entryID uuid.UUID, reason string) (*models.TimeEntry, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason required", e.ErrInvalidInput)
	}
	actor, entry, owner, company, err := s.load(ctx, actorID, entryID)
	if err != nil {
		return nil, err
	}
	if !authz.Authorize(actor, owner, entry, company, authz.ActionReject) {
		return nil, fmt.Errorf("reject entry %s: %w", entryID, e.ErrForbidden)
	}

	entry.Status = models.StatusRejected
	entry.ManagerNotes = reason
	entry.ManagerID = &actor.ID
	entry.UpdatedBy = actor.ID

	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		return tx.UpdateEntryIfStatus(ctx, entry, models.StatusPending)
	})
	if err != nil {
		if errors.Is(err, e.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to reject entry: %w", err)
	}

	go func() {
		s.producer.Produce(events.EntryRejected, entry)
	}()
	return entry, nil
}

// UnsubmitEntry returns the owner's pending entry to draft.
func (s *Service) UnsubmitEntry(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error) {
	actor, entry, owner, company, err := s.load(ctx, actorID, entryID)
	if err != nil {
		return nil, err
	}
	if !authz.Authorize(actor, owner, entry, company, authz.ActionUnsubmit) {
		return nil, fmt.Errorf("unsubmit entry %s: %w", entryID, e.ErrForbidden)
	}

	entry.Status = models.StatusDraft
	entry.IsSubmitted = false
	entry.NeedsApproval = false
	entry.UpdatedBy = actor.ID

	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		return tx.UpdateEntryIfStatus(ctx, entry, models.StatusPending)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ResubmitEntry returns a rejected entry to draft for the owner,
// clearing the rejection fields so it can be edited and submitted again.
func (s *Service) ResubmitEntry(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error) {
	actor, entry, owner, company, err := s.load(ctx, actorID, entryID)
	if err != nil {
		return nil, err
	}
	if !authz.Authorize(actor, owner, entry, company, authz.ActionResubmit) {
		return nil, fmt.Errorf("resubmit entry %s: %w", entryID, e.ErrForbidden)
	}

	entry.Status = models.StatusDraft
	entry.IsSubmitted = false
	entry.ManagerApproved = false
	entry.ManagerNotes = ""
	entry.ManagerID = nil
	entry.ApprovedAt = nil
	entry.UpdatedBy = actor.ID

	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		return tx.UpdateEntryIfStatus(ctx, entry, models.StatusRejected)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// UnapproveEntry is the admin manual override unwinding an approved
// entry back to pending, reversing its stats contribution.
func (s *Service) UnapproveEntry(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error) {
	actor, entry, owner, company, err := s.load(ctx, actorID, entryID)
	if err != nil {
		return nil, err
	}
	if !authz.Authorize(actor, owner, entry, company, authz.ActionUnapprove) {
		return nil, fmt.Errorf("unapprove entry %s: %w", entryID, e.ErrForbidden)
	}

	s.logger.Warn("manual override: unwinding approved entry",
		zap.String("entry_id", entry.ID.String()),
		zap.String("actor_id", actor.ID.String()),
	)

	reverse := entry.StatsApplied
	delta := stats.Apply(stats.EventUnapproved, entry)

	entry.Status = models.StatusPending
	entry.ManagerApproved = false
	entry.SystemApproved = false
	entry.ApprovedAt = nil
	entry.ManagerID = nil
	entry.NeedsApproval = company.RequireManagerApproval
	entry.UpdatedBy = actor.ID

	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if reverse {
			st, err := tx.GetOrCreateStats(ctx, entry.UserID)
			if err != nil {
				return err
			}
			delta.AddTo(st)
			entry.StatsApplied = false
			if err := tx.SaveStats(ctx, st); err != nil {
				return err
			}
		}
		return tx.UpdateEntryIfStatus(ctx, entry, models.StatusApproved)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// DeleteEntry soft-deletes an entry and reverses any aggregate
// contribution it had made.
func (s *Service) DeleteEntry(ctx context.Context, actorID, entryID uuid.UUID) error {
	actor, entry, owner, company, err := s.load(ctx, actorID, entryID)
	if err != nil {
		return err
	}
	if !authz.Authorize(actor, owner, entry, company, authz.ActionDelete) {
		return fmt.Errorf("delete entry %s: %w", entryID, e.ErrForbidden)
	}

	reverse := entry.StatsApplied
	delta := stats.Apply(stats.EventDeleted, entry)
	expected := entry.Status

	entry.IsDeleted = true
	entry.UpdatedBy = actor.ID

	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if reverse {
			st, err := tx.GetOrCreateStats(ctx, entry.UserID)
			if err != nil {
				return err
			}
			delta.AddTo(st)
			entry.StatsApplied = false
			if err := tx.SaveStats(ctx, st); err != nil {
				return err
			}
		}
		return tx.UpdateEntryIfStatus(ctx, entry, expected)
	})
	if err != nil {
		if errors.Is(err, e.ErrConflict) {
			return err
		}
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	go func() {
		s.producer.Produce(events.EntryDeleted, entry)
	}()
	return nil
}

// RestoreEntry clears the soft-delete flag (admin only). An approved
// entry regains its stats contribution.
func (s *Service) RestoreEntry(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error) {
	actor, entry, owner, company, err := s.load(ctx, actorID, entryID)
	if err != nil {
		return nil, err
	}
	if !authz.Authorize(actor, owner, entry, company, authz.ActionRestore) {
		return nil, fmt.Errorf("restore entry %s: %w", entryID, e.ErrForbidden)
	}

	entry.IsDeleted = false
	entry.UpdatedBy = actor.ID

	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if entry.Status == models.StatusApproved && !entry.StatsApplied {
			st, err := tx.GetOrCreateStats(ctx, entry.UserID)
			if err != nil {
				return err
			}
			stats.Apply(stats.EventApproved, entry).AddTo(st)
			entry.StatsApplied = true
			if err := tx.SaveStats(ctx, st); err != nil {
				return err
			}
		}
		return tx.UpdateEntryIfStatus(ctx, entry, entry.Status)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// MarkProcessed moves an approved entry to the terminal processed state.
// Reserved for payroll export; no other field changes.
func (s *Service) MarkProcessed(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error) {
	actor, entry, owner, company, err := s.load(ctx, actorID, entryID)
	if err != nil {
		return nil, err
	}
	if !authz.Authorize(actor, owner, entry, company, authz.ActionProcess) {
		return nil, fmt.Errorf("process entry %s: %w", entryID, e.ErrForbidden)
	}

	entry.Status = models.StatusProcessed

	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		return tx.UpdateEntryIfStatus(ctx, entry, models.StatusApproved)
	})
	if err != nil {
		return nil, err
	}

	go func() {
		s.producer.Produce(events.EntryProcessed, entry)
	}()
	return entry, nil
}

// UpdateEntry applies a partial field edit after checking per-field
// permissions and re-validating the result. Status changes are not
// accepted here; they go through the dedicated transition operations.
func (s *Service) UpdateEntry(ctx context.Context, actorID uuid.UUID, update *models.EntryUpdate) (*models.TimeEntry, error) {
	if update == nil {
		return nil, fmt.Errorf("%w: entry update required", e.ErrInvalidInput)
	}
	if update.Status != nil {
		return nil, fmt.Errorf("%w: status changes go through transition operations", e.ErrInvalidInput)
	}
	actor, entry, owner, company, err := s.load(ctx, actorID, update.ID)
	if err != nil {
		return nil, err
	}
	if !authz.CanEdit(actor, owner, entry, company, update.Fields()) {
		return nil, fmt.Errorf("edit entry %s: %w", update.ID, e.ErrForbidden)
	}

	expected := entry.Status
	update.ApplyTo(entry)
	entry.UpdatedBy = actor.ID

	fields, err := validate.Entry(entry, company, s.now())
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, e.Validation(fields)
	}

	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		return tx.UpdateEntryIfStatus(ctx, entry, expected)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// BatchResult reports the per-entry outcome of a batch operation.
// Partial success is expected; each entry is approved independently
// under its own status precondition.
type BatchResult struct {
	Succeeded []*models.TimeEntry
	Failed    []BatchFailure
}

type BatchFailure struct {
	ID     uuid.UUID
	Reason string
}

// BatchApprove approves each entry independently and reports per-entry
// failures instead of one aggregate error.
func (s *Service) BatchApprove(ctx context.Context, actorID uuid.UUID, entryIDs []uuid.UUID) (*BatchResult, error) {
	if len(entryIDs) == 0 {
		return nil, fmt.Errorf("%w: no entry ids given", e.ErrInvalidInput)
	}
	result := &BatchResult{}
	for _, id := range entryIDs {
		entry, err := s.ApproveEntry(ctx, actorID, id, "")
		if err != nil {
			result.Failed = append(result.Failed, BatchFailure{ID: id, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, entry)
	}
	return result, nil
}

// GetEntry returns a single entry if the actor may see it. Soft-deleted
// entries are visible to admins only.
func (s *Service) GetEntry(ctx context.Context, actorID, entryID uuid.UUID) (*models.TimeEntry, error) {
	actor, entry, owner, _, err := s.load(ctx, actorID, entryID)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, owner, entry) {
		return nil, e.ErrNotFound
	}
	return entry, nil
}

// ListEntries returns the user's entries in the date range, subject to
// the actor's visibility (self, managed worker, or admin).
func (s *Service) ListEntries(ctx context.Context, actorID, userID uuid.UUID, from, to time.Time) ([]models.TimeEntry, error) {
	actor, err := s.repo.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	owner := actor
	if userID != actorID {
		owner, err = s.repo.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !actor.IsAdmin() && !actor.Manages(owner) {
			return nil, fmt.Errorf("list entries for %s: %w", userID, e.ErrForbidden)
		}
	}
	return s.repo.ListEntries(ctx, owner.ID, from, to)
}

// PendingApprovals returns the pending entries of the actor's
// managed-worker set.
func (s *Service) PendingApprovals(ctx context.Context, actorID uuid.UUID) ([]models.TimeEntry, error) {
	actor, err := s.repo.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleManager && !actor.IsAdmin() {
		return nil, fmt.Errorf("pending approvals: %w", e.ErrForbidden)
	}
	return s.repo.ListPendingForManager(ctx, actor.ID)
}

// GetStats returns the user's aggregate statistics, creating the row
// lazily on first access.
func (s *Service) GetStats(ctx context.Context, actorID, userID uuid.UUID) (*models.UserStats, error) {
	actor, err := s.repo.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if userID != actorID {
		owner, err := s.repo.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !actor.IsAdmin() && !actor.Manages(owner) {
			return nil, fmt.Errorf("stats for %s: %w", userID, e.ErrForbidden)
		}
	}
	return s.repo.GetOrCreateStats(ctx, userID)
}

// GetCompany returns the company configuration to one of its members.
func (s *Service) GetCompany(ctx context.Context, actorID, companyID uuid.UUID) (*models.Company, error) {
	actor, err := s.repo.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.CompanyID != companyID {
		return nil, e.ErrNotFound
	}
	return s.repo.GetCompany(ctx, companyID)
}

// UpdateCompany modifies company policy. Admins may change approval
// policy; only a super-admin may change the week configuration.
func (s *Service) UpdateCompany(ctx context.Context, actorID uuid.UUID, update *models.CompanyUpdate) (*models.Company, error) {
	if update == nil || update.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: invalid company update", e.ErrInvalidInput)
	}
	actor, err := s.repo.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() || actor.CompanyID != update.ID {
		return nil, fmt.Errorf("update company %s: %w", update.ID, e.ErrForbidden)
	}
	if update.TouchesWeekConfig() && actor.Role != models.RoleSuperAdmin {
		return nil, fmt.Errorf("week configuration is super-admin only: %w", e.ErrForbidden)
	}
	if update.StartDay != nil && (*update.StartDay < 0 || *update.StartDay > 6) {
		return nil, fmt.Errorf("%w: start day must be 0-6", e.ErrInvalidInput)
	}
	if update.WorkWeekLength != nil && (*update.WorkWeekLength < 5 || *update.WorkWeekLength > 7) {
		return nil, fmt.Errorf("%w: work week length must be 5-7", e.ErrInvalidInput)
	}

	if err := s.repo.UpdateCompany(ctx, update); err != nil {
		return nil, err
	}
	return s.repo.GetCompany(ctx, update.ID)
}

// PayrollRow is one exported line of the payroll run.
type PayrollRow struct {
	Date     time.Time
	UserName string
	Email    string
	Regular  float64
	Overtime float64
	PTO      float64
	Unpaid   float64
	Notes    string
}

// ProcessPayroll marks every approved entry of the company in the range
// as processed and returns the export rows. Entries that conflict
// mid-run (e.g. unapproved concurrently) are skipped and logged; the
// rest of the run proceeds.
func (s *Service) ProcessPayroll(ctx context.Context, actorID, companyID uuid.UUID, from, to time.Time) ([]PayrollRow, error) {
	actor, err := s.repo.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() || actor.CompanyID != companyID {
		return nil, fmt.Errorf("payroll export: %w", e.ErrForbidden)
	}

	entries, err := s.repo.ListApprovedInRange(ctx, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved entries: %w", err)
	}

	rows := make([]PayrollRow, 0, len(entries))
	for i := range entries {
		entry := entries[i]
		if _, err := s.MarkProcessed(ctx, actorID, entry.ID); err != nil {
			s.logger.Warn("skipping entry in payroll run",
				zap.String("entry_id", entry.ID.String()),
				zap.Error(err),
			)
			continue
		}
		owner, err := s.repo.GetUser(ctx, entry.UserID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, PayrollRow{
			Date:     entry.Date,
			UserName: owner.FullName,
			Email:    owner.Email,
			Regular:  entry.RegularHours,
			Overtime: entry.OvertimeHours,
			PTO:      entry.PTOHours,
			Unpaid:   entry.UnpaidHours,
			Notes:    entry.Notes,
		})
	}
	return rows, nil
}

// --- helpers ---

// load fetches the actor, entry, owner and company an operation needs.
func (s *Service) load(ctx context.Context, actorID, entryID uuid.UUID) (*models.User, *models.TimeEntry, *models.User, *models.Company, error) {
	actor, err := s.repo.GetUser(ctx, actorID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	entry, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	owner := actor
	if entry.UserID != actor.ID {
		owner, err = s.repo.GetUser(ctx, entry.UserID)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}
	company, err := s.repo.GetCompany(ctx, entry.CompanyID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return actor, entry, owner, company, nil
}

func (s *Service) canView(actor, owner *models.User, entry *models.TimeEntry) bool {
	if entry.IsDeleted && !actor.IsAdmin() {
		return false
	}
	return actor.ID == entry.UserID || actor.Manages(owner) || actor.IsAdmin()
}

func (s *Service) autoApproves(company *models.Company, entry *models.TimeEntry) bool {
	return company.AutoApproveRegularHours &&
		!entry.IsTimeOff &&
		entry.OvertimeHours == 0 &&
		entry.RegularHours <= company.AutoApproveMaxHours
}

// systemApprove applies the auto-approval side effects: approved with
// no manager, flagged as system-approved.
func (s *Service) systemApprove(entry *models.TimeEntry, now time.Time) {
	entry.Status = models.StatusApproved
	entry.ManagerApproved = true
	entry.SystemApproved = true
	entry.NeedsApproval = false
	entry.ApprovedAt = &now
	entry.ManagerID = nil
}

// advanceStreak updates the consecutive-day submission streak. A gap of
// more than one calendar day resets it; multiple submissions on the same
// day count once.
func (s *Service) advanceStreak(st *models.UserStats, now time.Time) {
	if st.LastSubmission != nil {
		last := *st.LastSubmission
		sameDay := last.Year() == now.Year() && last.YearDay() == now.YearDay()
		if sameDay {
			st.LastSubmission = &now
			return
		}
		if now.Sub(last) <= 48*time.Hour && last.AddDate(0, 0, 1).YearDay() == now.YearDay() {
			st.SubmissionStreak++
			st.LastSubmission = &now
			return
		}
	}
	st.SubmissionStreak = 1
	st.LastSubmission = &now
}
