// Package models defines the core domain models for time tracking:
// time entries, their lifecycle status, per-user statistics, and the
// company configuration that governs validation and approval.
package models

import (
	"time"

	"github.com/google/uuid"
)

// EntryStatus represents the lifecycle state of a time entry.
type EntryStatus string

const (
	// StatusDraft is an entry saved but not yet submitted for approval.
	StatusDraft EntryStatus = "DRAFT"
	// StatusPending is a submitted entry awaiting a manager decision.
	StatusPending EntryStatus = "PENDING"
	// StatusApproved is an entry accepted by a manager or auto-approval.
	StatusApproved EntryStatus = "APPROVED"
	// StatusRejected is an entry declined by a manager; the owner may
	// edit and resubmit it.
	StatusRejected EntryStatus = "REJECTED"
	// StatusProcessed is a terminal state reached only through payroll
	// export. No transition leaves it.
	StatusProcessed EntryStatus = "PROCESSED"
)

// validTransitions encodes the legal edges of the status state machine.
// Anything not listed here is illegal regardless of who asks.
var validTransitions = map[EntryStatus][]EntryStatus{
	StatusDraft:    {StatusPending},
	StatusPending:  {StatusDraft, StatusApproved, StatusRejected},
	StatusRejected: {StatusDraft},
	StatusApproved: {StatusPending, StatusProcessed},
}

// CanTransition reports whether moving from s to target is a legal
// state-machine edge.
func (s EntryStatus) CanTransition(target EntryStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves this status.
func (s EntryStatus) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// Valid reports whether s is one of the five known statuses.
func (s EntryStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected, StatusProcessed:
		return true
	}
	return false
}

// TimeOffType categorizes a time-off entry.
type TimeOffType string

const (
	TimeOffVacation TimeOffType = "VACATION"
	TimeOffSick     TimeOffType = "SICK"
	TimeOffPersonal TimeOffType = "PERSONAL"
	TimeOffHoliday  TimeOffType = "HOLIDAY"
)

// Valid reports whether t is a known time-off category.
func (t TimeOffType) Valid() bool {
	switch t {
	case TimeOffVacation, TimeOffSick, TimeOffPersonal, TimeOffHoliday:
		return true
	}
	return false
}

// TimeEntry is one user's recorded work or time off for a single day.
type TimeEntry struct {
	// ID is the unique identifier for the entry.
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`
	// UserID is the owner of the entry.
	UserID uuid.UUID `gorm:"type:uuid;index;not null"`
	// CompanyID links the entry to the company whose policy governs it.
	CompanyID uuid.UUID `gorm:"type:uuid;index;not null"`
	// Date is the calendar day the entry refers to. Date-only; no time
	// of day or zone is stored.
	Date time.Time `gorm:"type:date;not null"`

	// Hour breakdown. Each field is non-negative and the sum must stay
	// within (0, 24] for any non-deleted entry.
	RegularHours  float64 `gorm:"not null"`
	OvertimeHours float64 `gorm:"not null"`
	PTOHours      float64 `gorm:"not null"`
	UnpaidHours   float64 `gorm:"not null"`

	// Status is the entry's position in the approval lifecycle.
	Status EntryStatus `gorm:"size:20;index;not null"`

	IsSubmitted      bool `gorm:"not null"`
	NeedsApproval    bool `gorm:"not null"`
	ManagerApproved  bool `gorm:"not null"`
	OvertimeApproved bool `gorm:"not null"`
	IsTimeOff        bool `gorm:"not null"`
	// IsDeleted marks a soft-deleted entry. Deleted entries are kept for
	// audit history and excluded from default listings.
	IsDeleted bool `gorm:"index;not null"`
	// SystemApproved marks entries approved by the auto-approval rule
	// rather than a manager. Such entries carry a nil ManagerID.
	SystemApproved bool `gorm:"not null"`
	// StatsApplied records whether this entry has already contributed to
	// the owner's aggregate statistics. It guards the stats updater
	// against double-counting.
	StatsApplied bool `gorm:"not null"`

	Notes       string      `gorm:"size:1000"`
	TimeOffType TimeOffType `gorm:"size:20"`

	CreatedAt time.Time
	UpdatedAt time.Time
	// UpdatedBy is the user who performed the last mutation.
	UpdatedBy uuid.UUID `gorm:"type:uuid"`
	// ApprovedAt, ManagerID and ManagerNotes are set on approval or
	// rejection and cleared when the owner resubmits.
	ApprovedAt   *time.Time
	ManagerID    *uuid.UUID `gorm:"type:uuid"`
	ManagerNotes string     `gorm:"size:1000"`
}

// TotalHours returns the sum of all four hour fields.
func (e *TimeEntry) TotalHours() float64 {
	return e.RegularHours + e.OvertimeHours + e.PTOHours + e.UnpaidHours
}

// WorkedHours returns the hours counting toward worked totals.
func (e *TimeEntry) WorkedHours() float64 {
	return e.RegularHours + e.OvertimeHours
}

// EntryUpdate represents the fields of a TimeEntry that can be edited
// after creation. Pointer types are used to allow partial updates; a nil
// field is left untouched.
type EntryUpdate struct {
	// ID is the entry to update.
	ID uuid.UUID

	Date          *time.Time
	RegularHours  *float64
	OvertimeHours *float64
	PTOHours      *float64
	UnpaidHours   *float64
	IsTimeOff     *bool
	TimeOffType   *TimeOffType
	Notes         *string

	// Manager-editable fields. Workers may never set these directly.
	Status           *EntryStatus
	ManagerApproved  *bool
	OvertimeApproved *bool
	ManagerNotes     *string
	ApprovedAt       *time.Time
}

// Fields returns the names of the fields this update touches, for
// authorization checks.
func (u *EntryUpdate) Fields() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(u.Date != nil, "date")
	add(u.RegularHours != nil, "regular_hours")
	add(u.OvertimeHours != nil, "overtime_hours")
	add(u.PTOHours != nil, "pto_hours")
	add(u.UnpaidHours != nil, "unpaid_hours")
	add(u.IsTimeOff != nil, "is_time_off")
	add(u.TimeOffType != nil, "time_off_type")
	add(u.Notes != nil, "notes")
	add(u.Status != nil, "status")
	add(u.ManagerApproved != nil, "manager_approved")
	add(u.OvertimeApproved != nil, "overtime_approved")
	add(u.ManagerNotes != nil, "manager_notes")
	add(u.ApprovedAt != nil, "approved_at")
	return fields
}

// ApplyTo copies the set fields of the update onto the entry.
func (u *EntryUpdate) ApplyTo(e *TimeEntry) {
	if u.Date != nil {
		e.Date = *u.Date
	}
	if u.RegularHours != nil {
		e.RegularHours = *u.RegularHours
	}
	if u.OvertimeHours != nil {
		e.OvertimeHours = *u.OvertimeHours
	}
	if u.PTOHours != nil {
		e.PTOHours = *u.PTOHours
	}
	if u.UnpaidHours != nil {
		e.UnpaidHours = *u.UnpaidHours
	}
	if u.IsTimeOff != nil {
		e.IsTimeOff = *u.IsTimeOff
	}
	if u.TimeOffType != nil {
		e.TimeOffType = *u.TimeOffType
	}
	if u.Notes != nil {
		e.Notes = *u.Notes
	}
	if u.Status != nil {
		e.Status = *u.Status
	}
	if u.ManagerApproved != nil {
		e.ManagerApproved = *u.ManagerApproved
	}
	if u.OvertimeApproved != nil {
		e.OvertimeApproved = *u.OvertimeApproved
	}
	if u.ManagerNotes != nil {
		e.ManagerNotes = *u.ManagerNotes
	}
	if u.ApprovedAt != nil {
		e.ApprovedAt = u.ApprovedAt
	}
}
