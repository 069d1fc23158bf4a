// Package authz decides whether an actor may perform a lifecycle action
// or field edit on a time entry. Rules are evaluated as an ordered set,
// first match wins, and an explicit deny always beats a later allow.
package authz

import (
	"github.com/gartstein/timetrack/internal/timesheet/models"
)

// Action is a requested operation on a time entry.
type Action string

const (
	ActionSubmit    Action = "submit"
	ActionUnsubmit  Action = "unsubmit"
	ActionResubmit  Action = "resubmit"
	ActionApprove   Action = "approve"
	ActionReject    Action = "reject"
	ActionUnapprove Action = "unapprove"
	ActionProcess   Action = "process"
	ActionDelete    Action = "delete"
	ActionRestore   Action = "restore"
	ActionEdit      Action = "edit"
)

// managerEditableFields are the only entry fields a manager may change
// on a managed worker's entry.
var managerEditableFields = map[string]bool{
	"status":           true,
	"manager_approved": true,
	"manager_notes":    true,
	"approved_at":      true,
}

// workerEditableFields are the fields an owner may change on their own
// draft or pending entry. Status flags and approval fields are excluded.
var workerEditableFields = map[string]bool{
	"date":           true,
	"regular_hours":  true,
	"overtime_hours": true,
	"pto_hours":      true,
	"unpaid_hours":   true,
	"is_time_off":    true,
	"time_off_type":  true,
	"notes":          true,
}

// Authorize reports whether the actor may perform the action on the
// entry owned by owner, under the company's approval policy.
func Authorize(actor, owner *models.User, entry *models.TimeEntry, company *models.Company, action Action) bool {
	if actor == nil || owner == nil || entry == nil || company == nil {
		return false
	}

	// Soft-deleted entries are read-only to everyone except an
	// admin-initiated restore.
	if entry.IsDeleted {
		return action == ActionRestore && actor.IsAdmin()
	}

	// Processed is terminal; nothing moves it and nobody edits it.
	if entry.Status.Terminal() {
		return false
	}

	// Nobody sets processed directly. The transition is reserved for the
	// payroll export job, which runs with admin authority.
	if action == ActionProcess {
		return actor.IsAdmin() && entry.Status == models.StatusApproved
	}

	// Overtime gate: an entry carrying overtime cannot reach approved
	// until the overtime itself has been approved. Deny wins, so this
	// applies to admins as well.
	if action == ActionApprove &&
		company.RequireOvertimeApproval &&
		entry.OvertimeHours > 0 && !entry.OvertimeApproved {
		return false
	}

	isOwner := actor.ID == entry.UserID
	manages := actor.Manages(owner)

	switch action {
	case ActionSubmit:
		return isOwner && entry.Status == models.StatusDraft
	case ActionUnsubmit:
		return isOwner && entry.Status == models.StatusPending
	case ActionResubmit:
		return isOwner && entry.Status == models.StatusRejected
	case ActionApprove, ActionReject:
		if entry.Status != models.StatusPending {
			return false
		}
		return manages || actor.IsAdmin()
	case ActionUnapprove:
		// Manual override back to pending; admin only.
		return actor.IsAdmin() && entry.Status == models.StatusApproved
	case ActionDelete:
		if actor.IsAdmin() {
			return true
		}
		// Owners may remove their own entries before they are processed.
		return isOwner
	case ActionRestore:
		// Restoring a live entry is meaningless.
		return false
	case ActionEdit:
		// Field-level checks happen in CanEdit; this answers whether the
		// actor may edit anything at all.
		if actor.IsAdmin() {
			return true
		}
		if isOwner {
			return entry.Status == models.StatusDraft || entry.Status == models.StatusPending
		}
		return manages && entry.Status == models.StatusPending
	}
	return false
}

// CanEdit reports whether the actor may change exactly the given fields
// of the entry. It refines ActionEdit with per-field rules: owners touch
// only worker fields, managers only the approval fields, admins anything
// on a live entry.
func CanEdit(actor, owner *models.User, entry *models.TimeEntry, company *models.Company, fields []string) bool {
	if !Authorize(actor, owner, entry, company, ActionEdit) {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	allowed := workerEditableFields
	if actor.ID != entry.UserID {
		allowed = managerEditableFields
	}
	for _, f := range fields {
		if !allowed[f] {
			return false
		}
	}
	return true
}
