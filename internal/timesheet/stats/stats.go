// Package stats computes the additive deltas that entry lifecycle
// events apply to a user's rolling statistics. The functions here are
// pure; idempotence per (entry, event) pair is enforced by the caller
// through the entry's StatsApplied flag, checked and flipped in the same
// transaction as the delta.
package stats

import (
	"github.com/gartstein/timetrack/internal/timesheet/models"
)

// Event is an entry lifecycle event that affects aggregates.
type Event string

const (
	// EventCreated fires when an entry is first stored. It carries no
	// hour totals; only submission bookkeeping reacts to it.
	EventCreated Event = "created"
	// EventApproved fires when an entry reaches approved status.
	EventApproved Event = "approved"
	// EventDeleted fires when a previously counted entry is soft-deleted.
	EventDeleted Event = "deleted"
	// EventUnapproved fires on an admin override back to pending.
	EventUnapproved Event = "unapproved"
)

// Delta is an additive adjustment to UserStats fields. Negative values
// reverse a previous contribution.
type Delta struct {
	HoursWorked   float64
	OvertimeHours float64
	PTOUsed       float64
	SickDays      int
}

// IsZero reports whether applying the delta would change nothing.
func (d Delta) IsZero() bool {
	return d.HoursWorked == 0 && d.OvertimeHours == 0 && d.PTOUsed == 0 && d.SickDays == 0
}

// AddTo applies the delta to the given stats row.
func (d Delta) AddTo(s *models.UserStats) {
	s.TotalHoursWorked += d.HoursWorked
	s.TotalOvertimeHours += d.OvertimeHours
	s.TotalPTOUsed += d.PTOUsed
	s.SickDaysUsed += d.SickDays
}

// Apply computes the stats delta for an event on an entry. Deletion and
// unapproval return the exact negation of the approval delta, so a
// counted entry that is later removed leaves the totals unchanged.
func Apply(event Event, entry *models.TimeEntry) Delta {
	switch event {
	case EventApproved:
		return approvalDelta(entry)
	case EventDeleted, EventUnapproved:
		return approvalDelta(entry).negate()
	default:
		return Delta{}
	}
}

func approvalDelta(entry *models.TimeEntry) Delta {
	d := Delta{
		HoursWorked:   entry.WorkedHours(),
		OvertimeHours: entry.OvertimeHours,
	}
	if entry.IsTimeOff {
		d.PTOUsed = entry.PTOHours
		if entry.TimeOffType == models.TimeOffSick {
			d.SickDays = 1
		}
	}
	return d
}

func (d Delta) negate() Delta {
	return Delta{
		HoursWorked:   -d.HoursWorked,
		OvertimeHours: -d.OvertimeHours,
		PTOUsed:       -d.PTOUsed,
		SickDays:      -d.SickDays,
	}
}
