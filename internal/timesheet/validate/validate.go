// Package validate checks time entries against the owning company's
// policy before any lifecycle transition. Validation failures are
// reported as field-level errors, not raised; only a malformed call
// (nil entry or company) is treated as a programmer error.
package validate

import (
	"fmt"
	"time"

	e "github.com/gartstein/timetrack/internal/timesheet/errors"
	"github.com/gartstein/timetrack/internal/timesheet/models"
)

// MaxDailyHours caps the sum of all hour fields for one entry.
const MaxDailyHours = 24.0

// Entry runs all business-rule checks on the entry, in order, and
// returns every violation found. An empty result means the entry is
// valid. The now argument anchors the date checks and is interpreted in
// the company's timezone.
func Entry(entry *models.TimeEntry, company *models.Company, now time.Time) ([]e.FieldError, error) {
	if entry == nil || company == nil {
		return nil, fmt.Errorf("%w: entry and company required", e.ErrInvalidInput)
	}

	var fields []e.FieldError
	add := func(field, format string, args ...any) {
		fields = append(fields, e.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	loc := company.Location()
	today := dateOnly(now.In(loc))
	entryDate := dateOnly(entry.Date)

	if !company.AllowFutureEntries && entryDate.After(today) {
		add("date", "future dates are not allowed")
	}
	if company.MaxDaysForEditing > 0 {
		oldest := today.AddDate(0, 0, -company.MaxDaysForEditing)
		if entryDate.Before(oldest) {
			add("date", "date is older than %d days", company.MaxDaysForEditing)
		}
	}

	for _, h := range []struct {
		name  string
		value float64
	}{
		{"regular_hours", entry.RegularHours},
		{"overtime_hours", entry.OvertimeHours},
		{"pto_hours", entry.PTOHours},
		{"unpaid_hours", entry.UnpaidHours},
	} {
		if h.value < 0 {
			add(h.name, "must not be negative")
		}
	}

	total := entry.TotalHours()
	if total <= 0 {
		add("hours", "total hours must be greater than zero")
	} else if total > MaxDailyHours {
		add("hours", "total hours must not exceed %.0f", MaxDailyHours)
	}

	if entry.IsTimeOff {
		if !entry.TimeOffType.Valid() {
			add("time_off_type", "a valid time-off category is required")
		}
		if entry.RegularHours != 0 || entry.OvertimeHours != 0 {
			add("hours", "time-off entries must not carry regular or overtime hours")
		}
	}

	if company.RequireNotes && entry.Notes == "" {
		add("notes", "notes are required")
	}

	return fields, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
