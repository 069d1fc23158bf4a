package models

import (
	"time"

	"github.com/google/uuid"
)

// UserStats is the per-user rolling aggregate derived from entry events.
// It is created lazily on the first entry event for a user and adjusted
// only through create/approve/delete events, never recomputed from a
// full scan.
type UserStats struct {
	UserID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TotalHoursWorked   float64   `gorm:"not null"`
	TotalOvertimeHours float64   `gorm:"not null"`
	TotalPTOUsed       float64   `gorm:"not null"`
	SickDaysUsed       int       `gorm:"not null"`
	// SubmissionStreak counts consecutive calendar days with at least
	// one submission.
	SubmissionStreak int `gorm:"not null"`
	LastSubmission   *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
