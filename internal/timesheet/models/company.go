package models

import (
	"time"

	"github.com/google/uuid"
)

// Company owns the configuration that validation, auto-approval and the
// week calendar are evaluated against.
type Company struct {
	// ID is the unique identifier for the company.
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`
	// Name is the company's display name.
	Name string `gorm:"size:200;uniqueIndex;not null"`

	// Week configuration. Only a super-admin may change these once set.
	// StartDay is the first day of the work week, 0 (Sunday) to 6.
	StartDay int `gorm:"not null;check:start_day >= 0 AND start_day <= 6"`
	// WorkWeekLength is the number of working days per week, 5 to 7.
	WorkWeekLength int `gorm:"not null;check:work_week_length >= 5 AND work_week_length <= 7"`
	// OvertimeThreshold is the weekly hours beyond which time counts as
	// overtime.
	OvertimeThreshold float64 `gorm:"not null"`
	// Timezone is the IANA zone entries are interpreted in.
	Timezone string `gorm:"size:64;not null"`

	// Approval policy flags.
	RequireManagerApproval  bool `gorm:"not null"`
	AutoApproveRegularHours bool `gorm:"not null"`
	// AutoApproveMaxHours is the largest regular-hours value the
	// auto-approval rule accepts. Configurable per company rather than a
	// hard-coded constant.
	AutoApproveMaxHours     float64 `gorm:"not null"`
	RequireOvertimeApproval bool    `gorm:"not null"`
	// MaxDaysForEditing limits how far in the past an entry date may lie.
	MaxDaysForEditing  int  `gorm:"not null"`
	AllowFutureEntries bool `gorm:"not null"`
	RequireNotes       bool `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Location resolves the company timezone, falling back to UTC if the
// zone name is unknown.
func (c *Company) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CompanyUpdate represents the fields that can be updated for a Company.
// Pointer types are used to allow partial updates. Week-configuration
// fields are split out so the authorizer can gate them separately.
type CompanyUpdate struct {
	ID uuid.UUID

	Name                    *string
	RequireManagerApproval  *bool
	AutoApproveRegularHours *bool
	AutoApproveMaxHours     *float64
	RequireOvertimeApproval *bool
	MaxDaysForEditing       *int
	AllowFutureEntries      *bool
	RequireNotes            *bool

	// Week configuration, super-admin only.
	StartDay          *int
	WorkWeekLength    *int
	OvertimeThreshold *float64
	Timezone          *string
}

// TouchesWeekConfig reports whether the update modifies any
// week-configuration field.
func (u *CompanyUpdate) TouchesWeekConfig() bool {
	return u.StartDay != nil || u.WorkWeekLength != nil ||
		u.OvertimeThreshold != nil || u.Timezone != nil
}
