package models

import (
	"time"

	"github.com/google/uuid"
)

// Role determines what a user may do with entries and company settings.
type Role string

const (
	RoleWorker     Role = "WORKER"
	RoleManager    Role = "MANAGER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// User is an account in the system. A user with a ManagerID reports to
// that manager; the manager's managed-worker set is exactly the users
// whose ManagerID points at them.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"size:200;uniqueIndex;not null"`
	FullName     string    `gorm:"size:200;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         Role      `gorm:"size:20;not null"`
	CompanyID    uuid.UUID `gorm:"type:uuid;index;not null"`
	// ManagerID is the user with approval authority over this user.
	ManagerID *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the user holds admin or super-admin rights.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// Manages reports whether other is in this user's managed-worker set.
func (u *User) Manages(other *User) bool {
	if u.Role != RoleManager && !u.IsAdmin() {
		return false
	}
	return other.ManagerID != nil && *other.ManagerID == u.ID
}
