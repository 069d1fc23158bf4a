package db

import (
	"context"
	"errors"
	"time"

	e "github.com/gartstein/timetrack/internal/timesheet/errors"
	"github.com/gartstein/timetrack/internal/timesheet/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultAdminEmail is the login of the super-admin seeded on first boot.
const DefaultAdminEmail = "admin@timetrack.local"

// EnsureSeedData creates a default company and a super-admin account if
// no admin exists yet, so a fresh deployment is reachable. The given
// password is only used when the account is created.
func (r *Repository) EnsureSeedData(ctx context.Context, password string) (*models.Company, error) {
	if _, err := r.GetUserByEmail(ctx, DefaultAdminEmail); err == nil {
		var company models.Company
		if res := r.db.WithContext(ctx).First(&company); res.Error == nil {
			return &company, nil
		}
		return nil, nil
	} else if !errors.Is(err, e.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	company := &models.Company{
		ID:                      uuid.New(),
		Name:                    "Default Company",
		StartDay:                1,
		WorkWeekLength:          5,
		OvertimeThreshold:       40,
		Timezone:                "UTC",
		RequireManagerApproval:  true,
		AutoApproveRegularHours: false,
		AutoApproveMaxHours:     8,
		RequireOvertimeApproval: true,
		MaxDaysForEditing:       30,
		AllowFutureEntries:      false,
		RequireNotes:            false,
	}
	admin := &models.User{
		ID:           uuid.New(),
		Email:        DefaultAdminEmail,
		FullName:     "Administrator",
		PasswordHash: string(hash),
		Role:         models.RoleSuperAdmin,
		CompanyID:    company.ID,
		CreatedAt:    time.Now(),
	}

	err = r.WithTransaction(ctx, func(tx *Repository) error {
		if err := tx.CreateCompany(ctx, company); err != nil {
			return err
		}
		return tx.CreateUser(ctx, admin)
	})
	if err != nil {
		return nil, err
	}
	return company, nil
}
