// Package db implements the persistence layer for entries, users,
// companies and per-user statistics on top of GORM.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	e "github.com/gartstein/timetrack/internal/timesheet/errors"
	"github.com/gartstein/timetrack/internal/timesheet/models"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func NewRepository(cfg *Config) (*Repository, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewRepositoryWithDB(gdb)
}

// NewRepositoryWithDB wraps an already opened GORM handle and runs the
// schema migration. Tests use it with an in-memory SQLite database.
func NewRepositoryWithDB(gdb *gorm.DB) (*Repository, error) {
	err := gdb.AutoMigrate(
		&models.Company{},
		&models.User{},
		&models.TimeEntry{},
		&models.UserStats{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Repository{db: gdb}, nil
}

// --- entries ---

func (r *Repository) CreateEntry(ctx context.Context, entry *models.TimeEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// GetEntry returns the entry regardless of its soft-deleted flag;
// visibility of deleted entries is decided by the authorizer.
func (r *Repository) GetEntry(ctx context.Context, id uuid.UUID) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	result := r.db.WithContext(ctx).First(&entry, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &entry, nil
}

// UpdateEntryIfStatus writes all fields of the entry, but only if the
// stored row still carries the expected status. A zero row count means
// another client moved the entry first; the caller's transaction must
// abort with the conflict.
func (r *Repository) UpdateEntryIfStatus(ctx context.Context, entry *models.TimeEntry, expected models.EntryStatus) error {
	result := r.db.WithContext(ctx).Model(&models.TimeEntry{}).
		Where("id = ? AND status = ?", entry.ID, expected).
		Select("*").Omit("id", "created_at").
		Updates(entry)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("entry %s no longer %s: %w", entry.ID, expected, e.ErrConflict)
	}
	return nil
}

// ListEntries returns the owner's non-deleted entries within the date
// range, newest first.
func (r *Repository) ListEntries(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Where("date >= ? AND date <= ?", from, to).
		Order("date desc").
		Find(&entries)
	return entries, result.Error
}

// ListPendingForManager returns pending entries of every user in the
// manager's managed-worker set.
func (r *Repository) ListPendingForManager(ctx context.Context, managerID uuid.UUID) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	result := r.db.WithContext(ctx).
		Joins("JOIN users ON users.id = time_entries.user_id").
		Where("users.manager_id = ?", managerID).
		Where("time_entries.status = ? AND time_entries.is_deleted = ?", models.StatusPending, false).
		Order("time_entries.date asc").
		Find(&entries)
	return entries, result.Error
}

// ListApprovedInRange returns a company's approved entries for payroll
// export, ordered by date then owner.
func (r *Repository) ListApprovedInRange(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	result := r.db.WithContext(ctx).
		Where("company_id = ? AND status = ? AND is_deleted = ?", companyID, models.StatusApproved, false).
		Where("date >= ? AND date <= ?", from, to).
		Order("date asc, user_id asc").
		Find(&entries)
	return entries, result.Error
}

// --- users ---

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).First(&user, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

// --- companies ---

func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

func (r *Repository) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var company models.Company
	result := r.db.WithContext(ctx).First(&company, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &company, nil
}

func (r *Repository) UpdateCompany(ctx context.Context, update *models.CompanyUpdate) error {
	values := companyUpdateValues(update)
	if len(values) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.Company{}).
		Where("id = ?", update.ID).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// companyUpdateValues converts the set pointer fields into a column map,
// so unset fields never overwrite stored values.
func companyUpdateValues(u *models.CompanyUpdate) map[string]interface{} {
	values := map[string]interface{}{}
	set := func(name string, ptr interface{}, ok bool) {
		if ok {
			values[name] = ptr
		}
	}
	set("name", u.Name, u.Name != nil)
	set("require_manager_approval", u.RequireManagerApproval, u.RequireManagerApproval != nil)
	set("auto_approve_regular_hours", u.AutoApproveRegularHours, u.AutoApproveRegularHours != nil)
	set("auto_approve_max_hours", u.AutoApproveMaxHours, u.AutoApproveMaxHours != nil)
	set("require_overtime_approval", u.RequireOvertimeApproval, u.RequireOvertimeApproval != nil)
	set("max_days_for_editing", u.MaxDaysForEditing, u.MaxDaysForEditing != nil)
	set("allow_future_entries", u.AllowFutureEntries, u.AllowFutureEntries != nil)
	set("require_notes", u.RequireNotes, u.RequireNotes != nil)
	set("start_day", u.StartDay, u.StartDay != nil)
	set("work_week_length", u.WorkWeekLength, u.WorkWeekLength != nil)
	set("overtime_threshold", u.OvertimeThreshold, u.OvertimeThreshold != nil)
	set("timezone", u.Timezone, u.Timezone != nil)
	return values
}

// --- stats ---

// GetOrCreateStats returns the user's stats row, creating a zeroed one
// on first use.
func (r *Repository) GetOrCreateStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	var st models.UserStats
	result := r.db.WithContext(ctx).First(&st, "user_id = ?", userID)
	if result.Error == nil {
		return &st, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}
	st = models.UserStats{UserID: userID}
	if err := r.db.WithContext(ctx).Create(&st).Error; err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *Repository) SaveStats(ctx context.Context, st *models.UserStats) error {
	return r.db.WithContext(ctx).Save(st).Error
}

// --- plumbing ---

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
