package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	e "github.com/gartstein/timetrack/internal/timesheet/errors"
	"github.com/gartstein/timetrack/internal/timesheet/models"
	"golang.org/x/crypto/bcrypt"
)

// UserSource looks up accounts for login.
type UserSource interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service authenticates users and mints tokens.
type Service struct {
	users      UserSource
	secret     string
	expiration time.Duration
}

func NewService(users UserSource, secret string, expiration time.Duration) *Service {
	return &Service{users: users, secret: secret, expiration: expiration}
}

// Login verifies the credentials and returns a signed token plus the
// user. Unknown email and wrong password are indistinguishable to the
// caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return "", nil, fmt.Errorf("login: %w", e.ErrUnauthorized)
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("login: %w", e.ErrUnauthorized)
	}
	token, err := GenerateToken(user, s.secret, s.expiration)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, user, nil
}
