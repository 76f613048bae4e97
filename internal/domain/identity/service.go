package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	users  UserRepository
	logger zerolog.Logger
	cost   int
}

func NewService(users UserRepository, logger zerolog.Logger) *Service {
	return &Service{
		users:  users,
		logger: logger.With().Str("component", "identity").Logger(),
		cost:   bcrypt.DefaultCost,
	}
}

// SetCost overrides the bcrypt cost, mainly so tests run fast.
func (s *Service) SetCost(cost int) {
	s.cost = cost
}

// Register creates an account. Usernames are trimmed and case-sensitive.
func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("user_id", u.ID).Msg("user registered")
	return u, nil
}

// Authenticate checks a username and password.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		s.logger.Warn().Int64("user_id", u.ID).Msg("failed login")
		return nil, ErrInvalidPassword
	}
	return u, nil
}

// EnsureAdmin seeds the administrator account when a password is configured
// and the account does not exist yet. It reports whether it created one.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return false, nil
	}
	_, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return false, err
	}
	if _, err := s.Register(ctx, username, password); err != nil {
		return false, err
	}
	return true, nil
}

// List returns all accounts ordered by username.
func (s *Service) List(ctx context.Context) ([]*User, error) {
	return s.users.List(ctx)
}
