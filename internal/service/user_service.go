package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/finpro/contact-search-api/internal/config"
	"github.com/finpro/contact-search-api/internal/models"
	"github.com/finpro/contact-search-api/internal/repository"
)

// userService is the concrete implementation of UserService
type userService struct {
	repos *repository.Repositories
	cfg   *config.Config
	log   zerolog.Logger
}

// newUserService creates a new UserService
func newUserService(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *userService {
	return &userService{
		repos: repos,
		cfg:   cfg,
		log:   log.With().Str("service", "user").Logger(),
	}
}

// Create provisions a new account with a bcrypt-hashed password
func (s *userService) Create(ctx context.Context, user *models.User, password string) (string, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" || password == "" {
		return "", fmt.Errorf("email and password are required")
	}

	if user.Role == "" {
		user.Role = "USER"
	}
	if !models.ValidRoles[user.Role] {
		return "", fmt.Errorf("invalid role: %s", user.Role)
	}
	if user.DailySearchLimit <= 0 {
		user.DailySearchLimit = s.cfg.Auth.DefaultDailyLimit
	}

	taken, err := s.repos.User.EmailExists(ctx, user.Email)
	if err != nil {
		return "", err
	}
	if taken {
		return "", ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	user.IsActive = true

	id, err := s.repos.User.Create(ctx, user)
	if err != nil {
		return "", err
	}

	s.log.Info().Str("user_id", id).Str("role", user.Role).Msg("User created")
	return id, nil
}

// List returns all accounts
func (s *userService) List(ctx context.Context) ([]*models.User, error) {
	return s.repos.User.List(ctx, 500)
}

// Update applies a partial update; a non-nil password is rehashed
func (s *userService) Update(ctx context.Context, id string, upd *models.UserUpdate, password *string) error {
	if upd.Role != nil && !models.ValidRoles[*upd.Role] {
		return fmt.Errorf("invalid role: %s", *upd.Role)
	}
	if password != nil && *password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		hashed := string(hash)
		upd.PasswordHash = &hashed
	}
	return s.repos.User.Update(ctx, id, upd)
}

// Delete removes an account and its dependent rows
func (s *userService) Delete(ctx context.Context, id string) error {
	if err := s.repos.User.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("user_id", id).Msg("User deleted")
	return nil
}

// Sessions lists a user's recent sessions with device details
func (s *userService) Sessions(ctx context.Context, userID string) ([]models.SessionInfo, error) {
	return s.repos.Session.ListByUser(ctx, userID, 50)
}

// LogoutSession force-terminates a session by id
func (s *userService) LogoutSession(ctx context.Context, sessionID string) error {
	return s.repos.Session.Logout(ctx, sessionID)
}
