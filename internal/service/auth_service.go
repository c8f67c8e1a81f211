package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/finpro/contact-search-api/internal/config"
	"github.com/finpro/contact-search-api/internal/models"
	"github.com/finpro/contact-search-api/internal/repository"
)

// authService is the concrete implementation of AuthService
type authService struct {
	repos *repository.Repositories
	cfg   *config.Config
	log   zerolog.Logger
}

// newAuthService creates a new AuthService
func newAuthService(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *authService {
	return &authService{
		repos: repos,
		cfg:   cfg,
		log:   log.With().Str("service", "auth").Logger(),
	}
}

// hashToken returns the sha256 hex of a token; only this hash is persisted
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Login authenticates the user and issues a session. Non-admin users are
// limited to one active device; a conflicting live session on another
// device yields a DeviceConflictError carrying the competing sessions.
func (s *authService) Login(ctx context.Context, email, password, fingerprint, ip, userAgent string) (*models.LoginResult, error) {
	user, err := s.repos.User.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.ExpiresAt != nil && user.ExpiresAt.Before(time.Now()) {
		return nil, ErrAccountExpired
	}

	if fingerprint == "" {
		fingerprint = userAgent
	}

	if user.Role != "ADMIN" {
		others, err := s.repos.Session.ActiveOnOtherDevices(ctx, user.ID, fingerprint)
		if err != nil {
			return nil, err
		}
		if len(others) > 0 {
			return nil, &DeviceConflictError{Sessions: others}
		}
	}

	deviceID, err := s.repos.Session.UpsertDevice(ctx, &models.Device{
		UserID:      user.ID,
		Fingerprint: fingerprint,
		UserAgent:   userAgent,
		IPAddress:   ip,
	})
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.generateJWT(user)
	if err != nil {
		return nil, err
	}

	err = s.repos.Session.Create(ctx, &models.Session{
		UserID:    user.ID,
		TokenHash: hashToken(token),
		DeviceID:  deviceID,
		IPAddress: ip,
		UserAgent: userAgent,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("User logged in")

	result := &models.LoginResult{Token: token, ExpiresAt: expiresAt}
	result.User.ID = user.ID
	result.User.Email = user.Email
	result.User.Role = user.Role
	result.User.Name = user.Name
	return result, nil
}

// generateJWT issues an HS256 token carrying the user identity
func (s *authService) generateJWT(user *models.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.cfg.Auth.TokenTTL)
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"exp":     expiresAt.Unix(),
		"iat":     time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Auth.JWTSecret))
	return token, expiresAt, err
}

// Logout deactivates the session bound to the token
func (s *authService) Logout(ctx context.Context, token string) error {
	return s.repos.Session.LogoutByTokenHash(ctx, hashToken(token))
}

// Authenticate validates the JWT and its backing session, and enforces the
// single-device policy for non-admin users
func (s *authService) Authenticate(ctx context.Context, token, fingerprint string) (*models.AuthClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.Auth.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrSessionInvalid
	}
	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrSessionInvalid
	}
	userID, _ := mapClaims["user_id"].(string)
	email, _ := mapClaims["email"].(string)
	role, _ := mapClaims["role"].(string)

	session, err := s.repos.Session.GetActiveByTokenHash(ctx, hashToken(token))
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserID != userID {
		return nil, ErrSessionInvalid
	}

	if role != "ADMIN" {
		boundFingerprint, err := s.repos.Session.DeviceFingerprint(ctx, session.DeviceID)
		if err == nil && boundFingerprint != "" && fingerprint != boundFingerprint {
			return nil, &DeviceConflictError{}
		}
	}

	// Best-effort activity tracking
	_ = s.repos.Session.TouchDevice(ctx, userID, fingerprint)

	return &models.AuthClaims{
		UserID:            userID,
		Email:             email,
		Role:              role,
		Token:             token,
		DeviceFingerprint: fingerprint,
	}, nil
}

// Profile loads the /auth/me view including today's quota usage
func (s *authService) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	used, err := s.repos.SearchLog.GetDailyUsage(ctx, userID, usageDate())
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to load daily usage")
	}

	return &models.Profile{
		ID:            user.ID,
		Email:         user.Email,
		Role:          user.Role,
		Name:          user.Name,
		SearchesToday: used,
		DailyLimit:    user.DailySearchLimit,
	}, nil
}

// LogoutSessionByCredentials lets an unauthenticated user free their single
// device slot by proving account ownership. Used by the device-conflict
// screen before any JWT exists.
func (s *authService) LogoutSessionByCredentials(ctx context.Context, sessionID, email, password string) error {
	user, err := s.repos.User.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || !user.IsActive {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	owner, err := s.repos.Session.GetOwner(ctx, sessionID)
	if err != nil {
		return err
	}
	if owner == "" {
		return ErrSessionNotFound
	}
	if owner != user.ID {
		return ErrForbidden
	}

	return s.repos.Session.Logout(ctx, sessionID)
}
