package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/finpro/contact-search-api/internal/config"
	"github.com/finpro/contact-search-api/internal/localstore"
	"github.com/finpro/contact-search-api/internal/models"
	"github.com/finpro/contact-search-api/internal/repository"
)

// AuthService defines the interface for authentication and sessions
type AuthService interface {
	Login(ctx context.Context, email, password, fingerprint, ip, userAgent string) (*models.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token, fingerprint string) (*models.AuthClaims, error)
	Profile(ctx context.Context, userID string) (*models.Profile, error)
	LogoutSessionByCredentials(ctx context.Context, sessionID, email, password string) error
}

// SearchService defines the interface for contact search, history, and the
// per-device last-search cache
type SearchService interface {
	Search(ctx context.Context, claims *models.AuthClaims, req *models.SearchRequest, ip, userAgent string) (*models.SearchResponse, error)
	History(ctx context.Context, userID string, page, limit int) ([]models.SearchLog, int, error)
	LastSearch(ctx context.Context, userID, fingerprint string) (*models.SearchSnapshot, error)
}

// IngestService defines the interface for CSV ingestion into the contacts
// dataset
type IngestService interface {
	Record(ctx context.Context, upload *models.Upload) (int64, error)
	Start(uploadID int64, path string)
	List(ctx context.Context, limit int) ([]models.Upload, error)
	Wait()
}

// RegistrationService defines the interface for the signup workflow
type RegistrationService interface {
	Submit(ctx context.Context, req *models.RegistrationRequest) error
	VerifyEmail(ctx context.Context, token string) error
	List(ctx context.Context, page, limit int) ([]models.RegistrationRequest, int, error)
	Review(ctx context.Context, id string, status models.RegistrationStatus, adminNotes *string) error
}

// UserService defines the interface for admin user management
type UserService interface {
	Create(ctx context.Context, user *models.User, password string) (string, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, id string, upd *models.UserUpdate, password *string) error
	Delete(ctx context.Context, id string) error
	Sessions(ctx context.Context, userID string) ([]models.SessionInfo, error)
	LogoutSession(ctx context.Context, sessionID string) error
}

// Services holds all service interfaces
type Services struct {
	Auth         AuthService
	Search       SearchService
	Ingest       IngestService
	Registration RegistrationService
	User         UserService
}

// NewServices creates all services. The local store may be nil when the
// fallback engine is disabled.
func NewServices(repos *repository.Repositories, local *localstore.Store, cfg *config.Config, log zerolog.Logger) *Services {
	return &Services{
		Auth:         newAuthService(repos, cfg, log),
		Search:       newSearchService(repos, local, log),
		Ingest:       newIngestService(repos, cfg, log),
		Registration: newRegistrationService(repos, newResendSender(&cfg.Email), cfg, log),
		User:         newUserService(repos, cfg, log),
	}
}
