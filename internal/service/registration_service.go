package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/finpro/contact-search-api/internal/config"
	"github.com/finpro/contact-search-api/internal/models"
	"github.com/finpro/contact-search-api/internal/repository"
)

// registrationService is the concrete implementation of RegistrationService
type registrationService struct {
	repos  *repository.Repositories
	sender EmailSender
	cfg    *config.Config
	log    zerolog.Logger
}

// newRegistrationService creates a new RegistrationService
func newRegistrationService(repos *repository.Repositories, sender EmailSender, cfg *config.Config, log zerolog.Logger) *registrationService {
	return &registrationService{
		repos:  repos,
		sender: sender,
		cfg:    cfg,
		log:    log.With().Str("service", "registration").Logger(),
	}
}

// Submit files a new registration request, or refiles a rejected one. The
// applicant must verify their email before an admin can approve.
func (s *registrationService) Submit(ctx context.Context, req *models.RegistrationRequest) error {
	existing, err := s.repos.Registration.GetByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if existing != nil && existing.Status == models.RegistrationPending {
		return ErrPendingRequest
	}
	if existing != nil && existing.Status == models.RegistrationApproved {
		return ErrAlreadyApproved
	}

	taken, err := s.repos.User.EmailExists(ctx, req.Email)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}

	sum := sha256.Sum256([]byte(req.Email + time.Now().String()))
	req.VerificationToken = hex.EncodeToString(sum[:])

	if existing != nil {
		req.ID = existing.ID
		err = s.repos.Registration.Resubmit(ctx, req)
	} else {
		err = s.repos.Registration.Create(ctx, req)
	}
	if err != nil {
		return err
	}

	link := s.cfg.Server.PublicBaseURL + "/register/verify?token=" + req.VerificationToken
	if err := s.sender.SendVerification(ctx, req.Email, link); err != nil {
		// The request stands either way; the admin can still reach out
		s.log.Error().Err(err).Str("email", req.Email).Msg("Failed to send verification email")
	}

	s.log.Info().Str("email", req.Email).Msg("Registration request submitted")
	return nil
}

// VerifyEmail consumes a verification token from the emailed link
func (s *registrationService) VerifyEmail(ctx context.Context, token string) error {
	ok, err := s.repos.Registration.VerifyEmail(ctx, token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidToken
	}
	return nil
}

// List returns a page of registration requests with the total count
func (s *registrationService) List(ctx context.Context, page, limit int) ([]models.RegistrationRequest, int, error) {
	return s.repos.Registration.List(ctx, page, limit)
}

// Review records an admin decision. Approval is gated on email verification.
func (s *registrationService) Review(ctx context.Context, id string, status models.RegistrationStatus, adminNotes *string) error {
	if status == models.RegistrationApproved {
		verifiedAt, err := s.repos.Registration.GetVerifiedAt(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if verifiedAt == nil {
			return ErrEmailNotVerified
		}
	}
	return s.repos.Registration.UpdateStatus(ctx, id, status, adminNotes)
}
