package service

import (
	"errors"

	"github.com/finpro/contact-search-api/internal/models"
)

// Sentinel errors shared across services so handlers can map them to
// HTTP status codes without string matching
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExpired     = errors.New("account expired")
	ErrSessionInvalid     = errors.New("invalid or expired session")
	ErrSessionNotFound    = errors.New("session not found")
	ErrForbidden          = errors.New("forbidden")
	ErrQuotaExceeded      = errors.New("daily search limit reached")
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrPendingRequest     = errors.New("registration request is already under review")
	ErrAlreadyApproved    = errors.New("registration request already approved")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidToken       = errors.New("invalid token")
)

// DeviceConflictError signals that another device holds the user's single
// active session slot. The competing sessions are attached so the UI can
// offer a targeted logout.
type DeviceConflictError struct {
	Sessions []models.SessionInfo
}

func (e *DeviceConflictError) Error() string {
	return "device limit reached; logout other device first"
}
