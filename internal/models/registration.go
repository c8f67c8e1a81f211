package models

import "time"

// RegistrationStatus represents the review state of a registration request
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "PENDING"
	RegistrationApproved RegistrationStatus = "APPROVED"
	RegistrationRejected RegistrationStatus = "REJECTED"
)

// RegistrationRequest represents a public signup request awaiting admin review.
// Approval requires the email to have been verified first.
type RegistrationRequest struct {
	ID                string             `json:"id" db:"id"`
	Name              string             `json:"name" db:"name"`
	Email             string             `json:"email" db:"email"`
	PhoneNumber       string             `json:"phone_number" db:"phone_number"`
	State             string             `json:"state" db:"state"`
	RequestedSearches int                `json:"requested_searches" db:"requested_searches"`
	Status            RegistrationStatus `json:"status" db:"status"`
	AdminNotes        *string            `json:"admin_notes,omitempty" db:"admin_notes"`
	VerificationToken string             `json:"-" db:"verification_token"`
	EmailVerifiedAt   *time.Time         `json:"email_verified_at,omitempty" db:"email_verified_at"`
	ReviewedAt        *time.Time         `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" db:"updated_at"`
}
