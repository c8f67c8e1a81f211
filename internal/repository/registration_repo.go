package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/finpro/contact-search-api/internal/database"
	"github.com/finpro/contact-search-api/internal/models"
)

// registrationRepo is the concrete implementation of RegistrationRepository
type registrationRepo struct {
	db *database.DB
}

// NewRegistrationRepo creates a new registration repository
func NewRegistrationRepo(db *database.DB) RegistrationRepository {
	return &registrationRepo{db: db}
}

// Create inserts a new pending registration request
func (r *registrationRepo) Create(ctx context.Context, req *models.RegistrationRequest) error {
	query := `
		INSERT INTO user_registration_requests (name, email, phone_number, state, requested_searches, status, verification_token)
		VALUES ($1, $2, $3, $4, $5, 'PENDING', $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		req.Name, req.Email, req.PhoneNumber, req.State,
		req.RequestedSearches, req.VerificationToken,
	)
	return err
}

// GetByEmail retrieves a registration request by email
func (r *registrationRepo) GetByEmail(ctx context.Context, email string) (*models.RegistrationRequest, error) {
	query := `
		SELECT id, name, email, phone_number, state, requested_searches, status,
			admin_notes, email_verified_at, reviewed_at, created_at, updated_at
		FROM user_registration_requests
		WHERE email = $1
	`
	var req models.RegistrationRequest
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&req.ID, &req.Name, &req.Email, &req.PhoneNumber, &req.State,
		&req.RequestedSearches, &req.Status, &req.AdminNotes,
		&req.EmailVerifiedAt, &req.ReviewedAt, &req.CreatedAt, &req.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Resubmit resets a previously rejected request back to pending with fresh
// details and a new verification token
func (r *registrationRepo) Resubmit(ctx context.Context, req *models.RegistrationRequest) error {
	query := `
		UPDATE user_registration_requests
		SET name = $1, phone_number = $2, state = $3, requested_searches = $4,
			status = 'PENDING', verification_token = $5, email_verified_at = NULL, updated_at = now()
		WHERE id = $6
	`
	_, err := r.db.ExecContext(ctx, query,
		req.Name, req.PhoneNumber, req.State, req.RequestedSearches,
		req.VerificationToken, req.ID,
	)
	return err
}

// List retrieves registration requests, newest first, with a total count
func (r *registrationRepo) List(ctx context.Context, page, limit int) ([]models.RegistrationRequest, int, error) {
	offset := (page - 1) * limit
	query := `
		SELECT id, name, email, phone_number, state, requested_searches, status,
			admin_notes, email_verified_at, reviewed_at, created_at, updated_at
		FROM user_registration_requests
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []models.RegistrationRequest
	for rows.Next() {
		var req models.RegistrationRequest
		err := rows.Scan(
			&req.ID, &req.Name, &req.Email, &req.PhoneNumber, &req.State,
			&req.RequestedSearches, &req.Status, &req.AdminNotes,
			&req.EmailVerifiedAt, &req.ReviewedAt, &req.CreatedAt, &req.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM user_registration_requests`).Scan(&total); err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

// UpdateStatus records an admin review decision
func (r *registrationRepo) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus, adminNotes *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_registration_requests SET status = $1, admin_notes = $2, reviewed_at = now() WHERE id = $3`,
		status, adminNotes, id,
	)
	return err
}

// GetVerifiedAt returns when the request's email was verified, if ever
func (r *registrationRepo) GetVerifiedAt(ctx context.Context, id string) (*time.Time, error) {
	var verifiedAt *time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT email_verified_at FROM user_registration_requests WHERE id = $1`, id,
	).Scan(&verifiedAt)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	return verifiedAt, err
}

// VerifyEmail marks the request carrying the token as verified; returns
// false when the token matches no request
func (r *registrationRepo) VerifyEmail(ctx context.Context, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_registration_requests SET email_verified_at = now() WHERE verification_token = $1`,
		token,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}
