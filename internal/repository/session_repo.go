package repository

import (
	"context"
	"database/sql"

	"github.com/finpro/contact-search-api/internal/database"
	"github.com/finpro/contact-search-api/internal/models"
)

// sessionRepo is the concrete implementation of SessionRepository
type sessionRepo struct {
	db *database.DB
}

// NewSessionRepo creates a new session repository
func NewSessionRepo(db *database.DB) SessionRepository {
	return &sessionRepo{db: db}
}

// Create inserts a new session
func (r *sessionRepo) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO user_sessions (user_id, session_token, device_id, ip_address, user_agent, is_active, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, true, now(), $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.UserID, session.TokenHash, session.DeviceID,
		session.IPAddress, session.UserAgent, session.ExpiresAt,
	)
	return err
}

// GetActiveByTokenHash retrieves a live session bound to the hashed token
func (r *sessionRepo) GetActiveByTokenHash(ctx context.Context, hash string) (*models.Session, error) {
	query := `
		SELECT id, user_id, COALESCE(device_id::text, ''), is_active, created_at, expires_at
		FROM user_sessions
		WHERE session_token = $1 AND is_active = true AND logged_out_at IS NULL AND now() < expires_at
	`
	var s models.Session
	err := r.db.QueryRowContext(ctx, query, hash).Scan(
		&s.ID, &s.UserID, &s.DeviceID, &s.IsActive, &s.CreatedAt, &s.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.TokenHash = hash
	return &s, nil
}

const sessionInfoQuery = `
	SELECT us.id::text, us.ip_address, us.user_agent,
		COALESCE(ud.device_fingerprint, ''), COALESCE(ud.last_seen_at, us.created_at),
		us.created_at, us.expires_at, us.is_active, us.logged_out_at
	FROM user_sessions us
	LEFT JOIN user_devices ud ON ud.id = us.device_id
`

func scanSessionInfos(rows *sql.Rows) ([]models.SessionInfo, error) {
	var out []models.SessionInfo
	for rows.Next() {
		var s models.SessionInfo
		err := rows.Scan(
			&s.ID, &s.IPAddress, &s.UserAgent, &s.DeviceFingerprint,
			&s.LastSeenAt, &s.CreatedAt, &s.ExpiresAt, &s.IsActive, &s.LoggedOutAt,
		)
		if err != nil {
			return nil, err
		}
		s.DeviceType = models.DeviceTypeFromUserAgent(s.UserAgent)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ActiveOnOtherDevices lists live sessions of the user bound to a device
// other than the given fingerprint. Used for single-device enforcement.
func (r *sessionRepo) ActiveOnOtherDevices(ctx context.Context, userID, fingerprint string) ([]models.SessionInfo, error) {
	query := sessionInfoQuery + `
		WHERE us.user_id = $1
		  AND us.is_active = true
		  AND us.logged_out_at IS NULL
		  AND now() < us.expires_at
		  AND ud.device_fingerprint IS NOT NULL
		  AND ud.device_fingerprint <> $2
		ORDER BY us.created_at DESC
		LIMIT 10
	`
	rows, err := r.db.QueryContext(ctx, query, userID, fingerprint)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessionInfos(rows)
}

// ListByUser lists the most recent sessions of a user, live or not
func (r *sessionRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.SessionInfo, error) {
	query := sessionInfoQuery + ` WHERE us.user_id = $1 ORDER BY us.created_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessionInfos(rows)
}

// GetOwner returns the user id owning a live session
func (r *sessionRepo) GetOwner(ctx context.Context, sessionID string) (string, error) {
	var owner string
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id FROM user_sessions WHERE id = $1 AND is_active = true AND logged_out_at IS NULL`,
		sessionID,
	).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return owner, err
}

// Logout deactivates a session by id
func (r *sessionRepo) Logout(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET is_active = false, logged_out_at = now() WHERE id = $1`,
		sessionID,
	)
	return err
}

// LogoutByTokenHash deactivates the session bound to the hashed token
func (r *sessionRepo) LogoutByTokenHash(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET is_active = false, logged_out_at = now() WHERE session_token = $1`,
		hash,
	)
	return err
}

// UpsertDevice registers a device sighting, returning the device id
func (r *sessionRepo) UpsertDevice(ctx context.Context, device *models.Device) (string, error) {
	query := `
		INSERT INTO user_devices (user_id, device_fingerprint, user_agent, ip_address, is_active, last_seen_at)
		VALUES ($1, $2, $3, $4, true, now())
		ON CONFLICT (user_id, device_fingerprint) DO UPDATE SET
			user_agent = EXCLUDED.user_agent,
			ip_address = EXCLUDED.ip_address,
			is_active = true,
			last_seen_at = now()
		RETURNING id
	`
	var id string
	err := r.db.QueryRowContext(ctx, query,
		device.UserID, device.Fingerprint, device.UserAgent, device.IPAddress,
	).Scan(&id)
	return id, err
}

// DeviceFingerprint returns the fingerprint of a device, or "" if unknown
func (r *sessionRepo) DeviceFingerprint(ctx context.Context, deviceID string) (string, error) {
	if deviceID == "" {
		return "", nil
	}
	var fp string
	err := r.db.QueryRowContext(ctx,
		`SELECT device_fingerprint FROM user_devices WHERE id = $1`, deviceID,
	).Scan(&fp)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return fp, err
}

// TouchDevice updates last_seen_at for activity tracking
func (r *sessionRepo) TouchDevice(ctx context.Context, userID, fingerprint string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_devices SET last_seen_at = now() WHERE user_id = $1 AND device_fingerprint = $2`,
		userID, fingerprint,
	)
	return err
}
