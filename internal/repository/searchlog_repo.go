package repository

import (
	"context"
	"database/sql"

	"github.com/finpro/contact-search-api/internal/database"
	"github.com/finpro/contact-search-api/internal/models"
)

// searchLogRepo is the concrete implementation of SearchLogRepository
type searchLogRepo struct {
	db *database.DB
}

// NewSearchLogRepo creates a new search log repository
func NewSearchLogRepo(db *database.DB) SearchLogRepository {
	return &searchLogRepo{db: db}
}

// Insert records one executed search
func (r *searchLogRepo) Insert(ctx context.Context, log *models.SearchLog) error {
	query := `
		INSERT INTO user_search_logs (user_id, device_fingerprint, ip_address, user_agent, params, normalized_key, total_results)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		log.UserID, log.DeviceFingerprint, log.IPAddress, log.UserAgent,
		log.Params, log.NormalizedKey, log.TotalResults,
	)
	return err
}

// ListByUser retrieves a user's search history, newest first, with total count
func (r *searchLogRepo) ListByUser(ctx context.Context, userID string, page, limit int) ([]models.SearchLog, int, error) {
	offset := (page - 1) * limit
	query := `
		SELECT id::text, device_fingerprint, ip_address, user_agent, params, total_results, created_at
		FROM user_search_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var logs []models.SearchLog
	for rows.Next() {
		var l models.SearchLog
		err := rows.Scan(
			&l.ID, &l.DeviceFingerprint, &l.IPAddress, &l.UserAgent,
			&l.Params, &l.TotalResults, &l.CreatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		l.UserID = userID
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM user_search_logs WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

// UpsertSnapshot replaces the per-device last-search cache entry
func (r *searchLogRepo) UpsertSnapshot(ctx context.Context, snap *models.SearchSnapshot) error {
	query := `
		INSERT INTO user_device_search_cache (user_id, device_fingerprint, normalized_key, snapshot, total_results, params, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (user_id, device_fingerprint) DO UPDATE SET
			normalized_key = EXCLUDED.normalized_key,
			snapshot = EXCLUDED.snapshot,
			total_results = EXCLUDED.total_results,
			params = EXCLUDED.params,
			created_at = now()
	`
	_, err := r.db.ExecContext(ctx, query,
		snap.UserID, snap.DeviceFingerprint, snap.NormalizedKey,
		snap.Snapshot, snap.TotalResults, snap.Params,
	)
	return err
}

// GetSnapshot retrieves the cached last search for a user+device pair
func (r *searchLogRepo) GetSnapshot(ctx context.Context, userID, fingerprint string) (*models.SearchSnapshot, error) {
	query := `
		SELECT normalized_key, snapshot, total_results, COALESCE(params, 'null'::jsonb), created_at
		FROM user_device_search_cache
		WHERE user_id = $1 AND device_fingerprint = $2
	`
	return r.scanSnapshot(r.db.QueryRowContext(ctx, query, userID, fingerprint), userID, fingerprint)
}

// GetSnapshotByKey retrieves the cached snapshot only if it was produced by
// the exact same normalized query
func (r *searchLogRepo) GetSnapshotByKey(ctx context.Context, userID, fingerprint, key string) (*models.SearchSnapshot, error) {
	query := `
		SELECT normalized_key, snapshot, total_results, COALESCE(params, 'null'::jsonb), created_at
		FROM user_device_search_cache
		WHERE user_id = $1 AND device_fingerprint = $2 AND normalized_key = $3
	`
	return r.scanSnapshot(r.db.QueryRowContext(ctx, query, userID, fingerprint, key), userID, fingerprint)
}

func (r *searchLogRepo) scanSnapshot(row *sql.Row, userID, fingerprint string) (*models.SearchSnapshot, error) {
	var snap models.SearchSnapshot
	err := row.Scan(&snap.NormalizedKey, &snap.Snapshot, &snap.TotalResults, &snap.Params, &snap.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap.UserID = userID
	snap.DeviceFingerprint = fingerprint
	return &snap, nil
}

// GetDailyUsage returns the search count for a user on the given date
func (r *searchLogRepo) GetDailyUsage(ctx context.Context, userID, date string) (int, error) {
	var used int
	err := r.db.QueryRowContext(ctx,
		`SELECT search_count FROM user_daily_usage WHERE user_id = $1 AND usage_date = $2`,
		userID, date,
	).Scan(&used)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return used, err
}

// IncrementDailyUsage bumps the per-day search counter
func (r *searchLogRepo) IncrementDailyUsage(ctx context.Context, userID, date string) error {
	query := `
		INSERT INTO user_daily_usage (user_id, usage_date, search_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, usage_date) DO UPDATE SET search_count = user_daily_usage.search_count + 1
	`
	_, err := r.db.ExecContext(ctx, query, userID, date)
	return err
}
