package repository

import (
	"context"

	"github.com/finpro/contact-search-api/internal/database"
	"github.com/finpro/contact-search-api/internal/models"
)

// uploadRepo is the concrete implementation of UploadRepository
type uploadRepo struct {
	db *database.DB
}

// NewUploadRepo creates a new upload repository
func NewUploadRepo(db *database.DB) UploadRepository {
	return &uploadRepo{db: db}
}

// Create records a freshly uploaded file and returns its id
func (r *uploadRepo) Create(ctx context.Context, upload *models.Upload) (int64, error) {
	query := `
		INSERT INTO uploads (original_filename, safe_name, serial_number, status, size_bytes, sha256)
		VALUES ($1, $2, $3, 'uploaded', $4, $5)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		upload.OriginalFilename, upload.SafeName, upload.SerialNumber,
		upload.SizeBytes, upload.SHA256,
	).Scan(&id)
	return id, err
}

// List retrieves uploads, newest first
func (r *uploadRepo) List(ctx context.Context, limit int) ([]models.Upload, error) {
	query := `
		SELECT id, original_filename, safe_name, serial_number, status, size_bytes,
			sha256, row_count, processed_rows, error, created_at, updated_at
		FROM uploads
		ORDER BY id DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uploads []models.Upload
	for rows.Next() {
		var u models.Upload
		err := rows.Scan(
			&u.ID, &u.OriginalFilename, &u.SafeName, &u.SerialNumber, &u.Status,
			&u.SizeBytes, &u.SHA256, &u.RowCount, &u.ProcessedRows, &u.Error,
			&u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}

// MarkProcessing transitions an upload into the processing state
func (r *uploadRepo) MarkProcessing(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE uploads SET status = 'processing', processed_rows = 0, updated_at = now() WHERE id = $1`,
		id,
	)
	return err
}

// UpdateProgress records how many rows have been ingested so far
func (r *uploadRepo) UpdateProgress(ctx context.Context, id, processedRows int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE uploads SET processed_rows = $2, updated_at = now() WHERE id = $1`,
		id, processedRows,
	)
	return err
}

// MarkSucceeded finalizes a completed ingestion
func (r *uploadRepo) MarkSucceeded(ctx context.Context, id, rowCount int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE uploads SET status = 'succeeded', row_count = $2, processed_rows = $2, updated_at = now() WHERE id = $1`,
		id, rowCount,
	)
	return err
}

// MarkFailed records an ingestion failure with its reason
func (r *uploadRepo) MarkFailed(ctx context.Context, id int64, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE uploads SET status = 'failed', error = $2, updated_at = now() WHERE id = $1`,
		id, reason,
	)
	return err
}
