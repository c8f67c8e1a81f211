package models

import "time"

// UploadStatus represents the lifecycle of a CSV upload
type UploadStatus string

const (
	UploadStatusUploaded   UploadStatus = "uploaded"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusSucceeded  UploadStatus = "succeeded"
	UploadStatusFailed     UploadStatus = "failed"
)

// Upload tracks one CSV file from upload through ingestion into the
// contacts dataset
type Upload struct {
	ID               int64        `json:"id" db:"id"`
	OriginalFilename string       `json:"original_filename" db:"original_filename"`
	SafeName         string       `json:"safe_name" db:"safe_name"`
	SerialNumber     *int64       `json:"serial_number,omitempty" db:"serial_number"`
	Status           UploadStatus `json:"status" db:"status"`
	SizeBytes        int64        `json:"size_bytes" db:"size_bytes"`
	SHA256           string       `json:"sha256" db:"sha256"`
	RowCount         int64        `json:"row_count" db:"row_count"`
	ProcessedRows    int64        `json:"processed_rows" db:"processed_rows"`
	Error            *string      `json:"error,omitempty" db:"error"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}
