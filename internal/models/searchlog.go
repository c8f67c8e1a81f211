package models

import (
	"encoding/json"
	"time"
)

// SearchLog records one executed search for history and audit
type SearchLog struct {
	ID                string          `json:"id" db:"id"`
	UserID            string          `json:"-" db:"user_id"`
	DeviceFingerprint string          `json:"device,omitempty" db:"device_fingerprint"`
	IPAddress         string          `json:"ip,omitempty" db:"ip_address"`
	UserAgent         string          `json:"agent,omitempty" db:"user_agent"`
	Params            json.RawMessage `json:"params" db:"params"`
	NormalizedKey     string          `json:"-" db:"normalized_key"`
	TotalResults      int64           `json:"total" db:"total_results"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

// SearchSnapshot is the cached last search for one user+device pair.
// A device holds at most one snapshot; newer searches replace it.
type SearchSnapshot struct {
	UserID            string          `db:"user_id"`
	DeviceFingerprint string          `db:"device_fingerprint"`
	NormalizedKey     string          `db:"normalized_key"`
	Snapshot          json.RawMessage `db:"snapshot"`
	TotalResults      int64           `db:"total_results"`
	Params            json.RawMessage `db:"params"`
	CreatedAt         time.Time       `db:"created_at"`
}
