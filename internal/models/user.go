package models

import (
	"strings"
	"time"
)

// User represents an account in the system
type User struct {
	ID               string     `json:"id" db:"id"`
	Email            string     `json:"email" db:"email"`
	PasswordHash     string     `json:"-" db:"password_hash"`
	Role             string     `json:"role" db:"role"`
	Name             string     `json:"name" db:"name"`
	PhoneNumber      string     `json:"phone_number,omitempty" db:"phone_number"`
	IsActive         bool       `json:"is_active" db:"is_active"`
	DailySearchLimit int        `json:"dailySearchLimit" db:"daily_search_limit"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

// ValidRoles defines allowed user roles
var ValidRoles = map[string]bool{
	"ADMIN": true,
	"USER":  true,
}

// UserUpdate carries the mutable user attributes for a partial update;
// nil fields are left untouched
type UserUpdate struct {
	Name             *string
	Role             *string
	DailySearchLimit *int
	IsActive         *bool
	PasswordHash     *string
}

// Session represents an authenticated session. TokenHash stores the sha256
// of the JWT; the raw token is never persisted.
type Session struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"-" db:"user_id"`
	TokenHash   string     `json:"-" db:"session_token"`
	DeviceID    string     `json:"-" db:"device_id"`
	IPAddress   string     `json:"ip" db:"ip_address"`
	UserAgent   string     `json:"user_agent" db:"user_agent"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at" db:"expires_at"`
	LoggedOutAt *time.Time `json:"logged_out_at,omitempty" db:"logged_out_at"`
}

// Device represents a browser/device a user has signed in from
type Device struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"-" db:"user_id"`
	Fingerprint string    `json:"device_fingerprint" db:"device_fingerprint"`
	UserAgent   string    `json:"user_agent" db:"user_agent"`
	IPAddress   string    `json:"ip" db:"ip_address"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	LastSeenAt  time.Time `json:"last_seen_at" db:"last_seen_at"`
}

// SessionInfo is the admin/conflict view of a session joined with its device
type SessionInfo struct {
	Session
	DeviceFingerprint string    `json:"device_fingerprint"`
	DeviceType        string    `json:"device_type"`
	LastSeenAt        time.Time `json:"last_seen_at"`
}

// DeviceTypeFromUserAgent classifies a user agent into a coarse device label
// for the session and device-conflict views
func DeviceTypeFromUserAgent(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"):
		return "iOS"
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "macintosh"), strings.Contains(ua, "mac os"):
		return "macOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	case strings.Contains(ua, "mobile"):
		return "Mobile"
	default:
		return "Web Browser"
	}
}

// LoginResult is returned on successful authentication
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
		Name  string `json:"name"`
	} `json:"user"`
}

// Profile is the /auth/me view of the current user
type Profile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	Name          string `json:"name"`
	SearchesToday int    `json:"searches_today"`
	DailyLimit    int    `json:"daily_limit"`
}

// AuthClaims carries the identity extracted from a validated token
type AuthClaims struct {
	UserID            string
	Email             string
	Role              string
	Token             string
	DeviceFingerprint string
}
