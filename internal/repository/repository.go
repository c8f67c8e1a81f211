package repository

import (
	"context"
	"time"

	"github.com/finpro/contact-search-api/internal/clickhouse"
	"github.com/finpro/contact-search-api/internal/database"
	"github.com/finpro/contact-search-api/internal/models"
)

// UserRepository defines the interface for user account operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (string, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, limit int) ([]*models.User, error)
	Update(ctx context.Context, id string, upd *models.UserUpdate) error
	Delete(ctx context.Context, id string) error
}

// SessionRepository defines the interface for session and device operations
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetActiveByTokenHash(ctx context.Context, hash string) (*models.Session, error)
	ActiveOnOtherDevices(ctx context.Context, userID, fingerprint string) ([]models.SessionInfo, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.SessionInfo, error)
	GetOwner(ctx context.Context, sessionID string) (string, error)
	Logout(ctx context.Context, sessionID string) error
	LogoutByTokenHash(ctx context.Context, hash string) error
	UpsertDevice(ctx context.Context, device *models.Device) (string, error)
	DeviceFingerprint(ctx context.Context, deviceID string) (string, error)
	TouchDevice(ctx context.Context, userID, fingerprint string) error
}

// RegistrationRepository defines the interface for registration requests
type RegistrationRepository interface {
	Create(ctx context.Context, req *models.RegistrationRequest) error
	GetByEmail(ctx context.Context, email string) (*models.RegistrationRequest, error)
	Resubmit(ctx context.Context, req *models.RegistrationRequest) error
	List(ctx context.Context, page, limit int) ([]models.RegistrationRequest, int, error)
	UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus, adminNotes *string) error
	GetVerifiedAt(ctx context.Context, id string) (*time.Time, error)
	VerifyEmail(ctx context.Context, token string) (bool, error)
}

// UploadRepository defines the interface for upload tracking
type UploadRepository interface {
	Create(ctx context.Context, upload *models.Upload) (int64, error)
	List(ctx context.Context, limit int) ([]models.Upload, error)
	MarkProcessing(ctx context.Context, id int64) error
	UpdateProgress(ctx context.Context, id, processedRows int64) error
	MarkSucceeded(ctx context.Context, id, rowCount int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

// SearchLogRepository defines the interface for search history, per-device
// snapshots, and daily usage counters
type SearchLogRepository interface {
	Insert(ctx context.Context, log *models.SearchLog) error
	ListByUser(ctx context.Context, userID string, page, limit int) ([]models.SearchLog, int, error)
	UpsertSnapshot(ctx context.Context, snap *models.SearchSnapshot) error
	GetSnapshot(ctx context.Context, userID, fingerprint string) (*models.SearchSnapshot, error)
	GetSnapshotByKey(ctx context.Context, userID, fingerprint, key string) (*models.SearchSnapshot, error)
	GetDailyUsage(ctx context.Context, userID, date string) (int, error)
	IncrementDailyUsage(ctx context.Context, userID, date string) error
}

// ContactRepository defines the interface for the authoritative contact
// dataset in ClickHouse
type ContactRepository interface {
	Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error)
	BatchInsert(ctx context.Context, contacts []models.Contact, fileID int64) error
	Count(ctx context.Context) (uint64, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	User         UserRepository
	Session      SessionRepository
	Registration RegistrationRepository
	Upload       UploadRepository
	SearchLog    SearchLogRepository
	Contact      ContactRepository
}

// New creates all repositories with the given connections
func New(db *database.DB, ck *clickhouse.Conn) *Repositories {
	return &Repositories{
		User:         NewUserRepo(db),
		Session:      NewSessionRepo(db),
		Registration: NewRegistrationRepo(db),
		Upload:       NewUploadRepo(db),
		SearchLog:    NewSearchLogRepo(db),
		Contact:      NewContactRepo(ck),
	}
}
