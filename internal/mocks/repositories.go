package mocks

import (
	"context"
	"time"

	"github.com/finpro/contact-search-api/internal/models"
	"github.com/finpro/contact-search-api/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	Users       map[string]*models.User
	EmailToUser map[string]*models.User
	CreateErr   error
	Updates     []models.UserUpdate
	Deleted     []string
}

// Verify interface compliance
var _ repository.UserRepository = (*MockUserRepository)(nil)

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users:       make(map[string]*models.User),
		EmailToUser: make(map[string]*models.User),
	}
}

func (m *MockUserRepository) Add(user *models.User) {
	m.Users[user.ID] = user
	m.EmailToUser[user.Email] = user
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (string, error) {
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	m.Add(user)
	return user.ID, nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.Users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := m.EmailToUser[email]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (m *MockUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	_, exists := m.EmailToUser[email]
	return exists, nil
}

func (m *MockUserRepository) List(ctx context.Context, limit int) ([]*models.User, error) {
	users := make([]*models.User, 0, len(m.Users))
	for _, u := range m.Users {
		users = append(users, u)
	}
	return users, nil
}

func (m *MockUserRepository) Update(ctx context.Context, id string, upd *models.UserUpdate) error {
	m.Updates = append(m.Updates, *upd)
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	m.Deleted = append(m.Deleted, id)
	delete(m.Users, id)
	return nil
}

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	Sessions      map[string]*models.Session // keyed by token hash
	OtherSessions []models.SessionInfo
	Owners        map[string]string // session id -> user id
	LoggedOut     []string
	Devices       map[string]string // device id -> fingerprint
	Touched       int
}

// Verify interface compliance
var _ repository.SessionRepository = (*MockSessionRepository)(nil)

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		Sessions: make(map[string]*models.Session),
		Owners:   make(map[string]string),
		Devices:  make(map[string]string),
	}
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = "session-1"
	}
	m.Sessions[session.TokenHash] = session
	m.Owners[session.ID] = session.UserID
	return nil
}

func (m *MockSessionRepository) GetActiveByTokenHash(ctx context.Context, hash string) (*models.Session, error) {
	s, ok := m.Sessions[hash]
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (m *MockSessionRepository) ActiveOnOtherDevices(ctx context.Context, userID, fingerprint string) ([]models.SessionInfo, error) {
	return m.OtherSessions, nil
}

func (m *MockSessionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.SessionInfo, error) {
	return m.OtherSessions, nil
}

func (m *MockSessionRepository) GetOwner(ctx context.Context, sessionID string) (string, error) {
	owner, ok := m.Owners[sessionID]
	if !ok {
		return "", nil
	}
	return owner, nil
}

func (m *MockSessionRepository) Logout(ctx context.Context, sessionID string) error {
	m.LoggedOut = append(m.LoggedOut, sessionID)
	return nil
}

func (m *MockSessionRepository) LogoutByTokenHash(ctx context.Context, hash string) error {
	delete(m.Sessions, hash)
	return nil
}

func (m *MockSessionRepository) UpsertDevice(ctx context.Context, device *models.Device) (string, error) {
	id := "device-" + device.Fingerprint
	m.Devices[id] = device.Fingerprint
	return id, nil
}

func (m *MockSessionRepository) DeviceFingerprint(ctx context.Context, deviceID string) (string, error) {
	return m.Devices[deviceID], nil
}

func (m *MockSessionRepository) TouchDevice(ctx context.Context, userID, fingerprint string) error {
	m.Touched++
	return nil
}

// MockRegistrationRepository is a mock implementation of RegistrationRepository
type MockRegistrationRepository struct {
	ByEmail    map[string]*models.RegistrationRequest
	Created    []*models.RegistrationRequest
	Resubmits  []*models.RegistrationRequest
	Reviews    map[string]models.RegistrationStatus
	VerifiedAt map[string]*time.Time
	Tokens     map[string]bool
}

// Verify interface compliance
var _ repository.RegistrationRepository = (*MockRegistrationRepository)(nil)

func NewMockRegistrationRepository() *MockRegistrationRepository {
	return &MockRegistrationRepository{
		ByEmail:    make(map[string]*models.RegistrationRequest),
		Reviews:    make(map[string]models.RegistrationStatus),
		VerifiedAt: make(map[string]*time.Time),
		Tokens:     make(map[string]bool),
	}
}

func (m *MockRegistrationRepository) Create(ctx context.Context, req *models.RegistrationRequest) error {
	if req.ID == "" {
		req.ID = "reg-" + req.Email
	}
	req.Status = models.RegistrationPending
	m.ByEmail[req.Email] = req
	m.Created = append(m.Created, req)
	return nil
}

func (m *MockRegistrationRepository) GetByEmail(ctx context.Context, email string) (*models.RegistrationRequest, error) {
	r, ok := m.ByEmail[email]
	if !ok {
		return nil, nil
	}
	return r, nil
}

func (m *MockRegistrationRepository) Resubmit(ctx context.Context, req *models.RegistrationRequest) error {
	req.Status = models.RegistrationPending
	m.ByEmail[req.Email] = req
	m.Resubmits = append(m.Resubmits, req)
	return nil
}

func (m *MockRegistrationRepository) List(ctx context.Context, page, limit int) ([]models.RegistrationRequest, int, error) {
	out := make([]models.RegistrationRequest, 0, len(m.ByEmail))
	for _, r := range m.ByEmail {
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (m *MockRegistrationRepository) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus, adminNotes *string) error {
	m.Reviews[id] = status
	return nil
}

func (m *MockRegistrationRepository) GetVerifiedAt(ctx context.Context, id string) (*time.Time, error) {
	t, ok := m.VerifiedAt[id]
	if !ok {
		return nil, nil
	}
	return t, nil
}

func (m *MockRegistrationRepository) VerifyEmail(ctx context.Context, token string) (bool, error) {
	return m.Tokens[token], nil
}

// MockUploadRepository is a mock implementation of UploadRepository
type MockUploadRepository struct {
	Uploads    []*models.Upload
	Processing []int64
	Progress   map[int64]int64
	Succeeded  map[int64]int64
	Failed     map[int64]string
}

// Verify interface compliance
var _ repository.UploadRepository = (*MockUploadRepository)(nil)

func NewMockUploadRepository() *MockUploadRepository {
	return &MockUploadRepository{
		Progress:  make(map[int64]int64),
		Succeeded: make(map[int64]int64),
		Failed:    make(map[int64]string),
	}
}

func (m *MockUploadRepository) Create(ctx context.Context, upload *models.Upload) (int64, error) {
	upload.ID = int64(len(m.Uploads) + 1)
	m.Uploads = append(m.Uploads, upload)
	return upload.ID, nil
}

func (m *MockUploadRepository) List(ctx context.Context, limit int) ([]models.Upload, error) {
	out := make([]models.Upload, 0, len(m.Uploads))
	for _, u := range m.Uploads {
		out = append(out, *u)
	}
	return out, nil
}

func (m *MockUploadRepository) MarkProcessing(ctx context.Context, id int64) error {
	m.Processing = append(m.Processing, id)
	return nil
}

func (m *MockUploadRepository) UpdateProgress(ctx context.Context, id, processedRows int64) error {
	m.Progress[id] = processedRows
	return nil
}

func (m *MockUploadRepository) MarkSucceeded(ctx context.Context, id, rowCount int64) error {
	m.Succeeded[id] = rowCount
	return nil
}

func (m *MockUploadRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	m.Failed[id] = reason
	return nil
}

// MockSearchLogRepository is a mock implementation of SearchLogRepository
type MockSearchLogRepository struct {
	Logs       []*models.SearchLog
	Snapshots  map[string]*models.SearchSnapshot // keyed by user|fingerprint
	SnapByKey  map[string]*models.SearchSnapshot // keyed by user|fingerprint|key
	Usage      map[string]int                    // keyed by user|date
	Increments int
}

// Verify interface compliance
var _ repository.SearchLogRepository = (*MockSearchLogRepository)(nil)

func NewMockSearchLogRepository() *MockSearchLogRepository {
	return &MockSearchLogRepository{
		Snapshots: make(map[string]*models.SearchSnapshot),
		SnapByKey: make(map[string]*models.SearchSnapshot),
		Usage:     make(map[string]int),
	}
}

func (m *MockSearchLogRepository) Insert(ctx context.Context, log *models.SearchLog) error {
	m.Logs = append(m.Logs, log)
	return nil
}

func (m *MockSearchLogRepository) ListByUser(ctx context.Context, userID string, page, limit int) ([]models.SearchLog, int, error) {
	out := make([]models.SearchLog, 0, len(m.Logs))
	for _, l := range m.Logs {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	return out, len(out), nil
}

func (m *MockSearchLogRepository) UpsertSnapshot(ctx context.Context, snap *models.SearchSnapshot) error {
	m.Snapshots[snap.UserID+"|"+snap.DeviceFingerprint] = snap
	m.SnapByKey[snap.UserID+"|"+snap.DeviceFingerprint+"|"+snap.NormalizedKey] = snap
	return nil
}

func (m *MockSearchLogRepository) GetSnapshot(ctx context.Context, userID, fingerprint string) (*models.SearchSnapshot, error) {
	return m.Snapshots[userID+"|"+fingerprint], nil
}

func (m *MockSearchLogRepository) GetSnapshotByKey(ctx context.Context, userID, fingerprint, key string) (*models.SearchSnapshot, error) {
	return m.SnapByKey[userID+"|"+fingerprint+"|"+key], nil
}

func (m *MockSearchLogRepository) GetDailyUsage(ctx context.Context, userID, date string) (int, error) {
	return m.Usage[userID+"|"+date], nil
}

func (m *MockSearchLogRepository) IncrementDailyUsage(ctx context.Context, userID, date string) error {
	m.Usage[userID+"|"+date]++
	m.Increments++
	return nil
}

// MockContactRepository is a mock implementation of ContactRepository
type MockContactRepository struct {
	SearchFunc  func(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error)
	Inserted    []models.Contact
	InsertCalls int
	InsertErr   error
	RowCount    uint64
}

// Verify interface compliance
var _ repository.ContactRepository = (*MockContactRepository)(nil)

func NewMockContactRepository() *MockContactRepository {
	return &MockContactRepository{}
}

func (m *MockContactRepository) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, req)
	}
	return &models.SearchResponse{Rows: []models.Contact{}, Page: 1, PageSize: 100}, nil
}

func (m *MockContactRepository) BatchInsert(ctx context.Context, contacts []models.Contact, fileID int64) error {
	m.InsertCalls++
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.Inserted = append(m.Inserted, contacts...)
	return nil
}

func (m *MockContactRepository) Count(ctx context.Context) (uint64, error) {
	return m.RowCount, nil
}

// NewRepositories bundles fresh mocks into a repository set for service tests
func NewRepositories() (*repository.Repositories, *MockUserRepository, *MockSessionRepository, *MockSearchLogRepository, *MockContactRepository) {
	users := NewMockUserRepository()
	sessions := NewMockSessionRepository()
	logs := NewMockSearchLogRepository()
	contacts := NewMockContactRepository()
	repos := &repository.Repositories{
		User:         users,
		Session:      sessions,
		Registration: NewMockRegistrationRepository(),
		Upload:       NewMockUploadRepository(),
		SearchLog:    logs,
		Contact:      contacts,
	}
	return repos, users, sessions, logs, contacts
}
