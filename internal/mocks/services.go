package mocks

import (
	"context"

	"github.com/finpro/contact-search-api/internal/models"
	"github.com/finpro/contact-search-api/internal/service"
)

// MockAuthService is a mock implementation of AuthService
type MockAuthService struct {
	LoginFunc          func(ctx context.Context, email, password, fingerprint, ip, userAgent string) (*models.LoginResult, error)
	AuthenticateFunc   func(ctx context.Context, token, fingerprint string) (*models.AuthClaims, error)
	ProfileFunc        func(ctx context.Context, userID string) (*models.Profile, error)
	LogoutCalls        []string
	LogoutErr          error
	LogoutByCredsCalls []string
	LogoutByCredsErr   error
}

// Verify interface compliance
var _ service.AuthService = (*MockAuthService)(nil)

func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

func (m *MockAuthService) Login(ctx context.Context, email, password, fingerprint, ip, userAgent string) (*models.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, fingerprint, ip, userAgent)
	}
	return &models.LoginResult{Token: "test-token"}, nil
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	m.LogoutCalls = append(m.LogoutCalls, token)
	return m.LogoutErr
}

func (m *MockAuthService) Authenticate(ctx context.Context, token, fingerprint string) (*models.AuthClaims, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, token, fingerprint)
	}
	return &models.AuthClaims{UserID: "user-1", Email: "user@example.com", Role: "USER", Token: token, DeviceFingerprint: fingerprint}, nil
}

func (m *MockAuthService) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, userID)
	}
	return &models.Profile{ID: userID, Email: "user@example.com", Role: "USER"}, nil
}

func (m *MockAuthService) LogoutSessionByCredentials(ctx context.Context, sessionID, email, password string) error {
	m.LogoutByCredsCalls = append(m.LogoutByCredsCalls, sessionID)
	return m.LogoutByCredsErr
}

// MockSearchService is a mock implementation of SearchService
type MockSearchService struct {
	SearchFunc     func(ctx context.Context, claims *models.AuthClaims, req *models.SearchRequest, ip, userAgent string) (*models.SearchResponse, error)
	HistoryFunc    func(ctx context.Context, userID string, page, limit int) ([]models.SearchLog, int, error)
	LastSearchFunc func(ctx context.Context, userID, fingerprint string) (*models.SearchSnapshot, error)
}

// Verify interface compliance
var _ service.SearchService = (*MockSearchService)(nil)

func NewMockSearchService() *MockSearchService {
	return &MockSearchService{}
}

func (m *MockSearchService) Search(ctx context.Context, claims *models.AuthClaims, req *models.SearchRequest, ip, userAgent string) (*models.SearchResponse, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, claims, req, ip, userAgent)
	}
	return &models.SearchResponse{Rows: []models.Contact{}, Page: 1, PageSize: 100}, nil
}

func (m *MockSearchService) History(ctx context.Context, userID string, page, limit int) ([]models.SearchLog, int, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, userID, page, limit)
	}
	return []models.SearchLog{}, 0, nil
}

func (m *MockSearchService) LastSearch(ctx context.Context, userID, fingerprint string) (*models.SearchSnapshot, error) {
	if m.LastSearchFunc != nil {
		return m.LastSearchFunc(ctx, userID, fingerprint)
	}
	return nil, nil
}

// MockIngestService is a mock implementation of IngestService
type MockIngestService struct {
	Recorded  []*models.Upload
	RecordErr error
	Started   []int64
	Uploads   []models.Upload
}

// Verify interface compliance
var _ service.IngestService = (*MockIngestService)(nil)

func NewMockIngestService() *MockIngestService {
	return &MockIngestService{}
}

func (m *MockIngestService) Record(ctx context.Context, upload *models.Upload) (int64, error) {
	if m.RecordErr != nil {
		return 0, m.RecordErr
	}
	upload.ID = int64(len(m.Recorded) + 1)
	m.Recorded = append(m.Recorded, upload)
	return upload.ID, nil
}

func (m *MockIngestService) Start(uploadID int64, path string) {
	m.Started = append(m.Started, uploadID)
}

func (m *MockIngestService) List(ctx context.Context, limit int) ([]models.Upload, error) {
	return m.Uploads, nil
}

func (m *MockIngestService) Wait() {}

// MockRegistrationService is a mock implementation of RegistrationService
type MockRegistrationService struct {
	SubmitFunc func(ctx context.Context, req *models.RegistrationRequest) error
	VerifyErr  error
	Requests   []models.RegistrationRequest
	Reviews    map[string]models.RegistrationStatus
	ReviewErr  error
}

// Verify interface compliance
var _ service.RegistrationService = (*MockRegistrationService)(nil)

func NewMockRegistrationService() *MockRegistrationService {
	return &MockRegistrationService{Reviews: make(map[string]models.RegistrationStatus)}
}

func (m *MockRegistrationService) Submit(ctx context.Context, req *models.RegistrationRequest) error {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, req)
	}
	return nil
}

func (m *MockRegistrationService) VerifyEmail(ctx context.Context, token string) error {
	return m.VerifyErr
}

func (m *MockRegistrationService) List(ctx context.Context, page, limit int) ([]models.RegistrationRequest, int, error) {
	return m.Requests, len(m.Requests), nil
}

func (m *MockRegistrationService) Review(ctx context.Context, id string, status models.RegistrationStatus, adminNotes *string) error {
	if m.ReviewErr != nil {
		return m.ReviewErr
	}
	m.Reviews[id] = status
	return nil
}

// MockUserService is a mock implementation of UserService
type MockUserService struct {
	CreateFunc  func(ctx context.Context, user *models.User, password string) (string, error)
	Users       []*models.User
	UpdateErr   error
	Deleted     []string
	SessionList []models.SessionInfo
	LoggedOut   []string
}

// Verify interface compliance
var _ service.UserService = (*MockUserService)(nil)

func NewMockUserService() *MockUserService {
	return &MockUserService{}
}

func (m *MockUserService) Create(ctx context.Context, user *models.User, password string) (string, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user, password)
	}
	return "new-user-id", nil
}

func (m *MockUserService) List(ctx context.Context) ([]*models.User, error) {
	return m.Users, nil
}

func (m *MockUserService) Update(ctx context.Context, id string, upd *models.UserUpdate, password *string) error {
	return m.UpdateErr
}

func (m *MockUserService) Delete(ctx context.Context, id string) error {
	m.Deleted = append(m.Deleted, id)
	return nil
}

func (m *MockUserService) Sessions(ctx context.Context, userID string) ([]models.SessionInfo, error) {
	return m.SessionList, nil
}

func (m *MockUserService) LogoutSession(ctx context.Context, sessionID string) error {
	m.LoggedOut = append(m.LoggedOut, sessionID)
	return nil
}
