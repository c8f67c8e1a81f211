package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/finpro/contact-search-api/internal/api"
	"github.com/finpro/contact-search-api/internal/config"
	"github.com/finpro/contact-search-api/internal/mocks"
	"github.com/finpro/contact-search-api/internal/models"
	"github.com/finpro/contact-search-api/internal/service"
)

type testMocks struct {
	auth         *mocks.MockAuthService
	search       *mocks.MockSearchService
	ingest       *mocks.MockIngestService
	registration *mocks.MockRegistrationService
	user         *mocks.MockUserService
}

func setupTestRouter(t *testing.T) (*gin.Engine, *testMocks) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := &testMocks{
		auth:         mocks.NewMockAuthService(),
		search:       mocks.NewMockSearchService(),
		ingest:       mocks.NewMockIngestService(),
		registration: mocks.NewMockRegistrationService(),
		user:         mocks.NewMockUserService(),
	}

	services := &service.Services{
		Auth:         m.auth,
		Search:       m.search,
		Ingest:       m.ingest,
		Registration: m.registration,
		User:         m.user,
	}

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "8080", CORSOrigins: "http://localhost:5173"},
		Ingest: config.IngestConfig{
			MaxUploadSize: 10 * 1024 * 1024,
			UploadDir:     t.TempDir(),
		},
	}

	return api.NewRouter(services, cfg, zerolog.Nop()), m
}

func asAdmin(m *testMocks) {
	m.auth.AuthenticateFunc = func(ctx context.Context, token, fingerprint string) (*models.AuthClaims, error) {
		return &models.AuthClaims{UserID: "admin-1", Role: "ADMIN", Token: token, DeviceFingerprint: fingerprint}, nil
	}
}

func doJSON(router *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(router, "GET", "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "contact-search-api" {
		t.Errorf("Expected service name, got %v", response["service"])
	}
}

func TestLoginEndpoint(t *testing.T) {
	router, m := setupTestRouter(t)
	m.auth.LoginFunc = func(ctx context.Context, email, password, fingerprint, ip, userAgent string) (*models.LoginResult, error) {
		if email != "alice@example.com" || password != "secret123" {
			return nil, service.ErrInvalidCredentials
		}
		return &models.LoginResult{Token: "issued-token"}, nil
	}

	w := doJSON(router, "POST", "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "secret123",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.LoginResult
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Token != "issued-token" {
		t.Errorf("Token = %q, want issued-token", resp.Token)
	}

	w = doJSON(router, "POST", "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestLoginDeviceConflict(t *testing.T) {
	router, m := setupTestRouter(t)
	m.auth.LoginFunc = func(ctx context.Context, email, password, fingerprint, ip, userAgent string) (*models.LoginResult, error) {
		return nil, &service.DeviceConflictError{Sessions: []models.SessionInfo{
			{DeviceFingerprint: "other-device", DeviceType: "Android"},
		}}
	}

	w := doJSON(router, "POST", "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "secret123",
	}, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d", w.Code)
	}
	var resp struct {
		Sessions []models.SessionInfo `json:"sessions"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Sessions) != 1 || resp.Sessions[0].DeviceFingerprint != "other-device" {
		t.Errorf("conflict body should list competing sessions: %s", w.Body.String())
	}
}

func TestLoginValidation(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(router, "POST", "/api/auth/login", map[string]string{"email": "alice@example.com"}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing password, got %d", w.Code)
	}
}

func TestLogoutSessionByCredentials(t *testing.T) {
	router, m := setupTestRouter(t)

	w := doJSON(router, "POST", "/api/auth/sessions/session-9/logout-by-credentials", map[string]string{
		"email":    "alice@example.com",
		"password": "secret123",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(m.auth.LogoutByCredsCalls) != 1 || m.auth.LogoutByCredsCalls[0] != "session-9" {
		t.Errorf("session id not taken from path: %v", m.auth.LogoutByCredsCalls)
	}

	w = doJSON(router, "POST", "/api/auth/sessions/session-9/logout-by-credentials", map[string]string{
		"email": "alice@example.com",
	}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing password, got %d", w.Code)
	}

	m.auth.LogoutByCredsErr = service.ErrForbidden
	w = doJSON(router, "POST", "/api/auth/sessions/session-10/logout-by-credentials", map[string]string{
		"email":    "alice@example.com",
		"password": "secret123",
	}, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for foreign session, got %d", w.Code)
	}
}

func TestSearchRequiresAuth(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(router, "POST", "/api/search", map[string]string{"name": "alice"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without token, got %d", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router, m := setupTestRouter(t)
	m.search.SearchFunc = func(ctx context.Context, claims *models.AuthClaims, req *models.SearchRequest, ip, userAgent string) (*models.SearchResponse, error) {
		if claims.UserID != "user-1" {
			t.Errorf("claims.UserID = %q, want user-1", claims.UserID)
		}
		if req.Name != "alice" || req.Logic != "OR" {
			t.Errorf("request not forwarded: %+v", req)
		}
		return &models.SearchResponse{
			Rows:  []models.Contact{{Name: "Alice Johnson", Email: "alice@acme.com"}},
			Total: 1, Page: 1, PageSize: 100,
		}, nil
	}

	w := doJSON(router, "POST", "/api/search", map[string]interface{}{
		"name":  "alice",
		"logic": "OR",
	}, "valid-token")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.SearchResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || len(resp.Rows) != 1 || resp.Rows[0].Name != "Alice Johnson" {
		t.Errorf("unexpected response: %s", w.Body.String())
	}
}

func TestSearchQuotaExceeded(t *testing.T) {
	router, m := setupTestRouter(t)
	m.search.SearchFunc = func(ctx context.Context, claims *models.AuthClaims, req *models.SearchRequest, ip, userAgent string) (*models.SearchResponse, error) {
		return nil, service.ErrQuotaExceeded
	}

	w := doJSON(router, "POST", "/api/search", map[string]string{"name": "alice"}, "valid-token")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", w.Code)
	}
}

func TestRegisterEndpoint(t *testing.T) {
	router, m := setupTestRouter(t)

	w := doJSON(router, "POST", "/api/register", map[string]interface{}{
		"name":  "Alice",
		"email": "alice@example.com",
	}, "")
	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	m.registration.SubmitFunc = func(ctx context.Context, req *models.RegistrationRequest) error {
		return service.ErrPendingRequest
	}
	w = doJSON(router, "POST", "/api/register", map[string]interface{}{
		"name":  "Alice",
		"email": "alice@example.com",
	}, "")
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for pending duplicate, got %d", w.Code)
	}

	w = doJSON(router, "POST", "/api/register", map[string]interface{}{"name": "Alice", "email": "not-an-email"}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid email, got %d", w.Code)
	}
}

func TestVerifyEmailEndpoint(t *testing.T) {
	router, m := setupTestRouter(t)

	w := doJSON(router, "GET", "/api/register/verify?token=abc", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	m.registration.VerifyErr = service.ErrInvalidToken
	w = doJSON(router, "GET", "/api/register/verify?token=bad", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad token, got %d", w.Code)
	}

	w = doJSON(router, "GET", "/api/register/verify", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing token, got %d", w.Code)
	}
}

func TestAdminRequiresAdminRole(t *testing.T) {
	router, _ := setupTestRouter(t)

	// The default mock authenticates as a plain USER
	w := doJSON(router, "GET", "/api/admin/users", nil, "user-token")
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for non-admin, got %d", w.Code)
	}
}

func TestAdminCreateUser(t *testing.T) {
	router, m := setupTestRouter(t)
	asAdmin(m)

	w := doJSON(router, "POST", "/api/admin/users", map[string]interface{}{
		"email":    "bob@example.com",
		"password": "secret123",
		"name":     "Bob",
		"role":     "USER",
	}, "admin-token")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	// Short password fails binding
	w = doJSON(router, "POST", "/api/admin/users", map[string]interface{}{
		"email":    "bob@example.com",
		"password": "short",
		"name":     "Bob",
	}, "admin-token")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for short password, got %d", w.Code)
	}
}

func TestAdminReviewRegistration(t *testing.T) {
	router, m := setupTestRouter(t)
	asAdmin(m)

	w := doJSON(router, "PUT", "/api/admin/registration-requests/reg-1", map[string]string{
		"status": "approved",
	}, "admin-token")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if m.registration.Reviews["reg-1"] != models.RegistrationApproved {
		t.Errorf("review not forwarded: %v", m.registration.Reviews)
	}

	w = doJSON(router, "PUT", "/api/admin/registration-requests/reg-1", map[string]string{
		"status": "MAYBE",
	}, "admin-token")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid status, got %d", w.Code)
	}

	m.registration.ReviewErr = service.ErrEmailNotVerified
	w = doJSON(router, "PUT", "/api/admin/registration-requests/reg-2", map[string]string{
		"status": "APPROVED",
	}, "admin-token")
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for unverified email, got %d", w.Code)
	}
}

func TestAdminUpload(t *testing.T) {
	router, m := setupTestRouter(t)
	asAdmin(m)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "contacts (7).csv")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	fw.Write([]byte("name,email\nAlice,alice@acme.com\n"))
	mw.Close()

	req := httptest.NewRequest("POST", "/api/admin/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer admin-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	var upload models.Upload
	json.Unmarshal(w.Body.Bytes(), &upload)
	if upload.OriginalFilename != "contacts (7).csv" {
		t.Errorf("OriginalFilename = %q", upload.OriginalFilename)
	}
	if upload.SerialNumber == nil || *upload.SerialNumber != 7 {
		t.Errorf("SerialNumber = %v, want 7", upload.SerialNumber)
	}
	if upload.SHA256 == "" || upload.SizeBytes == 0 {
		t.Errorf("upload not hashed: %+v", upload)
	}
	if len(m.ingest.Started) != 1 {
		t.Errorf("ingestion not started: %v", m.ingest.Started)
	}
}

func TestAdminUploadRejectsNonCSV(t *testing.T) {
	router, m := setupTestRouter(t)
	asAdmin(m)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "contacts.xlsx")
	fw.Write([]byte("not a csv"))
	mw.Close()

	req := httptest.NewRequest("POST", "/api/admin/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer admin-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for non-CSV, got %d", w.Code)
	}
	if len(m.ingest.Started) != 0 {
		t.Error("ingestion must not start for rejected upload")
	}
}

func TestUserHistoryEndpoint(t *testing.T) {
	router, m := setupTestRouter(t)
	m.search.HistoryFunc = func(ctx context.Context, userID string, page, limit int) ([]models.SearchLog, int, error) {
		return []models.SearchLog{{TotalResults: 3}}, 1, nil
	}

	w := doJSON(router, "GET", "/api/user/history?page=1&limit=10", nil, "valid-token")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp struct {
		Total int `json:"total"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}
}

func TestLastSearchEndpoint(t *testing.T) {
	router, m := setupTestRouter(t)

	// No snapshot yet
	w := doJSON(router, "GET", "/api/user/last-search", nil, "valid-token")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	m.search.LastSearchFunc = func(ctx context.Context, userID, fingerprint string) (*models.SearchSnapshot, error) {
		return &models.SearchSnapshot{UserID: userID, DeviceFingerprint: fingerprint, TotalResults: 2}, nil
	}
	w = doJSON(router, "GET", "/api/user/last-search", nil, "valid-token")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp struct {
		Snapshot *models.SearchSnapshot `json:"snapshot"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Snapshot == nil || resp.Snapshot.TotalResults != 2 {
		t.Errorf("unexpected snapshot body: %s", w.Body.String())
	}
}
