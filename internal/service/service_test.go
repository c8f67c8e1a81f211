package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/finpro/contact-search-api/internal/config"
	"github.com/finpro/contact-search-api/internal/mocks"
	"github.com/finpro/contact-search-api/internal/models"
	"github.com/finpro/contact-search-api/internal/repository"
	"github.com/finpro/contact-search-api/internal/service"
)

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:         "test-secret",
			TokenTTL:          time.Hour,
			DefaultDailyLimit: 100,
		},
		Ingest: config.IngestConfig{
			BatchSize:      1000,
			MaxConcurrency: 1,
		},
	}
}

func setupServices(t *testing.T) (*service.Services, *repository.Repositories, *mocks.MockUserRepository, *mocks.MockSessionRepository, *mocks.MockSearchLogRepository, *mocks.MockContactRepository) {
	t.Helper()
	repos, users, sessions, logs, contacts := mocks.NewRepositories()
	services := service.NewServices(repos, nil, testConfig(), zerolog.Nop())
	return services, repos, users, sessions, logs, contacts
}

func addUser(t *testing.T, users *mocks.MockUserRepository, id, email, password, role string, limit int) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := &models.User{
		ID:               id,
		Email:            email,
		PasswordHash:     string(hash),
		Role:             role,
		Name:             "Test User",
		IsActive:         true,
		DailySearchLimit: limit,
	}
	users.Add(user)
	return user
}

func TestAuthService_Login(t *testing.T) {
	services, _, users, _, _, _ := setupServices(t)
	addUser(t, users, "user-1", "alice@example.com", "secret123", "USER", 100)
	ctx := context.Background()

	result, err := services.Auth.Login(ctx, "alice@example.com", "secret123", "fp-1", "1.2.3.4", "test-agent")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.Token == "" {
		t.Error("expected a token")
	}
	if result.User.ID != "user-1" || result.User.Role != "USER" {
		t.Errorf("unexpected user in result: %+v", result.User)
	}
	if result.ExpiresAt.Before(time.Now()) {
		t.Error("token already expired")
	}
}

func TestAuthService_LoginInvalidCredentials(t *testing.T) {
	services, _, users, _, _, _ := setupServices(t)
	addUser(t, users, "user-1", "alice@example.com", "secret123", "USER", 100)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "alice@example.com", "wrong"},
		{"unknown email", "nobody@example.com", "secret123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := services.Auth.Login(ctx, tt.email, tt.password, "fp-1", "", "")
			if !errors.Is(err, service.ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestAuthService_LoginInactiveUser(t *testing.T) {
	services, _, users, _, _, _ := setupServices(t)
	user := addUser(t, users, "user-1", "alice@example.com", "secret123", "USER", 100)
	user.IsActive = false

	_, err := services.Auth.Login(context.Background(), "alice@example.com", "secret123", "fp-1", "", "")
	if !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for inactive user, got %v", err)
	}
}

func TestAuthService_LoginExpiredAccount(t *testing.T) {
	services, _, users, _, _, _ := setupServices(t)
	user := addUser(t, users, "user-1", "alice@example.com", "secret123", "USER", 100)
	past := time.Now().Add(-time.Hour)
	user.ExpiresAt = &past

	_, err := services.Auth.Login(context.Background(), "alice@example.com", "secret123", "fp-1", "", "")
	if !errors.Is(err, service.ErrAccountExpired) {
		t.Errorf("expected ErrAccountExpired, got %v", err)
	}
}

func TestAuthService_LoginDeviceConflict(t *testing.T) {
	services, _, users, sessions, _, _ := setupServices(t)
	addUser(t, users, "user-1", "alice@example.com", "secret123", "USER", 100)
	sessions.OtherSessions = []models.SessionInfo{
		{DeviceFingerprint: "other-device", DeviceType: "Android"},
	}

	_, err := services.Auth.Login(context.Background(), "alice@example.com", "secret123", "fp-1", "", "")
	var conflict *service.DeviceConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected DeviceConflictError, got %v", err)
	}
	if len(conflict.Sessions) != 1 || conflict.Sessions[0].DeviceFingerprint != "other-device" {
		t.Errorf("conflict should carry the competing sessions: %+v", conflict.Sessions)
	}
}

func TestAuthService_AdminBypassesDeviceLimit(t *testing.T) {
	services, _, users, sessions, _, _ := setupServices(t)
	addUser(t, users, "admin-1", "admin@example.com", "secret123", "ADMIN", 100)
	sessions.OtherSessions = []models.SessionInfo{
		{DeviceFingerprint: "other-device"},
	}

	if _, err := services.Auth.Login(context.Background(), "admin@example.com", "secret123", "fp-1", "", ""); err != nil {
		t.Errorf("admin login should ignore other devices, got %v", err)
	}
}

func TestAuthService_AuthenticateRoundTrip(t *testing.T) {
	services, _, users, _, _, _ := setupServices(t)
	addUser(t, users, "user-1", "alice@example.com", "secret123", "USER", 100)
	ctx := context.Background()

	result, err := services.Auth.Login(ctx, "alice@example.com", "secret123", "fp-1", "", "test-agent")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	claims, err := services.Auth.Authenticate(ctx, result.Token, "fp-1")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "USER" || claims.DeviceFingerprint != "fp-1" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestAuthService_AuthenticateWrongFingerprint(t *testing.T) {
	services, _, users, _, _, _ := setupServices(t)
	addUser(t, users, "user-1", "alice@example.com", "secret123", "USER", 100)
	ctx := context.Background()

	result, err := services.Auth.Login(ctx, "alice@example.com", "secret123", "fp-1", "", "")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	_, err = services.Auth.Authenticate(ctx, result.Token, "fp-other")
	var conflict *service.DeviceConflictError
	if !errors.As(err, &conflict) {
		t.Errorf("expected DeviceConflictError for foreign fingerprint, got %v", err)
	}
}

func TestAuthService_AuthenticateGarbageToken(t *testing.T) {
	services, _, _, _, _, _ := setupServices(t)

	_, err := services.Auth.Authenticate(context.Background(), "not-a-jwt", "fp-1")
	if !errors.Is(err, service.ErrSessionInvalid) {
		t.Errorf("expected ErrSessionInvalid, got %v", err)
	}
}

func TestAuthService_LogoutInvalidatesSession(t *testing.T) {
	services, _, users, _, _, _ := setupServices(t)
	addUser(t, users, "user-1", "alice@example.com", "secret123", "USER", 100)
	ctx := context.Background()

	result, err := services.Auth.Login(ctx, "alice@example.com", "secret123", "fp-1", "", "")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := services.Auth.Logout(ctx, result.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := services.Auth.Authenticate(ctx, result.Token, "fp-1"); !errors.Is(err, service.ErrSessionInvalid) {
		t.Errorf("expected ErrSessionInvalid after logout, got %v", err)
	}
}

func TestAuthService_LogoutSessionByCredentials(t *testing.T) {
	services, _, users, sessions, _, _ := setupServices(t)
	addUser(t, users, "user-1", "alice@example.com", "secret123", "USER", 100)
	addUser(t, users, "user-2", "bob@example.com", "secret456", "USER", 100)
	sessions.Owners["session-9"] = "user-1"
	ctx := context.Background()

	// Another user's password cannot free someone else's session
	err := services.Auth.LogoutSessionByCredentials(ctx, "session-9", "bob@example.com", "secret456")
	if !errors.Is(err, service.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	// Unknown session
	err = services.Auth.LogoutSessionByCredentials(ctx, "session-missing", "alice@example.com", "secret123")
	if !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}

	// The owner can
	if err := services.Auth.LogoutSessionByCredentials(ctx, "session-9", "alice@example.com", "secret123"); err != nil {
		t.Errorf("owner logout failed: %v", err)
	}
	if len(sessions.LoggedOut) != 1 || sessions.LoggedOut[0] != "session-9" {
		t.Errorf("session not logged out: %v", sessions.LoggedOut)
	}
}

func searchClaims() *models.AuthClaims {
	return &models.AuthClaims{UserID: "user-1", Role: "USER", DeviceFingerprint: "fp-1"}
}

func TestSearchService_Search(t *testing.T) {
	services, _, users, _, logs, contacts := setupServices(t)
	addUser(t, users, "user-1", "alice@example.com", "secret123", "USER", 100)
	contacts.SearchFunc = func(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
		return &models.SearchResponse{
			Rows:  []models.Contact{{Name: "Alice Johnson"}},
			Total: 1, Page: req.Page, PageSize: req.PageSize,
		}, nil
	}

	resp, err := services.Search.Search(context.Background(), searchClaims(), &models.SearchRequest{Name: "alice"}, "", "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.Total != 1 || resp.Rows[0].Name != "Alice Johnson" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(logs.Logs) != 1 {
		t.Errorf("expected 1 history entry, got %d", len(logs.Logs))
	}
	if logs.Increments != 1 {
		t.Errorf("expected quota consumed once, got %d", logs.Increments)
	}
}

func TestSearchService_RepeatQueryServedFromCache(t *testing.T) {
	services, _, users, _, logs, contacts := setupServices(t)
	addUser(t, users, "user-1", "alice@example.com", "secret123", "USER", 100)
	var engineCalls int
	contacts.SearchFunc = func(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
		engineCalls++
		return &models.SearchResponse{Rows: []models.Contact{{Name: "Alice Johnson"}}, Total: 1}, nil
	}
	ctx := context.Background()

	req := models.SearchRequest{Name: "alice", Company: "Acme"}
	if _, err := services.Search.Search(ctx, searchClaims(), &req, "", ""); err != nil {
		t.Fatalf("first search failed: %v", err)
	}

	repeat := models.SearchRequest{Name: "alice", Company: "Acme"}
	resp, err := services.Search.Search(ctx, searchClaims(), &repeat, "", "")
	if err != nil {
		t.Fatalf("repeat search failed: %v", err)
	}
	if engineCalls != 1 {
		t.Errorf("repeat query hit the engine %d times, want 1", engineCalls)
	}
	if logs.Increments != 1 {
		t.Errorf("repeat query consumed quota: %d increments", logs.Increments)
	}
	if resp.Total != 1 || resp.Rows[0].Name != "Alice Johnson" {
		t.Errorf("cached response mismatch: %+v", resp)
	}
}

func TestSearchService_QuotaExceeded(t *testing.T) {
	services, _, users, _, _, contacts := setupServices(t)
	addUser(t, users, "user-1", "alice@example.com", "secret123", "USER", 1)
	contacts.SearchFunc = func(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
		return &models.SearchResponse{Rows: []models.Contact{{Name: "hit"}}, Total: 1}, nil
	}
	ctx := context.Background()

	if _, err := services.Search.Search(ctx, searchClaims(), &models.SearchRequest{Name: "first"}, "", ""); err != nil {
		t.Fatalf("first search failed: %v", err)
	}

	_, err := services.Search.Search(ctx, searchClaims(), &models.SearchRequest{Name: "second"}, "", "")
	if !errors.Is(err, service.ErrQuotaExceeded) {
		t.Errorf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestSearchService_EmptyResultsDoNotConsumeQuota(t *testing.T) {
	services, _, users, _, logs, contacts := setupServices(t)
	addUser(t, users, "user-1", "alice@example.com", "secret123", "USER", 100)
	contacts.SearchFunc = func(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
		return &models.SearchResponse{Rows: []models.Contact{}, Total: 0}, nil
	}

	if _, err := services.Search.Search(context.Background(), searchClaims(), &models.SearchRequest{Name: "nobody"}, "", ""); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if logs.Increments != 0 {
		t.Errorf("empty search consumed quota: %d increments", logs.Increments)
	}
}

func TestSearchService_EngineFailureReturnsEmptyWithoutLocalStore(t *testing.T) {
	services, _, users, _, _, contacts := setupServices(t)
	addUser(t, users, "user-1", "alice@example.com", "secret123", "USER", 100)
	contacts.SearchFunc = func(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
		return nil, errors.New("clickhouse unreachable")
	}

	resp, err := services.Search.Search(context.Background(), searchClaims(), &models.SearchRequest{Name: "alice"}, "", "")
	if err != nil {
		t.Fatalf("Search should degrade, not fail: %v", err)
	}
	if resp.Total != 0 || len(resp.Rows) != 0 {
		t.Errorf("expected empty degraded response, got %+v", resp)
	}
}

func TestRegistrationService_Submit(t *testing.T) {
	services, repos, _, _, _, _ := setupServices(t)
	ctx := context.Background()

	req := &models.RegistrationRequest{Name: "Alice", Email: "alice@example.com"}
	if err := services.Registration.Submit(ctx, req); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if req.VerificationToken == "" {
		t.Error("expected a verification token")
	}

	// A second submit while pending is rejected
	err := services.Registration.Submit(ctx, &models.RegistrationRequest{Name: "Alice", Email: "alice@example.com"})
	if !errors.Is(err, service.ErrPendingRequest) {
		t.Errorf("expected ErrPendingRequest, got %v", err)
	}

	// Existing accounts cannot re-register
	if _, err := repos.User.Create(ctx, &models.User{Email: "bob@example.com"}); err != nil {
		t.Fatalf("user create failed: %v", err)
	}
	err = services.Registration.Submit(ctx, &models.RegistrationRequest{Name: "Bob", Email: "bob@example.com"})
	if !errors.Is(err, service.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegistrationService_RejectedCanResubmit(t *testing.T) {
	services, repos, _, _, _, _ := setupServices(t)
	ctx := context.Background()

	req := &models.RegistrationRequest{Name: "Alice", Email: "alice@example.com"}
	if err := services.Registration.Submit(ctx, req); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := services.Registration.Review(ctx, req.ID, models.RegistrationRejected, nil); err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	req.Status = models.RegistrationRejected

	if err := services.Registration.Submit(ctx, &models.RegistrationRequest{Name: "Alice", Email: "alice@example.com"}); err != nil {
		t.Errorf("resubmit after rejection failed: %v", err)
	}
	regRepo := repos.Registration.(*mocks.MockRegistrationRepository)
	if len(regRepo.Resubmits) != 1 {
		t.Errorf("expected 1 resubmit, got %d", len(regRepo.Resubmits))
	}
}

func TestRegistrationService_ApprovalRequiresVerifiedEmail(t *testing.T) {
	services, repos, _, _, _, _ := setupServices(t)
	regRepo := repos.Registration.(*mocks.MockRegistrationRepository)
	ctx := context.Background()

	req := &models.RegistrationRequest{Name: "Alice", Email: "alice@example.com"}
	if err := services.Registration.Submit(ctx, req); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	err := services.Registration.Review(ctx, req.ID, models.RegistrationApproved, nil)
	if !errors.Is(err, service.ErrEmailNotVerified) {
		t.Errorf("expected ErrEmailNotVerified, got %v", err)
	}

	now := time.Now()
	regRepo.VerifiedAt[req.ID] = &now
	if err := services.Registration.Review(ctx, req.ID, models.RegistrationApproved, nil); err != nil {
		t.Errorf("Review after verification failed: %v", err)
	}
	if regRepo.Reviews[req.ID] != models.RegistrationApproved {
		t.Errorf("status = %v, want APPROVED", regRepo.Reviews[req.ID])
	}
}

func TestRegistrationService_VerifyEmail(t *testing.T) {
	services, repos, _, _, _, _ := setupServices(t)
	regRepo := repos.Registration.(*mocks.MockRegistrationRepository)
	regRepo.Tokens["good-token"] = true
	ctx := context.Background()

	if err := services.Registration.VerifyEmail(ctx, "good-token"); err != nil {
		t.Errorf("VerifyEmail failed: %v", err)
	}
	if err := services.Registration.VerifyEmail(ctx, "bad-token"); !errors.Is(err, service.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestUserService_Create(t *testing.T) {
	services, _, users, _, _, _ := setupServices(t)
	ctx := context.Background()

	id, err := services.User.Create(ctx, &models.User{Email: "Alice@Example.com", Name: "Alice"}, "secret123")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	created := users.Users[id]
	if created == nil {
		t.Fatal("user not persisted")
	}
	if created.Email != "alice@example.com" {
		t.Errorf("email not lowercased: %q", created.Email)
	}
	if created.Role != "USER" {
		t.Errorf("role default = %q, want USER", created.Role)
	}
	if created.DailySearchLimit != 100 {
		t.Errorf("daily limit default = %d, want 100", created.DailySearchLimit)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret123")); err != nil {
		t.Error("password hash does not verify")
	}

	// Duplicate email
	if _, err := services.User.Create(ctx, &models.User{Email: "alice@example.com", Name: "Dup"}, "secret123"); !errors.Is(err, service.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}

	// Invalid role
	if _, err := services.User.Create(ctx, &models.User{Email: "bob@example.com", Role: "ROOT"}, "secret123"); err == nil {
		t.Error("expected error for invalid role")
	}
}

func TestUserService_UpdateHashesPassword(t *testing.T) {
	services, _, users, _, _, _ := setupServices(t)
	addUser(t, users, "user-1", "alice@example.com", "old", "USER", 100)

	newPassword := "newsecret"
	if err := services.User.Update(context.Background(), "user-1", &models.UserUpdate{}, &newPassword); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(users.Updates) != 1 || users.Updates[0].PasswordHash == nil {
		t.Fatal("password hash not included in update")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*users.Updates[0].PasswordHash), []byte(newPassword)); err != nil {
		t.Error("updated password hash does not verify")
	}
}
