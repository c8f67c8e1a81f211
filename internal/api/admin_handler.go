package api

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/finpro/contact-search-api/internal/config"
	"github.com/finpro/contact-search-api/internal/models"
	"github.com/finpro/contact-search-api/internal/service"
)

// AdminHandler handles admin endpoints
type AdminHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "admin").Logger(),
	}
}

// ListUsers handles GET /api/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.services.User.List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// CreateUser handles POST /api/admin/users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req struct {
		Email            string     `json:"email" binding:"required,email"`
		Password         string     `json:"password" binding:"required,min=8"`
		Name             string     `json:"name" binding:"required"`
		Role             string     `json:"role"`
		PhoneNumber      string     `json:"phone_number"`
		DailySearchLimit int        `json:"dailySearchLimit"`
		ExpiresAt        *time.Time `json:"expires_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email, name and a password of at least 8 characters are required"})
		return
	}

	user := &models.User{
		Email:            req.Email,
		Name:             req.Name,
		Role:             req.Role,
		PhoneNumber:      req.PhoneNumber,
		DailySearchLimit: req.DailySearchLimit,
		ExpiresAt:        req.ExpiresAt,
	}

	id, err := h.services.User.Create(c.Request.Context(), user, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
			return
		}
		h.log.Error().Err(err).Msg("Failed to create user")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// UpdateUser handles PUT /api/admin/users/:id
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Name             *string `json:"name"`
		Role             *string `json:"role"`
		DailySearchLimit *int    `json:"dailySearchLimit"`
		IsActive         *bool   `json:"is_active"`
		Password         *string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	upd := &models.UserUpdate{
		Name:             req.Name,
		Role:             req.Role,
		DailySearchLimit: req.DailySearchLimit,
		IsActive:         req.IsActive,
	}

	if err := h.services.User.Update(c.Request.Context(), id, upd, req.Password); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.log.Error().Err(err).Str("user_id", id).Msg("Failed to update user")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User updated"})
}

// DeleteUser handles DELETE /api/admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.User.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.log.Error().Err(err).Str("user_id", id).Msg("Failed to delete user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// ListUserSessions handles GET /api/admin/users/:id/sessions
func (h *AdminHandler) ListUserSessions(c *gin.Context) {
	id := c.Param("id")
	sessions, err := h.services.User.Sessions(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", id).Msg("Failed to list sessions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// ListUserSearches handles GET /api/admin/users/:id/searches
func (h *AdminHandler) ListUserSearches(c *gin.Context) {
	id := c.Param("id")
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)

	logs, total, err := h.services.Search.History(c.Request.Context(), id, page, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", id).Msg("Failed to list searches")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list searches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": logs,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// LogoutSession handles POST /api/admin/sessions/:id/logout
func (h *AdminHandler) LogoutSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.User.LogoutSession(c.Request.Context(), id); err != nil {
		h.log.Error().Err(err).Str("session_id", id).Msg("Failed to logout session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session logged out"})
}

// ListUploads handles GET /api/admin/uploads
func (h *AdminHandler) ListUploads(c *gin.Context) {
	uploads, err := h.services.Ingest.List(c.Request.Context(), 100)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list uploads")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list uploads"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploads": uploads})
}

// serialNumberPattern matches a trailing "(N)" marker in an uploaded
// filename, e.g. "contacts (42).csv"
var serialNumberPattern = regexp.MustCompile(`\((\d+)\)`)

// CreateUpload handles POST /api/admin/uploads. The file is staged to disk,
// hashed, recorded, and handed to the ingestion worker.
func (h *AdminHandler) CreateUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file upload is required"})
		return
	}
	defer file.Close()

	if header.Size > h.cfg.Ingest.MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("file too large, max size is %d MB", h.cfg.Ingest.MaxUploadSize/(1024*1024)),
		})
		return
	}
	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".csv" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .csv files are accepted"})
		return
	}

	if err := os.MkdirAll(h.cfg.Ingest.UploadDir, 0o755); err != nil {
		h.log.Error().Err(err).Msg("Failed to create upload directory")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
		return
	}

	safeName := sanitizeFilename(header.Filename)
	destPath := filepath.Join(h.cfg.Ingest.UploadDir, uuid.New().String()+"_"+safeName)

	dest, err := os.Create(destPath)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create upload file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
		return
	}

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(dest, hasher), file)
	if cerr := dest.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(destPath)
		h.log.Error().Err(err).Msg("Failed to write upload file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
		return
	}

	upload := &models.Upload{
		OriginalFilename: header.Filename,
		SafeName:         safeName,
		SerialNumber:     serialNumber(header.Filename),
		Status:           models.UploadStatusUploaded,
		SizeBytes:        size,
		SHA256:           hex.EncodeToString(hasher.Sum(nil)),
	}

	id, err := h.services.Ingest.Record(c.Request.Context(), upload)
	if err != nil {
		os.Remove(destPath)
		h.log.Error().Err(err).Msg("Failed to record upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record upload"})
		return
	}
	upload.ID = id

	h.services.Ingest.Start(id, destPath)

	h.log.Info().Int64("upload_id", id).Str("filename", header.Filename).Int64("size", size).Msg("Upload accepted")
	c.JSON(http.StatusAccepted, upload)
}

// ListRegistrationRequests handles GET /api/admin/registration-requests
func (h *AdminHandler) ListRegistrationRequests(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)

	requests, total, err := h.services.Registration.List(c.Request.Context(), page, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list registration requests")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list registration requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

// ReviewRegistrationRequest handles POST /api/admin/registration-requests/:id/review
func (h *AdminHandler) ReviewRegistrationRequest(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Status     string  `json:"status" binding:"required"`
		AdminNotes *string `json:"admin_notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	status := models.RegistrationStatus(strings.ToUpper(req.Status))
	if status != models.RegistrationApproved && status != models.RegistrationRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be APPROVED or REJECTED"})
		return
	}

	if err := h.services.Registration.Review(c.Request.Context(), id, status, req.AdminNotes); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Registration request not found"})
		case errors.Is(err, service.ErrEmailNotVerified):
			c.JSON(http.StatusConflict, gin.H{"error": "Email has not been verified yet"})
		default:
			h.log.Error().Err(err).Str("request_id", id).Msg("Failed to review registration request")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to review registration request"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Registration request reviewed"})
}

// sanitizeFilename strips path components and any character outside a
// conservative allowlist
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "upload.csv"
	}
	return b.String()
}

// serialNumber extracts a trailing "(N)" marker from the original filename
func serialNumber(name string) *int64 {
	m := serialNumberPattern.FindStringSubmatch(name)
	if m == nil {
		return nil
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
