package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/finpro/contact-search-api/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(services *service.Services, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		services: services,
		log:      log.With().Str("handler", "auth").Logger(),
	}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	fingerprint := c.GetHeader("X-Device-Fingerprint")
	result, err := h.services.Auth.Login(c.Request.Context(), req.Email, req.Password, fingerprint, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		var conflict *service.DeviceConflictError
		switch {
		case errors.As(err, &conflict):
			c.JSON(http.StatusConflict, gin.H{
				"error":    "Account is already signed in on another device",
				"sessions": conflict.Sessions,
			})
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		case errors.Is(err, service.ErrAccountExpired):
			c.JSON(http.StatusForbidden, gin.H{"error": "Account has expired"})
		default:
			h.log.Error().Err(err).Msg("Login failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := currentClaims(c)
	if err := h.services.Auth.Logout(c.Request.Context(), claims.Token); err != nil {
		h.log.Error().Err(err).Msg("Logout failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims := currentClaims(c)
	profile, err := h.services.Auth.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to load profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// LogoutByCredentials handles POST /api/sessions/logout-by-credentials.
// It lets a user free up their single device slot from a new device by
// proving ownership with their password.
func (h *AuthHandler) LogoutByCredentials(c *gin.Context) {
	sessionID := c.Param("sid")

	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	err := h.services.Auth.LogoutSessionByCredentials(c.Request.Context(), sessionID, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "Session does not belong to this account"})
		case errors.Is(err, service.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		default:
			h.log.Error().Err(err).Msg("Failed to logout session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout session"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session logged out"})
}
