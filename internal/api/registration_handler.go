package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/finpro/contact-search-api/internal/models"
	"github.com/finpro/contact-search-api/internal/service"
)

// RegistrationHandler handles public signup endpoints
type RegistrationHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewRegistrationHandler creates a new RegistrationHandler
func NewRegistrationHandler(services *service.Services, log zerolog.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		services: services,
		log:      log.With().Str("handler", "registration").Logger(),
	}
}

// Submit handles POST /api/register
func (h *RegistrationHandler) Submit(c *gin.Context) {
	var req struct {
		Name              string `json:"name" binding:"required"`
		Email             string `json:"email" binding:"required,email"`
		PhoneNumber       string `json:"phone_number"`
		State             string `json:"state"`
		RequestedSearches int    `json:"requested_searches"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and a valid email are required"})
		return
	}

	reg := &models.RegistrationRequest{
		Name:              req.Name,
		Email:             req.Email,
		PhoneNumber:       req.PhoneNumber,
		State:             req.State,
		RequestedSearches: req.RequestedSearches,
	}

	if err := h.services.Registration.Submit(c.Request.Context(), reg); err != nil {
		switch {
		case errors.Is(err, service.ErrPendingRequest):
			c.JSON(http.StatusConflict, gin.H{"error": "A registration request for this email is already pending"})
		case errors.Is(err, service.ErrAlreadyApproved), errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
		default:
			h.log.Error().Err(err).Msg("Failed to submit registration request")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit registration request"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Registration submitted. Please verify your email."})
}

// VerifyEmail handles GET /api/register/verify
func (h *RegistrationHandler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	if err := h.services.Registration.VerifyEmail(c.Request.Context(), token); err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired verification token"})
			return
		}
		h.log.Error().Err(err).Msg("Failed to verify email")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email verified. An admin will review your request."})
}
