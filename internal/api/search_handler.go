package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/finpro/contact-search-api/internal/models"
	"github.com/finpro/contact-search-api/internal/service"
)

// SearchHandler handles contact search endpoints
type SearchHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewSearchHandler creates a new SearchHandler
func NewSearchHandler(services *service.Services, log zerolog.Logger) *SearchHandler {
	return &SearchHandler{
		services: services,
		log:      log.With().Str("handler", "search").Logger(),
	}
}

// Search handles POST /api/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid search request"})
		return
	}

	claims := currentClaims(c)
	resp, err := h.services.Search.Search(c.Request.Context(), claims, &req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, service.ErrQuotaExceeded) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Daily search limit reached"})
			return
		}
		h.log.Error().Err(err).Str("user_id", claims.UserID).Msg("Search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// History handles GET /api/user/history
func (h *SearchHandler) History(c *gin.Context) {
	claims := currentClaims(c)
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)

	logs, total, err := h.services.Search.History(c.Request.Context(), claims.UserID, page, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to load search history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load search history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": logs,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// LastSearch handles GET /api/user/last-search. It returns the most recent
// result snapshot for the calling device, so a reload can restore the page
// without spending a search.
func (h *SearchHandler) LastSearch(c *gin.Context) {
	claims := currentClaims(c)
	snap, err := h.services.Search.LastSearch(c.Request.Context(), claims.UserID, claims.DeviceFingerprint)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to load last search")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load last search"})
		return
	}
	if snap == nil {
		c.JSON(http.StatusOK, gin.H{"snapshot": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshot": snap})
}

// queryInt parses a positive integer query parameter with a default
func queryInt(c *gin.Context, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
