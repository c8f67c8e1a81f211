package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/finpro/contact-search-api/internal/models"
	"github.com/finpro/contact-search-api/internal/service"
)

const claimsKey = "authClaims"

// authMiddleware validates the bearer token and binds the session to the
// calling device
func authMiddleware(auth service.AuthService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is required"})
			return
		}

		fingerprint := c.GetHeader("X-Device-Fingerprint")
		if fingerprint == "" {
			fingerprint = c.Request.UserAgent()
		}

		claims, err := auth.Authenticate(c.Request.Context(), token, fingerprint)
		if err != nil {
			var conflict *service.DeviceConflictError
			if errors.As(err, &conflict) {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{
					"error":    "Session is active on another device",
					"sessions": conflict.Sessions,
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// adminOnly rejects non-ADMIN callers. Must run after authMiddleware.
func adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := currentClaims(c)
		if claims == nil || claims.Role != "ADMIN" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// bearerToken extracts the token from the Authorization header
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// currentClaims returns the claims set by authMiddleware, or nil
func currentClaims(c *gin.Context) *models.AuthClaims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, ok := v.(*models.AuthClaims)
	if !ok {
		return nil
	}
	return claims
}
