package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/finpro/contact-search-api/internal/config"
	"github.com/finpro/contact-search-api/internal/service"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.Server.CORSOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Device-Fingerprint"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Handlers
	authHandler := NewAuthHandler(services, log)
	searchHandler := NewSearchHandler(services, log)
	registrationHandler := NewRegistrationHandler(services, log)
	adminHandler := NewAdminHandler(services, cfg, log)

	// Health check
	router.GET("/health", healthCheck)

	api := router.Group("/api")
	{
		// Public endpoints
		api.POST("/auth/login", authHandler.Login)
		api.POST("/register", registrationHandler.Submit)
		api.GET("/register/verify", registrationHandler.VerifyEmail)
		api.POST("/auth/sessions/:sid/logout-by-credentials", authHandler.LogoutByCredentials)

		// Authenticated endpoints
		authed := api.Group("")
		authed.Use(authMiddleware(services.Auth, log))
		{
			authed.POST("/auth/logout", authHandler.Logout)
			authed.GET("/auth/me", authHandler.Me)
			authed.POST("/search", searchHandler.Search)
			authed.GET("/user/history", searchHandler.History)
			authed.GET("/user/last-search", searchHandler.LastSearch)
		}

		// Admin endpoints
		admin := api.Group("/admin")
		admin.Use(authMiddleware(services.Auth, log), adminOnly())
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.POST("/users", adminHandler.CreateUser)
			admin.PUT("/users/:id", adminHandler.UpdateUser)
			admin.DELETE("/users/:id", adminHandler.DeleteUser)
			admin.GET("/users/:id/sessions", adminHandler.ListUserSessions)
			admin.GET("/users/:id/searches", adminHandler.ListUserSearches)
			admin.POST("/sessions/:id/logout", adminHandler.LogoutSession)

			admin.GET("/uploads", adminHandler.ListUploads)
			admin.POST("/uploads", adminHandler.CreateUpload)

			admin.GET("/registration-requests", adminHandler.ListRegistrationRequests)
			admin.PUT("/registration-requests/:id", adminHandler.ReviewRegistrationRequest)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "contact-search-api",
	})
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}
