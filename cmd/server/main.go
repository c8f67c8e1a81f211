package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/finpro/contact-search-api/internal/api"
	"github.com/finpro/contact-search-api/internal/clickhouse"
	"github.com/finpro/contact-search-api/internal/config"
	"github.com/finpro/contact-search-api/internal/database"
	"github.com/finpro/contact-search-api/internal/localstore"
	"github.com/finpro/contact-search-api/internal/repository"
	"github.com/finpro/contact-search-api/internal/service"
	"github.com/finpro/contact-search-api/pkg/logger"
)

func main() {
	// Initialize logger
	log := logger.New()
	log.Info().Msg("Starting Contact Search API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize Postgres (accounts, sessions, uploads, search logs)
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "./migrations"
	}
	if err := db.RunMigrations(migrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize ClickHouse (contacts dataset)
	ck, err := clickhouse.New(context.Background(), &cfg.ClickHouse, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to ClickHouse")
	}
	defer ck.Close()

	if err := ck.EnsureSchema(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure ClickHouse schema")
	}

	// Initialize the embedded fallback store
	if err := os.MkdirAll(filepath.Dir(cfg.LocalStore.Path), 0o755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create local store directory")
	}
	local, err := localstore.Open(cfg.LocalStore.Path, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open local store")
	}
	defer local.Close()

	if cfg.LocalStore.SeedPath != "" {
		seedFile, err := os.Open(cfg.LocalStore.SeedPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.LocalStore.SeedPath).Msg("Failed to open seed file")
		}
		result, err := local.SeedFromCSV(context.Background(), seedFile)
		seedFile.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to seed local store")
		}
		if result.Skipped {
			log.Info().Msg("Local store already seeded")
		} else {
			log.Info().Int64("rows", result.Rows).Msg("Local store seeded")
		}
	}

	// Initialize repositories
	repos := repository.New(db, ck)

	// Initialize services
	services := service.NewServices(repos, local, cfg, log)

	// Initialize router
	router := api.NewRouter(services, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Let in-flight CSV ingestions finish
	services.Ingest.Wait()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
