package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration (Postgres control plane)
	Database DatabaseConfig

	// ClickHouse configuration (contacts dataset)
	ClickHouse ClickHouseConfig

	// Local store configuration (fallback search engine)
	LocalStore LocalStoreConfig

	// Ingestion configuration
	Ingest IngestConfig

	// Auth configuration
	Auth AuthConfig

	// Email configuration (registration verification)
	Email EmailConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	CORSOrigins     string
	PublicBaseURL   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// ClickHouseConfig holds ClickHouse connection settings
type ClickHouseConfig struct {
	Addr         string
	Database     string
	User         string
	Password     string
	DialTimeout  time.Duration
	QueryTimeout time.Duration
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// LocalStoreConfig holds the embedded fallback store settings
type LocalStoreConfig struct {
	Path     string // SQLite database file
	SeedPath string // CSV resource to seed from; empty disables seeding
}

// IngestConfig holds CSV ingestion settings
type IngestConfig struct {
	BatchSize      int
	MaxConcurrency int
	MaxUploadSize  int64 // in bytes
	UploadDir      string
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	JWTSecret         string
	TokenTTL          time.Duration
	DefaultDailyLimit int
}

// EmailConfig holds outbound email settings
type EmailConfig struct {
	ResendAPIKey string
	FromAddress  string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// A missing .env file is fine; env vars may come from the environment
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			CORSOrigins:     getEnv("CORS_ORIGINS", "http://localhost:5173"),
			PublicBaseURL:   getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 300*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "finpro"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		ClickHouse: ClickHouseConfig{
			Addr:         getEnv("CH_ADDR", "localhost:9000"),
			Database:     getEnv("CH_DATABASE", "finpro"),
			User:         getEnv("CH_USERNAME", "default"),
			Password:     getEnv("CH_PASSWORD", ""),
			DialTimeout:  getDurationEnv("CH_DIAL_TIMEOUT", 30*time.Second),
			QueryTimeout: getDurationEnv("CH_QUERY_TIMEOUT", 20*time.Second),
			MaxOpenConns: getIntEnv("CH_MAX_OPEN_CONNS", 100),
			MaxIdleConns: getIntEnv("CH_MAX_IDLE_CONNS", 50),
			MaxLifetime:  getDurationEnv("CH_CONN_MAX_LIFETIME", time.Hour),
		},
		LocalStore: LocalStoreConfig{
			Path:     getEnv("LOCAL_STORE_PATH", "./data/contacts.db"),
			SeedPath: getEnv("LOCAL_STORE_SEED", ""),
		},
		Ingest: IngestConfig{
			BatchSize:      getIntEnv("INGEST_BATCH_SIZE", 5000),
			MaxConcurrency: getIntEnv("INGEST_MAX_CONCURRENCY", 2),
			MaxUploadSize:  getInt64Env("MAX_UPLOAD_SIZE", 500*1024*1024), // 500MB
			UploadDir:      getEnv("UPLOAD_DIR", "./data/uploads"),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("JWT_SECRET", "dev-secret-change"),
			TokenTTL:          getDurationEnv("AUTH_TOKEN_TTL", 24*time.Hour),
			DefaultDailyLimit: getIntEnv("DEFAULT_DAILY_SEARCH_LIMIT", 100),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			FromAddress:  getEnv("RESEND_FROM_EMAIL", "no-reply@finpro.local"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.ClickHouse.Addr == "" {
		return fmt.Errorf("CH_ADDR is required")
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("INGEST_BATCH_SIZE must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
