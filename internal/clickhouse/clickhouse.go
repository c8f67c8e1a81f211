package clickhouse

import (
	"context"
	"fmt"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rs/zerolog"

	"github.com/finpro/contact-search-api/internal/config"
)

// Conn wraps the ClickHouse native connection
type Conn struct {
	driver.Conn
	Database     string
	QueryTimeout time.Duration
	log          zerolog.Logger
}

// New opens a ClickHouse connection and verifies it with a ping
func New(ctx context.Context, cfg *config.ClickHouseConfig, log zerolog.Logger) (*Conn, error) {
	conn, err := ch.Open(&ch.Options{
		Addr: []string{cfg.Addr},
		Auth: ch.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Compression:     &ch.Compression{Method: ch.CompressionLZ4},
		DialTimeout:     cfg.DialTimeout,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.MaxLifetime,
		Settings: ch.Settings{
			"max_execution_time": 30,
			"max_threads":        4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	wrapper := &Conn{
		Conn:         conn,
		Database:     cfg.Database,
		QueryTimeout: cfg.QueryTimeout,
		log:          log.With().Str("component", "clickhouse").Logger(),
	}

	wrapper.log.Info().
		Str("addr", cfg.Addr).
		Str("database", cfg.Database).
		Msg("ClickHouse connection established")

	return wrapper, nil
}

// EnsureSchema creates the contacts table if it does not exist. Lowercased
// materialized columns back the ngram bloom filter indexes so substring
// search stays fast on large datasets.
func (c *Conn) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", c.Database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.contacts (
			name String,
			email String,
			phone String,
			linkedin String,
			position String,
			company String,
			company_phone String,
			website String,
			domain String,
			facebook String,
			twitter String,
			linkedin_company_page String,
			country String,
			state String,
			file_id UInt64,
			created_at DateTime DEFAULT now(),

			name_lc String MATERIALIZED lowerUTF8(name),
			email_lc String MATERIALIZED lowerUTF8(email),
			linkedin_lc String MATERIALIZED lowerUTF8(linkedin),
			position_lc String MATERIALIZED lowerUTF8(position),
			company_lc String MATERIALIZED lowerUTF8(company),
			website_lc String MATERIALIZED lowerUTF8(website),
			domain_lc String MATERIALIZED lowerUTF8(domain),
			facebook_lc String MATERIALIZED lowerUTF8(facebook),
			linkedin_company_page_lc String MATERIALIZED lowerUTF8(linkedin_company_page),

			INDEX idx_name name_lc TYPE ngrambf_v1(3, 256, 2, 0) GRANULARITY 1,
			INDEX idx_email email_lc TYPE ngrambf_v1(3, 256, 2, 0) GRANULARITY 1,
			INDEX idx_company company_lc TYPE ngrambf_v1(3, 256, 2, 0) GRANULARITY 1,
			INDEX idx_position position_lc TYPE ngrambf_v1(3, 256, 2, 0) GRANULARITY 1,
			INDEX idx_domain domain_lc TYPE ngrambf_v1(3, 256, 2, 0) GRANULARITY 1,
			INDEX idx_linkedin linkedin_lc TYPE ngrambf_v1(3, 256, 2, 0) GRANULARITY 1
		) ENGINE = MergeTree
		ORDER BY (created_at, email_lc)
		SETTINGS index_granularity = 8192`, c.Database),
	}

	for _, stmt := range stmts {
		if err := c.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure clickhouse schema: %w", err)
		}
	}

	c.log.Info().Msg("ClickHouse schema ensured")
	return nil
}
