// Package localstore provides the embedded fallback contact store: a
// SQLite-backed keyed collection seeded once from a CSV resource and queried
// through a windowed boolean-filter search. It answers searches without a
// round-trip to ClickHouse and is read-only after seeding.
package localstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/finpro/contact-search-api/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	linkedin TEXT NOT NULL DEFAULT '',
	position TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	company_phone TEXT NOT NULL DEFAULT '',
	website TEXT NOT NULL DEFAULT '',
	domain TEXT NOT NULL DEFAULT '',
	facebook TEXT NOT NULL DEFAULT '',
	twitter TEXT NOT NULL DEFAULT '',
	linkedin_company_page TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_contacts_name ON contacts(name);
CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email);
CREATE INDEX IF NOT EXISTS idx_contacts_phone ON contacts(phone);
CREATE INDEX IF NOT EXISTS idx_contacts_company ON contacts(company);
CREATE INDEX IF NOT EXISTS idx_contacts_position ON contacts(position);
CREATE INDEX IF NOT EXISTS idx_contacts_domain ON contacts(domain);
CREATE INDEX IF NOT EXISTS idx_contacts_state ON contacts(state);
CREATE INDEX IF NOT EXISTS idx_contacts_linkedin ON contacts(linkedin);
`

// Store is a handle to the embedded contact store. Open it once and share
// it; the underlying connection pool serializes access.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if necessary) the store at path and ensures its
// schema. The surrogate key is AUTOINCREMENT so ids are monotonic and never
// reused within a store lifetime.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure local store schema: %w", err)
	}

	return &Store{
		db:  db,
		log: log.With().Str("component", "localstore").Logger(),
	}, nil
}

// Close releases the underlying database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// Count returns the number of contacts in the store
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contacts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return count, nil
}

// PutBatch inserts a batch of contacts in one transaction. A batch is
// applied atomically: either every row in it becomes visible or none do.
func (s *Store) PutBatch(ctx context.Context, contacts []models.Contact) error {
	if len(contacts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO contacts (
			name, email, phone, linkedin, position, company, company_phone,
			website, domain, facebook, twitter, linkedin_company_page, country, state
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for i := range contacts {
		c := &contacts[i]
		_, err := stmt.ExecContext(ctx,
			c.Name, c.Email, c.Phone, c.Linkedin, c.Position, c.Company,
			c.CompanyPhone, c.Website, c.Domain, c.Facebook, c.Twitter,
			c.LinkedinCompanyPage, c.Country, c.State,
		)
		if err != nil {
			return fmt.Errorf("failed to insert contact: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	return nil
}

// Window returns up to limit contacts in natural (insertion key) order
func (s *Store) Window(ctx context.Context, limit int) ([]models.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, phone, linkedin, position, company, company_phone,
			website, domain, facebook, twitter, linkedin_company_page, country, state
		FROM contacts
		ORDER BY id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read window: %w", err)
	}
	defer rows.Close()

	var out []models.Contact
	for rows.Next() {
		var c models.Contact
		err := rows.Scan(
			&c.ID, &c.Name, &c.Email, &c.Phone, &c.Linkedin, &c.Position,
			&c.Company, &c.CompanyPhone, &c.Website, &c.Domain, &c.Facebook,
			&c.Twitter, &c.LinkedinCompanyPage, &c.Country, &c.State,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		out = append(out, c)
	}

	return out, rows.Err()
}
