package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/finpro/contact-search-api/internal/database"
	"github.com/finpro/contact-search-api/internal/models"
)

// userRepo is the concrete implementation of UserRepository
type userRepo struct {
	db *database.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *database.DB) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, email, password_hash, role, name, phone_number, is_active, daily_search_limit, expires_at, created_at`

// Create inserts a new user and returns the generated id
func (r *userRepo) Create(ctx context.Context, user *models.User) (string, error) {
	query := `
		INSERT INTO users (email, password_hash, role, name, phone_number, is_active, daily_search_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id string
	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.Role, user.Name,
		user.PhoneNumber, user.IsActive, user.DailySearchLimit,
	).Scan(&id)
	return id, err
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, "id", id)
}

// GetByEmail retrieves a user by email
func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email", email)
}

func (r *userRepo) getOne(ctx context.Context, column, value string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1`, userColumns, column)

	var user models.User
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.Name,
		&user.PhoneNumber, &user.IsActive, &user.DailySearchLimit,
		&user.ExpiresAt, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// EmailExists checks if a user with the given email exists
func (r *userRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", email).Scan(&exists)
	return exists, err
}

// List retrieves users, newest first
func (r *userRepo) List(ctx context.Context, limit int) ([]*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY created_at DESC LIMIT $1`, userColumns)
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.Name,
			&user.PhoneNumber, &user.IsActive, &user.DailySearchLimit,
			&user.ExpiresAt, &user.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}

// Update applies a partial update; nil fields are skipped
func (r *userRepo) Update(ctx context.Context, id string, upd *models.UserUpdate) error {
	var set []string
	var args []interface{}
	idx := 1

	add := func(column string, value interface{}) {
		set = append(set, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}

	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Role != nil {
		add("role", *upd.Role)
	}
	if upd.DailySearchLimit != nil {
		add("daily_search_limit", *upd.DailySearchLimit)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if upd.PasswordHash != nil {
		add("password_hash", *upd.PasswordHash)
	}

	if len(set) == 0 {
		return fmt.Errorf("nothing to update")
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(set, ", "), idx)
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// Delete removes a user; sessions and devices cascade
func (r *userRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	return err
}
