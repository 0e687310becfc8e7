package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eam/internal/accounts/models"
	"eam/internal/platform/postgres"
	"eam/pkg/platform/sentinel"
	"eam/pkg/platform/tx"
)

// Postgres stores users in the users table. Usernames are unique
// case-insensitively through the users_username_lower_idx index.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, user *models.User) error {
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.PasswordHash, user.Role, user.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Postgres) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at FROM users WHERE LOWER(username) = $1`,
		models.NormalizeUsername(username),
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := tx.Executor(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
