package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"primeflip/internal/domain"
)

// UserStore implements domain.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new UserStore backed by the given pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Create inserts a new account and returns it with its assigned id.
// A duplicate username maps to domain.ErrAlreadyExists.
func (s *UserStore) Create(ctx context.Context, username, passwordHash string) (domain.User, error) {
	const query = `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, username, password_hash, disabled, created_at`

	var u domain.User
	err := s.pool.QueryRow(ctx, query, username, passwordHash).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Disabled, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.User{}, domain.ErrAlreadyExists
		}
		return domain.User{}, fmt.Errorf("postgres: create user %s: %w", username, err)
	}
	return u, nil
}

// GetByUsername returns the account with the given username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	const query = `
		SELECT id, username, password_hash, disabled, created_at
		FROM users
		WHERE username = $1`
	return s.scanUser(s.pool.QueryRow(ctx, query, username))
}

// GetByID returns the account with the given id.
func (s *UserStore) GetByID(ctx context.Context, id int64) (domain.User, error) {
	const query = `
		SELECT id, username, password_hash, disabled, created_at
		FROM users
		WHERE id = $1`
	return s.scanUser(s.pool.QueryRow(ctx, query, id))
}

func (s *UserStore) scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Disabled, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: get user: %w", err)
	}
	return u, nil
}
