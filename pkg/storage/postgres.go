package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation = "23505"

	linkURLOwnerConstraint = "links_url_owner_key"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS links (
	token       VARCHAR(7) PRIMARY KEY,
	url         TEXT NOT NULL,
	owner_id    TEXT NOT NULL,
	click_count BIGINT NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT links_url_owner_key UNIQUE (url, owner_id)
);

CREATE TABLE IF NOT EXISTS users (
	user_id       VARCHAR(50) PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// EnsurePostgresSchema creates the links and users tables if they are missing.
func EnsurePostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

type PostgresLinkStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresLinkStorage(pool *pgxpool.Pool) *PostgresLinkStorage {
	return &PostgresLinkStorage{pool: pool}
}

func (s *PostgresLinkStorage) Insert(ctx context.Context, link *Link) error {
	query := `INSERT INTO links (token, url, owner_id, click_count, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := s.pool.Exec(ctx, query, link.Token, link.LongURL, link.OwnerID, link.ClickCount, link.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == linkURLOwnerConstraint {
				return ErrDuplicateLink
			}
			return ErrDuplicateToken
		}
		return err
	}
	return nil
}

func (s *PostgresLinkStorage) GetByToken(ctx context.Context, token string) (*Link, error) {
	query := `SELECT token, url, owner_id, click_count, created_at FROM links WHERE token = $1`
	return scanLink(s.pool.QueryRow(ctx, query, token))
}

func (s *PostgresLinkStorage) GetByTokenAndOwner(ctx context.Context, token, ownerID string) (*Link, error) {
	query := `SELECT token, url, owner_id, click_count, created_at FROM links WHERE token = $1 AND owner_id = $2`
	return scanLink(s.pool.QueryRow(ctx, query, token, ownerID))
}

func scanLink(row pgx.Row) (*Link, error) {
	var link Link
	err := row.Scan(&link.Token, &link.LongURL, &link.OwnerID, &link.ClickCount, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (s *PostgresLinkStorage) ExistsByURLAndOwner(ctx context.Context, longURL, ownerID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM links WHERE url = $1 AND owner_id = $2)`
	err := s.pool.QueryRow(ctx, query, longURL, ownerID).Scan(&exists)
	return exists, err
}

func (s *PostgresLinkStorage) ExistsByTokenAndOwner(ctx context.Context, token, ownerID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM links WHERE token = $1 AND owner_id = $2)`
	err := s.pool.QueryRow(ctx, query, token, ownerID).Scan(&exists)
	return exists, err
}

func (s *PostgresLinkStorage) Delete(ctx context.Context, token string) error {
	query := `DELETE FROM links WHERE token = $1`
	_, err := s.pool.Exec(ctx, query, token)
	return err
}

func (s *PostgresLinkStorage) IncrementClickCount(ctx context.Context, token string) error {
	query := `UPDATE links SET click_count = click_count + 1 WHERE token = $1`
	_, err := s.pool.Exec(ctx, query, token)
	return err
}

func (s *PostgresLinkStorage) GetClickCount(ctx context.Context, token string) (*int64, error) {
	var count int64
	query := `SELECT click_count FROM links WHERE token = $1`
	err := s.pool.QueryRow(ctx, query, token).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &count, nil
}

type PostgresUserStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresUserStorage(pool *pgxpool.Pool) *PostgresUserStorage {
	return &PostgresUserStorage{pool: pool}
}

func (s *PostgresUserStorage) Insert(ctx context.Context, user *User) error {
	query := `INSERT INTO users (user_id, name, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := s.pool.Exec(ctx, query, user.UserID, user.Name, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateUser
		}
		return err
	}
	return nil
}

func (s *PostgresUserStorage) GetByID(ctx context.Context, userID string) (*User, error) {
	query := `SELECT user_id, name, email, password_hash, created_at FROM users WHERE user_id = $1`
	var user User
	err := s.pool.QueryRow(ctx, query, userID).Scan(&user.UserID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *PostgresUserStorage) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE user_id = $1)`
	err := s.pool.QueryRow(ctx, query, userID).Scan(&exists)
	return exists, err
}
