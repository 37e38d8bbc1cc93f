package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore persists user_sessions in Postgres, selected via
// AUTH_MODE=postgres or DATABASE_URL naming a postgres:// DSN. Grounded on
// the teacher's auth.PostgresManager (connection pool sizing, schema-exists
// preflight check), trimmed to the single-table schema spec §6 specifies.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS user_sessions (
	id TEXT PRIMARY KEY,
	player_id TEXT NOT NULL,
	username TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	last_accessed TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_user_sessions_expires_at ON user_sessions(expires_at);
CREATE INDEX IF NOT EXISTS idx_user_sessions_username ON user_sessions(username);
`

func (s *PostgresStore) Create(ctx context.Context, playerID, username string, ttl time.Duration) (Record, error) {
	now := time.Now()
	rec := Record{
		Token:        mustToken(),
		PlayerID:     playerID,
		Username:     username,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		LastAccessed: now,
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO user_sessions (id, player_id, username, created_at, expires_at, last_accessed)
VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.Token, rec.PlayerID, rec.Username, rec.CreatedAt, rec.ExpiresAt, rec.LastAccessed)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *PostgresStore) Lookup(ctx context.Context, token string) (Record, error) {
	now := time.Now()
	var rec Record
	err := s.db.QueryRowContext(ctx, `
SELECT id, player_id, username, created_at, expires_at, last_accessed
FROM user_sessions WHERE id = $1`, token).
		Scan(&rec.Token, &rec.PlayerID, &rec.Username, &rec.CreatedAt, &rec.ExpiresAt, &rec.LastAccessed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrSessionNotFound
		}
		return Record{}, err
	}
	if now.After(rec.ExpiresAt) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE id = $1`, token)
		return Record{}, ErrSessionNotFound
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE user_sessions SET last_accessed = $1 WHERE id = $2`, now, token); err != nil {
		return Record{}, err
	}
	rec.LastAccessed = now
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE id = $1`, token)
	return err
}

func (s *PostgresStore) Close() error { return s.db.Close() }
