package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists user_sessions in a local file, selected via
// AUTH_MODE=sqlite or a DATABASE_URL naming a filesystem path. Grounded on
// the teacher's auth.SQLiteManager (same connection pragmas, same
// single-writer pool sizing), trimmed to the single-table schema spec §6
// actually specifies.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if path != ":memory:" {
		if parent := filepath.Dir(path); parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS user_sessions (
	id TEXT PRIMARY KEY,
	player_id TEXT NOT NULL,
	username TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	last_accessed INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_user_sessions_expires_at ON user_sessions(expires_at);
CREATE INDEX IF NOT EXISTS idx_user_sessions_username ON user_sessions(username);
`

func (s *SQLiteStore) Create(ctx context.Context, playerID, username string, ttl time.Duration) (Record, error) {
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
VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Token, rec.PlayerID, rec.Username, rec.CreatedAt.UnixMilli(), rec.ExpiresAt.UnixMilli(), rec.LastAccessed.UnixMilli())
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *SQLiteStore) Lookup(ctx context.Context, token string) (Record, error) {
	now := time.Now()
	var rec Record
	var createdMs, expiresMs, lastMs int64
	err := s.db.QueryRowContext(ctx, `
SELECT id, player_id, username, created_at, expires_at, last_accessed
FROM user_sessions WHERE id = ?`, token).
		Scan(&rec.Token, &rec.PlayerID, &rec.Username, &createdMs, &expiresMs, &lastMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrSessionNotFound
		}
		return Record{}, err
	}
	rec.CreatedAt = time.UnixMilli(createdMs)
	rec.ExpiresAt = time.UnixMilli(expiresMs)
	rec.LastAccessed = time.UnixMilli(lastMs)
	if now.After(rec.ExpiresAt) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE id = ?`, token)
		return Record{}, ErrSessionNotFound
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE user_sessions SET last_accessed = ? WHERE id = ?`, now.UnixMilli(), token); err != nil {
		return Record{}, err
	}
	rec.LastAccessed = now
	return rec, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE id = ?`, token)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
