package auth

import (
	"fmt"
	"strings"
)

const (
	ModeMemory   = "memory"
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"
)

// NewStore builds the Store named by mode, following the teacher's
// auth/factory.go three-way dispatch (NewServiceFromEnv). dsn is a file path
// for sqlite, a postgres:// DSN for postgres, and ignored for memory.
func NewStore(mode, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeMemory:
		return NewMemoryStore(), nil
	case ModeSQLite, "local":
		return NewSQLiteStore(dsn)
	case ModePostgres, "db":
		return NewPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("invalid AUTH_MODE %q (supported: %s, %s, %s)", mode, ModeMemory, ModeSQLite, ModePostgres)
	}
}

// ModeFromDatabaseURL infers AUTH_MODE from DATABASE_URL when AUTH_MODE is
// unset (spec §6: "DATABASE_URL optional; if absent, session store is
// in-memory"), the same convention the teacher's authModeFromEnv applies to
// its Postgres-by-default scheme.
func ModeFromDatabaseURL(databaseURL string) string {
	url := strings.TrimSpace(databaseURL)
	if url == "" {
		return ModeMemory
	}
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return ModePostgres
	}
	return ModeSQLite
}
