package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATABASE_URL", "JWT_SECRET", "SESSION_EXPIRATION_DAYS", "AUTH_MODE", "BUS_CAPACITY"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	require.Equal(t, "3000", cfg.Port)
	require.Equal(t, 365, cfg.SessionExpirationDays)
	require.Equal(t, 100, cfg.BusCapacity)
	require.Equal(t, "", cfg.AuthMode)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("SESSION_EXPIRATION_DAYS", "30")
	t.Setenv("AUTH_MODE", "  SQLite ")
	t.Setenv("BUS_CAPACITY", "not-a-number")

	cfg := FromEnv()
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, 30, cfg.SessionExpirationDays)
	require.Equal(t, "sqlite", cfg.AuthMode)
	require.Equal(t, 100, cfg.BusCapacity, "invalid int falls back to default")
}

func TestSessionTTL(t *testing.T) {
	cfg := Config{SessionExpirationDays: 2}
	require.Equal(t, 48, int(cfg.SessionTTL().Hours()))
}
