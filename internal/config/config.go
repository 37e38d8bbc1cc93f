// Package config loads the environment variables spec §6 names, following
// the teacher's main.go convention of small os.Getenv-with-default helpers
// rather than a config-struct-building library — the teacher pack has no
// config parsing dependency, so this stays on the standard library, noted
// in DESIGN.md as one of the required "why no library" justifications.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every SPEC_FULL.md §10 setting.
type Config struct {
	Port                  string
	DatabaseURL           string
	JWTSecret             string
	SessionExpirationDays int
	AuthMode              string
	BusCapacity           int
}

// FromEnv reads Config from the process environment, applying spec §6's
// documented defaults.
func FromEnv() Config {
	return Config{
		Port:                  getenv("PORT", "3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		SessionExpirationDays: getenvInt("SESSION_EXPIRATION_DAYS", 365),
		AuthMode:              strings.ToLower(strings.TrimSpace(os.Getenv("AUTH_MODE"))),
		BusCapacity:           getenvInt("BUS_CAPACITY", 100),
	}
}

// SessionTTL converts SessionExpirationDays to a duration.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionExpirationDays) * 24 * time.Hour
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
