// Package auth implements spec §6's bearer-token session model: opaque
// tokens minted by POST /session and validated on every other authenticated
// request or socket upgrade. There is no password credential anywhere in
// this system (see SPEC_FULL.md §11), so unlike the teacher's auth package
// this one carries no bcrypt and no username/password Register/Login pair —
// only token mint, lookup, and delete, against the single `user_sessions`
// table spec §6 names.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

const (
	// DefaultTTL backs SESSION_EXPIRATION_DAYS' documented default of 365.
	DefaultTTL = 365 * 24 * time.Hour
	tokenBytes = 32
)

var (
	ErrSessionNotFound = errors.New("session not found or expired")
)

// Record is one row of user_sessions (spec §6).
type Record struct {
	Token        string
	PlayerID     string
	Username     string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	LastAccessed time.Time
}

// Store is the persistence boundary spec.md names as an external
// collaborator ("a SessionStore with create/lookup/delete").
type Store interface {
	Create(ctx context.Context, playerID, username string, ttl time.Duration) (Record, error)
	Lookup(ctx context.Context, token string) (Record, error)
	Delete(ctx context.Context, token string) error
	Close() error
}

func mustToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// Validator is the other external collaborator spec.md names ("an opaque
// SessionValidator"). It is a thin synchronous wrapper over Store.Lookup,
// matching spec §5's "validation is a single point lookup per inbound
// request" shared-resource note.
type Validator struct {
	store Store
}

func NewValidator(store Store) *Validator {
	return &Validator{store: store}
}

// Validate resolves a bearer token to its bound player identity.
func (v *Validator) Validate(ctx context.Context, token string) (Record, error) {
	if token == "" {
		return Record{}, ErrSessionNotFound
	}
	return v.store.Lookup(ctx, token)
}
