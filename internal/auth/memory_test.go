package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreateAndLookup(t *testing.T) {
	s := NewMemoryStore()
	rec, err := s.Create(context.Background(), "player-1", "BriskFalcon", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, rec.Token)

	got, err := s.Lookup(context.Background(), rec.Token)
	require.NoError(t, err)
	require.Equal(t, "player-1", got.PlayerID)
	require.Equal(t, "BriskFalcon", got.Username)
}

func TestMemoryStoreExpiredSessionRejected(t *testing.T) {
	s := NewMemoryStore()
	rec, err := s.Create(context.Background(), "player-1", "BriskFalcon", -time.Minute)
	require.NoError(t, err)

	_, err = s.Lookup(context.Background(), rec.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	rec, err := s.Create(context.Background(), "player-1", "BriskFalcon", time.Hour)
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), rec.Token))
	_, err = s.Lookup(context.Background(), rec.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestValidatorRejectsEmptyToken(t *testing.T) {
	v := NewValidator(NewMemoryStore())
	_, err := v.Validate(context.Background(), "")
	require.ErrorIs(t, err, ErrSessionNotFound)
}
