package card

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStringRoundTrip(t *testing.T) {
	for _, c := range Deck {
		s := c.String()
		got, err := Parse(s)
		require.NoError(t, err)
		require.Equal(t, c, got)
	}
}

func TestRankOrder(t *testing.T) {
	require.True(t, New(Three, Spades).Less(New(Four, Diamonds)))
	require.True(t, New(King, Diamonds).Less(New(Ace, Diamonds)))
	require.True(t, New(Ace, Diamonds).Less(New(Two, Diamonds)))
	require.False(t, New(Two, Diamonds).Less(New(Ace, Spades)))
}

func TestSuitOrderWithinRank(t *testing.T) {
	require.True(t, New(Five, Diamonds).Less(New(Five, Clubs)))
	require.True(t, New(Five, Clubs).Less(New(Five, Hearts)))
	require.True(t, New(Five, Hearts).Less(New(Five, Spades)))
}

func TestDeckComplete(t *testing.T) {
	require.Len(t, Deck, 52)
	seen := map[Card]bool{}
	for _, c := range Deck {
		require.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("1D")
	require.Error(t, err)
	_, err = Parse("3Z")
	require.Error(t, err)
	_, err = Parse("")
	require.Error(t, err)
}
