package bigtwo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bigtwo-lite/internal/card"
)

func mustCards(t *testing.T, wire ...string) []card.Card {
	t.Helper()
	out := make([]card.Card, len(wire))
	for i, w := range wire {
		c, err := card.Parse(w)
		require.NoError(t, err)
		out[i] = c
	}
	return out
}

// newDealtGame deals with a fixed seed and returns the game plus the seat
// holding 3D so tests can script scenarios deterministically.
func newDealtGame(t *testing.T, seed int64, requireOpening bool) (*Game, int) {
	t.Helper()
	g := Create([4]string{"A", "B", "C", "D"}, seed, requireOpening)
	return g, g.TurnIndex
}

func TestFirstMoveMustInclude3D(t *testing.T) {
	g, opener := newDealtGame(t, 1, true)
	other := g.Hands[opener][0]
	if other == card.ThreeOfDiamonds {
		other = g.Hands[opener][1]
	}
	_, err := g.ApplyMove(opener, []card.Card{other})
	require.Error(t, err)
	var gerr *GameError
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, KindMustInclude3D, gerr.Kind)
}

func TestNotYourTurn(t *testing.T) {
	g, opener := newDealtGame(t, 1, true)
	notTurn := (opener + 1) % 4
	_, err := g.ApplyMove(notTurn, g.Hands[notTurn][:1])
	require.Error(t, err)
	var gerr *GameError
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, KindNotYourTurn, gerr.Kind)
	require.Equal(t, 13, len(g.Hands[notTurn])) // state untouched
}

func TestStraightBeatsPairRejectsWrongCount(t *testing.T) {
	g, _ := newDealtGame(t, 1, false)
	g.TurnIndex = 1
	g.TrickLeader = 1
	straight := mustCards(t, "4C", "5D", "6H", "7S", "8C")
	g.Hands[1] = append(g.Hands[1], straight...)
	delta, err := g.ApplyMove(1, straight)
	require.NoError(t, err)
	require.Equal(t, 2, delta.NextTurn)

	g.Hands[2] = append(g.Hands[2], mustCards(t, "9D", "9C")...)
	_, err = g.ApplyMove(2, mustCards(t, "9D", "9C"))
	require.Error(t, err)
	var gerr *GameError
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, KindWrongCardCount, gerr.Kind)

	sf := mustCards(t, "9H", "TH", "JH", "QH", "KH")
	g.Hands[2] = append(g.Hands[2], sf...)
	delta, err = g.ApplyMove(2, sf)
	require.NoError(t, err)
	require.Equal(t, 3, delta.NextTurn)
}

func TestWinEmptiesHand(t *testing.T) {
	g, _ := newDealtGame(t, 1, false)
	g.TurnIndex = 3
	g.TrickLeader = 3
	g.Hands[3] = mustCards(t, "2S")
	delta, err := g.ApplyMove(3, g.Hands[3])
	require.NoError(t, err)
	require.True(t, delta.GameEnded)
	require.Equal(t, 3, delta.WinnerSeat)
	require.Equal(t, 3, g.Winner)
}

func TestTrickDiesAfterThreePasses(t *testing.T) {
	g, _ := newDealtGame(t, 1, false)
	g.TurnIndex = 0
	g.TrickLeader = 0
	single := g.Hands[0][:1]
	_, err := g.ApplyMove(0, single)
	require.NoError(t, err)
	require.Equal(t, 1, g.TurnIndex)

	for seat := 1; seat <= 3; seat++ {
		delta, err := g.ApplyPass(seat)
		require.NoError(t, err)
		if seat < 3 {
			require.False(t, delta.TrickDied)
			require.Less(t, g.ConsecutivePass, 3)
		} else {
			require.True(t, delta.TrickDied)
			require.Equal(t, 0, g.ConsecutivePass)
			require.Nil(t, g.LastPlayed)
			require.Equal(t, 0, g.TrickLeader)
		}
	}
	require.Equal(t, 0, g.TurnIndex)
}

func TestLeaderCannotPass(t *testing.T) {
	g, opener := newDealtGame(t, 1, false)
	_, err := g.ApplyPass(opener)
	require.Error(t, err)
	var gerr *GameError
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, KindLeaderCannotPass, gerr.Kind)
}

func TestUnionOfHandsAndHistoryIsFullDeck(t *testing.T) {
	g, opener := newDealtGame(t, 42, false)
	leader := opener
	for round := 0; round < 3; round++ {
		hand := g.Hands[leader]
		if len(hand) == 0 {
			break
		}
		_, err := g.ApplyMove(leader, hand[:1])
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			_, err := g.ApplyPass(g.TurnIndex)
			require.NoError(t, err)
		}
		leader = g.TrickLeader
	}

	seen := map[card.Card]bool{}
	for _, h := range g.Hands {
		for _, c := range h {
			seen[c] = true
		}
	}
	for _, entry := range g.PlayedHistory {
		if entry.Hand == nil {
			continue
		}
		for _, c := range entry.Hand.Cards {
			seen[c] = true
		}
	}
	require.Len(t, seen, 52)
}
