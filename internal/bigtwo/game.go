// Package bigtwo implements the Big Two hand classifier and the per-room
// rules engine described in spec §3 and §4.1-4.2: pure card-combination logic
// plus the game state machine (create/apply_move/apply_pass).
package bigtwo

import (
	"time"

	"bigtwo-lite/internal/card"
)

// PlayedEntry records one turn of history: either a played Hand or a pass.
type PlayedEntry struct {
	Seat      int
	Hand      *Hand // nil on a pass
	TurnIndex int
}

// Game is the mutable per-room record for one hand of Big Two (spec §3).
// A fresh Game is produced by Create and mutated only through ApplyMove and
// ApplyPass; all other subsystems observe it via snapshots (Snapshot).
type Game struct {
	Seats           [4]string // player stable ids, snapshot of the room at start
	Hands           [4][]card.Card
	TurnIndex       int
	ConsecutivePass int
	TrickLeader     int
	LastPlayed      *Hand
	PlayedHistory   []PlayedEntry
	StartedAt       time.Time

	// requireOpening3D is true only for the first game dealt in a room's
	// lifetime (spec I5); later games in the same room do not constrain the
	// trick leader's opening hand.
	requireOpening3D bool
	openingPlayed    bool
	Winner           int // -1 until the game ends
}

// Create deals 13 cards to each of four seats and sets turn_index to the seat
// holding 3♦, per spec §4.2. deckSeed of 0 draws fresh entropy.
func Create(seats [4]string, deckSeed int64, requireOpening3D bool) *Game {
	deck := card.Shuffled(deckSeed)
	g := &Game{
		Seats:            seats,
		StartedAt:        time.Now(),
		requireOpening3D: requireOpening3D,
		Winner:           -1,
	}
	for seat := 0; seat < 4; seat++ {
		hand := make([]card.Card, 13)
		copy(hand, deck[seat*13:(seat+1)*13])
		g.Hands[seat] = hand
		for _, c := range hand {
			if c == card.ThreeOfDiamonds {
				g.TurnIndex = seat
				g.TrickLeader = seat
			}
		}
	}
	return g
}

// GameDelta describes the effect of a successful ApplyMove/ApplyPass call,
// enough for the game subscriber to build MovePlayed/Passed/TurnChanged/
// GameWon events without reaching back into Game internals.
type GameDelta struct {
	Seat        int
	Hand        *Hand // nil on pass
	TrickDied   bool  // consecutive_pass just reached seats-1
	NextTurn    int
	GameEnded   bool
	WinnerSeat  int
}

func (g *Game) ended() bool { return g.Winner >= 0 }

// Ended reports whether the game already has a winner.
func (g *Game) Ended() bool { return g.ended() }

func (g *Game) ownsAll(seat int, cards []card.Card) bool {
	have := map[card.Card]int{}
	for _, c := range g.Hands[seat] {
		have[c]++
	}
	for _, c := range cards {
		if have[c] == 0 {
			return false
		}
		have[c]--
	}
	return true
}

func (g *Game) removeCards(seat int, cards []card.Card) {
	remove := map[card.Card]int{}
	for _, c := range cards {
		remove[c]++
	}
	out := g.Hands[seat][:0]
	for _, c := range g.Hands[seat] {
		if remove[c] > 0 {
			remove[c]--
			continue
		}
		out = append(out, c)
	}
	g.Hands[seat] = out
}

// ApplyMove validates and applies a play by seat, per spec §4.2.
func (g *Game) ApplyMove(seat int, cards []card.Card) (*GameDelta, error) {
	if g.ended() {
		return nil, newErr(KindGameAlreadyEnded, "game already has a winner")
	}
	if seat != g.TurnIndex {
		return nil, newErr(KindNotYourTurn, "it is seat %d's turn", g.TurnIndex)
	}
	if !g.ownsAll(seat, cards) {
		return nil, newErr(KindDontOwnCards, "seat %d does not hold all named cards", seat)
	}

	hand, err := Classify(cards)
	if err != nil {
		if ge, ok := err.(*GameError); ok && ge.Kind == KindNotAValidCombination {
			return nil, newErr(KindInvalidHand, "%s", ge.Message)
		}
		return nil, err
	}

	if g.requireOpening3D && !g.openingPlayed {
		has3D := false
		for _, c := range cards {
			if c == card.ThreeOfDiamonds {
				has3D = true
				break
			}
		}
		if !has3D {
			return nil, newErr(KindMustInclude3D, "first move of the room's first game must include 3D")
		}
	}

	trickAlive := g.LastPlayed != nil
	if trickAlive {
		dominates, err := hand.Dominates(*g.LastPlayed)
		if err != nil {
			return nil, err
		}
		if !dominates {
			return nil, newErr(KindCannotBeatLastHand, "does not beat the current lead")
		}
	}

	g.removeCards(seat, cards)
	g.LastPlayed = &hand
	g.TrickLeader = seat
	g.ConsecutivePass = 0
	g.openingPlayed = true
	g.PlayedHistory = append(g.PlayedHistory, PlayedEntry{Seat: seat, Hand: &hand, TurnIndex: g.TurnIndex})

	delta := &GameDelta{Seat: seat, Hand: &hand, WinnerSeat: -1}
	if len(g.Hands[seat]) == 0 {
		g.Winner = seat
		delta.GameEnded = true
		delta.WinnerSeat = seat
		return delta, nil
	}
	g.TurnIndex = (g.TurnIndex + 1) % 4
	delta.NextTurn = g.TurnIndex
	return delta, nil
}

// ApplyPass records a pass, per spec §4.2.
func (g *Game) ApplyPass(seat int) (*GameDelta, error) {
	if g.ended() {
		return nil, newErr(KindGameAlreadyEnded, "game already has a winner")
	}
	if seat != g.TurnIndex {
		return nil, newErr(KindNotYourTurn, "it is seat %d's turn", g.TurnIndex)
	}
	if seat == g.TrickLeader {
		return nil, newErr(KindLeaderCannotPass, "the trick leader cannot pass into their own trick")
	}
	if g.requireOpening3D && !g.openingPlayed {
		return nil, newErr(KindMustInclude3D, "the first move of the room's first game must be played, not passed")
	}

	g.PlayedHistory = append(g.PlayedHistory, PlayedEntry{Seat: seat, Hand: nil, TurnIndex: g.TurnIndex})
	g.ConsecutivePass++
	delta := &GameDelta{Seat: seat, WinnerSeat: -1}

	if g.ConsecutivePass >= 3 {
		delta.TrickDied = true
		g.TrickLeader = g.lastPlayerSeat()
		g.LastPlayed = nil
		g.ConsecutivePass = 0
	}

	g.TurnIndex = (g.TurnIndex + 1) % 4
	delta.NextTurn = g.TurnIndex
	return delta, nil
}

// lastPlayerSeat returns the seat that most recently played cards (not passed).
func (g *Game) lastPlayerSeat() int {
	for i := len(g.PlayedHistory) - 1; i >= 0; i-- {
		if g.PlayedHistory[i].Hand != nil {
			return g.PlayedHistory[i].Seat
		}
	}
	return g.TrickLeader
}

// Snapshot is an immutable capture of game state bundled into bus events
// (spec GLOSSARY: "Snapshot"). It carries every seat's actual cards: the bus
// is an internal, server-side mechanism (not the wire), so the bot
// subscriber can read its own seat's hand to decide a move and the stats
// subscriber can read cards_remaining. Redaction to "my hand in full, every
// other seat as a count" happens once, at the socket subscriber, which is the
// only place a Snapshot is turned into client-visible JSON.
type Snapshot struct {
	Seats           [4]string
	Hands           [4][]card.Card
	HandSizes       [4]int
	TurnIndex       int
	TrickLeader     int
	LastPlayed      *Hand
	ConsecutivePass int
	Winner          int
	StartedAt       time.Time
}

// Snapshot captures the current state. Hand slices are copied so callers
// cannot mutate live game state through the returned value.
func (g *Game) Snapshot() Snapshot {
	var sizes [4]int
	var hands [4][]card.Card
	for i, h := range g.Hands {
		sizes[i] = len(h)
		hands[i] = append([]card.Card(nil), h...)
	}
	return Snapshot{
		Seats:           g.Seats,
		Hands:           hands,
		HandSizes:       sizes,
		TurnIndex:       g.TurnIndex,
		TrickLeader:     g.TrickLeader,
		LastPlayed:      g.LastPlayed,
		ConsecutivePass: g.ConsecutivePass,
		Winner:          g.Winner,
		StartedAt:       g.StartedAt,
	}
}

// HandOf returns the current hand held by seat. The bot subscriber does not
// use it; it reads hands from Snapshot. Callers must not mutate the returned
// slice.
func (g *Game) HandOf(seat int) []card.Card {
	return g.Hands[seat]
}
