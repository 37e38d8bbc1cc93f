// Package stats implements spec §4.5: per-room result aggregation. It adds
// results only on GameWon (and discards them when the last human leaves),
// but it watches MovePlayed purely to cache the
// latest snapshot so that, when GameWon arrives, it already knows exactly
// how many cards each seat held at the moment the winner emptied — the same
// "watches one event to remember state needed by another" shape spec.md
// spells out explicitly for this subscriber.
package stats

import (
	"sync"

	"bigtwo-lite/internal/bigtwo"
	"bigtwo-lite/internal/bus"
	"bigtwo-lite/internal/events"
)

// Subscriber aggregates results for one room.
type Subscriber struct {
	bus    *bus.Bus
	roomID string
	in     <-chan events.Event

	// mu guards the fields below: Run's goroutine writes them, REST handlers
	// (GET /room/{id}/stats) read them from a different goroutine via
	// Snapshot.
	mu          sync.Mutex
	latest      *bigtwo.Snapshot
	bots        map[string]bool
	humanCount  int
	gamesPlayed int
	hadBotsEver bool
	bySeat      map[string]events.SeatStats
}

// New registers a stats subscriber for roomID.
func New(b *bus.Bus, roomID string) *Subscriber {
	return &Subscriber{
		bus:    b,
		roomID: roomID,
		in:     b.Subscribe(roomID, "stats"),
		bots:   make(map[string]bool),
		bySeat: make(map[string]events.SeatStats),
	}
}

// Run processes events until the room's bus channel closes.
func (s *Subscriber) Run() {
	for ev := range s.in {
		s.handle(ev)
	}
}

// Snapshot returns the current aggregate for GET /room/{id}/stats.
func (s *Subscriber) Snapshot() events.RoomStatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]events.SeatStats, len(s.bySeat))
	for id, st := range s.bySeat {
		out[id] = st
	}
	return events.RoomStatsSnapshot{GamesPlayed: s.gamesPlayed, HadBots: s.hadBotsEver, BySeat: out}
}

func (s *Subscriber) handle(ev events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Kind {
	case events.PlayerJoined:
		p := ev.Payload.(events.PlayerJoinedPayload)
		if p.Kind == "bot" {
			s.bots[p.SeatID] = true
		} else {
			s.humanCount++
		}
	case events.PlayerLeft:
		p := ev.Payload.(events.PlayerLeftPayload)
		if p.Kind == "bot" {
			delete(s.bots, p.SeatID)
		} else {
			s.humanCount--
			if s.humanCount <= 0 {
				s.discard()
			}
		}
	case events.BotAdded:
		p := ev.Payload.(events.BotAddedPayload)
		s.bots[p.BotID] = true
	case events.BotRemoved:
		p := ev.Payload.(events.BotRemovedPayload)
		delete(s.bots, p.BotID)
	case events.GameCreated:
		p := ev.Payload.(events.GameCreatedPayload)
		s.latest = &p.Snapshot
	case events.MovePlayed:
		p := ev.Payload.(events.MovePlayedPayload)
		s.latest = &p.Snapshot
	case events.Passed:
		p := ev.Payload.(events.PassedPayload)
		s.latest = &p.Snapshot
	case events.GameWon:
		p := ev.Payload.(events.GameWonPayload)
		s.onGameWon(p.WinnerID)
	}
}

func (s *Subscriber) discard() {
	s.gamesPlayed = 0
	s.bySeat = make(map[string]events.SeatStats)
	s.hadBotsEver = false
}

func (s *Subscriber) onGameWon(winnerID string) {
	if s.latest == nil {
		return
	}
	snap := *s.latest
	s.gamesPlayed++

	hadBots := false
	for _, id := range snap.Seats {
		if s.bots[id] {
			hadBots = true
			break
		}
	}
	if hadBots {
		s.hadBotsEver = true
	}

	for i, id := range snap.Seats {
		if id == "" {
			continue
		}
		st := s.bySeat[id]
		st.GamesPlayed++
		if id == winnerID {
			st.Wins++
			st.CurrentStreak++
			if st.CurrentStreak > st.BestStreak {
				st.BestStreak = st.CurrentStreak
			}
		} else {
			remaining := snap.HandSizes[i]
			multiplier := 1
			if remaining >= 10 {
				multiplier = 2
			}
			st.TotalScore += remaining * multiplier
			st.CurrentStreak = 0
		}
		s.bySeat[id] = st
	}

	out := make(map[string]events.SeatStats, len(s.bySeat))
	for id, st := range s.bySeat {
		out[id] = st
	}
	s.bus.Publish(events.Event{
		Kind:   events.StatsUpdated,
		RoomID: s.roomID,
		Payload: events.StatsUpdatedPayload{Snapshot: events.RoomStatsSnapshot{
			GamesPlayed: s.gamesPlayed,
			HadBots:     s.hadBotsEver,
			BySeat:      out,
		}},
	})
}
