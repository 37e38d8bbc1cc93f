// Package game implements spec §4.4: the single per-room subscriber
// permitted to mutate game state. It is the only consumer of TryPlayMove,
// TryPass, and TryStartGame; every other subscriber only ever observes the
// MovePlayed/Passed/TurnChanged/GameWon/GameReset state events it emits.
//
// It derives its own roster/host cache purely from the PlayerJoined,
// PlayerLeft, and HostChanged state events it observes on the bus — the same
// "pure consumer maintaining derived state" shape spec §4.5 describes for the
// stats subscriber ("watches MovePlayed to remember the latest snapshot").
// This keeps it from ever reaching into the room coordinator directly.
package game

import (
	"log"
	"time"

	"bigtwo-lite/internal/bigtwo"
	"bigtwo-lite/internal/bus"
	"bigtwo-lite/internal/card"
	"bigtwo-lite/internal/events"
)

// ResetDelay is the design value from spec §4.4: how long a won game sits in
// between_games before GameReset fires.
const ResetDelay = 5 * time.Second

// Subscriber owns the authoritative *bigtwo.Game for one room.
type Subscriber struct {
	bus    *bus.Bus
	roomID string
	in     <-chan events.Event

	roster          map[string]int // playerID -> seat index
	seatOf          [4]string      // seat index -> playerID, "" if empty
	host            string
	firstGamePlayed bool
	game            *bigtwo.Game

	resetTimer *time.Timer
	resetGen   int // invalidates a pending reset timer once a new game starts
}

// New registers a new game subscriber for roomID and returns it unstarted;
// call Run in its own goroutine.
func New(b *bus.Bus, roomID string) *Subscriber {
	return &Subscriber{
		bus:    b,
		roomID: roomID,
		in:     b.Subscribe(roomID, "game"),
		roster: make(map[string]int),
	}
}

// Run processes events until the room's bus channel closes (room deleted).
func (s *Subscriber) Run() {
	for ev := range s.in {
		s.handle(ev)
	}
	if s.resetTimer != nil {
		s.resetTimer.Stop()
	}
}

func (s *Subscriber) handle(ev events.Event) {
	switch ev.Kind {
	case events.PlayerJoined:
		p := ev.Payload.(events.PlayerJoinedPayload)
		s.roster[p.SeatID] = p.SeatIndex
		if p.SeatIndex >= 0 && p.SeatIndex < 4 {
			s.seatOf[p.SeatIndex] = p.SeatID
		}
	case events.PlayerLeft:
		p := ev.Payload.(events.PlayerLeftPayload)
		delete(s.roster, p.SeatID)
		if p.SeatIndex >= 0 && p.SeatIndex < 4 {
			s.seatOf[p.SeatIndex] = ""
		}
	case events.HostChanged:
		p := ev.Payload.(events.HostChangedPayload)
		s.host = p.New
	case events.TryStartGame:
		s.handleStart(ev)
	case events.TryPlayMove:
		s.handleMove(ev)
	case events.TryPass:
		s.handlePass(ev)
	case events.GameReset:
		s.game = nil
	}
}

func respond(ev events.Event, err error) {
	if ev.Response != nil {
		ev.Response <- err
	}
}

func (s *Subscriber) handleStart(ev events.Event) {
	p := ev.Payload.(events.TryStartGamePayload)
	if s.host != "" && p.HostID != s.host {
		respond(ev, ErrNotHost)
		return
	}
	if s.game != nil && !s.game.Ended() {
		respond(ev, ErrGameInProgress)
		return
	}
	var seats [4]string
	occupied := 0
	for i, id := range s.seatOf {
		seats[i] = id
		if id != "" {
			occupied++
		}
	}
	if occupied < 4 {
		respond(ev, ErrNotEnoughSeats)
		return
	}

	if s.resetTimer != nil {
		s.resetTimer.Stop()
	}
	s.resetGen++
	g := bigtwo.Create(seats, 0, !s.firstGamePlayed)
	s.game = g
	s.firstGamePlayed = true
	respond(ev, nil)

	s.bus.Publish(events.Event{Kind: events.GameCreated, RoomID: s.roomID, Payload: events.GameCreatedPayload{Snapshot: g.Snapshot()}})
	s.bus.Publish(events.Event{Kind: events.GameStarted, RoomID: s.roomID, Payload: events.GameStartedPayload{Snapshot: g.Snapshot()}})
	s.bus.Publish(events.Event{Kind: events.TurnChanged, RoomID: s.roomID, Payload: events.TurnChangedPayload{SeatID: seats[g.TurnIndex]}})
}

func (s *Subscriber) handleMove(ev events.Event) {
	p := ev.Payload.(events.TryPlayMovePayload)
	if s.game == nil {
		respond(ev, ErrGameNotRunning)
		return
	}
	seat, ok := s.roster[p.SeatID]
	if !ok {
		respond(ev, ErrUnknownSeat)
		return
	}
	cards := make([]card.Card, 0, len(p.Cards))
	for _, w := range p.Cards {
		c, err := card.Parse(w)
		if err != nil {
			respond(ev, err)
			return
		}
		cards = append(cards, c)
	}

	delta, err := s.game.ApplyMove(seat, cards)
	if err != nil {
		respond(ev, err)
		return
	}
	respond(ev, nil)

	snap := s.game.Snapshot()
	s.bus.Publish(events.Event{Kind: events.MovePlayed, RoomID: s.roomID, Payload: events.MovePlayedPayload{SeatID: p.SeatID, Hand: *delta.Hand, Snapshot: snap}})

	if delta.GameEnded {
		s.finishGame(delta.WinnerSeat)
		return
	}
	s.bus.Publish(events.Event{Kind: events.TurnChanged, RoomID: s.roomID, Payload: events.TurnChangedPayload{SeatID: s.seatOf[delta.NextTurn]}})
}

func (s *Subscriber) handlePass(ev events.Event) {
	p := ev.Payload.(events.TryPassPayload)
	if s.game == nil {
		respond(ev, ErrGameNotRunning)
		return
	}
	seat, ok := s.roster[p.SeatID]
	if !ok {
		respond(ev, ErrUnknownSeat)
		return
	}
	delta, err := s.game.ApplyPass(seat)
	if err != nil {
		respond(ev, err)
		return
	}
	respond(ev, nil)

	snap := s.game.Snapshot()
	s.bus.Publish(events.Event{Kind: events.Passed, RoomID: s.roomID, Payload: events.PassedPayload{SeatID: p.SeatID, Snapshot: snap}})
	s.bus.Publish(events.Event{Kind: events.TurnChanged, RoomID: s.roomID, Payload: events.TurnChangedPayload{SeatID: s.seatOf[delta.NextTurn]}})
}

func (s *Subscriber) finishGame(winnerSeat int) {
	winnerID := s.seatOf[winnerSeat]
	s.bus.Publish(events.Event{Kind: events.GameWon, RoomID: s.roomID, Payload: events.GameWonPayload{WinnerID: winnerID}})

	s.resetGen++
	gen := s.resetGen
	room := s.roomID
	b := s.bus
	s.resetTimer = time.AfterFunc(ResetDelay, func() {
		if gen != s.resetGen {
			return // cancelled: a new game started (room teardown stops the timer in Run)
		}
		log.Printf("[Game %s] auto-reset firing", room)
		b.Publish(events.Event{Kind: events.GameReset, RoomID: room, Payload: events.GameResetPayload{}})
	})
}
