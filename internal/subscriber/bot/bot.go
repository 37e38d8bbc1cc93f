// Package bot implements spec §4.6: a per-room subscriber that plays bot
// seats. It schedules a move only on TurnChanged (other events update its
// cached snapshot and bot set or cancel pending moves) and emits
// TryPlayMove/TryPass back onto the same bus — it never calls the game subscriber directly, and it
// never sees anything the bus doesn't hand it.
//
// Think-time is modelled the way the teacher models NPC turns
// (holdem/npc/manager.go's SpawnNPC: a goroutine sleeping a persona-derived
// delay, then re-submitting a decision) but as an explicit cancellable timer
// handle per spec §9's redesign note ("delayed reset and bot think are
// modelled as explicit cancellable timer handles owned by the spawning
// subscriber, not as sleeping tasks holding references").
package bot

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"bigtwo-lite/internal/bigtwo"
	"bigtwo-lite/internal/bus"
	"bigtwo-lite/internal/card"
	"bigtwo-lite/internal/events"
)

// MinThink and MaxThink bound the think-time delay (spec §4.6: 0.5-2s).
const (
	MinThink = 500 * time.Millisecond
	MaxThink = 2000 * time.Millisecond
)

type pendingThink struct {
	timer *time.Timer
	gen   int
}

// Subscriber plays every bot-occupied seat in one room.
type Subscriber struct {
	bus    *bus.Bus
	roomID string
	in     <-chan events.Event
	rng    *rand.Rand

	mu       sync.Mutex
	bots     map[string]bool // playerID -> is a bot
	pending  map[string]*pendingThink
	latest   *bigtwo.Snapshot
	seatOfID map[string]int // derived from latest.Seats each time it updates
	nextGen  int
}

// New registers a bot subscriber for roomID.
func New(b *bus.Bus, roomID string) *Subscriber {
	return &Subscriber{
		bus:     b,
		roomID:  roomID,
		in:      b.Subscribe(roomID, "bot"),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		bots:    make(map[string]bool),
		pending: make(map[string]*pendingThink),
	}
}

// Run processes events until the room's bus channel closes.
func (s *Subscriber) Run() {
	for ev := range s.in {
		s.handle(ev)
	}
}

func (s *Subscriber) handle(ev events.Event) {
	switch ev.Kind {
	case events.BotAdded:
		p := ev.Payload.(events.BotAddedPayload)
		s.mu.Lock()
		s.bots[p.BotID] = true
		s.mu.Unlock()
	case events.BotRemoved:
		p := ev.Payload.(events.BotRemovedPayload)
		s.cancel(p.BotID)
		s.mu.Lock()
		delete(s.bots, p.BotID)
		s.mu.Unlock()
	case events.PlayerLeft:
		p := ev.Payload.(events.PlayerLeftPayload)
		s.cancel(p.SeatID)
	case events.GameCreated:
		p := ev.Payload.(events.GameCreatedPayload)
		s.setSnapshot(p.Snapshot)
	case events.GameStarted:
		p := ev.Payload.(events.GameStartedPayload)
		s.setSnapshot(p.Snapshot)
	case events.MovePlayed:
		p := ev.Payload.(events.MovePlayedPayload)
		s.setSnapshot(p.Snapshot)
	case events.Passed:
		p := ev.Payload.(events.PassedPayload)
		s.setSnapshot(p.Snapshot)
	case events.GameWon:
		s.cancelAll()
	case events.GameReset:
		s.cancelAll()
	case events.TurnChanged:
		p := ev.Payload.(events.TurnChangedPayload)
		s.onTurnChanged(p.SeatID)
	}
}

func (s *Subscriber) setSnapshot(snap bigtwo.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &snap
	s.seatOfID = make(map[string]int, 4)
	for i, id := range snap.Seats {
		if id != "" {
			s.seatOfID[id] = i
		}
	}
}

func (s *Subscriber) onTurnChanged(playerID string) {
	s.mu.Lock()
	isBot := s.bots[playerID]
	s.mu.Unlock()
	if !isBot || playerID == "" {
		return
	}

	s.mu.Lock()
	s.cancelLocked(playerID)
	s.nextGen++
	gen := s.nextGen
	delay := MinThink + time.Duration(s.rng.Int63n(int64(MaxThink-MinThink)+1))
	pt := &pendingThink{gen: gen}
	pt.timer = time.AfterFunc(delay, func() { s.think(playerID, gen) })
	s.pending[playerID] = pt
	s.mu.Unlock()
}

func (s *Subscriber) think(playerID string, gen int) {
	s.mu.Lock()
	pt, ok := s.pending[playerID]
	if !ok || pt.gen != gen {
		s.mu.Unlock()
		return // cancelled
	}
	snap := s.latest
	seat, haveSeat := s.seatOfID[playerID]
	delete(s.pending, playerID)
	s.mu.Unlock()

	if snap == nil || !haveSeat {
		return
	}

	move := decide(*snap, seat)
	if move == nil {
		s.bus.Publish(events.Event{Kind: events.TryPass, RoomID: s.roomID, Payload: events.TryPassPayload{SeatID: playerID}})
		return
	}
	wire := make([]string, len(move))
	for i, c := range move {
		wire[i] = c.String()
	}
	s.bus.Publish(events.Event{Kind: events.TryPlayMove, RoomID: s.roomID, Payload: events.TryPlayMovePayload{SeatID: playerID, Cards: wire}})
}

func (s *Subscriber) cancel(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(playerID)
}

func (s *Subscriber) cancelLocked(playerID string) {
	if pt, ok := s.pending[playerID]; ok {
		pt.timer.Stop()
		delete(s.pending, playerID)
	}
}

func (s *Subscriber) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, pt := range s.pending {
		pt.timer.Stop()
		delete(s.pending, id)
	}
}

// decide implements the basic strategy from spec §4.6. It returns nil for a
// pass.
func decide(snap bigtwo.Snapshot, seat int) []card.Card {
	hand := append([]card.Card(nil), snap.Hands[seat]...)
	sort.Slice(hand, func(i, j int) bool { return hand[i].Less(hand[j]) })

	if snap.LastPlayed == nil {
		if len(hand) == 0 {
			return nil
		}
		return []card.Card{hand[0]}
	}

	k := len(snap.LastPlayed.Cards)
	best := bestOfSize(hand, k, *snap.LastPlayed)
	if best == nil {
		return nil
	}
	return best
}

// bestOfSize enumerates every k-card subset of hand, keeps the ones that
// classify and dominate lead, and returns the minimum-ranked legal one.
func bestOfSize(hand []card.Card, k int, lead bigtwo.Hand) []card.Card {
	if k <= 0 || k > len(hand) {
		return nil
	}
	var bestHand *bigtwo.Hand
	var bestCards []card.Card

	combo := make([]int, k)
	var rec func(start, depth int)
	rec = func(start, depth int) {
		if depth == k {
			cards := make([]card.Card, k)
			for i, idx := range combo {
				cards[i] = hand[idx]
			}
			h, err := bigtwo.Classify(cards)
			if err != nil {
				return
			}
			dominates, err := h.Dominates(lead)
			if err != nil || !dominates {
				return
			}
			if bestHand == nil {
				bestHand, bestCards = &h, cards
				return
			}
			if worse, _ := bestHand.Dominates(h); worse {
				bestHand, bestCards = &h, cards
			}
			return
		}
		for i := start; i <= len(hand)-(k-depth); i++ {
			combo[depth] = i
			rec(i+1, depth+1)
		}
	}
	rec(0, 0)
	return bestCards
}
