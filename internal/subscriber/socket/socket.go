// Package socket implements spec §4.7: the egress subscriber that turns bus
// state events into JSON envelopes and fans them out to connected clients
// per the targeting rules in §4.7, enforcing the per-seat back-pressure
// deadline from §5 (design value 1s) before forcibly closing a slow client.
//
// It knows nothing about websockets: gateway.Connection implements Conn and
// registers/deregisters itself here, the same separation the teacher draws
// between gateway.go (transport) and its broadcast helpers (table.go's
// broadcastToAll/sendToUser), generalized so transport and serialization
// never call into each other directly — only through this subscriber's
// event-driven loop.
package socket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"bigtwo-lite/internal/bigtwo"
	"bigtwo-lite/internal/bus"
	"bigtwo-lite/internal/events"
)

// EnqueueDeadline is the design value from spec §5: how long a slow client
// gets before its connection is force-closed.
const EnqueueDeadline = time.Second

// Conn is the minimal handle this subscriber needs from a transport
// connection. gateway.Connection implements it.
type Conn interface {
	PlayerID() string
	TrySend(data []byte, deadline time.Duration) bool
	Close()
}

// Subscriber fans bus events out to every connected client in one room.
type Subscriber struct {
	bus    *bus.Bus
	roomID string
	in     <-chan events.Event

	mu      sync.Mutex
	conns   map[string]Conn // playerID -> connection
	roster  map[string]events.PlayerSummary
	latest  *bigtwo.Snapshot
}

// New registers a socket subscriber for roomID.
func New(b *bus.Bus, roomID string) *Subscriber {
	return &Subscriber{
		bus:    b,
		roomID: roomID,
		in:     b.Subscribe(roomID, "socket"),
		conns:  make(map[string]Conn),
		roster: make(map[string]events.PlayerSummary),
	}
}

// Register attaches a transport connection to this room. Call this exactly
// once ingress has validated the session and upgraded the socket; it does
// not itself emit PlayerConnected — the caller does, through the bus.
func (s *Subscriber) Register(c Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c.PlayerID()] = c
}

// Deregister detaches a transport connection, e.g. on read-loop exit.
func (s *Subscriber) Deregister(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, playerID)
}

// Run processes events until the room's bus channel closes.
func (s *Subscriber) Run() {
	for ev := range s.in {
		s.handle(ev)
	}
}

func (s *Subscriber) handle(ev events.Event) {
	switch ev.Kind {
	case events.PlayerJoined:
		p := ev.Payload.(events.PlayerJoinedPayload)
		s.mu.Lock()
		s.roster[p.SeatID] = events.PlayerSummary{ID: p.SeatID, Name: p.Name, Kind: p.Kind, Connected: true}
		s.mu.Unlock()
		s.broadcastPlayersList()
	case events.PlayerLeft:
		p := ev.Payload.(events.PlayerLeftPayload)
		s.mu.Lock()
		delete(s.roster, p.SeatID)
		s.mu.Unlock()
		s.broadcastPlayersList()
	case events.PlayerConnected:
		p := ev.Payload.(events.PlayerConnectedPayload)
		s.mu.Lock()
		if summary, ok := s.roster[p.SeatID]; ok {
			summary.Connected = true
			s.roster[p.SeatID] = summary
		}
		s.mu.Unlock()
		s.unicastSnapshot(p.SeatID)
		s.broadcastPlayersList()
	case events.PlayerDisconnected:
		p := ev.Payload.(events.PlayerDisconnectedPayload)
		s.mu.Lock()
		if summary, ok := s.roster[p.SeatID]; ok {
			summary.Connected = false
			s.roster[p.SeatID] = summary
		}
		s.mu.Unlock()
		s.broadcastPlayersList()
	case events.BotAdded:
		p := ev.Payload.(events.BotAddedPayload)
		s.mu.Lock()
		s.roster[p.BotID] = events.PlayerSummary{ID: p.BotID, Name: p.Name, Kind: "bot", Connected: true}
		s.mu.Unlock()
		s.broadcast("BOT_ADDED", map[string]any{"bot_id": p.BotID, "name": p.Name})
		s.broadcastPlayersList()
	case events.BotRemoved:
		p := ev.Payload.(events.BotRemovedPayload)
		s.mu.Lock()
		delete(s.roster, p.BotID)
		s.mu.Unlock()
		s.broadcast("BOT_REMOVED", map[string]any{"bot_id": p.BotID})
		s.broadcastPlayersList()
	case events.HostChanged:
		p := ev.Payload.(events.HostChangedPayload)
		s.broadcast("HOST_CHANGE", map[string]any{"old": p.Old, "new": p.New})
	case events.ChatMessage:
		p := ev.Payload.(events.ChatMessagePayload)
		s.broadcast("CHAT", map[string]any{"seat_id": p.SeatID, "content": p.Text})
	case events.GameCreated:
		p := ev.Payload.(events.GameCreatedPayload)
		s.setSnapshot(p.Snapshot)
	case events.GameStarted:
		p := ev.Payload.(events.GameStartedPayload)
		s.setSnapshot(p.Snapshot)
		s.broadcastPerRecipient("GAME_STARTED", p.Snapshot)
	case events.MovePlayed:
		p := ev.Payload.(events.MovePlayedPayload)
		s.setSnapshot(p.Snapshot)
		s.broadcastPerRecipient("MOVE_PLAYED", p.Snapshot)
	case events.Passed:
		p := ev.Payload.(events.PassedPayload)
		s.setSnapshot(p.Snapshot)
		s.broadcastPerRecipient("PASSED", p.Snapshot)
	case events.TurnChanged:
		p := ev.Payload.(events.TurnChangedPayload)
		s.broadcast("TURN_CHANGE", map[string]any{"seat_id": p.SeatID})
	case events.GameWon:
		p := ev.Payload.(events.GameWonPayload)
		s.broadcast("GAME_WON", map[string]any{"winner_id": p.WinnerID})
	case events.GameReset:
		s.mu.Lock()
		s.latest = nil
		s.mu.Unlock()
		s.broadcast("GAME_RESET", map[string]any{})
	case events.StatsUpdated:
		p := ev.Payload.(events.StatsUpdatedPayload)
		s.broadcast("STATS_UPDATED", statsWirePayload(p.Snapshot))
	}
}

func (s *Subscriber) setSnapshot(snap bigtwo.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &snap
}

func (s *Subscriber) broadcastPlayersList() {
	s.mu.Lock()
	players := make([]events.PlayerSummary, 0, len(s.roster))
	for _, p := range s.roster {
		players = append(players, p)
	}
	s.mu.Unlock()
	s.broadcast("PLAYERS_LIST", map[string]any{"players": players})
}

func (s *Subscriber) unicastSnapshot(playerID string) {
	s.mu.Lock()
	conn, ok := s.conns[playerID]
	snap := s.latest
	s.mu.Unlock()
	if !ok {
		return
	}
	payload := map[string]any{"players": s.playersSnapshotLocked()}
	if snap != nil {
		payload["game"] = snapshotForRecipient(*snap, playerID)
	}
	s.sendTo(conn, "PLAYERS_LIST", payload)
}

func (s *Subscriber) playersSnapshotLocked() []events.PlayerSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.PlayerSummary, 0, len(s.roster))
	for _, p := range s.roster {
		out = append(out, p)
	}
	return out
}

func (s *Subscriber) broadcast(kind string, payload any) {
	data := envelope(kind, payload)
	s.mu.Lock()
	targets := make([]Conn, 0, len(s.conns))
	for _, c := range s.conns {
		targets = append(targets, c)
	}
	s.mu.Unlock()
	for _, c := range targets {
		s.send(c, data)
	}
}

// broadcastPerRecipient sends the same event kind to every connected client
// but with a snapshot redacted to that recipient's own hand (spec §4.7
// combined with the Hand data model: only the owning seat ever sees its own
// cards in full).
func (s *Subscriber) broadcastPerRecipient(kind string, snap bigtwo.Snapshot) {
	s.mu.Lock()
	targets := make([]Conn, 0, len(s.conns))
	for _, c := range s.conns {
		targets = append(targets, c)
	}
	s.mu.Unlock()
	for _, c := range targets {
		payload := snapshotForRecipient(snap, c.PlayerID())
		s.send(c, envelope(kind, payload))
	}
}

func (s *Subscriber) sendTo(c Conn, kind string, payload any) {
	s.send(c, envelope(kind, payload))
}

func (s *Subscriber) send(c Conn, data []byte) {
	if c.TrySend(data, EnqueueDeadline) {
		return
	}
	log.Printf("[Socket %s] closing slow client %s after enqueue deadline", s.roomID, c.PlayerID())
	c.Close()
	s.Deregister(c.PlayerID())
}

func envelope(kind string, payload any) []byte {
	body := map[string]any{
		"type":    kind,
		"payload": payload,
		"meta":    map[string]any{"timestamp": time.Now().UTC().Format(time.RFC3339)},
	}
	data, err := json.Marshal(body)
	if err != nil {
		log.Printf("[Socket] envelope marshal error: %v", err)
		return []byte(`{"type":"ERROR","payload":{"message":"internal encoding error"}}`)
	}
	return data
}

func statsWirePayload(snap events.RoomStatsSnapshot) map[string]any {
	bySeat := make(map[string]any, len(snap.BySeat))
	for id, st := range snap.BySeat {
		bySeat[id] = map[string]any{
			"games_played":   st.GamesPlayed,
			"wins":           st.Wins,
			"total_score":    st.TotalScore,
			"current_streak": st.CurrentStreak,
			"best_streak":    st.BestStreak,
		}
	}
	return map[string]any{
		"games_played": snap.GamesPlayed,
		"had_bots":     snap.HadBots,
		"players":      bySeat,
	}
}

func snapshotForRecipient(snap bigtwo.Snapshot, recipientID string) map[string]any {
	handSizes := make([]int, 4)
	copy(handSizes, snap.HandSizes[:])
	out := map[string]any{
		"seats":            snap.Seats,
		"hand_sizes":       handSizes,
		"turn_index":       snap.TurnIndex,
		"trick_leader":     snap.TrickLeader,
		"consecutive_pass": snap.ConsecutivePass,
		"winner":           snap.Winner,
	}
	if snap.LastPlayed != nil {
		out["last_played"] = wireHand(*snap.LastPlayed)
	}
	for seat, id := range snap.Seats {
		if id == recipientID {
			wire := make([]string, len(snap.Hands[seat]))
			for i, c := range snap.Hands[seat] {
				wire[i] = c.String()
			}
			out["my_hand"] = wire
			out["my_seat"] = seat
			break
		}
	}
	return out
}

func wireHand(h bigtwo.Hand) map[string]any {
	cards := make([]string, len(h.Cards))
	for i, c := range h.Cards {
		cards[i] = c.String()
	}
	return map[string]any{"variant": h.Variant.String(), "cards": cards}
}
