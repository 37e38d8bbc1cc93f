// Package room implements spec §4.9: room lifecycle and the coordinator that
// owns the per-room bus and its four subscribers. It follows the shape of
// the teacher's lobby.go (table registry + idle-sweep goroutine + Stop), but
// a room here never touches game rules directly — all of that lives behind
// the bus, in subscriber/game, subscriber/bot, subscriber/socket and
// subscriber/stats, which this package only wires together and tears down.
package room

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"bigtwo-lite/internal/bus"
	"bigtwo-lite/internal/events"
	"bigtwo-lite/internal/identity"
	"bigtwo-lite/internal/subscriber/bot"
	gamesub "bigtwo-lite/internal/subscriber/game"
	"bigtwo-lite/internal/subscriber/socket"
	"bigtwo-lite/internal/subscriber/stats"
)

const (
	seatCount = 4

	// defaultIdleTTL is the idle reaper's TTL (SPEC_FULL.md §12's idle room
	// reaper): how long a room with zero seated humans survives before the
	// reaper deletes it.
	defaultIdleTTL       = 2 * time.Minute
	defaultSweepInterval = 30 * time.Second
)

// Seat is one occupant of a room (spec GLOSSARY: "Seat").
type Seat struct {
	PlayerID string
	Name     string
	Kind     string // "human" | "bot"
	Index    int
}

// Room is the registry-level record for one table: membership plus the
// subscriber goroutines reacting to its bus. Game state itself lives only
// inside the game subscriber.
type Room struct {
	ID        string
	CreatedAt time.Time

	mu          sync.Mutex
	seats       [seatCount]*Seat
	hostID      string
	lastHumanAt time.Time
	closed      bool

	bus        *bus.Bus
	gameSub    *gamesub.Subscriber
	botSub     *bot.Subscriber
	statsSub   *stats.Subscriber
	socketSub  *socket.Subscriber
}

// Snapshot is the read-only membership view used by REST/list handlers.
type Snapshot struct {
	ID        string
	HostID    string
	Seats     [seatCount]*Seat
	CreatedAt time.Time
}

// Coordinator owns every live Room (spec §4.9). One Coordinator per process.
type Coordinator struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	nextID uint64

	bus      *bus.Bus
	names    *identity.NameSource
	idleTTL  time.Duration
	sweepInt time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

// New builds a Coordinator backed by a shared bus (capacity from
// SPEC_FULL.md §10's BUS_CAPACITY setting) and starts its idle-room reaper.
func New(b *bus.Bus, names *identity.NameSource) *Coordinator {
	c := &Coordinator{
		rooms:    make(map[string]*Room),
		bus:      b,
		names:    names,
		idleTTL:  defaultIdleTTL,
		sweepInt: defaultSweepInterval,
		done:     make(chan struct{}),
	}
	go c.reapLoop()
	return c
}

// Create opens a new room, wires its bus subscribers, and seats hostID at
// seat 0 (spec §4.9: "the creator is always the first host").
func (c *Coordinator) Create(hostID, hostName string) *Room {
	c.mu.Lock()
	c.nextID++
	id := fmt.Sprintf("room_%d", c.nextID)
	c.mu.Unlock()

	r := &Room{
		ID:        id,
		CreatedAt: time.Now(),
		bus:       c.bus,
		gameSub:   gamesub.New(c.bus, id),
		botSub:    bot.New(c.bus, id),
		statsSub:  stats.New(c.bus, id),
		socketSub: socket.New(c.bus, id),
	}
	go r.gameSub.Run()
	go r.botSub.Run()
	go r.statsSub.Run()
	go r.socketSub.Run()

	// The coordinator is itself a bus subscriber for the one intent event no
	// game/bot/stats/socket subscriber owns: PlayerLeaveRequested. Spec §6
	// exposes no REST leave endpoint for non-host players, so a LEAVE frame
	// over the socket (see gateway.go's "LEAVE" case) is the only path a
	// seated human has to leave, and it must reach Coordinator.Leave.
	go c.watchControlEvents(id, c.bus.Subscribe(id, "control"))

	c.mu.Lock()
	c.rooms[id] = r
	c.mu.Unlock()

	r.seatHuman(0, hostID, hostName)
	r.mu.Lock()
	r.hostID = hostID
	r.lastHumanAt = time.Time{} // room has a human seated; reaper clock is inactive
	r.mu.Unlock()
	c.bus.Publish(events.Event{Kind: events.HostChanged, RoomID: id, Payload: events.HostChangedPayload{Old: "", New: hostID}})

	log.Printf("[Room] created %s, host=%s", id, hostID)
	return r
}

// watchControlEvents runs for the lifetime of one room, turning
// PlayerLeaveRequested intents into Leave calls. Its channel closes (ending
// the loop) the same way every other subscriber's does: via bus.CloseRoom
// when the room is deleted.
func (c *Coordinator) watchControlEvents(roomID string, in <-chan events.Event) {
	for ev := range in {
		if ev.Kind != events.PlayerLeaveRequested {
			continue
		}
		p := ev.Payload.(events.PlayerLeaveRequestedPayload)
		if err := c.Leave(roomID, p.SeatID); err != nil {
			log.Printf("[Room] leave request for %s in %s failed: %v", p.SeatID, roomID, err)
		}
	}
}

// Get looks up a room by id.
func (c *Coordinator) Get(id string) (*Room, *Error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rooms[id]
	if !ok {
		return nil, newErr(KindRoomNotFound, "no room %s", id)
	}
	return r, nil
}

// List returns every live room's membership snapshot.
func (c *Coordinator) List() []Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Snapshot, 0, len(c.rooms))
	for _, r := range c.rooms {
		out = append(out, r.Snapshot())
	}
	return out
}

// Join seats playerID at the lowest free seat in room id (spec §4.9: "lowest
// available seat index", grounded on the teacher's chair-assignment pattern
// in lobby.go/fillTableWithNPCs).
func (c *Coordinator) Join(id, playerID, name string) (*Room, *Error) {
	r, rerr := c.Get(id)
	if rerr != nil {
		return nil, rerr
	}
	if err := r.join(playerID, name); err != nil {
		return nil, err
	}
	return r, nil
}

// Leave removes playerID from room id, triggering host succession and, if
// the room has no humans left, the bots-only auto-disband check (spec I3).
func (c *Coordinator) Leave(id, playerID string) *Error {
	r, rerr := c.Get(id)
	if rerr != nil {
		return rerr
	}
	disband := r.leave(playerID)
	if disband {
		c.delete(id)
	}
	return nil
}

// AddBot seats a house bot at the lowest free seat.
func (c *Coordinator) AddBot(id string) (string, *Error) {
	r, rerr := c.Get(id)
	if rerr != nil {
		return "", rerr
	}
	return r.addBot(c.names)
}

// RemoveBot removes a bot seat, by id, from the room.
func (c *Coordinator) RemoveBot(id, botID string) *Error {
	r, rerr := c.Get(id)
	if rerr != nil {
		return rerr
	}
	r.removeBot(botID)
	return nil
}

// Delete unconditionally disbands room id (spec §4.9 and spec.md:61: "the
// host is ... permitted to ... delete the room"), regardless of how many
// humans remain seated. This is distinct from Leave, which only disbands
// once the departing seat was the last human (I3) — a host deleting a
// full room must still tear it down.
func (c *Coordinator) Delete(id string) *Error {
	if _, rerr := c.Get(id); rerr != nil {
		return rerr
	}
	c.delete(id)
	return nil
}

// delete tears a room down: closes its bus channels, which stops every
// subscriber goroutine (their Run loops exit on channel close), same
// teardown shape as the teacher's Lobby.Stop/table.Stop pair. Shared by
// Delete, the I3 auto-disband path in Leave, and the idle reaper.
func (c *Coordinator) delete(id string) {
	c.mu.Lock()
	_, ok := c.rooms[id]
	delete(c.rooms, id)
	c.mu.Unlock()
	if ok {
		c.bus.CloseRoom(id)
		log.Printf("[Room] disbanded %s", id)
	}
}

func (c *Coordinator) reapLoop() {
	ticker := time.NewTicker(c.sweepInt)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweepIdle()
		case <-c.done:
			return
		}
	}
}

// sweepIdle deletes rooms whose humans have all been gone longer than
// idleTTL (SPEC_FULL.md §12). Bot-only rooms are caught here even if I3's
// immediate check somehow missed one (e.g. process restart mid-game).
func (c *Coordinator) sweepIdle() {
	c.mu.RLock()
	candidates := make([]*Room, 0, len(c.rooms))
	for _, r := range c.rooms {
		candidates = append(candidates, r)
	}
	c.mu.RUnlock()

	var swept uint64
	for _, r := range candidates {
		if r.idleFor(c.idleTTL) {
			c.delete(r.ID)
			swept++
		}
	}
	if swept > 0 {
		log.Printf("[Room] reaper swept %s idle room(s)", humanize.Comma(int64(swept)))
	}
}

// Stop halts the reaper and tears down every remaining room.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		ids := make([]string, 0, len(c.rooms))
		for id := range c.rooms {
			ids = append(ids, id)
		}
		c.mu.Unlock()
		for _, id := range ids {
			c.delete(id)
		}
	})
}

// --- Room methods ---

func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := Snapshot{ID: r.ID, HostID: r.hostID, CreatedAt: r.CreatedAt}
	snap.Seats = r.seats
	return snap
}

// Bus returns the room's shared bus, for gateway ingress publishing.
func (r *Room) Bus() *bus.Bus { return r.bus }

// Socket returns the egress subscriber, so gateway can register/deregister
// live connections against it.
func (r *Room) Socket() *socket.Subscriber { return r.socketSub }

// Stats returns the room's result-aggregation subscriber, for GET
// /room/{id}/stats.
func (r *Room) Stats() *stats.Subscriber { return r.statsSub }

func (r *Room) lowestFreeSeat() int {
	for i, s := range r.seats {
		if s == nil {
			return i
		}
	}
	return -1
}

func (r *Room) seatHuman(index int, playerID, name string) {
	r.mu.Lock()
	r.seats[index] = &Seat{PlayerID: playerID, Name: name, Kind: "human", Index: index}
	r.mu.Unlock()
	r.bus.Publish(events.Event{Kind: events.PlayerJoined, RoomID: r.ID, Payload: events.PlayerJoinedPayload{
		SeatID: playerID, Name: name, SeatIndex: index, Kind: "human",
	}})
}

func (r *Room) join(playerID, name string) *Error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return newErr(KindRoomNotFound, "room is closed")
	}
	for _, s := range r.seats {
		if s != nil && s.PlayerID == playerID {
			r.mu.Unlock()
			return newErr(KindAlreadyJoined, "%s is already seated", playerID)
		}
	}
	index := r.lowestFreeSeat()
	if index < 0 {
		r.mu.Unlock()
		return newErr(KindRoomFull, "room %s has no free seats", r.ID)
	}
	r.seats[index] = &Seat{PlayerID: playerID, Name: name, Kind: "human", Index: index}
	r.lastHumanAt = time.Time{}
	r.mu.Unlock()

	r.bus.Publish(events.Event{Kind: events.PlayerJoined, RoomID: r.ID, Payload: events.PlayerJoinedPayload{
		SeatID: playerID, Name: name, SeatIndex: index, Kind: "human",
	}})
	return nil
}

// leave removes playerID and runs host succession (spec §4.9: "host passes
// to the next-lowest-indexed remaining human seat"). It reports whether the
// room should now be disbanded (I3: zero humans remain, bots or not).
func (r *Room) leave(playerID string) bool {
	r.mu.Lock()
	var left *Seat
	for i, s := range r.seats {
		if s != nil && s.PlayerID == playerID {
			left = s
			r.seats[i] = nil
			break
		}
	}
	if left == nil {
		r.mu.Unlock()
		return false
	}

	wasHost := r.hostID == playerID
	humansLeft := 0
	var newHost string
	for _, s := range r.seats {
		if s != nil && s.Kind == "human" {
			humansLeft++
			if newHost == "" {
				newHost = s.PlayerID
			}
		}
	}

	var oldHost string
	if wasHost {
		oldHost = r.hostID
		r.hostID = newHost
	}
	if humansLeft == 0 {
		r.lastHumanAt = time.Now()
	}
	r.mu.Unlock()

	r.bus.Publish(events.Event{Kind: events.PlayerLeft, RoomID: r.ID, Payload: events.PlayerLeftPayload{
		SeatID: playerID, SeatIndex: left.Index, Kind: left.Kind,
	}})
	if wasHost && newHost != "" {
		r.bus.Publish(events.Event{Kind: events.HostChanged, RoomID: r.ID, Payload: events.HostChangedPayload{Old: oldHost, New: newHost}})
	}
	return humansLeft == 0
}

func (r *Room) addBot(names *identity.NameSource) (string, *Error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", newErr(KindRoomNotFound, "room is closed")
	}
	index := r.lowestFreeSeat()
	if index < 0 {
		r.mu.Unlock()
		return "", newErr(KindRoomFull, "room %s has no free seats", r.ID)
	}
	botID := identity.NewStableID()
	name := names.Generate()
	r.seats[index] = &Seat{PlayerID: botID, Name: name, Kind: "bot", Index: index}
	r.mu.Unlock()

	r.bus.Publish(events.Event{Kind: events.PlayerJoined, RoomID: r.ID, Payload: events.PlayerJoinedPayload{
		SeatID: botID, Name: name, SeatIndex: index, Kind: "bot",
	}})
	r.bus.Publish(events.Event{Kind: events.BotAdded, RoomID: r.ID, Payload: events.BotAddedPayload{BotID: botID, Name: name}})
	return botID, nil
}

func (r *Room) removeBot(botID string) {
	r.mu.Lock()
	var index = -1
	for i, s := range r.seats {
		if s != nil && s.PlayerID == botID && s.Kind == "bot" {
			index = i
			r.seats[i] = nil
			break
		}
	}
	r.mu.Unlock()
	if index < 0 {
		return
	}
	r.bus.Publish(events.Event{Kind: events.BotRemoved, RoomID: r.ID, Payload: events.BotRemovedPayload{BotID: botID}})
	r.bus.Publish(events.Event{Kind: events.PlayerLeft, RoomID: r.ID, Payload: events.PlayerLeftPayload{SeatID: botID, SeatIndex: index, Kind: "bot"}})
}

// idleFor reports whether the room has had zero seated humans for at least
// d. A zero lastHumanAt means a human is currently seated; whether seated
// humans are connected is not tracked here.
func (r *Room) idleFor(d time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastHumanAt.IsZero() {
		return false
	}
	return time.Since(r.lastHumanAt) >= d
}
