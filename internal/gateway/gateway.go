// Package gateway implements spec §4.8: socket ingress. It upgrades
// `/ws/{room_id}`, validates the bearer token carried in the subprotocol
// header, registers the connection with the room's socket subscriber, and
// turns inbound frames into bus intent events.
//
// Grounded on the teacher's gateway.go (Connection with a buffered Send
// channel, readPump/writePump goroutine pair, ping/pong keepalive), adapted
// from protobuf framing to the JSON envelope spec §6 mandates and from a
// single global connection table to one-gateway-dispatches-per-room via the
// room coordinator.
package gateway

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"bigtwo-lite/internal/auth"
	"bigtwo-lite/internal/bus"
	"bigtwo-lite/internal/events"
	"bigtwo-lite/internal/identity"
	"bigtwo-lite/internal/room"
	"bigtwo-lite/internal/subscriber/socket"
)

const (
	readLimit  = 65536
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
	Subprotocols:    []string{"bearer"},
}

// Gateway upgrades and dispatches websocket connections.
type Gateway struct {
	rooms     *room.Coordinator
	validator *auth.Validator
	registry  *identity.Registry
}

func New(rooms *room.Coordinator, validator *auth.Validator, registry *identity.Registry) *Gateway {
	return &Gateway{rooms: rooms, validator: validator, registry: registry}
}

// HandleUpgrade implements `/ws/{room_id}` (spec §6). The room id is the
// last path segment; the bearer token travels in the Sec-WebSocket-Protocol
// header since browsers cannot set arbitrary headers on a WS handshake.
func (g *Gateway) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	roomID := lastPathSegment(r.URL.Path)
	rm, rerr := g.rooms.Get(roomID)
	if rerr != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	token := extractSubprotocolToken(r)
	rec, err := g.validator.Validate(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid session", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] upgrade error: %v", err)
		return
	}

	c := &Connection{
		playerID: rec.PlayerID,
		roomID:   roomID,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		bus:      rm.Bus(),
		socket:   rm.Socket(),
	}
	c.socket.Register(c)
	c.bus.Publish(events.Event{Kind: events.PlayerConnected, RoomID: roomID, Payload: events.PlayerConnectedPayload{SeatID: rec.PlayerID}})

	go c.writePump()
	go c.readPump()
}

func lastPathSegment(path string) string {
	trimmed := strings.TrimRight(path, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return trimmed
	}
	return trimmed[idx+1:]
}

func extractSubprotocolToken(r *http.Request) string {
	raw := r.Header.Get("Sec-WebSocket-Protocol")
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "bearer.") {
			return strings.TrimPrefix(part, "bearer.")
		}
	}
	return auth.BearerToken(r)
}

// Connection is one live client socket. It implements subscriber/socket.Conn
// so the egress subscriber can enqueue outbound frames without knowing
// anything about websockets.
type Connection struct {
	playerID string
	roomID   string
	conn     *websocket.Conn
	send     chan []byte
	bus      *bus.Bus
	socket   *socket.Subscriber
}

func (c *Connection) PlayerID() string { return c.playerID }

// TrySend enqueues data within deadline, reporting false if the client's
// outbound queue stayed full the whole time (spec §5: the slow-client
// timeout). The caller (subscriber/socket) is responsible for closing the
// connection when this returns false.
func (c *Connection) TrySend(data []byte, deadline time.Duration) bool {
	timer := time.NewTimer(deadline)
	defer timer.Stop()
	select {
	case c.send <- data:
		return true
	case <-timer.C:
		return false
	}
}

func (c *Connection) Close() {
	close(c.send)
}

func (c *Connection) readPump() {
	defer func() {
		c.socket.Deregister(c.playerID)
		c.bus.Publish(events.Event{Kind: events.PlayerDisconnected, RoomID: c.roomID, Payload: events.PlayerDisconnectedPayload{SeatID: c.playerID}})
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] read error for %s: %v", c.playerID, err)
			}
			return
		}
		c.handleFrame(message)
	}
}

type inboundFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (c *Connection) handleFrame(data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.sendError(fmt.Sprintf("unparseable frame: %v", err))
		return
	}
	switch frame.Type {
	case "CHAT":
		var p struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			c.sendError("invalid CHAT payload")
			return
		}
		c.bus.Publish(events.Event{Kind: events.ChatMessage, RoomID: c.roomID, Payload: events.ChatMessagePayload{SeatID: c.playerID, Text: p.Content}})
	case "MOVE":
		var p struct {
			Cards []string `json:"cards"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			c.sendError("invalid MOVE payload")
			return
		}
		// An empty cards list encodes a pass (spec §8 P4 requires some
		// human-reachable path to TryPass; the wire's client->server type
		// list only names MOVE, so a pass is a MOVE with no cards rather
		// than a new frame type).
		if len(p.Cards) == 0 {
			c.bus.Publish(events.Event{Kind: events.TryPass, RoomID: c.roomID, Payload: events.TryPassPayload{SeatID: c.playerID}})
			return
		}
		c.bus.Publish(events.Event{Kind: events.TryPlayMove, RoomID: c.roomID, Payload: events.TryPlayMovePayload{SeatID: c.playerID, Cards: p.Cards}})
	case "LEAVE":
		c.bus.Publish(events.Event{Kind: events.PlayerLeaveRequested, RoomID: c.roomID, Payload: events.PlayerLeaveRequestedPayload{SeatID: c.playerID}})
	case "START_GAME":
		c.bus.Publish(events.Event{Kind: events.TryStartGame, RoomID: c.roomID, Payload: events.TryStartGamePayload{HostID: c.playerID}})
	case "READY":
		// idempotent no-op (spec §8): acknowledged by doing nothing.
	default:
		c.sendError(fmt.Sprintf("unknown frame type %q", frame.Type))
	}
}

func (c *Connection) sendError(message string) {
	body := map[string]any{
		"type":    "ERROR",
		"payload": map[string]string{"message": message},
		"meta":    map[string]any{"timestamp": time.Now().UTC().Format(time.RFC3339)},
	}
	data, _ := json.Marshal(body)
	select {
	case c.send <- data:
	default:
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
