// Package restapi implements spec §6's REST surface: thin HTTP handlers for
// room/session/bot/stats operations, all delegating to room.Coordinator and
// auth.Validator. Grounded on the teacher's auth/http.go handler shape
// (method check, decodeJSON, writeJSON/writeError helpers) and ledger's
// HTTPHandler.RegisterRoutes pattern for wiring multiple route groups onto
// one mux.
package restapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"bigtwo-lite/internal/auth"
	"bigtwo-lite/internal/identity"
	"bigtwo-lite/internal/room"
)

// Handler serves the room/session-adjacent REST endpoints from spec §6.
type Handler struct {
	rooms     *room.Coordinator
	validator *auth.Validator
	registry  *identity.Registry
}

func New(rooms *room.Coordinator, validator *auth.Validator, registry *identity.Registry) *Handler {
	return &Handler{rooms: rooms, validator: validator, registry: registry}
}

// RegisterRoutes wires every handler onto mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/room", h.handleCreateRoom)
	mux.HandleFunc("/rooms", h.handleListRooms)
	mux.HandleFunc("/room/", h.handleRoomSubroutes)
}

// handleRoomSubroutes dispatches every /room/{id}... path, since the
// standard mux (pre-1.22 pattern style, matching the teacher's ServeMux
// usage) cannot itself extract path parameters.
func (h *Handler) handleRoomSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/room/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "room id required")
		return
	}
	roomID := parts[0]

	switch {
	case len(parts) == 1:
		h.handleRoomByID(w, r, roomID)
	case len(parts) == 2 && parts[1] == "stats":
		h.handleRoomStats(w, r, roomID)
	case len(parts) == 2 && parts[1] == "join":
		h.handleJoinRoom(w, r, roomID)
	case len(parts) == 3 && parts[1] == "bot" && parts[2] == "add":
		h.handleAddBot(w, r, roomID)
	case len(parts) == 3 && parts[1] == "bot":
		h.handleRemoveBot(w, r, roomID, parts[2])
	default:
		writeError(w, http.StatusNotFound, "unknown route")
	}
}

type roomView struct {
	ID      string      `json:"id"`
	Host    string      `json:"host"`
	Players []seatView  `json:"players"`
}

type seatView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Index int    `json:"index"`
}

func toRoomView(snap room.Snapshot) roomView {
	view := roomView{ID: snap.ID, Host: snap.HostID}
	for _, s := range snap.Seats {
		if s == nil {
			continue
		}
		view.Players = append(view.Players, seatView{ID: s.PlayerID, Name: s.Name, Kind: s.Kind, Index: s.Index})
	}
	return view
}

func (h *Handler) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rec, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	rm := h.rooms.Create(rec.PlayerID, rec.Username)
	writeJSON(w, http.StatusCreated, toRoomView(rm.Snapshot()))
}

type roomListEntry struct {
	ID          string `json:"id"`
	Host        string `json:"host"`
	PlayerCount int    `json:"player_count"`
	Status      string `json:"status"`
}

func (h *Handler) handleListRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snaps := h.rooms.List()
	out := make([]roomListEntry, 0, len(snaps))
	for _, snap := range snaps {
		count := 0
		for _, s := range snap.Seats {
			if s != nil {
				count++
			}
		}
		status := "waiting"
		if count == 4 {
			status = "full"
		}
		out = append(out, roomListEntry{ID: snap.ID, Host: snap.HostID, PlayerCount: count, Status: status})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleRoomByID(w http.ResponseWriter, r *http.Request, roomID string) {
	switch r.Method {
	case http.MethodGet:
		rm, rerr := h.rooms.Get(roomID)
		if rerr != nil {
			writeError(w, rerr.Kind.HTTPStatus(), rerr.Message)
			return
		}
		writeJSON(w, http.StatusOK, toRoomView(rm.Snapshot()))
	case http.MethodDelete:
		rec, ok := h.authenticate(w, r)
		if !ok {
			return
		}
		rm, rerr := h.rooms.Get(roomID)
		if rerr != nil {
			writeError(w, rerr.Kind.HTTPStatus(), rerr.Message)
			return
		}
		if rm.Snapshot().HostID != rec.PlayerID {
			writeError(w, http.StatusForbidden, "only the host may delete the room")
			return
		}
		if derr := h.rooms.Delete(roomID); derr != nil {
			writeError(w, derr.Kind.HTTPStatus(), derr.Message)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type statsView struct {
	GamesPlayed int                 `json:"games_played"`
	Players     map[string]any      `json:"players"`
}

func (h *Handler) handleRoomStats(w http.ResponseWriter, r *http.Request, roomID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rm, rerr := h.rooms.Get(roomID)
	if rerr != nil {
		writeError(w, rerr.Kind.HTTPStatus(), rerr.Message)
		return
	}
	snap := rm.Stats().Snapshot()
	players := make(map[string]any, len(snap.BySeat))
	for id, st := range snap.BySeat {
		players[id] = st
	}
	writeJSON(w, http.StatusOK, statsView{GamesPlayed: snap.GamesPlayed, Players: players})
}

func (h *Handler) handleJoinRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rec, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	rm, rerr := h.rooms.Join(roomID, rec.PlayerID, rec.Username)
	if rerr != nil {
		writeError(w, rerr.Kind.HTTPStatus(), rerr.Message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": toRoomView(rm.Snapshot())})
}

type addBotRequest struct {
	Difficulty string `json:"difficulty,omitempty"`
}

func (h *Handler) handleAddBot(w http.ResponseWriter, r *http.Request, roomID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rec, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	rm, rerr := h.rooms.Get(roomID)
	if rerr != nil {
		writeError(w, rerr.Kind.HTTPStatus(), rerr.Message)
		return
	}
	if rm.Snapshot().HostID != rec.PlayerID {
		writeError(w, http.StatusForbidden, "only the host may add bots")
		return
	}
	var req addBotRequest
	_ = decodeJSON(r, &req) // difficulty is accepted but unused; one strategy for all bots (spec §4.6)

	botID, berr := h.rooms.AddBot(roomID)
	if berr != nil {
		writeError(w, berr.Kind.HTTPStatus(), berr.Message)
		return
	}
	name, _ := h.registry.NameOf(botID)
	writeJSON(w, http.StatusCreated, map[string]string{"bot_id": botID, "name": name})
}

func (h *Handler) handleRemoveBot(w http.ResponseWriter, r *http.Request, roomID, botID string) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rec, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	rm, rerr := h.rooms.Get(roomID)
	if rerr != nil {
		writeError(w, rerr.Kind.HTTPStatus(), rerr.Message)
		return
	}
	if rm.Snapshot().HostID != rec.PlayerID {
		writeError(w, http.StatusForbidden, "only the host may remove bots")
		return
	}
	if berr := h.rooms.RemoveBot(roomID, botID); berr != nil {
		writeError(w, berr.Kind.HTTPStatus(), berr.Message)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (auth.Record, bool) {
	token := auth.BearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return auth.Record{}, false
	}
	rec, err := h.validator.Validate(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired session")
		return auth.Record{}, false
	}
	return rec, true
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
