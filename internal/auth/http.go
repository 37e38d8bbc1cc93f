package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"bigtwo-lite/internal/identity"
)

// HTTPHandler implements spec §6's POST /session and GET /session/validate.
// Grounded on the teacher's auth/http.go (decodeJSON/writeJSON/bearerToken
// helpers, method-check-first handler shape), trimmed to this system's
// credential-free token mint instead of register/login.
type HTTPHandler struct {
	store    Store
	names    *identity.NameSource
	registry *identity.Registry
	ttl      time.Duration
}

func NewHTTPHandler(store Store, names *identity.NameSource, registry *identity.Registry, ttl time.Duration) *HTTPHandler {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &HTTPHandler{store: store, names: names, registry: registry, ttl: ttl}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/session", h.handleCreateSession)
	mux.HandleFunc("/session/validate", h.handleValidate)
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	Username  string `json:"username"`
	PlayerID  string `json:"player_id"`
}

func (h *HTTPHandler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	playerID := identity.NewStableID()
	username := h.names.Generate()
	h.registry.Set(playerID, username)

	rec, err := h.store.Create(r.Context(), playerID, username, h.ttl)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID: rec.Token,
		Token:     rec.Token,
		Username:  rec.Username,
		PlayerID:  rec.PlayerID,
	})
}

type validateResponse struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username"`
	PlayerID string `json:"player_id"`
}

func (h *HTTPHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	token := BearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	rec, err := h.store.Lookup(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired session")
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true, Username: rec.Username, PlayerID: rec.PlayerID})
}

// BearerToken extracts the token from Authorization: Bearer <token>, falling
// back to the X-Session-ID legacy alias spec §6 carries forward.
func BearerToken(r *http.Request) string {
	if raw := r.Header.Get("Authorization"); raw != "" {
		if strings.HasPrefix(raw, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Session-ID"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
