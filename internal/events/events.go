// Package events defines the bus event taxonomy from spec §4.3: the intent
// events emitted by socket ingress (and, for TryPlayMove/TryPass, by the bot
// subscriber), and the state events emitted by the game subscriber, room
// coordinator, stats subscriber, and socket ingress (connect/disconnect).
// The split enforces that only the game subscriber mutates game state; every
// other subscriber observes (spec §4.4).
package events

import "bigtwo-lite/internal/bigtwo"

// Kind names one event type as an UPPER_SNAKE string. Kind values are not
// used as wire types: the socket subscriber writes its own envelope "type"
// strings, some of which differ from the Kind (HOST_CHANGE, TURN_CHANGE, CHAT).
type Kind string

const (
	// Intent events: TryStartGame/TryPlayMove/TryPass are consumed only by
	// the game subscriber, PlayerLeaveRequested by the room coordinator, and
	// ChatMessage by the socket subscriber.
	TryStartGame         Kind = "TRY_START_GAME"
	TryPlayMove          Kind = "TRY_PLAY_MOVE"
	TryPass              Kind = "TRY_PASS"
	PlayerLeaveRequested Kind = "PLAYER_LEAVE_REQUESTED"
	ChatMessage          Kind = "CHAT_MESSAGE"

	// State events: observed by every subscriber, mutate nothing downstream.
	PlayerJoined       Kind = "PLAYER_JOINED"
	PlayerLeft         Kind = "PLAYER_LEFT"
	HostChanged        Kind = "HOST_CHANGED"
	PlayerConnected    Kind = "PLAYER_CONNECTED"
	PlayerDisconnected Kind = "PLAYER_DISCONNECTED"
	GameCreated        Kind = "GAME_CREATED"
	GameStarted        Kind = "GAME_STARTED"
	MovePlayed         Kind = "MOVE_PLAYED"
	Passed             Kind = "PASSED"
	TurnChanged        Kind = "TURN_CHANGED"
	GameWon            Kind = "GAME_WON"
	GameReset          Kind = "GAME_RESET"
	StatsUpdated       Kind = "STATS_UPDATED"
	BotAdded           Kind = "BOT_ADDED"
	BotRemoved         Kind = "BOT_REMOVED"
	PlayersListed      Kind = "PLAYERS_LIST"
)

// Event is the single envelope type flowing through the bus. Payload holds
// one of the *Payload structs below, chosen by Kind.
//
// Response, when non-nil, lets the one subscriber responsible for an intent
// (the game subscriber, for Try* events) report a synchronous validation
// error (or nil) back to whoever emitted the event, without any subscriber
// calling another directly — the channel travels inside the event itself,
// mirroring the teacher's table.go Event.Response / SubmitEvent pattern.
// Socket ingress and the bot subscriber publish intents with a nil Response,
// so no ERROR envelope reaches the client for a rejected move.
// Subscribers that do not own an intent kind must never touch Response.
type Event struct {
	Kind     Kind
	RoomID   string
	Payload  any
	Response chan error
}

// --- Intent payloads ---

type TryStartGamePayload struct {
	HostID string
}

type TryPlayMovePayload struct {
	SeatID string
	Cards  []string // wire form, parsed by the game subscriber
}

type TryPassPayload struct {
	SeatID string
}

type PlayerLeaveRequestedPayload struct {
	SeatID string
}

type ChatMessagePayload struct {
	SeatID string
	Text   string
}

// --- State payloads ---

type PlayerJoinedPayload struct {
	SeatID    string
	Name      string
	SeatIndex int
	Kind      string // "human" | "bot"
}

type PlayerLeftPayload struct {
	SeatID    string
	SeatIndex int
	Kind      string // "human" | "bot"
}

type HostChangedPayload struct {
	Old string
	New string
}

type PlayerConnectedPayload struct {
	SeatID string
}

type PlayerDisconnectedPayload struct {
	SeatID string
}

type GameCreatedPayload struct {
	Snapshot bigtwo.Snapshot
}

type GameStartedPayload struct {
	Snapshot bigtwo.Snapshot
}

type MovePlayedPayload struct {
	SeatID   string
	Hand     bigtwo.Hand
	Snapshot bigtwo.Snapshot
}

type PassedPayload struct {
	SeatID   string
	Snapshot bigtwo.Snapshot
}

type TurnChangedPayload struct {
	SeatID string
}

type GameWonPayload struct {
	WinnerID string
}

type GameResetPayload struct{}

type SeatStats struct {
	GamesPlayed   int
	Wins          int
	TotalScore    int
	CurrentStreak int
	BestStreak    int
}

type RoomStatsSnapshot struct {
	GamesPlayed int
	HadBots     bool
	BySeat      map[string]SeatStats
}

type StatsUpdatedPayload struct {
	Snapshot RoomStatsSnapshot
}

type BotAddedPayload struct {
	BotID string
	Name  string
}

type BotRemovedPayload struct {
	BotID string
}

type PlayersListedPayload struct {
	Players []PlayerSummary
}

type PlayerSummary struct {
	ID        string
	Name      string
	Kind      string // "human" | "bot"
	Connected bool
}
