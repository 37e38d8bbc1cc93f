package game

import "errors"

// Subscriber-level errors: these guard intent handling before the rules
// engine is ever consulted, so they are kept separate from bigtwo.GameError's
// per-move taxonomy (spec §7's Game kinds are all about an in-flight move).
var (
	ErrNotHost        = errors.New("only the host may start a game")
	ErrGameInProgress = errors.New("a game is already in progress")
	ErrNotEnoughSeats = errors.New("room needs four occupied seats to start")
	ErrGameNotRunning = errors.New("no game is running in this room")
	ErrUnknownSeat    = errors.New("player does not occupy a seat in this room")
)
