// Package room implements the per-room coordination core: registry, session
// role assignment, move gating and the countdown clocks.
package room

import (
	"context"
	"time"

	"github.com/chessit-app/chessit-server/internal/rules"
)

// Role is the seat a connection holds in a room. The empty role is a watcher.
type Role string

const (
	RoleWhite   Role = "w"
	RoleBlack   Role = "b"
	RoleWatcher Role = ""
)

// Status is the answer to a room status query.
type Status string

const (
	StatusEmpty   Status = "empty"   // room exists but nobody configured it yet
	StatusWaiting Status = "waiting" // configured, waiting for players
)

// Settings is the creator-chosen room configuration.
type Settings struct {
	Time  string `json:"time"`
	Color string `json:"color"`
}

// Clocks is the remaining time per side, in whole seconds.
type Clocks struct {
	White int `json:"w"`
	Black int `json:"b"`
}

// Broadcast event names, matching the original wire vocabulary.
const (
	EventMove       = "move"
	EventBoardState = "boardstate"
	EventTimers     = "timers"
	EventGameOver   = "gameover"
)

// Broadcaster delivers an event to every connection joined to a room.
// Delivery is fire-and-forget.
type Broadcaster interface {
	Publish(roomID, event string, payload any)
}

// JoinInfo is the snapshot returned to a connection that joined a room.
type JoinInfo struct {
	Role   Role   `json:"role"`
	FEN    string `json:"fen"`
	Clocks Clocks `json:"timers"`
}

// MoveOutcome is the explicit result of a move submission. The wire adapter
// stays silent on rejections; internal callers and tests see the reason.
type MoveOutcome int

const (
	Accepted MoveOutcome = iota
	RejectedNoSuchRoom
	RejectedNotYourTurn
	RejectedIllegalMove
)

func (o MoveOutcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case RejectedNoSuchRoom:
		return "rejected_no_such_room"
	case RejectedNotYourTurn:
		return "rejected_not_your_turn"
	case RejectedIllegalMove:
		return "rejected_illegal_move"
	default:
		return "unknown"
	}
}

// Result is the final record of a finished game, handed to the archive.
type Result struct {
	GameID    string
	RoomID    string
	Winner    string // "white", "black" or "" for draw/other
	Method    string // "checkmate", "timeout", "draw" or "other"
	FinalFEN  string
	MovesSAN  []string
	StartedAt time.Time
	EndedAt   time.Time
}

// Archive persists final game results. Room state itself is never persisted.
type Archive interface {
	SaveResult(ctx context.Context, rec Result) error
}

// Info is a read-only room snapshot for the ops surface.
type Info struct {
	ID           string `json:"id"`
	Players      int    `json:"players"`
	Watchers     int    `json:"watchers"`
	Clocks       Clocks `json:"timers"`
	ClockRunning bool   `json:"clock_running"`
	Configured   bool   `json:"configured"`
}

func sideResult(s rules.Side) string {
	if s == rules.SideWhite {
		return "white"
	}
	return "black"
}
