// Package rules adapts the chess rules library behind the narrow surface the
// room coordinator needs: turn queries, FEN snapshots, move application and
// terminal status.
package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Side identifies a color in its wire form.
type Side string

const (
	SideWhite Side = "w"
	SideBlack Side = "b"
)

func (s Side) Opponent() Side {
	if s == SideWhite {
		return SideBlack
	}
	return SideWhite
}

// Status is the terminal state of a position.
type Status int

const (
	StatusNone Status = iota
	StatusCheckmate
	StatusDraw
	StatusOther
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusCheckmate:
		return "checkmate"
	case StatusDraw:
		return "draw"
	default:
		return "other"
	}
}

// Move is the wire-level move descriptor.
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// UCI returns the move in UCI notation (e.g. "e2e4", "e7e8q").
func (m Move) UCI() string {
	return strings.ToLower(strings.TrimSpace(m.From) + strings.TrimSpace(m.To) + strings.TrimSpace(m.Promotion))
}

type staticErr string

func (e staticErr) Error() string { return string(e) }

// ErrIllegalMove is returned when a move cannot be applied to the position.
const ErrIllegalMove = staticErr("illegal move")

// Position wraps one game of chess. It is not safe for concurrent use; callers
// serialize access per room.
type Position struct {
	game     *nchess.Game
	movesUCI []string
	movesSAN []string
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	return &Position{game: nchess.NewGame()}
}

// FromFEN loads a position from a FEN string.
func FromFEN(fen string) (*Position, error) {
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return &Position{game: nchess.NewGame(opt)}, nil
}

// Turn reports which side moves next.
func (p *Position) Turn() Side {
	if p.game.Position().Turn() == nchess.White {
		return SideWhite
	}
	return SideBlack
}

// FEN returns the full FEN serialization of the current position.
func (p *Position) FEN() string {
	return p.game.FEN()
}

// Apply validates and applies a move. Failure leaves the position unchanged.
// Library panics are contained here so a malformed descriptor can never take
// down a handler.
func (p *Position) Apply(mv Move) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrIllegalMove, r)
		}
	}()

	uci := mv.UCI()
	if uci == "" {
		return ErrIllegalMove
	}

	pos := p.game.Position()
	decoded, derr := nchess.UCINotation{}.Decode(pos, uci)
	if derr != nil {
		return ErrIllegalMove
	}
	if merr := p.game.Move(decoded, nil); merr != nil {
		return ErrIllegalMove
	}

	p.movesUCI = append(p.movesUCI, uci)
	p.movesSAN = append(p.movesSAN, nchess.AlgebraicNotation{}.Encode(pos, decoded))
	return nil
}

// Status reports the terminal state of the position.
func (p *Position) Status() Status {
	switch p.game.Outcome() {
	case nchess.NoOutcome:
		return StatusNone
	case nchess.Draw:
		return StatusDraw
	}
	if p.game.Method() == nchess.Checkmate {
		return StatusCheckmate
	}
	return StatusOther
}

// MovesSAN returns the applied moves in algebraic notation.
func (p *Position) MovesSAN() []string {
	return append([]string(nil), p.movesSAN...)
}

// MovesUCI returns the applied moves in UCI notation.
func (p *Position) MovesUCI() []string {
	return append([]string(nil), p.movesUCI...)
}
