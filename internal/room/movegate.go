package room

import (
	"github.com/chessit-app/chessit-server/internal/obslog"
	"github.com/chessit-app/chessit-server/internal/rules"
	"go.uber.org/zap"
)

// Gate validates that a move request comes from the connection entitled to
// move, applies it through the rules engine and fans out the result.
type Gate struct {
	reg   *Registry
	coord *Coordinator
}

func NewGate(reg *Registry, coord *Coordinator) *Gate {
	return &Gate{reg: reg, coord: coord}
}

// Submit processes one move request. The room is resolved from the
// connection's binding, falling back to the explicit id in the request.
func (g *Gate) Submit(connID, roomID string, mv rules.Move) MoveOutcome {
	id, ok := g.coord.RoomFor(connID)
	if !ok {
		id = NormalizeID(roomID)
	}
	if id == "" {
		return RejectedNoSuchRoom
	}
	rm := g.reg.Lookup(id)
	if rm == nil {
		return RejectedNoSuchRoom
	}

	rm.mu.Lock()
	turn := rm.pos.Turn()
	mover := rm.white
	if turn == rules.SideBlack {
		mover = rm.black
	}
	if mover == "" || mover != connID {
		rm.mu.Unlock()
		return RejectedNotYourTurn
	}

	if err := rm.pos.Apply(mv); err != nil {
		rm.mu.Unlock()
		obslog.L().Debug("move_rejected",
			zap.String("room", id),
			zap.String("conn", connID),
			zap.String("uci", mv.UCI()),
		)
		return RejectedIllegalMove
	}

	fen := rm.pos.FEN()
	clocks := rm.clocks
	status := rm.pos.Status()

	var rec *Result
	var winner rules.Side
	if status != rules.StatusNone {
		rm.stopClockLocked()
		// on checkmate the mated side is to move; the winner is its opponent
		winner = rm.pos.Turn().Opponent()
		switch status {
		case rules.StatusCheckmate:
			rec = rm.resultLocked(sideResult(winner), "checkmate")
		case rules.StatusDraw:
			rec = rm.resultLocked("", "draw")
		default:
			rec = rm.resultLocked("", "other")
		}
	}
	rm.mu.Unlock()

	g.reg.bus.Publish(id, EventMove, mv)
	g.reg.bus.Publish(id, EventBoardState, fen)
	g.reg.bus.Publish(id, EventTimers, clocks)

	obslog.L().Info("move_applied",
		zap.String("room", id),
		zap.String("conn", connID),
		zap.String("uci", mv.UCI()),
		zap.String("status", status.String()),
	)

	if status == rules.StatusNone {
		rm.StopClock()
		rm.StartClock()
		return Accepted
	}

	var desc string
	switch status {
	case rules.StatusCheckmate:
		desc = g.reg.render("gameover.checkmate",
			map[string]string{"Winner": g.reg.sideName(winner)},
			g.reg.sideName(winner))
	case rules.StatusDraw:
		desc = g.reg.render("gameover.draw", nil, "Draw")
	default:
		desc = g.reg.render("gameover.generic", nil, "Game Over")
	}
	g.reg.bus.Publish(id, EventGameOver, desc)
	g.reg.saveResult(rec)
	return Accepted
}
