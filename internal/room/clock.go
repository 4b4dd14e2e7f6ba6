package room

import (
	"time"

	"github.com/chessit-app/chessit-server/internal/obslog"
	"github.com/chessit-app/chessit-server/internal/rules"
	"go.uber.org/zap"
)

// StartClock begins the countdown loop for the side to move. No-op while a
// loop is already running.
func (rm *Room) StartClock() {
	rm.mu.Lock()
	if rm.clockStop != nil {
		rm.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	rm.clockStop = stop
	rm.mu.Unlock()
	go rm.runClock(stop)
}

// StopClock cancels the countdown loop. Idempotent.
func (rm *Room) StopClock() {
	rm.mu.Lock()
	rm.stopClockLocked()
	rm.mu.Unlock()
}

func (rm *Room) stopClockLocked() {
	if rm.clockStop != nil {
		close(rm.clockStop)
		rm.clockStop = nil
	}
}

func (rm *Room) runClock(stop chan struct{}) {
	t := time.NewTicker(rm.reg.tick)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if rm.tickOnce(stop) {
				return
			}
		}
	}
}

// tickOnce decrements the side to move by one second and reports whether the
// loop should exit (superseded or timed out).
func (rm *Room) tickOnce(stop chan struct{}) bool {
	rm.mu.Lock()
	if rm.clockStop != stop {
		// a restart replaced this loop between ticks
		rm.mu.Unlock()
		return true
	}

	turn := rm.pos.Turn()
	remaining := &rm.clocks.White
	if turn == rules.SideBlack {
		remaining = &rm.clocks.Black
	}
	if *remaining > 0 {
		*remaining--
	}
	clocks := rm.clocks
	expired := *remaining <= 0

	var rec *Result
	if expired {
		rm.stopClockLocked()
		rec = rm.resultLocked(sideResult(turn.Opponent()), "timeout")
	}
	rm.mu.Unlock()

	rm.reg.bus.Publish(rm.ID, EventTimers, clocks)

	if expired {
		desc := rm.reg.render("gameover.timeout",
			map[string]string{"Winner": rm.reg.sideName(turn.Opponent())},
			rm.reg.sideName(turn.Opponent())+" (timeout)")
		rm.reg.bus.Publish(rm.ID, EventGameOver, desc)
		obslog.L().Info("clock_timeout",
			zap.String("room", rm.ID),
			zap.String("flagged", string(turn)),
		)
		rm.reg.saveResult(rec)
		return true
	}
	return false
}
