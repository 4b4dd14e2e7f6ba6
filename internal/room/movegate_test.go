package room

import (
	"strings"
	"testing"
	"time"

	"github.com/chessit-app/chessit-server/internal/rules"
)

func newTestMatch(t *testing.T, opts ...Option) (*Registry, *memBus, *Coordinator, *Gate) {
	t.Helper()
	reg, bus := newTestRegistry(t, opts...)
	coord := NewCoordinator(reg)
	gate := NewGate(reg, coord)
	coord.Join("white-conn", "GAME1", RoleWhite)
	coord.Join("black-conn", "GAME1", RoleBlack)
	return reg, bus, coord, gate
}

func TestSubmitNoSuchRoom(t *testing.T) {
	reg, _ := newTestRegistry(t)
	gate := NewGate(reg, NewCoordinator(reg))

	if got := gate.Submit("ghost", "NOWHERE", rules.Move{From: "e2", To: "e4"}); got != RejectedNoSuchRoom {
		t.Fatalf("outcome = %v, want %v", got, RejectedNoSuchRoom)
	}
	if got := gate.Submit("ghost", "", rules.Move{From: "e2", To: "e4"}); got != RejectedNoSuchRoom {
		t.Fatalf("outcome = %v, want %v", got, RejectedNoSuchRoom)
	}
}

func TestSubmitNotYourTurn(t *testing.T) {
	reg, bus, coord, gate := newTestMatch(t)
	coord.Join("watcher-conn", "GAME1", RoleWatcher)

	if got := gate.Submit("black-conn", "GAME1", rules.Move{From: "e7", To: "e5"}); got != RejectedNotYourTurn {
		t.Fatalf("black moving first: outcome = %v, want %v", got, RejectedNotYourTurn)
	}
	if got := gate.Submit("watcher-conn", "GAME1", rules.Move{From: "e2", To: "e4"}); got != RejectedNotYourTurn {
		t.Fatalf("watcher moving: outcome = %v, want %v", got, RejectedNotYourTurn)
	}

	if bus.count(EventMove) != 0 {
		t.Fatal("rejected moves must not broadcast")
	}
	if !strings.HasPrefix(reg.Lookup("GAME1").FEN(), "rnbqkbnr/pppppppp/") {
		t.Fatal("position must be untouched")
	}
}

func TestSubmitIllegalMove(t *testing.T) {
	reg, bus, _, gate := newTestMatch(t)

	if got := gate.Submit("white-conn", "GAME1", rules.Move{From: "e2", To: "e5"}); got != RejectedIllegalMove {
		t.Fatalf("outcome = %v, want %v", got, RejectedIllegalMove)
	}
	if bus.count(EventMove) != 0 {
		t.Fatal("illegal move must not broadcast")
	}
	if reg.Lookup("GAME1").ClockRunning() {
		t.Fatal("illegal move must not start the clock")
	}
}

func TestSubmitLegalMove(t *testing.T) {
	reg, bus, _, gate := newTestMatch(t)

	if got := gate.Submit("white-conn", "GAME1", rules.Move{From: "e2", To: "e4"}); got != Accepted {
		t.Fatalf("outcome = %v, want %v", got, Accepted)
	}

	if bus.count(EventMove) != 1 {
		t.Fatal("accepted move must broadcast a move event")
	}
	state, ok := bus.last(EventBoardState)
	if !ok {
		t.Fatal("accepted move must broadcast the new board")
	}
	fen, _ := state.Payload.(string)
	if !strings.Contains(fen, " b ") {
		t.Fatalf("board after white's move should show black to move: %q", fen)
	}
	if bus.count(EventTimers) < 2 {
		t.Fatal("accepted move must broadcast timers")
	}

	rm := reg.Lookup("GAME1")
	if !rm.ClockRunning() {
		t.Fatal("accepted move must restart the clock for the other side")
	}
	rm.StopClock()

	if got := gate.Submit("white-conn", "GAME1", rules.Move{From: "d2", To: "d4"}); got != RejectedNotYourTurn {
		t.Fatalf("white moving twice: outcome = %v, want %v", got, RejectedNotYourTurn)
	}
}

func TestSubmitCheckmateEndsGame(t *testing.T) {
	arch := &memArchive{}
	reg, bus, _, gate := newTestMatch(t)
	reg.AttachArchive(arch)

	seq := []struct {
		conn string
		mv   rules.Move
	}{
		{"white-conn", rules.Move{From: "f2", To: "f3"}},
		{"black-conn", rules.Move{From: "e7", To: "e5"}},
		{"white-conn", rules.Move{From: "g2", To: "g4"}},
		{"black-conn", rules.Move{From: "d8", To: "h4"}},
	}
	for _, s := range seq {
		if got := gate.Submit(s.conn, "GAME1", s.mv); got != Accepted {
			t.Fatalf("%s %s%s: outcome = %v", s.conn, s.mv.From, s.mv.To, got)
		}
	}

	over, ok := bus.last(EventGameOver)
	if !ok {
		t.Fatal("checkmate must broadcast gameover")
	}
	if desc, _ := over.Payload.(string); desc != "Black" {
		t.Fatalf("gameover payload = %q, want %q", desc, "Black")
	}

	rm := reg.Lookup("GAME1")
	if rm.ClockRunning() {
		t.Fatal("clock must stop at game over")
	}

	rec := arch.waitForResult(t, time.Second)
	if rec.Winner != "black" || rec.Method != "checkmate" {
		t.Fatalf("archived result = %+v, want black by checkmate", rec)
	}
	if len(rec.MovesSAN) != 4 || rec.MovesSAN[3] != "Qh4#" {
		t.Fatalf("archived moves = %v", rec.MovesSAN)
	}

	// the mated side has no legal continuation
	if got := gate.Submit("white-conn", "GAME1", rules.Move{From: "a2", To: "a3"}); got != RejectedIllegalMove {
		t.Fatalf("post-mate move: outcome = %v, want %v", got, RejectedIllegalMove)
	}
}

func TestSubmitResolvesRoomFromBinding(t *testing.T) {
	_, bus, _, gate := newTestMatch(t)

	// explicit room id omitted: the connection's binding wins
	if got := gate.Submit("white-conn", "", rules.Move{From: "e2", To: "e4"}); got != Accepted {
		t.Fatalf("outcome = %v, want %v", got, Accepted)
	}
	if bus.count(EventMove) != 1 {
		t.Fatal("move should reach the bound room")
	}
}
