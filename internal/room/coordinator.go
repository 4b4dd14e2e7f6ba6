package room

import (
	"strconv"
	"strings"
	"sync"

	"github.com/chessit-app/chessit-server/internal/obslog"
	"go.uber.org/zap"
)

// Coordinator binds transient connections to rooms and roles. It enforces
// at-most-one connection per color slot and one active room per connection.
type Coordinator struct {
	reg *Registry

	mu     sync.Mutex
	byConn map[string]string // connection id → room id
}

func NewCoordinator(reg *Registry) *Coordinator {
	return &Coordinator{
		reg:    reg,
		byConn: make(map[string]string),
	}
}

// Status answers a room status query. The read is deliberately not
// side-effect-free: an unknown room is created on first reference.
func (c *Coordinator) Status(roomID string) Status {
	rm := c.reg.GetOrCreate(NormalizeID(roomID))
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.settings == nil {
		return StatusEmpty
	}
	return StatusWaiting
}

// Configure stores the creator's settings and reinitializes both clocks to the
// configured budget. No-op when the room was never created.
func (c *Coordinator) Configure(roomID string, s Settings) bool {
	rm := c.reg.Lookup(NormalizeID(roomID))
	if rm == nil {
		return false
	}

	secs := c.reg.defaultSeconds
	if n, err := strconv.Atoi(strings.TrimSpace(s.Time)); err == nil && n > 0 {
		secs = n
	}

	rm.mu.Lock()
	cp := s
	rm.settings = &cp
	rm.clocks = Clocks{White: secs, Black: secs}
	rm.mu.Unlock()

	obslog.L().Info("room_configure",
		zap.String("room", rm.ID),
		zap.Int("seconds", secs),
		zap.String("color", s.Color),
	)
	return true
}

// Join resolves a role for the connection and returns the current snapshot.
// A requested role is honored only when the slot is free; otherwise resolution
// falls through to auto-assignment: first free color, else watcher. When the
// join fills the second player slot, the board and clocks are announced to the
// whole room.
func (c *Coordinator) Join(connID, roomID string, requested Role) JoinInfo {
	id := NormalizeID(roomID)

	c.mu.Lock()
	prev, had := c.byConn[connID]
	c.mu.Unlock()
	if had && prev != id {
		c.Leave(connID)
	}

	rm := c.reg.GetOrCreate(id)

	rm.mu.Lock()
	// rejoin: release whatever this connection held in the room first
	if rm.white == connID {
		rm.white = ""
	}
	if rm.black == connID {
		rm.black = ""
	}
	delete(rm.watchers, connID)

	role := RoleWatcher
	switch {
	case requested == RoleWhite && rm.white == "":
		rm.white = connID
		role = RoleWhite
	case requested == RoleBlack && rm.black == "":
		rm.black = connID
		role = RoleBlack
	case rm.white == "":
		rm.white = connID
		role = RoleWhite
	case rm.black == "":
		rm.black = connID
		role = RoleBlack
	default:
		rm.watchers[connID] = struct{}{}
	}

	ready := rm.white != "" && rm.black != ""
	info := JoinInfo{Role: role, FEN: rm.pos.FEN(), Clocks: rm.clocks}
	rm.mu.Unlock()

	c.mu.Lock()
	c.byConn[connID] = id
	c.mu.Unlock()

	if ready {
		c.reg.bus.Publish(id, EventBoardState, info.FEN)
		c.reg.bus.Publish(id, EventTimers, info.Clocks)
	}

	obslog.L().Info("room_join",
		zap.String("room", id),
		zap.String("conn", connID),
		zap.String("role", string(role)),
		zap.Bool("ready", ready),
	)
	return info
}

// Leave drops a connection from its room. When the last player slot empties,
// the room is torn down and its clock cancelled; watchers alone never keep a
// room alive.
func (c *Coordinator) Leave(connID string) {
	c.mu.Lock()
	id, ok := c.byConn[connID]
	if ok {
		delete(c.byConn, connID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	rm := c.reg.Lookup(id)
	if rm == nil {
		return
	}

	rm.mu.Lock()
	if rm.white == connID {
		rm.white = ""
	}
	if rm.black == connID {
		rm.black = ""
	}
	delete(rm.watchers, connID)
	empty := rm.white == "" && rm.black == ""
	rm.mu.Unlock()

	obslog.L().Info("room_leave", zap.String("room", id), zap.String("conn", connID))

	if empty {
		c.reg.Remove(id)
	}
}

// RoomFor returns the room a connection is currently bound to.
func (c *Coordinator) RoomFor(connID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.byConn[connID]
	return id, ok
}
