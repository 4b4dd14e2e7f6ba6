package room

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chessit-app/chessit-server/internal/msgcat"
	"github.com/chessit-app/chessit-server/internal/obslog"
	"github.com/chessit-app/chessit-server/internal/rules"
	"go.uber.org/zap"
)

// Room holds the mutable state of one match. All fields behind mu; every
// operation that touches a room runs under its mutex, which gives the per-room
// serialization the coordinator relies on.
type Room struct {
	ID string

	mu        sync.Mutex
	gameID    string
	pos       *rules.Position
	white     string
	black     string
	watchers  map[string]struct{}
	clocks    Clocks
	clockStop chan struct{} // nil when the clock is stopped
	settings  *Settings
	createdAt time.Time

	reg *Registry
}

// FEN returns the current position snapshot.
func (rm *Room) FEN() string {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.pos.FEN()
}

// ClockRunning reports whether the countdown loop is active.
func (rm *Room) ClockRunning() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.clockStop != nil
}

// Clocks returns the remaining time per side.
func (rm *Room) Clocks() Clocks {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.clocks
}

func (rm *Room) info() Info {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	players := 0
	if rm.white != "" {
		players++
	}
	if rm.black != "" {
		players++
	}
	return Info{
		ID:           rm.ID,
		Players:      players,
		Watchers:     len(rm.watchers),
		Clocks:       rm.clocks,
		ClockRunning: rm.clockStop != nil,
		Configured:   rm.settings != nil,
	}
}

// resultLocked builds the archive record for a finished game. Caller holds mu.
func (rm *Room) resultLocked(winner, method string) *Result {
	return &Result{
		GameID:    rm.gameID,
		RoomID:    rm.ID,
		Winner:    winner,
		Method:    method,
		FinalFEN:  rm.pos.FEN(),
		MovesSAN:  rm.pos.MovesSAN(),
		StartedAt: rm.createdAt,
		EndedAt:   time.Now(),
	}
}

// Registry owns the room table. It is handed to the coordinator, the move gate
// and the ops surface by reference; nothing reaches it as ambient state.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	bus            Broadcaster
	msgs           *msgcat.Catalog
	tick           time.Duration
	defaultSeconds int
	archive        Archive
}

type Option func(*Registry)

// WithTickInterval overrides the one-second clock tick, for tests.
func WithTickInterval(d time.Duration) Option {
	return func(r *Registry) { r.tick = d }
}

// WithDefaultClock sets the initial per-side budget in seconds.
func WithDefaultClock(seconds int) Option {
	return func(r *Registry) {
		if seconds > 0 {
			r.defaultSeconds = seconds
		}
	}
}

func NewRegistry(bus Broadcaster, msgs *msgcat.Catalog, opts ...Option) *Registry {
	r := &Registry{
		rooms:          make(map[string]*Room),
		bus:            bus,
		msgs:           msgs,
		tick:           time.Second,
		defaultSeconds: 600,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AttachArchive wires an optional results archive.
func (r *Registry) AttachArchive(a Archive) {
	r.archive = a
}

// NormalizeID canonicalizes a player-supplied room id. Ids sourced from an
// opaque external identifier space must be used verbatim instead.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// NewRoomCode mints a fresh 6-character room code.
func NewRoomCode() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return NormalizeID(fmt.Sprintf("%06x", time.Now().UnixNano())[:6])
	}
	return strings.ToUpper(hex.EncodeToString(b)[:6])
}

// GetOrCreate returns the room for id, creating it lazily on first reference.
func (r *Registry) GetOrCreate(id string) *Room {
	r.mu.RLock()
	rm, ok := r.rooms[id]
	r.mu.RUnlock()
	if ok {
		return rm
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok := r.rooms[id]; ok {
		return rm
	}
	rm = &Room{
		ID:        id,
		gameID:    fmt.Sprintf("room-%d-%s", time.Now().UnixNano(), randSuffix(3)),
		pos:       rules.NewPosition(),
		watchers:  make(map[string]struct{}),
		clocks:    Clocks{White: r.defaultSeconds, Black: r.defaultSeconds},
		createdAt: time.Now(),
		reg:       r,
	}
	r.rooms[id] = rm
	obslog.L().Info("room_create", zap.String("room", id))
	return rm
}

// Lookup returns the room for id without creating it.
func (r *Registry) Lookup(id string) *Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[id]
}

// Remove deletes a room. Its clock loop is stopped first so no dangling timer
// can resurrect broadcasts for a dead room.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	rm, ok := r.rooms[id]
	if ok {
		delete(r.rooms, id)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	rm.StopClock()
	obslog.L().Info("room_remove", zap.String("room", id))
}

// Len reports the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Snapshot lists all rooms for the ops surface, sorted by id.
func (r *Registry) Snapshot() []Info {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.RUnlock()

	out := make([]Info, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, rm.info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Shutdown stops every clock loop. Called on process teardown.
func (r *Registry) Shutdown() {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.RUnlock()
	for _, rm := range rooms {
		rm.StopClock()
	}
}

// render resolves a catalog key, falling back when the template is missing.
func (r *Registry) render(key string, data any, fallback string) string {
	if r.msgs == nil {
		return fallback
	}
	out, err := r.msgs.Render(key, data)
	if err != nil {
		return fallback
	}
	return out
}

func (r *Registry) sideName(s rules.Side) string {
	if s == rules.SideWhite {
		return r.render("side.white", nil, "White")
	}
	return r.render("side.black", nil, "Black")
}

// saveResult hands a final record to the archive asynchronously; failures are
// logged and never block the handler.
func (r *Registry) saveResult(rec *Result) {
	if rec == nil || r.archive == nil {
		return
	}
	archive := r.archive
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := archive.SaveResult(ctx, *rec); err != nil {
			obslog.L().Error("result_persist_error",
				zap.String("room", rec.RoomID),
				zap.String("method", rec.Method),
				zap.Error(err),
			)
		}
	}()
}

func randSuffix(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano()%1_000_000)
	}
	return hex.EncodeToString(b)
}
