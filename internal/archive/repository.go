// Package archive persists final game results to Postgres. Live room state is
// never written; a crashed process simply forgets its rooms.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/chessit-app/chessit-server/internal/obslog"
	"github.com/chessit-app/chessit-server/internal/room"
)

const schema = `
CREATE TABLE IF NOT EXISTS room_games (
    game_id    TEXT PRIMARY KEY,
    room_id    TEXT NOT NULL,
    winner     TEXT NOT NULL DEFAULT '',
    method     TEXT NOT NULL,
    result     TEXT NOT NULL,
    final_fen  TEXT NOT NULL,
    pgn        TEXT NOT NULL,
    moves      INTEGER NOT NULL,
    started_at TIMESTAMPTZ NOT NULL,
    ended_at   TIMESTAMPTZ NOT NULL,
    duration_s INTEGER NOT NULL DEFAULT 0
)`

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	obslog.L().Info("archive_ready")
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// SaveResult upserts the final record, keyed by game id so retried saves stay
// idempotent.
func (r *Repository) SaveResult(ctx context.Context, rec room.Result) error {
	result := mapResult(rec)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO room_games
			(game_id, room_id, winner, method, result, final_fen, pgn, moves, started_at, ended_at, duration_s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (game_id) DO UPDATE SET
			winner     = EXCLUDED.winner,
			method     = EXCLUDED.method,
			result     = EXCLUDED.result,
			final_fen  = EXCLUDED.final_fen,
			pgn        = EXCLUDED.pgn,
			moves      = EXCLUDED.moves,
			ended_at   = EXCLUDED.ended_at,
			duration_s = EXCLUDED.duration_s`,
		rec.GameID, rec.RoomID, rec.Winner, rec.Method, result,
		rec.FinalFEN, buildPGN(rec, result), len(rec.MovesSAN),
		rec.StartedAt, rec.EndedAt, int(rec.EndedAt.Sub(rec.StartedAt).Seconds()),
	)
	if err != nil {
		return fmt.Errorf("upsert room_games: %w", err)
	}
	obslog.L().Info("archive_saved",
		zap.String("game", rec.GameID),
		zap.String("room", rec.RoomID),
		zap.String("result", result),
	)
	return nil
}

// mapResult converts a winner/method pair to PGN result notation.
func mapResult(rec room.Result) string {
	switch rec.Winner {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	}
	if rec.Method == "draw" {
		return "1/2-1/2"
	}
	return "*"
}

func buildPGN(rec room.Result, result string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[Event \"Casual game\"]\n")
	fmt.Fprintf(&b, "[Site \"%s\"]\n", rec.RoomID)
	fmt.Fprintf(&b, "[Date \"%s\"]\n", rec.StartedAt.UTC().Format("2006.01.02"))
	fmt.Fprintf(&b, "[Result \"%s\"]\n", result)
	if rec.Method != "" {
		fmt.Fprintf(&b, "[Termination \"%s\"]\n", rec.Method)
	}
	b.WriteString("\n")

	for i, san := range rec.MovesSAN {
		if i%2 == 0 {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%d.", i/2+1)
		}
		b.WriteString(" ")
		b.WriteString(san)
	}
	if len(rec.MovesSAN) > 0 {
		b.WriteString(" ")
	}
	b.WriteString(result)
	b.WriteString("\n")
	return b.String()
}
