// Package broadcast carries room events over Redis pub/sub so every gateway
// instance can fan them out to its local connections.
package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chessit-app/chessit-server/internal/obslog"
)

const channel = "chessit:events"

// Envelope is the wire frame for one room event.
type Envelope struct {
	Room  string          `json:"room"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler consumes one delivered envelope.
type Handler func(Envelope)

// Bus publishes and subscribes room events on a single Redis channel.
type Bus struct {
	rdb *redis.Client
}

func NewBus(rdb *redis.Client) *Bus {
	return &Bus{rdb: rdb}
}

// Publish serializes the payload and fires it at the shared channel. Errors
// are logged, never surfaced; event delivery is best-effort.
func (b *Bus) Publish(roomID, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		obslog.L().Error("broadcast_marshal_error",
			zap.String("room", roomID),
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}
	raw, err := json.Marshal(Envelope{Room: roomID, Event: event, Data: data})
	if err != nil {
		obslog.L().Error("broadcast_marshal_error",
			zap.String("room", roomID),
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		obslog.L().Error("broadcast_publish_error",
			zap.String("room", roomID),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

// Run subscribes to the shared channel and hands every envelope to the
// handler until the context is cancelled. Malformed frames are dropped.
func (b *Bus) Run(ctx context.Context, handle Handler) error {
	sub := b.rdb.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	obslog.L().Info("broadcast_subscribed", zap.String("channel", channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				obslog.L().Warn("broadcast_decode_error", zap.Error(err))
				continue
			}
			handle(env)
		}
	}
}
