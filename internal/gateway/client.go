package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/chessit-app/chessit-server/internal/obslog"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	egressBuffer = 16
)

// Client is one websocket connection. Writes go through the egress channel so
// the read path never blocks on a slow socket.
type Client struct {
	id   string
	conn *websocket.Conn

	egress chan Event
	closed chan struct{}
	once   sync.Once
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		id:     uuid.NewString(),
		conn:   conn,
		egress: make(chan Event, egressBuffer),
		closed: make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// send queues an event for delivery. Events to a backlogged client are
// dropped rather than stalling the sender.
func (c *Client) send(ev Event) {
	select {
	case <-c.closed:
	case c.egress <- ev:
	default:
		obslog.L().Warn("ws_egress_full",
			zap.String("conn", c.id),
			zap.String("type", ev.Type),
		)
	}
}

func (c *Client) close() {
	c.once.Do(func() { close(c.closed) })
}

func (c *Client) writeLoop(ctx context.Context) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case ev := <-c.egress:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c.conn, ev)
			cancel()
			if err != nil {
				obslog.L().Debug("ws_write_error", zap.String("conn", c.id), zap.Error(err))
				return
			}
		case <-ping.C:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(wctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
