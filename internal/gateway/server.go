// Package gateway is the websocket front of the server: it accepts
// connections, decodes the wire vocabulary and forwards intents to the room
// coordinator and move gate.
package gateway

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/chessit-app/chessit-server/internal/broadcast"
	"github.com/chessit-app/chessit-server/internal/obslog"
	"github.com/chessit-app/chessit-server/internal/room"
	"github.com/chessit-app/chessit-server/internal/rules"
)

type Server struct {
	coord   *room.Coordinator
	gate    *room.Gate
	hub     *Hub
	origins []string
}

func NewServer(coord *room.Coordinator, gate *room.Gate, hub *Hub, origins []string) *Server {
	return &Server{coord: coord, gate: gate, hub: hub, origins: origins}
}

// Dispatch fans a bus envelope out to the local members of its room.
func (s *Server) Dispatch(env broadcast.Envelope) {
	s.hub.Dispatch(env)
}

// ServeWS upgrades the request and runs the connection until it drops. On
// disconnect the seat is released, which may tear the room down.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.Error(err))
		return
	}

	c := newClient(conn)
	obslog.L().Info("ws_connect", zap.String("conn", c.id))

	ctx := r.Context()
	go c.writeLoop(ctx)

	for {
		var ev Event
		if err := wsjson.Read(ctx, c.conn, &ev); err != nil {
			break
		}
		s.route(c, ev)
	}

	c.close()
	s.hub.Leave(c)
	s.coord.Leave(c.id)
	_ = conn.Close(websocket.StatusNormalClosure, "")
	obslog.L().Info("ws_disconnect", zap.String("conn", c.id))
}

func (s *Server) route(c *Client, ev Event) {
	switch ev.Type {
	case MsgCheckRoomStatus:
		var ref roomRef
		if err := json.Unmarshal(ev.Payload, &ref); err != nil || ref.Room == "" {
			return
		}
		status := s.coord.Status(ref.Room)
		out, err := NewEvent(MsgRoomStatus, roomStatusPayload{
			Room:   room.NormalizeID(ref.Room),
			Status: string(status),
		})
		if err == nil {
			c.send(out)
		}

	case MsgInitializeRoom:
		var p initializePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.room() == "" {
			return
		}
		s.coord.Configure(p.room(), room.Settings{Time: p.Time, Color: p.Color})

	case MsgJoinRoom:
		var p joinPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.room() == "" {
			return
		}
		s.hub.Join(room.NormalizeID(p.room()), c)
		info := s.coord.Join(c.id, p.room(), room.Role(p.Role))
		out, err := NewEvent(MsgInit, info)
		if err == nil {
			c.send(out)
		}

	case MsgMove:
		var p movePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return
		}
		// rejections are deliberate silence on the wire
		outcome := s.gate.Submit(c.id, p.room(), rules.Move{
			From:      p.From,
			To:        p.To,
			Promotion: p.Promotion,
		})
		if outcome != room.Accepted {
			obslog.L().Debug("move_dropped",
				zap.String("conn", c.id),
				zap.String("outcome", outcome.String()),
			)
		}

	default:
		obslog.L().Debug("ws_unknown_type", zap.String("type", ev.Type))
	}
}
