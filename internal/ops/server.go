// Package ops exposes a small operational HTTP surface: health, room listing
// and board snapshots. It is separate from the player-facing websocket port.
package ops

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/chessit-app/chessit-server/internal/board"
	"github.com/chessit-app/chessit-server/internal/obslog"
	"github.com/chessit-app/chessit-server/internal/room"
)

type Server struct {
	reg      *room.Registry
	renderer *board.Renderer
	srv      *fasthttp.Server
}

func NewServer(reg *room.Registry, renderer *board.Renderer) *Server {
	s := &Server{reg: reg, renderer: renderer}
	s.srv = &fasthttp.Server{
		Handler:      s.handle,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Name:         "chessit-ops",
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error {
	obslog.L().Info("ops_listen", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Shutdown() error {
	return s.srv.Shutdown()
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	method := string(ctx.Method())

	switch {
	case path == "/healthz":
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("ok")

	case path == "/rooms" && method == fasthttp.MethodGet:
		s.listRooms(ctx)

	case path == "/rooms" && method == fasthttp.MethodPost:
		s.mintRoom(ctx)

	case strings.HasPrefix(path, "/rooms/") && strings.HasSuffix(path, "/board.png") && method == fasthttp.MethodGet:
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/rooms/"), "/board.png")
		s.boardPNG(ctx, id)

	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *Server) listRooms(ctx *fasthttp.RequestCtx) {
	data, err := json.Marshal(s.reg.Snapshot())
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(data)
}

func (s *Server) mintRoom(ctx *fasthttp.RequestCtx) {
	code := room.NewRoomCode()
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusCreated)
	ctx.SetBodyString(`{"room":"` + code + `"}`)
}

func (s *Server) boardPNG(ctx *fasthttp.RequestCtx, id string) {
	rm := s.reg.Lookup(id)
	if rm == nil {
		rm = s.reg.Lookup(room.NormalizeID(id))
	}
	if rm == nil {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}

	size := 0
	if v := ctx.QueryArgs().Peek("size"); len(v) > 0 {
		if n, err := strconv.Atoi(string(v)); err == nil && n > 0 && n <= 2048 {
			size = n
		}
	}

	data, err := s.renderer.RenderPNG(rm.FEN(), size)
	if err != nil {
		obslog.L().Error("board_render_error", zap.String("room", rm.ID), zap.Error(err))
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("image/png")
	ctx.SetBody(data)
}
