package ops

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/valyala/fasthttp"

	"github.com/chessit-app/chessit-server/internal/board"
	"github.com/chessit-app/chessit-server/internal/msgcat"
	"github.com/chessit-app/chessit-server/internal/room"
)

type nopBus struct{}

func (nopBus) Publish(string, string, any) {}

func newTestServer(t *testing.T) (*Server, *room.Registry) {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	reg := room.NewRegistry(nopBus{}, cat)
	t.Cleanup(reg.Shutdown)
	return NewServer(reg, board.NewRenderer()), reg
}

func do(t *testing.T, s *Server, method, uri string) *fasthttp.RequestCtx {
	t.Helper()
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	var ctx fasthttp.RequestCtx
	ctx.Init(&req, nil, nil)
	s.handle(&ctx)
	return &ctx
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := do(t, s, fasthttp.MethodGet, "/healthz")
	if ctx.Response.StatusCode() != fasthttp.StatusOK || string(ctx.Response.Body()) != "ok" {
		t.Fatalf("status=%d body=%q", ctx.Response.StatusCode(), ctx.Response.Body())
	}
}

func TestListRooms(t *testing.T) {
	s, reg := newTestServer(t)
	reg.GetOrCreate("R1")

	ctx := do(t, s, fasthttp.MethodGet, "/rooms")
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status=%d", ctx.Response.StatusCode())
	}
	var infos []room.Info
	if err := json.Unmarshal(ctx.Response.Body(), &infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != "R1" {
		t.Fatalf("rooms = %+v", infos)
	}
}

func TestMintRoom(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := do(t, s, fasthttp.MethodPost, "/rooms")
	if ctx.Response.StatusCode() != fasthttp.StatusCreated {
		t.Fatalf("status=%d", ctx.Response.StatusCode())
	}
	var out struct {
		Room string `json:"room"`
	}
	if err := json.Unmarshal(ctx.Response.Body(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Room) != 6 {
		t.Fatalf("room code = %q", out.Room)
	}
}

func TestBoardPNG(t *testing.T) {
	s, reg := newTestServer(t)
	reg.GetOrCreate("R1")

	ctx := do(t, s, fasthttp.MethodGet, "/rooms/r1/board.png")
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status=%d", ctx.Response.StatusCode())
	}
	if !bytes.HasPrefix(ctx.Response.Body(), []byte("\x89PNG")) {
		t.Fatal("body is not a png")
	}

	ctx = do(t, s, fasthttp.MethodGet, "/rooms/NOPE/board.png")
	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("unknown room status=%d", ctx.Response.StatusCode())
	}
}

func TestUnknownPath(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := do(t, s, fasthttp.MethodGet, "/nope")
	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("status=%d", ctx.Response.StatusCode())
	}
}
