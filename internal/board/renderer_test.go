package board

import (
	"bytes"
	"image/png"
	"testing"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestRenderPNGStartPosition(t *testing.T) {
	r := NewRenderer()
	data, err := r.RenderPNG(startFEN, 0)
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 512 || b.Dy() != 512 {
		t.Fatalf("bounds = %v, want 512x512", b)
	}

	// e4 is an empty light square in the start position
	x := 4*squareSize + squareSize/2
	y := 4*squareSize + squareSize/2
	cr, cg, cb, _ := img.At(x, y).RGBA()
	wr, wg, wb, _ := lightSquare.RGBA()
	if cr != wr || cg != wg || cb != wb {
		t.Fatalf("empty square color = %v, want %v", img.At(x, y), lightSquare)
	}
}

func TestRenderPNGScaled(t *testing.T) {
	r := NewRenderer()
	data, err := r.RenderPNG(startFEN, 256)
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 256 || b.Dy() != 256 {
		t.Fatalf("bounds = %v, want 256x256", b)
	}
}

func TestRenderPNGBadFEN(t *testing.T) {
	r := NewRenderer()
	for _, fen := range []string{"", "rnbqkbnr/pppppppp w", "xxxxxxxx/8/8/8/8/8/8/8 w - - 0 1"} {
		if _, err := r.RenderPNG(fen, 0); err == nil {
			t.Fatalf("expected error for %q", fen)
		}
	}
}

func TestParsePlacement(t *testing.T) {
	grid, err := parsePlacement(startFEN)
	if err != nil {
		t.Fatal(err)
	}
	if grid[0][0] != "bR" || grid[0][4] != "bK" || grid[7][4] != "wK" || grid[6][0] != "wP" {
		t.Fatalf("unexpected grid corners: %q %q %q %q", grid[0][0], grid[0][4], grid[7][4], grid[6][0])
	}
	if grid[3][3] != "" {
		t.Fatalf("d5 should be empty, got %q", grid[3][3])
	}
}
