// Package board renders a position as a PNG for the ops surface.
package board

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	xdraw "golang.org/x/image/draw"
)

const (
	squareSize   = 64
	boardSquares = 8
	boardSize    = squareSize * boardSquares
)

var (
	lightSquare = color.RGBA{233, 207, 163, 255}
	darkSquare  = color.RGBA{187, 136, 96, 255}
)

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderPNG draws the position from white's perspective. size selects the
// output edge in pixels; zero keeps the native 512.
func (r *Renderer) RenderPNG(fen string, size int) ([]byte, error) {
	placement, err := parsePlacement(fen)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, boardSize, boardSize))
	for row := 0; row < boardSquares; row++ {
		for col := 0; col < boardSquares; col++ {
			x := col * squareSize
			y := row * squareSize
			clr := color.Color(darkSquare)
			if (row+col)%2 == 0 {
				clr = lightSquare
			}
			rect := image.Rect(x, y, x+squareSize, y+squareSize)
			imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Src)

			code := placement[row][col]
			if code == "" {
				continue
			}
			glyph, err := renderPieceImage(code, squareSize)
			if err != nil {
				return nil, err
			}
			imagedraw.Draw(img, rect, glyph, image.Point{}, imagedraw.Over)
		}
	}

	out := image.Image(img)
	if size > 0 && size != boardSize {
		scaled := image.NewRGBA(image.Rect(0, 0, size, size))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		out = scaled
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// parsePlacement reads the first FEN field into an 8x8 grid of glyph codes,
// row 0 being rank 8.
func parsePlacement(fen string) ([boardSquares][boardSquares]string, error) {
	var grid [boardSquares][boardSquares]string

	fields := strings.Fields(fen)
	if len(fields) == 0 {
		return grid, fmt.Errorf("empty fen")
	}
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != boardSquares {
		return grid, fmt.Errorf("fen has %d ranks", len(ranks))
	}

	for row, rank := range ranks {
		col := 0
		for _, r := range rank {
			if r >= '1' && r <= '8' {
				col += int(r - '0')
				continue
			}
			code, ok := pieceCode(r)
			if !ok || col >= boardSquares {
				return grid, fmt.Errorf("bad fen rank %q", rank)
			}
			grid[row][col] = code
			col++
		}
		if col != boardSquares {
			return grid, fmt.Errorf("bad fen rank %q", rank)
		}
	}
	return grid, nil
}
