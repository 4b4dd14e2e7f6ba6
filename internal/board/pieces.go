package board

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"unicode"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

type pieceCacheKey struct {
	code string
	size int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

// renderPieceImage rasterizes one piece glyph at the given square size.
// Rendered glyphs are cached per (code, size).
func renderPieceImage(code string, size int) (image.Image, error) {
	key := pieceCacheKey{code: code, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	name := fmt.Sprintf("assets/pieces/%s.svg", code)
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}

// pieceCode maps a FEN placement letter to its glyph asset name.
func pieceCode(r rune) (string, bool) {
	var suffix string
	switch unicode.ToLower(r) {
	case 'p':
		suffix = "P"
	case 'n':
		suffix = "N"
	case 'b':
		suffix = "B"
	case 'r':
		suffix = "R"
	case 'q':
		suffix = "Q"
	case 'k':
		suffix = "K"
	default:
		return "", false
	}
	if unicode.IsUpper(r) {
		return "w" + suffix, true
	}
	return "b" + suffix, true
}
