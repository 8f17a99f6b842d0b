package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/Cheese-vs-Stockfish/internal/board"
)

// Glyph outlines on a 45x45 canvas.
var pieceOutlines = map[board.PieceKind]string{
	board.Pawn:   `<path d="M22.5 9 C19.5 9 17.5 11.5 17.5 14 C17.5 15.5 18.2 16.8 19.2 17.7 C16.8 19 15.5 21.5 15.5 24 C15.5 26 16.3 27.5 17.5 28.5 C14 30 10.5 33.5 10.5 39.5 L34.5 39.5 C34.5 33.5 31 30 27.5 28.5 C28.7 27.5 29.5 26 29.5 24 C29.5 21.5 28.2 19 25.8 17.7 C26.8 16.8 27.5 15.5 27.5 14 C27.5 11.5 25.5 9 22.5 9 Z"/>`,
	board.Knight: `<path d="M22 10 C32.5 11 38.5 18 38 39 L15 39 C15 30 25 32.5 23 18 C22 20 18 22 16 24 C14 26 12 27 10 26 C8 25 8 22 10 20 C12 18 14 15 14 13 C15 11 18 10 19 10 L20 8 Z"/>`,
	board.Bishop: `<path d="M9 36 C12.4 35 19.1 36.4 22.5 34 C25.9 36.4 32.6 35 36 36 L36 39 L9 39 Z"/>` +
		`<path d="M15 32 C17.5 34.5 27.5 34.5 30 32 C30.5 30.5 30 30 30 30 C30 27.5 27.5 26 27.5 26 C33 24.5 33.5 14.5 22.5 10.5 C11.5 14.5 12 24.5 17.5 26 C17.5 26 15 27.5 15 30 C15 30 14.5 30.5 15 32 Z"/>` +
		`<circle cx="22.5" cy="8" r="2.5"/>`,
	board.Rook: `<path d="M9 39 L36 39 L36 36 L33 36 L33 32 L31 29.5 L31 17 L34 14 L34 9 L30 9 L30 11 L25 11 L25 9 L20 9 L20 11 L15 11 L15 9 L11 9 L11 14 L14 17 L14 29.5 L12 32 L12 36 L9 36 Z"/>`,
	board.Queen: `<path d="M9 26 C17.5 24.5 30 24.5 36 26 L38.5 13.5 L31 25 L30.7 10.9 L25.5 24.5 L22.5 10 L19.5 24.5 L14.3 10.9 L14 25 L6.5 13.5 Z"/>` +
		`<path d="M9 26 C9 28 10.5 28 11.5 30 C12.5 31.5 12.5 31 12 33.5 C10.5 34.5 11 36 11 36 C9.5 37.5 11 38.5 11 38.5 C17.5 39.5 27.5 39.5 34 38.5 C34 38.5 35.5 37.5 34 36 C34 36 34.5 34.5 33 33.5 C32.5 31 32.5 31.5 33.5 30 C34.5 28 36 28 36 26 Z"/>` +
		`<circle cx="6" cy="12" r="2"/><circle cx="14" cy="9" r="2"/><circle cx="22.5" cy="8" r="2"/><circle cx="31" cy="9" r="2"/><circle cx="39" cy="12" r="2"/>`,
	board.King: `<path d="M21.5 5 L23.5 5 L23.5 8 L26 8 L26 10 L23.5 10 L23.5 13 L21.5 13 L21.5 10 L19 10 L19 8 L21.5 8 Z"/>` +
		`<path d="M11.5 37 C17 40.5 27 40.5 32.5 37 L32.5 30 C32.5 30 41.5 25.5 38.5 19.5 C34.5 13 25 16 22.5 23.5 C20 16 10.5 13 6.5 19.5 C3.5 25.5 11.5 29.5 11.5 29.5 Z"/>`,
}

func pieceSVG(p board.Piece) (string, error) {
	body, ok := pieceOutlines[p.Kind]
	if !ok {
		return "", fmt.Errorf("no glyph for piece kind %d", p.Kind)
	}
	fill, stroke := "#ffffff", "#000000"
	if p.Color == board.Black {
		fill, stroke = "#1f1f1f", "#d8d8d8"
	}
	var sb strings.Builder
	sb.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="45" height="45" viewBox="0 0 45 45">`)
	fmt.Fprintf(&sb, `<g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">`, fill, stroke)
	sb.WriteString(body)
	sb.WriteString(`</g></svg>`)
	return sb.String(), nil
}

type pieceCacheKey struct {
	piece board.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(piece board.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	svg, err := pieceSVG(piece)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(svg))
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
