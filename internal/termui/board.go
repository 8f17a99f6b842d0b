package termui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/park285/Cheese-vs-Stockfish/internal/board"
	"github.com/park285/Cheese-vs-Stockfish/internal/game"
)

// Background attributes per square kind.
const (
	bgLight       = color.BgHiYellow
	bgDark        = color.BgYellow
	bgSource      = color.BgHiGreen
	bgDestination = color.BgGreen
	bgLastMove    = color.BgHiCyan
)

var (
	fgWhitePiece = []color.Attribute{color.FgHiWhite, color.Bold}
	fgBlackPiece = []color.Attribute{color.FgBlack, color.Bold}
)

type palette struct {
	noColor     bool
	header      *color.Color
	bannerAlert *color.Color
	bannerInfo  *color.Color
	coordinate  *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{noColor: noColor}
	p.header = p.style(color.FgHiBlue, color.Bold)
	p.bannerAlert = p.style(color.FgHiRed, color.Bold)
	p.bannerInfo = p.style(color.FgCyan)
	p.coordinate = p.style(color.FgHiBlack)
	return p
}

func (p palette) style(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if p.noColor {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c
}

// frame is what one board redraw shows besides the position.
type frame struct {
	header string
	turn   string
	banner string
	alert  bool
}

// drawBoard prints the position from White's side. White pieces are upper
// case, black lower case; an empty legal target shows a dot.
func drawBoard(w io.Writer, pal palette, v game.View, f frame) {
	var sb strings.Builder
	sb.WriteString(pal.header.Sprint(f.header))
	sb.WriteString("\n")

	for rank := 7; rank >= 0; rank-- {
		sb.WriteString(pal.coordinate.Sprintf(" %d ", rank+1))
		for file := 0; file < 8; file++ {
			sb.WriteString(squareCell(pal, v, board.SquareAt(file, rank)))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("   ")
	for file := 0; file < 8; file++ {
		sb.WriteString(pal.coordinate.Sprintf(" %c ", 'a'+file))
	}
	sb.WriteString("\n")

	if f.turn != "" {
		sb.WriteString(f.turn)
		sb.WriteString("\n")
	}
	if f.banner != "" {
		if f.alert {
			sb.WriteString(pal.bannerAlert.Sprint(f.banner))
		} else {
			sb.WriteString(pal.bannerInfo.Sprint(f.banner))
		}
		sb.WriteString("\n")
	}
	fmt.Fprint(w, sb.String())
}

func squareCell(pal palette, v game.View, sq board.Square) string {
	bg := bgLight
	if (sq.File()+sq.Rank())%2 == 0 {
		bg = bgDark
	}
	if v.HasLastMove && (sq == v.LastMove.From || sq == v.LastMove.To) {
		bg = bgLastMove
	}
	mark := v.Highlights[sq]
	switch mark {
	case game.HighlightSource:
		bg = bgSource
	case game.HighlightDestination:
		bg = bgDestination
	}

	piece := v.Position.PieceAt(sq)
	if piece.IsZero() {
		if mark == game.HighlightDestination {
			return pal.style(bg, color.FgBlack).Sprint(" . ")
		}
		return pal.style(bg).Sprint("   ")
	}
	fg := fgWhitePiece
	if piece.Color == board.Black {
		fg = fgBlackPiece
	}
	return pal.style(append([]color.Attribute{bg}, fg...)...).Sprint(" " + pieceLetter(piece) + " ")
}

func pieceLetter(p board.Piece) string {
	if p.Color == board.White {
		return strings.ToUpper(p.Kind.Letter())
	}
	return p.Kind.Letter()
}
