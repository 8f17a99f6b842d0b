package board

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Square is a board coordinate in file-letter + rank-digit form ("e4").
// The zero value means "no square".
type Square string

const NoSquare Square = ""

func ParseSquare(raw string) (Square, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("%w: %q", ErrInvalidSquare, raw)
	}
	return Square(s), nil
}

func (s Square) Valid() bool {
	_, err := ParseSquare(string(s))
	return err == nil
}

// File returns 0 for the a-file through 7 for the h-file.
func (s Square) File() int { return int(s[0] - 'a') }

// Rank returns 0 for the first rank through 7 for the eighth.
func (s Square) Rank() int { return int(s[1] - '1') }

func (s Square) String() string { return string(s) }

func SquareAt(file, rank int) Square {
	return Square([]byte{byte('a' + file), byte('1' + rank)})
}

func (s Square) lib() nchess.Square {
	return nchess.NewSquare(nchess.File(s.File()), nchess.Rank(s.Rank()))
}

func fromLib(sq nchess.Square) Square {
	return Square(strings.ToLower(sq.String()))
}

type Color uint8

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return ""
	}
}

func (c Color) Other() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

func colorFromLib(c nchess.Color) Color {
	switch c {
	case nchess.White:
		return White
	case nchess.Black:
		return Black
	default:
		return NoColor
	}
}

// PieceKind doubles as the promotion kind of a Move; NoPiece means no promotion.
type PieceKind uint8

const (
	NoPiece PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

// Letter is the lowercase coordinate-notation letter ("q" for Queen).
func (k PieceKind) Letter() string {
	switch k {
	case Pawn:
		return "p"
	case Knight:
		return "n"
	case Bishop:
		return "b"
	case Rook:
		return "r"
	case Queen:
		return "q"
	case King:
		return "k"
	default:
		return ""
	}
}

func kindFromLetter(r byte) (PieceKind, bool) {
	switch r {
	case 'n':
		return Knight, true
	case 'b':
		return Bishop, true
	case 'r':
		return Rook, true
	case 'q':
		return Queen, true
	default:
		return NoPiece, false
	}
}

func kindFromLib(t nchess.PieceType) PieceKind {
	switch t {
	case nchess.Pawn:
		return Pawn
	case nchess.Knight:
		return Knight
	case nchess.Bishop:
		return Bishop
	case nchess.Rook:
		return Rook
	case nchess.Queen:
		return Queen
	case nchess.King:
		return King
	default:
		return NoPiece
	}
}

type Piece struct {
	Kind  PieceKind
	Color Color
}

func (p Piece) IsZero() bool { return p.Kind == NoPiece }
