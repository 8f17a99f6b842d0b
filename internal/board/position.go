package board

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Position is one immutable board snapshot. The wrapped game is cloned before
// every transition and never touched after construction; it also carries the
// prior transitions so repetition draws stay detectable.
type Position struct {
	g *nchess.Game
}

func Initial() Position {
	return Position{g: nchess.NewGame()}
}

func FromFEN(fen string) (Position, error) {
	text := strings.TrimSpace(fen)
	if text == "" || text == "startpos" {
		return Initial(), nil
	}
	opt, err := nchess.FEN(text)
	if err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return Position{g: nchess.NewGame(opt)}, nil
}

func (p Position) game() *nchess.Game {
	if p.g == nil {
		return nchess.NewGame()
	}
	return p.g
}

func (p Position) FEN() string { return p.game().FEN() }

func (p Position) String() string { return p.FEN() }

func (p Position) SideToMove() Color {
	return colorFromLib(p.game().Position().Turn())
}

// Ply is the number of transitions applied since this snapshot's origin.
func (p Position) Ply() int { return len(p.game().Moves()) }

func (p Position) PieceAt(sq Square) Piece {
	if !sq.Valid() {
		return Piece{}
	}
	piece := p.game().Position().Board().Piece(sq.lib())
	if piece == nchess.NoPiece {
		return Piece{}
	}
	return Piece{Kind: kindFromLib(piece.Type()), Color: colorFromLib(piece.Color())}
}

// LastMove reports the transition that produced this snapshot.
func (p Position) LastMove() (Move, bool) {
	moves := p.game().Moves()
	if len(moves) == 0 {
		return Move{}, false
	}
	return fromLibMove(moves[len(moves)-1]), true
}

// Equal compares board state, not the path that reached it.
func (p Position) Equal(other Position) bool {
	return p.FEN() == other.FEN()
}

func fromLibMove(mv *nchess.Move) Move {
	return Move{
		From:      fromLib(mv.S1()),
		To:        fromLib(mv.S2()),
		Promotion: kindFromLib(mv.Promo()),
	}
}
