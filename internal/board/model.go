package board

import (
	"errors"
	"fmt"

	nchess "github.com/corentings/chess/v2"
)

var (
	ErrIllegalMove   = errors.New("illegal move")
	ErrInvalidMove   = errors.New("invalid move notation")
	ErrInvalidSquare = errors.New("invalid square")
	ErrInvalidFEN    = errors.New("invalid fen")
)

type Result uint8

const (
	ResultNone Result = iota
	ResultCheckmate
	ResultDraw
	ResultOther
)

func (r Result) String() string {
	switch r {
	case ResultCheckmate:
		return "checkmate"
	case ResultDraw:
		return "draw"
	case ResultOther:
		return "other"
	default:
		return "none"
	}
}

type Terminal struct {
	Over   bool
	Reason Result
	// Method names the rule that ended the game ("checkmate", "stalemate", ...).
	Method string
}

// Rules is the capability set the controller consumes. Implementations never
// mutate the Position they are given.
type Rules interface {
	// LegalMoves lists legal moves; a non-empty from restricts them to that origin.
	LegalMoves(p Position, from Square) []Move
	Apply(p Position, m Move) (Position, error)
	IsTerminal(p Position) Terminal
	IsInCheck(p Position) bool
	TransportNotation(p Position) string
}

// Model implements Rules on top of corentings/chess.
type Model struct{}

var _ Rules = Model{}

func NewModel() Model { return Model{} }

func (Model) LegalMoves(p Position, from Square) []Move {
	g := p.game()
	valid := g.ValidMoves()
	out := make([]Move, 0, len(valid))
	for _, mv := range valid {
		m := Move{
			From:      fromLib(mv.S1()),
			To:        fromLib(mv.S2()),
			Promotion: kindFromLib(mv.Promo()),
		}
		if from != NoSquare && m.From != from {
			continue
		}
		out = append(out, m)
	}
	return out
}

// ResolvePromotion fills in a queen when a pawn reaches the last rank and the
// caller gave no promotion. A bare from/to pair is otherwise ambiguous.
func ResolvePromotion(p Position, m Move) Move {
	if m.Promotion != NoPiece || !m.From.Valid() || !m.To.Valid() {
		return m
	}
	piece := p.PieceAt(m.From)
	if piece.Kind != Pawn {
		return m
	}
	if (piece.Color == White && m.To.Rank() == 7) || (piece.Color == Black && m.To.Rank() == 0) {
		m.Promotion = Queen
	}
	return m
}

func (r Model) Apply(p Position, m Move) (Position, error) {
	m = ResolvePromotion(p, m)
	if !r.isLegal(p, m) {
		return Position{}, fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}

	next := p.game().Clone()
	mv, err := nchess.UCINotation{}.Decode(next.Position(), m.String())
	if err != nil {
		return Position{}, fmt.Errorf("%w: decode %s: %v", ErrIllegalMove, m, err)
	}
	if err := next.Move(mv, nil); err != nil {
		return Position{}, fmt.Errorf("%w: %s: %v", ErrIllegalMove, m, err)
	}
	return Position{g: next}, nil
}

func (r Model) isLegal(p Position, m Move) bool {
	for _, legal := range r.LegalMoves(p, m.From) {
		if legal == m {
			return true
		}
	}
	return false
}

func (Model) IsTerminal(p Position) Terminal {
	g := p.game()
	switch g.Outcome() {
	case nchess.Draw:
		return Terminal{Over: true, Reason: ResultDraw, Method: methodName(g.Method())}
	case nchess.WhiteWon, nchess.BlackWon:
		if g.Method() == nchess.Checkmate {
			return Terminal{Over: true, Reason: ResultCheckmate, Method: methodName(g.Method())}
		}
		return Terminal{Over: true, Reason: ResultOther, Method: methodName(g.Method())}
	}
	// Claimable draws end the game too, as the browser rule library did.
	for _, method := range g.EligibleDraws() {
		switch method {
		case nchess.ThreefoldRepetition, nchess.FiftyMoveRule:
			return Terminal{Over: true, Reason: ResultDraw, Method: methodName(method)}
		}
	}
	return Terminal{}
}

// IsInCheck reads the board itself, so positions loaded from FEN answer the
// same as positions reached by play.
func (Model) IsInCheck(p Position) bool {
	side := p.SideToMove()
	g := gridOf(p)
	file, rank, ok := g.king(side)
	if !ok {
		return false
	}
	return g.attacked(file, rank, side.Other())
}

func (Model) TransportNotation(p Position) string {
	return p.FEN()
}

// Winner is the side that delivered mate; NoColor for anything else.
func Winner(p Position) Color {
	switch p.game().Outcome() {
	case nchess.WhiteWon:
		return White
	case nchess.BlackWon:
		return Black
	default:
		return NoColor
	}
}

func methodName(m nchess.Method) string {
	switch m {
	case nchess.Checkmate:
		return "checkmate"
	case nchess.Resignation:
		return "resignation"
	case nchess.DrawOffer:
		return "draw_offer"
	case nchess.Stalemate:
		return "stalemate"
	case nchess.ThreefoldRepetition:
		return "threefold_repetition"
	case nchess.FivefoldRepetition:
		return "fivefold_repetition"
	case nchess.FiftyMoveRule:
		return "fifty_move_rule"
	case nchess.SeventyFiveMoveRule:
		return "seventy_five_move_rule"
	case nchess.InsufficientMaterial:
		return "insufficient_material"
	default:
		return ""
	}
}
