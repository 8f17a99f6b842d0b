package board

import (
	"fmt"
	"strings"
)

// Move is a candidate transition. Two moves are equal iff all three fields match,
// so the struct is directly comparable.
type Move struct {
	From      Square
	To        Square
	Promotion PieceKind
}

// ParseMove reads coordinate notation: "e2e4", "e7e8q".
func ParseMove(raw string) (Move, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, raw)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, raw)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, raw)
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		kind, ok := kindFromLetter(s[4])
		if !ok {
			return Move{}, fmt.Errorf("%w: bad promotion in %q", ErrInvalidMove, raw)
		}
		m.Promotion = kind
	}
	return m, nil
}

func (m Move) String() string {
	return string(m.From) + string(m.To) + m.Promotion.Letter()
}

func (m Move) IsZero() bool { return m == Move{} }
