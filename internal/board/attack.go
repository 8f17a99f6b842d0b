package board

import nchess "github.com/corentings/chess/v2"

type grid [8][8]Piece

func gridOf(p Position) grid {
	var g grid
	for sq, piece := range p.game().Position().Board().SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		s := fromLib(sq)
		g[s.File()][s.Rank()] = Piece{Kind: kindFromLib(piece.Type()), Color: colorFromLib(piece.Color())}
	}
	return g
}

func (g grid) at(file, rank int) (Piece, bool) {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return Piece{}, false
	}
	return g[file][rank], true
}

func (g grid) king(c Color) (file, rank int, ok bool) {
	for f := 0; f < 8; f++ {
		for r := 0; r < 8; r++ {
			if g[f][r] == (Piece{Kind: King, Color: c}) {
				return f, r, true
			}
		}
	}
	return 0, 0, false
}

var (
	knightSteps  = [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps    = [][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	straightRays = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonalRays = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// attacked reports whether any piece of side by attacks (file, rank). Pins do
// not matter: a pinned piece still gives check.
func (g grid) attacked(file, rank int, by Color) bool {
	hit := func(df, dr int, kinds ...PieceKind) bool {
		p, ok := g.at(file+df, rank+dr)
		if !ok || p.Color != by {
			return false
		}
		for _, k := range kinds {
			if p.Kind == k {
				return true
			}
		}
		return false
	}
	for _, s := range knightSteps {
		if hit(s[0], s[1], Knight) {
			return true
		}
	}
	for _, s := range kingSteps {
		if hit(s[0], s[1], King) {
			return true
		}
	}
	// White pawns attack upwards, so they sit one rank below the target.
	pawnRank := -1
	if by == Black {
		pawnRank = 1
	}
	if hit(-1, pawnRank, Pawn) || hit(1, pawnRank, Pawn) {
		return true
	}
	ray := func(dirs [][2]int, kinds ...PieceKind) bool {
		for _, d := range dirs {
			for i := 1; ; i++ {
				p, ok := g.at(file+d[0]*i, rank+d[1]*i)
				if !ok {
					break
				}
				if p.IsZero() {
					continue
				}
				if hit(d[0]*i, d[1]*i, kinds...) {
					return true
				}
				break
			}
		}
		return false
	}
	return ray(straightRays, Rook, Queen) || ray(diagonalRays, Bishop, Queen)
}
