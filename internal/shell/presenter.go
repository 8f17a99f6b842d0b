package shell

import (
	"fmt"
	"sort"
	"strings"

	"github.com/park285/Cheese-vs-Stockfish/internal/board"
	"github.com/park285/Cheese-vs-Stockfish/internal/game"
	"github.com/park285/Cheese-vs-Stockfish/internal/msgcat"
	"github.com/park285/Cheese-vs-Stockfish/internal/render"
	"github.com/park285/Cheese-vs-Stockfish/pkg/arenadto"
)

// Presenter turns controller views into wire state and render options.
// Text comes from the message catalog; a nil catalog yields English fallbacks.
type Presenter struct {
	cat *msgcat.Catalog
}

func NewPresenter(cat *msgcat.Catalog) *Presenter {
	return &Presenter{cat: cat}
}

func (p *Presenter) State(id string, v game.View) *arenadto.SessionState {
	banner, alert := p.Banner(v)
	st := &arenadto.SessionState{
		ID:          id,
		State:       v.State.String(),
		FEN:         v.FEN,
		SideToMove:  v.SideToMove.String(),
		IsOver:      v.IsOver,
		InCheck:     v.InCheck,
		Thinking:    v.Thinking(),
		SkillLevel:  int(v.SkillLevel),
		Generation:  v.Generation,
		Highlights:  highlightList(v.Highlights),
		Header:      p.Header(v),
		Turn:        p.Turn(v),
		Banner:      banner,
		BannerAlert: alert,
	}
	if v.IsOver {
		st.Result = v.Result.String()
		st.Method = v.Method
		if v.Result == board.ResultCheckmate {
			st.Winner = v.Winner.String()
		}
	}
	if v.HasLastMove {
		st.LastMove = v.LastMove.String()
	}
	if v.Failure != nil {
		st.Failure = v.Failure.Error()
	}
	return st
}

func (p *Presenter) RenderOptions(v game.View) render.Options {
	banner, alert := p.Banner(v)
	opts := render.Options{
		Marks:  make(map[board.Square]render.Mark, len(v.Highlights)),
		Header: p.Header(v),
		Turn:   p.Turn(v),
		Banner: banner,
		Alert:  alert,
	}
	for sq, style := range v.Highlights {
		switch style {
		case game.HighlightSource:
			opts.Marks[sq] = render.MarkSource
		case game.HighlightDestination:
			opts.Marks[sq] = render.MarkDestination
		}
	}
	if v.HasLastMove {
		last := v.LastMove
		opts.LastMove = &last
	}
	return opts
}

// Banner picks the status line. Result text wins over the check notice,
// which is only shown while the game is still running and names no side.
func (p *Presenter) Banner(v game.View) (string, bool) {
	switch {
	case v.State == game.EngineFailed:
		return p.text("banner.engine_failed", nil, "The engine stopped responding. Restart to play again."), true
	case v.IsOver:
		return p.resultText(v), true
	case v.InCheck:
		return p.text("banner.check", nil, "The king is in check!"), true
	case v.State == game.AwaitingLevelSelection:
		return p.text("banner.select_level", nil, "Choose a level to start"), false
	case v.Thinking():
		return p.text("banner.thinking", nil, "Stockfish is thinking..."), false
	default:
		return p.text("banner.your_turn", nil, "Your move"), false
	}
}

func (p *Presenter) resultText(v game.View) string {
	switch v.Result {
	case board.ResultCheckmate:
		text := p.text("result.checkmate", nil, "Checkmate! Game over")
		winner := p.text("result.winner", map[string]any{"Winner": v.Winner.String()}, "")
		if winner != "" {
			text += " (" + winner + ")"
		}
		return text
	case board.ResultDraw:
		return p.text("result.draw", nil, "It's a draw!")
	default:
		return p.text("result.other", nil, "Game over")
	}
}

func (p *Presenter) Header(v game.View) string {
	title := p.text("app.title", nil, "Chess vs Stockfish")
	if v.State == game.AwaitingLevelSelection {
		return title
	}
	return title + " - " + p.text("level.label", map[string]any{"Level": int(v.SkillLevel)}, fmt.Sprintf("Level %d", v.SkillLevel))
}

func (p *Presenter) Turn(v game.View) string {
	if v.State == game.AwaitingLevelSelection || v.IsOver {
		return ""
	}
	if v.SideToMove == board.Black {
		return p.text("turn.black", nil, "Black to move")
	}
	return p.text("turn.white", nil, "White to move")
}

func (p *Presenter) text(key string, data any, fallback string) string {
	return strings.TrimSpace(p.cat.RenderOr(key, data, fallback))
}

func highlightList(m map[board.Square]game.HighlightStyle) []arenadto.SquareStyle {
	out := make([]arenadto.SquareStyle, 0, len(m))
	for sq, style := range m {
		if style == game.HighlightNone {
			continue
		}
		out = append(out, arenadto.SquareStyle{Square: sq.String(), Style: style.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Square < out[j].Square })
	return out
}
