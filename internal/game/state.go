package game

import (
	"errors"

	"github.com/park285/Cheese-vs-Stockfish/internal/board"
	"github.com/park285/Cheese-vs-Stockfish/internal/chess/uci"
)

var (
	ErrInvalidState  = errors.New("operation not valid in current game state")
	ErrIllegalMove   = board.ErrIllegalMove
	ErrEngineStalled = errors.New("engine produced no usable move in time")
	ErrEngineFailure = errors.New("engine channel failure")
)

type State uint8

const (
	AwaitingLevelSelection State = iota
	AwaitingHumanMove
	AwaitingEngineMove
	GameOver
	// EngineFailed is terminal; only Restart leaves it.
	EngineFailed
)

func (s State) String() string {
	switch s {
	case AwaitingLevelSelection:
		return "awaiting_level_selection"
	case AwaitingHumanMove:
		return "awaiting_human_move"
	case AwaitingEngineMove:
		return "awaiting_engine_move"
	case GameOver:
		return "game_over"
	case EngineFailed:
		return "engine_failed"
	default:
		return "unknown"
	}
}

type HighlightStyle uint8

const (
	HighlightNone HighlightStyle = iota
	// HighlightSource marks the hovered or picked-up square.
	HighlightSource
	// HighlightDestination marks a legal target of that square.
	HighlightDestination
)

func (h HighlightStyle) String() string {
	switch h {
	case HighlightSource:
		return "source"
	case HighlightDestination:
		return "destination"
	default:
		return "none"
	}
}

const (
	HumanColor  = board.White
	EngineColor = board.Black
)

// GameSession is the mutable per-game state. It is owned by exactly one
// Controller and only touched under its lock.
type GameSession struct {
	Position   board.Position
	State      State
	IsOver     bool
	Result     board.Result
	Method     string
	Highlights map[board.Square]HighlightStyle
	SkillLevel uci.SkillLevel
	Generation uint64
	// Outstanding is true while a move request has no accepted reply.
	Outstanding bool
	Failure     error

	requestSeq uint64
}

func newSession(generation uint64) GameSession {
	return GameSession{
		Position:   board.Initial(),
		State:      AwaitingLevelSelection,
		Highlights: map[board.Square]HighlightStyle{},
		Generation: generation,
	}
}

// View is a copy of the session for presentation; it never aliases
// controller state.
type View struct {
	State       State
	Position    board.Position
	FEN         string
	SideToMove  board.Color
	IsOver      bool
	Result      board.Result
	Method      string
	Winner      board.Color
	InCheck     bool
	Highlights  map[board.Square]HighlightStyle
	SkillLevel  uci.SkillLevel
	Generation  uint64
	LastMove    board.Move
	HasLastMove bool
	Failure     error

	seq uint64
}

// Thinking reports whether the engine owns the turn.
func (v View) Thinking() bool { return v.State == AwaitingEngineMove }
