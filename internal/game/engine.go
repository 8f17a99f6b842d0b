package game

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-vs-Stockfish/internal/chess/uci"
)

// Engine is the controller's view of one open engine channel.
type Engine interface {
	RequestMove(fen string) error
	Close() error
}

// EngineOpener opens one engine channel per session generation. Every event
// it delivers must carry that generation.
type EngineOpener interface {
	Open(ctx context.Context, level uci.SkillLevel, generation uint64, onEvent uci.Handler) (Engine, error)
}

type EngineOpenerFunc func(ctx context.Context, level uci.SkillLevel, generation uint64, onEvent uci.Handler) (Engine, error)

func (f EngineOpenerFunc) Open(ctx context.Context, level uci.SkillLevel, generation uint64, onEvent uci.Handler) (Engine, error) {
	return f(ctx, level, generation, onEvent)
}

// UCIOpener opens real UCI channels through a dialer.
type UCIOpener struct {
	Dialer      uci.Dialer
	Depth       int
	InitTimeout time.Duration
	Logger      *zap.Logger
}

func (o UCIOpener) Open(ctx context.Context, level uci.SkillLevel, generation uint64, onEvent uci.Handler) (Engine, error) {
	ch, err := uci.Open(ctx, o.Dialer, uci.Config{
		SkillLevel:  level,
		Depth:       o.Depth,
		InitTimeout: o.InitTimeout,
		Generation:  generation,
		Logger:      o.Logger,
	}, onEvent)
	if err != nil {
		return nil, err
	}
	return ch, nil
}
