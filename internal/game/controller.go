package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-vs-Stockfish/internal/board"
	"github.com/park285/Cheese-vs-Stockfish/internal/chess/uci"
)

type Options struct {
	Rules  board.Rules
	Opener EngineOpener
	// MoveTimeout fails the session when no usable engine move arrives in
	// time. Zero disables the watchdog.
	MoveTimeout time.Duration
	Logger      *zap.Logger
	SessionID   string
}

// Controller drives one game between a human (White) and the engine (Black).
// All transitions are serialized under one lock; subscribers are notified
// after the lock is released, in the order the views were taken.
type Controller struct {
	rules       board.Rules
	opener      EngineOpener
	moveTimeout time.Duration
	log         *zap.Logger

	mu       sync.Mutex
	sess     GameSession
	engine   Engine
	watchdog *time.Timer
	viewSeq  uint64

	// deliverMu orders notifications; delivered is the seq of the last view
	// handed to subscribers.
	deliverMu sync.Mutex
	delivered uint64

	subMu   sync.Mutex
	subs    map[int]func(View)
	nextSub int
}

func NewController(opts Options) (*Controller, error) {
	if opts.Opener == nil {
		return nil, fmt.Errorf("engine opener required")
	}
	rules := opts.Rules
	if rules == nil {
		rules = board.NewModel()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SessionID != "" {
		logger = logger.With(zap.String("session_id", opts.SessionID))
	}
	return &Controller{
		rules:       rules,
		opener:      opts.Opener,
		moveTimeout: opts.MoveTimeout,
		log:         logger,
		sess:        newSession(0),
		subs:        make(map[int]func(View)),
	}, nil
}

// Start opens the engine for the chosen level. Valid only while awaiting a
// level selection.
func (c *Controller) Start(ctx context.Context, level uci.SkillLevel) error {
	c.mu.Lock()
	if c.sess.State != AwaitingLevelSelection {
		state := c.sess.State
		c.mu.Unlock()
		return fmt.Errorf("%w: start in %s", ErrInvalidState, state)
	}
	if !level.Valid() {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", uci.ErrInvalidSkillLevel, level)
	}

	c.sess.Generation++
	gen := c.sess.Generation
	engine, err := c.opener.Open(ctx, level, gen, c.onEngineEvent)
	if err != nil {
		c.failLocked(fmt.Errorf("%w: open: %v", ErrEngineFailure, err))
		view := c.viewLocked()
		c.mu.Unlock()
		c.notify(view)
		return fmt.Errorf("%w: open: %w", ErrEngineFailure, err)
	}
	c.engine = engine
	c.sess.SkillLevel = level
	c.sess.State = AwaitingHumanMove
	c.log.Info("game started", zap.Uint64("generation", gen), zap.Int("skill_level", int(level)))
	view := c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
	return nil
}

// SubmitHumanMove plays from->to for the human, promoting to a queen when the
// pair reaches the last rank.
func (c *Controller) SubmitHumanMove(from, to board.Square) error {
	return c.SubmitMove(board.Move{From: from, To: to})
}

// SubmitMove is SubmitHumanMove with an explicit promotion choice.
func (c *Controller) SubmitMove(m board.Move) error {
	c.mu.Lock()
	if c.sess.State != AwaitingHumanMove {
		state := c.sess.State
		c.mu.Unlock()
		return fmt.Errorf("%w: move in %s", ErrInvalidState, state)
	}

	next, err := c.rules.Apply(c.sess.Position, m)
	if err != nil {
		c.mu.Unlock()
		c.log.Debug("human move rejected", zap.String("move_uci", m.String()), zap.Error(err))
		return err
	}
	c.sess.Position = next
	c.sess.Highlights = map[board.Square]HighlightStyle{}

	if term := c.rules.IsTerminal(next); term.Over {
		c.finishLocked(term)
	} else {
		c.requestLocked()
	}
	view := c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
	return nil
}

// requestLocked sends exactly one move request and hands the turn over.
func (c *Controller) requestLocked() {
	fen := c.rules.TransportNotation(c.sess.Position)
	if c.engine == nil {
		c.failLocked(fmt.Errorf("%w: no open channel", ErrEngineFailure))
		return
	}
	if err := c.engine.RequestMove(fen); err != nil {
		c.failLocked(fmt.Errorf("%w: request: %v", ErrEngineFailure, err))
		return
	}
	c.sess.State = AwaitingEngineMove
	c.sess.Outstanding = true
	c.sess.requestSeq++
	c.armWatchdogLocked(c.sess.Generation, c.sess.requestSeq)
	c.log.Debug("engine move requested", zap.String("fen", fen), zap.Uint64("generation", c.sess.Generation))
}

func (c *Controller) onEngineEvent(ev uci.Event) {
	c.mu.Lock()
	if ev.Generation != c.sess.Generation {
		c.mu.Unlock()
		c.log.Debug("stale engine event discarded",
			zap.Uint64("generation", ev.Generation),
			zap.Uint64("current_generation", c.sess.Generation),
			zap.String("kind", ev.Kind.String()))
		return
	}

	changed := false
	switch ev.Kind {
	case uci.EventBestMove:
		changed = c.applyEngineMoveLocked(ev)
	case uci.EventNoMove:
		if c.sess.State == AwaitingEngineMove {
			c.log.Info("engine reported no move", zap.String("line", ev.Line))
		}
	case uci.EventFailure:
		if c.sess.State == AwaitingHumanMove || c.sess.State == AwaitingEngineMove {
			c.failLocked(fmt.Errorf("%w: %v", ErrEngineFailure, ev.Err))
			changed = true
		}
	}

	if !changed {
		c.mu.Unlock()
		return
	}
	view := c.viewLocked()
	c.mu.Unlock()
	c.notify(view)
}

func (c *Controller) applyEngineMoveLocked(ev uci.Event) bool {
	if c.sess.State != AwaitingEngineMove {
		c.log.Debug("engine move outside engine turn discarded", zap.String("move_uci", ev.Move), zap.String("state", c.sess.State.String()))
		return false
	}
	m, err := board.ParseMove(ev.Move)
	if err != nil {
		c.log.Warn("unparsable engine move discarded", zap.String("move_uci", ev.Move), zap.Error(err))
		return false
	}
	next, err := c.rules.Apply(c.sess.Position, m)
	if err != nil {
		c.log.Warn("illegal engine move discarded",
			zap.String("move_uci", ev.Move),
			zap.String("fen", c.sess.Position.FEN()),
			zap.Error(err))
		return false
	}

	c.stopWatchdogLocked()
	c.sess.Outstanding = false
	c.sess.Position = next
	if term := c.rules.IsTerminal(next); term.Over {
		c.finishLocked(term)
	} else {
		c.sess.State = AwaitingHumanMove
	}
	return true
}

// HoverSquare highlights sq and its legal destinations. Repeating it with the
// same square yields the same map.
func (c *Controller) HoverSquare(sq board.Square) ([]board.Move, error) {
	c.mu.Lock()
	if c.sess.State != AwaitingHumanMove {
		state := c.sess.State
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: hover in %s", ErrInvalidState, state)
	}
	if !sq.Valid() {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", board.ErrInvalidSquare, sq)
	}
	moves := c.rules.LegalMoves(c.sess.Position, sq)
	highlights := map[board.Square]HighlightStyle{}
	if len(moves) > 0 {
		highlights[sq] = HighlightSource
		for _, m := range moves {
			highlights[m.To] = HighlightDestination
		}
	}
	c.sess.Highlights = highlights
	view := c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
	return moves, nil
}

func (c *Controller) ClearHover() error {
	c.mu.Lock()
	if c.sess.State != AwaitingHumanMove {
		state := c.sess.State
		c.mu.Unlock()
		return fmt.Errorf("%w: clear hover in %s", ErrInvalidState, state)
	}
	c.sess.Highlights = map[board.Square]HighlightStyle{}
	view := c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
	return nil
}

// PickUp starts a drag. Only the human's own pieces can be lifted, and only
// on the human's turn.
func (c *Controller) PickUp(sq board.Square) (bool, error) {
	c.mu.Lock()
	state := c.sess.State
	piece := c.sess.Position.PieceAt(sq)
	c.mu.Unlock()

	if state != AwaitingHumanMove {
		return false, nil
	}
	if piece.IsZero() || piece.Color != HumanColor {
		return false, nil
	}
	if _, err := c.HoverSquare(sq); err != nil {
		if errors.Is(err, ErrInvalidState) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Drop ends a drag; false means the piece snaps back.
func (c *Controller) Drop(from, to board.Square) bool {
	err := c.SubmitHumanMove(from, to)
	if err != nil {
		_ = c.ClearHover()
		return false
	}
	return true
}

func (c *Controller) CancelDrag() {
	_ = c.ClearHover()
}

// Restart abandons the current game from any state and waits for a new level.
func (c *Controller) Restart() {
	c.mu.Lock()
	c.releaseEngineLocked()
	c.stopWatchdogLocked()
	c.sess = newSession(c.sess.Generation + 1)
	c.log.Info("game restarted", zap.Uint64("generation", c.sess.Generation))
	view := c.viewLocked()
	c.mu.Unlock()

	c.notify(view)
}

// Close releases the engine without notifying subscribers. The controller
// may still be restarted afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseEngineLocked()
	c.stopWatchdogLocked()
	c.sess.Generation++
}

func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Subscribe registers fn for every state change. The returned func removes it.
func (c *Controller) Subscribe(fn func(View)) func() {
	if fn == nil {
		return func() {}
	}
	c.subMu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// notify drops views older than one already delivered.
func (c *Controller) notify(view View) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if view.seq <= c.delivered {
		return
	}
	c.delivered = view.seq

	c.subMu.Lock()
	fns := make([]func(View), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn(view)
	}
}

func (c *Controller) finishLocked(term board.Terminal) {
	c.stopWatchdogLocked()
	c.sess.IsOver = true
	c.sess.Result = term.Reason
	c.sess.Method = term.Method
	c.sess.Outstanding = false
	c.sess.State = GameOver
	c.releaseEngineLocked()
	c.log.Info("game over",
		zap.String("result", term.Reason.String()),
		zap.String("method", term.Method),
		zap.String("fen", c.sess.Position.FEN()))
}

func (c *Controller) failLocked(err error) {
	c.stopWatchdogLocked()
	c.releaseEngineLocked()
	c.sess.Failure = err
	c.sess.Outstanding = false
	c.sess.State = EngineFailed
	c.log.Error("engine failed", zap.Uint64("generation", c.sess.Generation), zap.Error(err))
}

func (c *Controller) releaseEngineLocked() {
	if c.engine == nil {
		return
	}
	if err := c.engine.Close(); err != nil {
		c.log.Debug("engine close", zap.Error(err))
	}
	c.engine = nil
}

func (c *Controller) armWatchdogLocked(gen, seq uint64) {
	c.stopWatchdogLocked()
	if c.moveTimeout <= 0 {
		return
	}
	c.watchdog = time.AfterFunc(c.moveTimeout, func() { c.onStall(gen, seq) })
}

func (c *Controller) stopWatchdogLocked() {
	if c.watchdog != nil {
		c.watchdog.Stop()
		c.watchdog = nil
	}
}

func (c *Controller) onStall(gen, seq uint64) {
	c.mu.Lock()
	if c.sess.Generation != gen || c.sess.requestSeq != seq || c.sess.State != AwaitingEngineMove {
		c.mu.Unlock()
		return
	}
	c.failLocked(fmt.Errorf("%w after %s", ErrEngineStalled, c.moveTimeout))
	view := c.viewLocked()
	c.mu.Unlock()
	c.notify(view)
}

func (c *Controller) viewLocked() View {
	pos := c.sess.Position
	highlights := make(map[board.Square]HighlightStyle, len(c.sess.Highlights))
	for sq, style := range c.sess.Highlights {
		highlights[sq] = style
	}
	last, hasLast := pos.LastMove()
	c.viewSeq++
	v := View{
		seq:         c.viewSeq,
		State:       c.sess.State,
		Position:    pos,
		FEN:         pos.FEN(),
		SideToMove:  pos.SideToMove(),
		IsOver:      c.sess.IsOver,
		Result:      c.sess.Result,
		Method:      c.sess.Method,
		InCheck:     c.rules.IsInCheck(pos),
		Highlights:  highlights,
		SkillLevel:  c.sess.SkillLevel,
		Generation:  c.sess.Generation,
		LastMove:    last,
		HasLastMove: hasLast,
		Failure:     c.sess.Failure,
	}
	if c.sess.IsOver && c.sess.Result == board.ResultCheckmate {
		v.Winner = board.Winner(pos)
	}
	return v
}
