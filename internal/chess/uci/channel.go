package uci

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultInitTimeout = 5 * time.Second
	quitGrace          = 100 * time.Millisecond
)

var ErrInitTimeout = errors.New("engine did not acknowledge uci")

type Config struct {
	SkillLevel SkillLevel
	// Depth is the fixed search depth of every request; 0 means DefaultDepth.
	Depth int
	// InitTimeout bounds the wait for "uciok"; negative disables it.
	InitTimeout time.Duration
	Generation  uint64
	Logger      *zap.Logger
}

// Channel owns one engine worker for one session generation. Events are
// handed to the handler from a single goroutine, in emission order.
type Channel struct {
	t       Transport
	cfg     Config
	onEvent Handler
	log     *zap.Logger

	mu      sync.Mutex
	acked   bool
	pending []string

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Open dials a worker and sends "uci". Skill configuration and readiness
// probe follow only once the worker answers "uciok"; move requests made
// before that are queued behind them.
func Open(ctx context.Context, dialer Dialer, cfg Config, onEvent Handler) (*Channel, error) {
	if !cfg.SkillLevel.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSkillLevel, cfg.SkillLevel)
	}
	if dialer == nil {
		return nil, fmt.Errorf("engine dialer required")
	}
	if cfg.Depth <= 0 {
		cfg.Depth = DefaultDepth
	}
	if cfg.InitTimeout == 0 {
		cfg.InitTimeout = defaultInitTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	t, err := dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial engine: %w", err)
	}

	c := &Channel{
		t:       t,
		cfg:     cfg,
		onEvent: onEvent,
		log:     logger.With(zap.Uint64("generation", cfg.Generation), zap.Int("skill_level", int(cfg.SkillLevel))),
		done:    make(chan struct{}),
	}
	if err := t.WriteLine("uci"); err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("send uci: %w", err)
	}
	go c.run()
	return c, nil
}

func (c *Channel) Generation() uint64 { return c.cfg.Generation }

func (c *Channel) SkillLevel() SkillLevel { return c.cfg.SkillLevel }

// RequestMove asks for a best move from the given FEN at the fixed depth.
func (c *Channel) RequestMove(fen string) error {
	lines := []string{PositionCommand(fen), GoDepthCommand(c.cfg.Depth)}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed() {
		return ErrClosed
	}
	if !c.acked {
		c.pending = append(c.pending, lines...)
		return nil
	}
	return c.writeLocked(lines...)
}

// Close stops the worker. It is idempotent and never waits for the event
// goroutine, so it is safe to call from inside the handler.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		sent := make(chan struct{})
		go func() {
			_ = c.t.WriteLine("quit")
			close(sent)
		}()
		select {
		case <-sent:
		case <-time.After(quitGrace):
		}
		c.closeErr = c.t.Close()
		c.log.Debug("engine channel closed")
	})
	return c.closeErr
}

func (c *Channel) run() {
	var timeout <-chan time.Time
	if c.cfg.InitTimeout > 0 {
		timer := time.NewTimer(c.cfg.InitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	lines := c.t.Lines()
	for {
		select {
		case <-c.done:
			return
		case <-timeout:
			timeout = nil
			c.mu.Lock()
			acked := c.acked
			c.mu.Unlock()
			if !acked {
				c.log.Warn("engine init timeout", zap.Duration("timeout", c.cfg.InitTimeout))
				c.emit(Event{Kind: EventFailure, Err: ErrInitTimeout})
			}
		case line, ok := <-lines:
			if !ok {
				err := c.t.Err()
				if err == nil {
					err = ErrClosed
				}
				if !c.isClosed() {
					c.log.Warn("engine channel lost", zap.Error(err))
				}
				c.emit(Event{Kind: EventFailure, Err: err})
				return
			}
			if line == "uciok" && c.acknowledge() {
				timeout = nil
				continue
			}
			ev := ParseLine(line)
			if ev.Kind == EventLine {
				c.log.Debug("engine line", zap.String("line", line))
			}
			c.emit(ev)
		}
	}
}

// acknowledge sends the configuration and flushes queued requests, once.
func (c *Channel) acknowledge() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.acked {
		return false
	}
	c.acked = true
	lines := append([]string{SkillLevelCommand(c.cfg.SkillLevel), "isready"}, c.pending...)
	c.pending = nil
	if err := c.writeLocked(lines...); err != nil {
		c.log.Warn("engine configure failed", zap.Error(err))
	}
	return true
}

func (c *Channel) writeLocked(lines ...string) error {
	for _, line := range lines {
		if err := c.t.WriteLine(line); err != nil {
			return fmt.Errorf("send %q: %w", line, err)
		}
	}
	return nil
}

func (c *Channel) emit(ev Event) {
	if c.onEvent == nil || c.isClosed() {
		return
	}
	ev.Generation = c.cfg.Generation
	c.onEvent(ev)
}

func (c *Channel) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
