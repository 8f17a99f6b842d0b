package shell

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/Cheese-vs-Stockfish/internal/game"
	"github.com/park285/Cheese-vs-Stockfish/internal/lease"
)

var ErrSessionNotFound = errors.New("session not found")

// ControllerFactory builds a fresh controller for a session id.
type ControllerFactory func(sessionID string) (*game.Controller, error)

type entry struct {
	ctrl       *game.Controller
	token      lease.Token
	lastActive time.Time
	unsub      func()
}

// Registry owns the live sessions of this process. Every session holds a
// lease so no two processes drive the same id.
type Registry struct {
	factory ControllerFactory
	lease   lease.Lease
	idleTTL time.Duration
	log     *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

type RegistryOptions struct {
	Factory ControllerFactory
	Lease   lease.Lease
	// IdleTTL evicts sessions without activity; zero keeps them forever.
	IdleTTL time.Duration
	Logger  *zap.Logger
}

func NewRegistry(opts RegistryOptions) (*Registry, error) {
	if opts.Factory == nil {
		return nil, fmt.Errorf("controller factory required")
	}
	l := opts.Lease
	if l == nil {
		l = lease.NewLocalLease(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		factory:  opts.Factory,
		lease:    l,
		idleTTL:  opts.IdleTTL,
		log:      logger,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}, nil
}

// Create allocates an id, takes its lease and builds the controller.
func (r *Registry) Create(ctx context.Context) (string, *game.Controller, error) {
	id := uuid.NewString()
	tok, err := r.lease.Acquire(ctx, id)
	if err != nil {
		return "", nil, fmt.Errorf("acquire lease: %w", err)
	}
	ctrl, err := r.factory(id)
	if err != nil {
		_ = r.lease.Release(ctx, tok)
		return "", nil, err
	}

	e := &entry{ctrl: ctrl, token: tok, lastActive: r.now()}
	e.unsub = ctrl.Subscribe(func(game.View) { r.touch(id) })

	r.mu.Lock()
	r.sessions[id] = e
	r.mu.Unlock()

	r.log.Info("session created", zap.String("session_id", id))
	return id, ctrl, nil
}

// Get returns the controller and refreshes the lease. A lost lease drops
// the session locally.
func (r *Registry) Get(ctx context.Context, id string) (*game.Controller, error) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok {
		e.lastActive = r.now()
	}
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	if err := r.lease.Refresh(ctx, e.token); err != nil {
		if errors.Is(err, lease.ErrLost) {
			r.log.Warn("session lease lost", zap.String("session_id", id))
			r.drop(ctx, id, false)
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("refresh lease: %w", err)
	}
	return e.ctrl, nil
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	if !r.drop(ctx, id, true) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	r.log.Info("session deleted", zap.String("session_id", id))
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts idle sessions and returns how many were removed.
func (r *Registry) Sweep(ctx context.Context) int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)
	var idle []string
	r.mu.Lock()
	for id, e := range r.sessions {
		if e.lastActive.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	r.mu.Unlock()

	n := 0
	for _, id := range idle {
		if r.drop(ctx, id, true) {
			n++
			r.log.Info("session evicted", zap.String("session_id", id))
		}
	}
	return n
}

// Heartbeat refreshes every lease so quiet sessions keep ownership until
// they go idle. Sessions whose lease was taken over are dropped.
func (r *Registry) Heartbeat(ctx context.Context) {
	r.mu.Lock()
	toks := make(map[string]lease.Token, len(r.sessions))
	for id, e := range r.sessions {
		toks[id] = e.token
	}
	r.mu.Unlock()

	for id, tok := range toks {
		err := r.lease.Refresh(ctx, tok)
		switch {
		case err == nil:
		case errors.Is(err, lease.ErrLost):
			r.log.Warn("session lease lost", zap.String("session_id", id))
			r.drop(ctx, id, false)
		default:
			r.log.Warn("refresh lease", zap.String("session_id", id), zap.Error(err))
		}
	}
}

// Run sweeps and heartbeats every interval until ctx ends. The interval
// must stay below the lease ttl.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep(ctx)
			r.Heartbeat(ctx)
		}
	}
}

// Close drops every session.
func (r *Registry) Close(ctx context.Context) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.drop(ctx, id, true)
	}
}

func (r *Registry) touch(id string) {
	r.mu.Lock()
	if e, ok := r.sessions[id]; ok {
		e.lastActive = r.now()
	}
	r.mu.Unlock()
}

// drop removes the entry before closing the controller so the registry
// lock is never held while the controller lock is taken.
func (r *Registry) drop(ctx context.Context, id string, release bool) bool {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	e.unsub()
	e.ctrl.Close()
	if release {
		if err := r.lease.Release(ctx, e.token); err != nil && !errors.Is(err, lease.ErrLost) {
			r.log.Warn("release lease", zap.String("session_id", id), zap.Error(err))
		}
	}
	return true
}
