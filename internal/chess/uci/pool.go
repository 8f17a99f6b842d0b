package uci

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// Dialer produces a fresh link to one engine worker.
type Dialer interface {
	Dial(ctx context.Context) (Transport, error)
}

type DialerFunc func(ctx context.Context) (Transport, error)

func (f DialerFunc) Dial(ctx context.Context) (Transport, error) { return f(ctx) }

var ErrAtCapacity = errors.New("engine workers at capacity")

// LimitedDialer caps the number of live workers across all sessions. A slot
// is held from a successful Dial until the returned transport is closed.
type LimitedDialer struct {
	inner    Dialer
	capacity int

	mu    sync.Mutex
	total int
}

func NewLimitedDialer(inner Dialer, capacity int) *LimitedDialer {
	if capacity <= 0 {
		capacity = DefaultCapacity()
	}
	return &LimitedDialer{inner: inner, capacity: capacity}
}

func (d *LimitedDialer) Dial(ctx context.Context) (Transport, error) {
	d.mu.Lock()
	if d.total >= d.capacity {
		d.mu.Unlock()
		return nil, ErrAtCapacity
	}
	d.total++
	d.mu.Unlock()

	t, err := d.inner.Dial(ctx)
	if err != nil {
		d.decrement()
		return nil, err
	}
	return &slotTransport{Transport: t, release: d.decrement}, nil
}

func (d *LimitedDialer) InUse() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total
}

func (d *LimitedDialer) Capacity() int { return d.capacity }

func (d *LimitedDialer) decrement() {
	d.mu.Lock()
	if d.total > 0 {
		d.total--
	}
	d.mu.Unlock()
}

type slotTransport struct {
	Transport
	once    sync.Once
	release func()
}

func (t *slotTransport) Close() error {
	err := t.Transport.Close()
	t.once.Do(t.release)
	return err
}

// DefaultCapacity scales with the host, one search thread per worker.
func DefaultCapacity() int {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		return 2
	}
	if cpu > 16 {
		return 16
	}
	return cpu
}
