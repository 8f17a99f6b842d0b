package uci

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

var ErrClosed = errors.New("engine transport closed")

// Transport is a line-oriented, bidirectional link to one engine worker.
// Lines are delivered in the order the worker emitted them; the channel is
// closed once the link ends, after which Err reports why.
type Transport interface {
	WriteLine(line string) error
	Lines() <-chan string
	Err() error
	Close() error
}

// StreamTransport adapts a reader/writer pair (process pipes, in-memory pipes)
// into a Transport with a single pump goroutine.
type StreamTransport struct {
	w io.WriteCloser
	r io.Reader

	wmu   sync.Mutex
	lines chan string
	done  chan struct{}

	closeOnce sync.Once
	closeErr  error
	onClose   []func() error

	errMu sync.Mutex
	err   error
}

func NewStreamTransport(r io.Reader, w io.WriteCloser) *StreamTransport {
	t := &StreamTransport{
		w:     w,
		r:     r,
		lines: make(chan string, 16),
		done:  make(chan struct{}),
	}
	go t.pump()
	return t
}

func (t *StreamTransport) pump() {
	defer close(t.lines)
	scanner := bufio.NewScanner(t.r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case t.lines <- line:
		case <-t.done:
			t.setErr(ErrClosed)
			return
		}
	}
	if err := scanner.Err(); err != nil && !t.isClosed() {
		t.setErr(fmt.Errorf("read engine output: %w", err))
		return
	}
	if t.isClosed() {
		t.setErr(ErrClosed)
		return
	}
	t.setErr(fmt.Errorf("engine output ended: %w", io.EOF))
}

func (t *StreamTransport) WriteLine(line string) error {
	if t.isClosed() {
		return ErrClosed
	}
	t.wmu.Lock()
	defer t.wmu.Unlock()
	if _, err := io.WriteString(t.w, strings.TrimRight(line, "\r\n")+"\n"); err != nil {
		return fmt.Errorf("write engine input: %w", err)
	}
	return nil
}

func (t *StreamTransport) Lines() <-chan string { return t.lines }

func (t *StreamTransport) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.err
}

// Close shuts both directions down. It does not wait for the pump goroutine.
func (t *StreamTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		var errs []error
		if err := t.w.Close(); err != nil {
			errs = append(errs, err)
		}
		if c, ok := t.r.(io.Closer); ok {
			_ = c.Close()
		}
		for _, fn := range t.onClose {
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
		t.closeErr = errors.Join(errs...)
	})
	return t.closeErr
}

// OnClose registers a hook run once by Close, in registration order.
// Hooks must be registered before the transport is shared.
func (t *StreamTransport) OnClose(fn func() error) {
	if fn != nil {
		t.onClose = append(t.onClose, fn)
	}
}

func (t *StreamTransport) isClosed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *StreamTransport) setErr(err error) {
	t.errMu.Lock()
	if t.err == nil {
		t.err = err
	}
	t.errMu.Unlock()
}
