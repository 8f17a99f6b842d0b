package uci

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// WebSocketDialer reaches an engine worker hosted behind a websocket bridge.
// Each text frame carries exactly one UCI line in either direction.
type WebSocketDialer struct {
	URL         string
	Header      http.Header
	DialTimeout time.Duration
}

func (d WebSocketDialer) Dial(ctx context.Context) (Transport, error) {
	if strings.TrimSpace(d.URL) == "" {
		return nil, fmt.Errorf("engine websocket url required")
	}
	timeout := d.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, d.URL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      d.Header,
	})
	if err != nil {
		return nil, fmt.Errorf("dial engine websocket: %w", err)
	}
	return NewWebSocketTransport(conn), nil
}

type WebSocketTransport struct {
	conn *websocket.Conn

	rootCtx    context.Context
	rootCancel context.CancelFunc

	wmu   sync.Mutex
	lines chan string

	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	ctx, cancel := context.WithCancel(context.Background())
	t := &WebSocketTransport{
		conn:       conn,
		rootCtx:    ctx,
		rootCancel: cancel,
		lines:      make(chan string, 16),
	}
	go t.listen()
	return t
}

func (t *WebSocketTransport) listen() {
	defer close(t.lines)
	for {
		typ, data, err := t.conn.Read(t.rootCtx)
		if err != nil {
			if t.rootCtx.Err() != nil {
				t.setErr(ErrClosed)
				return
			}
			t.setErr(fmt.Errorf("read engine websocket: %w", err))
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			select {
			case t.lines <- line:
			case <-t.rootCtx.Done():
				t.setErr(ErrClosed)
				return
			}
		}
	}
}

func (t *WebSocketTransport) WriteLine(line string) error {
	if t.rootCtx.Err() != nil {
		return ErrClosed
	}
	t.wmu.Lock()
	defer t.wmu.Unlock()
	ctx, cancel := context.WithTimeout(t.rootCtx, 5*time.Second)
	defer cancel()
	if err := t.conn.Write(ctx, websocket.MessageText, []byte(strings.TrimRight(line, "\r\n"))); err != nil {
		if errors.Is(err, context.Canceled) {
			return ErrClosed
		}
		return fmt.Errorf("write engine websocket: %w", err)
	}
	return nil
}

func (t *WebSocketTransport) Lines() <-chan string { return t.lines }

func (t *WebSocketTransport) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.err
}

func (t *WebSocketTransport) Close() error {
	t.closeOnce.Do(func() {
		t.rootCancel()
		// The close handshake can take seconds against a dead peer; callers
		// may be inside an event handler, so it runs detached.
		go func() { _ = t.conn.Close(websocket.StatusNormalClosure, "close") }()
	})
	return nil
}

func (t *WebSocketTransport) setErr(err error) {
	t.errMu.Lock()
	if t.err == nil {
		t.err = err
	}
	t.errMu.Unlock()
}
