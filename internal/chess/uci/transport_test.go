package uci

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

func TestParseLine(t *testing.T) {
	cases := []struct {
		line string
		kind EventKind
		move string
	}{
		{"bestmove e2e4", EventBestMove, "e2e4"},
		{"bestmove e7e8q ponder a2a3", EventBestMove, "e7e8q"},
		{"bestmove 0000", EventNoMove, ""},
		{"bestmove (none)", EventNoMove, ""},
		{"bestmove", EventNoMove, ""},
		{"info depth 3 score cp 12 pv e2e4", EventLine, ""},
		{"readyok", EventLine, ""},
		{"  bestmove g1f3  ", EventBestMove, "g1f3"},
	}
	for _, tc := range cases {
		ev := ParseLine(tc.line)
		if ev.Kind != tc.kind || ev.Move != tc.move {
			t.Fatalf("ParseLine(%q) = %s %q; want %s %q", tc.line, ev.Kind, ev.Move, tc.kind, tc.move)
		}
	}
}

func TestCommandBuilders(t *testing.T) {
	if got := SkillLevelCommand(20); got != "setoption name Skill Level value 20" {
		t.Fatalf("SkillLevelCommand = %q", got)
	}
	if got := GoDepthCommand(0); got != "go depth 12" {
		t.Fatalf("GoDepthCommand(0) = %q", got)
	}
	if got := PositionCommand("8/8/8/8/8/8/8/K6k w - - 0 1"); got != "position fen 8/8/8/8/8/8/8/K6k w - - 0 1" {
		t.Fatalf("PositionCommand = %q", got)
	}
	if _, err := ParseSkillLevel("21"); !errors.Is(err, ErrInvalidSkillLevel) {
		t.Fatalf("expected ErrInvalidSkillLevel, got %v", err)
	}
	if lvl, err := ParseSkillLevel(" 0 "); err != nil || lvl != 0 {
		t.Fatalf("ParseSkillLevel(0) = %d, %v", lvl, err)
	}
	if n := len(Levels()); n != 21 {
		t.Fatalf("expected 21 levels, got %d", n)
	}
}

func TestStreamTransportCloseIsIdempotent(t *testing.T) {
	outR, outW := io.Pipe()
	_, cmdW := io.Pipe()
	tr := NewStreamTransport(outR, cmdW)
	hooks := 0
	tr.OnClose(func() error { hooks++; return nil })

	go func() { _, _ = io.WriteString(outW, "hello\n\n  world  \n") }()
	if got := <-tr.Lines(); got != "hello" {
		t.Fatalf("first line = %q", got)
	}
	if got := <-tr.Lines(); got != "world" {
		t.Fatalf("second line = %q", got)
	}

	_ = tr.Close()
	_ = tr.Close()
	if hooks != 1 {
		t.Fatalf("close hook ran %d times", hooks)
	}
	if err := tr.WriteLine("uci"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	for range tr.Lines() {
	}
	if !errors.Is(tr.Err(), ErrClosed) {
		t.Fatalf("Err = %v", tr.Err())
	}
}

func TestLimitedDialerCapacity(t *testing.T) {
	inner := DialerFunc(func(context.Context) (Transport, error) {
		outR, _ := io.Pipe()
		_, cmdW := io.Pipe()
		return NewStreamTransport(outR, cmdW), nil
	})
	d := NewLimitedDialer(inner, 1)
	ctx := context.Background()

	first, err := d.Dial(ctx)
	if err != nil {
		t.Fatalf("first Dial: %v", err)
	}
	if _, err := d.Dial(ctx); !errors.Is(err, ErrAtCapacity) {
		t.Fatalf("expected ErrAtCapacity, got %v", err)
	}
	_ = first.Close()
	_ = first.Close()
	if d.InUse() != 0 {
		t.Fatalf("slot not released, in use %d", d.InUse())
	}
	second, err := d.Dial(ctx)
	if err != nil {
		t.Fatalf("Dial after release: %v", err)
	}
	_ = second.Close()
}

func TestLimitedDialerReleasesOnDialError(t *testing.T) {
	boom := errors.New("boom")
	d := NewLimitedDialer(DialerFunc(func(context.Context) (Transport, error) { return nil, boom }), 1)
	if _, err := d.Dial(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected dial error, got %v", err)
	}
	if d.InUse() != 0 {
		t.Fatalf("failed dial kept a slot")
	}
}

func TestProcessDialerRequiresBinary(t *testing.T) {
	if _, err := (ProcessDialer{}).Dial(context.Background()); err == nil {
		t.Fatalf("expected error for empty binary path")
	}
}

func TestWebSocketChannel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		ctx := r.Context()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			for _, reply := range stockReply(string(data)) {
				if err := conn.Write(ctx, websocket.MessageText, []byte(reply)); err != nil {
					return
				}
			}
		}
	}))
	defer srv.Close()

	dialer := WebSocketDialer{URL: "ws" + strings.TrimPrefix(srv.URL, "http"), DialTimeout: time.Second}
	events := newEventLog()
	ch, err := Open(context.Background(), dialer, Config{SkillLevel: 10, Generation: 4}, events.handle)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ch.Close()

	if err := ch.RequestMove("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"); err != nil {
		t.Fatalf("RequestMove: %v", err)
	}
	ev := events.waitKind(t, EventBestMove)
	if ev.Move != "e7e5" || ev.Generation != 4 {
		t.Fatalf("unexpected event %+v", ev)
	}
}
