package termui

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/park285/Cheese-vs-Stockfish/internal/board"
	"github.com/park285/Cheese-vs-Stockfish/internal/chess/uci"
	"github.com/park285/Cheese-vs-Stockfish/internal/game"
	"github.com/park285/Cheese-vs-Stockfish/internal/msgcat"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Reset() {
	b.mu.Lock()
	b.buf.Reset()
	b.mu.Unlock()
}

type echoEngine struct {
	gen     uint64
	onEvent uci.Handler
	reply   string
}

func (e *echoEngine) RequestMove(string) error {
	go func() {
		ev := uci.ParseLine("bestmove " + e.reply)
		ev.Generation = e.gen
		e.onEvent(ev)
	}()
	return nil
}

func (e *echoEngine) Close() error { return nil }

func newTestUI(t *testing.T) (*UI, *lockedBuffer) {
	t.Helper()
	opener := game.EngineOpenerFunc(func(_ context.Context, _ uci.SkillLevel, gen uint64, onEvent uci.Handler) (game.Engine, error) {
		return &echoEngine{gen: gen, onEvent: onEvent, reply: "e7e5"}, nil
	})
	ctrl, err := game.NewController(game.Options{Opener: opener})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	t.Cleanup(ctrl.Close)
	cat, err := msgcat.New("en", "")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	out := &lockedBuffer{}
	ui, err := New(Options{Controller: ctrl, Catalog: cat, NoColor: true, Stdout: out})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(ctrl.Subscribe(ui.redraw))
	return ui, out
}

func waitForOutput(t *testing.T, out *lockedBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("output never contained %q:\n%s", want, out.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDrawInitialBoard(t *testing.T) {
	var buf bytes.Buffer
	drawBoard(&buf, newPalette(true), game.View{Position: board.Initial()}, frame{header: "Chess vs Stockfish", banner: "Choose a level to start"})
	got := buf.String()
	for _, want := range []string{
		" 8  r  n  b  q  k  b  n  r \n",
		" 2  P  P  P  P  P  P  P  P \n",
		" 4 " + strings.Repeat(" ", 24) + "\n",
		"    a  b  c  d  e  f  g  h \n",
		"Choose a level to start\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("board missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "\x1b[") {
		t.Fatalf("escape codes with colour disabled")
	}
}

func TestSessionFlow(t *testing.T) {
	ui, out := newTestUI(t)
	ctx := context.Background()

	ui.Execute(ctx, "start 4")
	waitForOutput(t, out, "Your move")

	out.Reset()
	ui.Execute(ctx, "hover e2")
	waitForOutput(t, out, " 3 "+strings.Repeat(" ", 12)+" . "+strings.Repeat(" ", 9)+"\n")

	out.Reset()
	ui.Execute(ctx, "e2e5")
	waitForOutput(t, out, "illegal move: e2e5")

	out.Reset()
	ui.Execute(ctx, "e2e4")
	waitForOutput(t, out, "Stockfish is thinking...")
	waitForOutput(t, out, " 5 "+strings.Repeat(" ", 12)+" p ")

	if v := ui.ctrl.Snapshot(); v.State != game.AwaitingHumanMove || v.LastMove.String() != "e7e5" {
		t.Fatalf("view = %+v", v)
	}
}

func TestUnknownAndQuit(t *testing.T) {
	ui, out := newTestUI(t)
	ctx := context.Background()
	if ui.Execute(ctx, "castle please") {
		t.Fatalf("unknown command quit the shell")
	}
	waitForOutput(t, out, "unknown command: castle please")
	if ui.Execute(ctx, "start 99") {
		t.Fatalf("bad level quit the shell")
	}
	waitForOutput(t, out, "Select level (0-20)")
	if !ui.Execute(ctx, "quit") {
		t.Fatalf("quit did not end the shell")
	}
}
