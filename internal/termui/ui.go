package termui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/park285/Cheese-vs-Stockfish/internal/board"
	"github.com/park285/Cheese-vs-Stockfish/internal/chess/uci"
	"github.com/park285/Cheese-vs-Stockfish/internal/game"
	"github.com/park285/Cheese-vs-Stockfish/internal/msgcat"
	"github.com/park285/Cheese-vs-Stockfish/internal/shell"
)

type Options struct {
	Controller   *game.Controller
	Catalog      *msgcat.Catalog
	DefaultLevel uci.SkillLevel
	NoColor      bool
	HistoryFile  string
	// Stdin and Stdout default to the process terminal.
	Stdin  io.ReadCloser
	Stdout io.Writer
	Logger *zap.Logger
}

// UI is the interactive terminal front end for one controller.
type UI struct {
	ctrl         *game.Controller
	cat          *msgcat.Catalog
	presenter    *shell.Presenter
	pal          palette
	defaultLevel uci.SkillLevel
	historyFile  string
	stdin        io.ReadCloser
	log          *zap.Logger

	outMu sync.Mutex
	out   io.Writer
}

func New(opts Options) (*UI, error) {
	if opts.Controller == nil {
		return nil, fmt.Errorf("controller required")
	}
	level := opts.DefaultLevel
	if !level.Valid() {
		level = uci.DefaultSkillLevel
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UI{
		ctrl:         opts.Controller,
		cat:          opts.Catalog,
		presenter:    shell.NewPresenter(opts.Catalog),
		pal:          newPalette(opts.NoColor),
		defaultLevel: level,
		historyFile:  opts.HistoryFile,
		stdin:        opts.Stdin,
		log:          logger,
		out:          opts.Stdout,
	}, nil
}

// Run reads commands until quit, EOF or ctx ends. Every controller state
// change redraws the board, so engine replies appear without input.
func (u *UI) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "chess> ",
		HistoryFile:     u.historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdin:           u.stdin,
		Stdout:          u.out,
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	u.outMu.Lock()
	u.out = rl.Stdout()
	u.outMu.Unlock()

	unsub := u.ctrl.Subscribe(u.redraw)
	defer unsub()

	go func() {
		<-ctx.Done()
		_ = rl.Close()
	}()

	u.printf("%s\n", u.text("cli.help", map[string]any{"Default": int(u.defaultLevel)}, "type 'help' for commands"))
	u.redraw(u.ctrl.Snapshot())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if quit := u.Execute(ctx, line); quit {
			return nil
		}
	}
}

// Execute runs one command line and reports whether the shell should exit.
func (u *UI) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(line)))
	if len(fields) == 0 {
		return false
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "quit", "exit", "x":
		return true
	case "help", "?":
		u.printf("%s\n", u.text("cli.help", map[string]any{"Default": int(u.defaultLevel)}, "start <level>, <move>, hover <sq>, cancel, board, restart, quit"))
	case "board":
		u.redraw(u.ctrl.Snapshot())
	case "start":
		u.start(ctx, args)
	case "hover":
		u.hover(args)
	case "cancel":
		u.ctrl.CancelDrag()
	case "restart":
		u.ctrl.Restart()
	default:
		m, err := board.ParseMove(cmd)
		if err != nil {
			u.printf("%s\n", u.text("cli.unknown", map[string]any{"Input": line}, "unknown command: "+line))
			return false
		}
		u.move(m)
	}
	return false
}

func (u *UI) start(ctx context.Context, args []string) {
	level := u.defaultLevel
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || !uci.SkillLevel(n).Valid() {
			u.printf("%s\n", u.text("level.prompt", nil, "Select level (0-20)"))
			return
		}
		level = uci.SkillLevel(n)
	}
	if err := u.ctrl.Start(ctx, level); err != nil {
		u.log.Warn("start failed", zap.Error(err))
		u.printf("%v\n", err)
	}
}

func (u *UI) hover(args []string) {
	if len(args) == 0 {
		_ = u.ctrl.ClearHover()
		return
	}
	sq, err := board.ParseSquare(args[0])
	if err != nil {
		u.printf("%v\n", err)
		return
	}
	if _, err := u.ctrl.HoverSquare(sq); err != nil {
		u.printf("%v\n", err)
	}
}

func (u *UI) move(m board.Move) {
	err := u.ctrl.SubmitMove(m)
	switch {
	case err == nil:
	case errors.Is(err, game.ErrIllegalMove):
		_ = u.ctrl.ClearHover()
		u.printf("%s\n", u.text("cli.rejected", map[string]any{"Move": m.String()}, "illegal move: "+m.String()))
	default:
		u.printf("%v\n", err)
	}
}

func (u *UI) redraw(v game.View) {
	banner, alert := u.presenter.Banner(v)
	f := frame{
		header: u.presenter.Header(v),
		turn:   u.presenter.Turn(v),
		banner: banner,
		alert:  alert,
	}
	u.outMu.Lock()
	defer u.outMu.Unlock()
	if u.out != nil {
		drawBoard(u.out, u.pal, v, f)
	}
}

func (u *UI) printf(format string, args ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	if u.out != nil {
		fmt.Fprintf(u.out, format, args...)
	}
}

func (u *UI) text(key string, data any, fallback string) string {
	return u.cat.RenderOr(key, data, fallback)
}
