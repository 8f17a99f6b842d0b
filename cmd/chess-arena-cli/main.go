package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/park285/Cheese-vs-Stockfish/internal/arenabuilder"
	appcfg "github.com/park285/Cheese-vs-Stockfish/internal/config"
	"github.com/park285/Cheese-vs-Stockfish/internal/obslog"
	"github.com/park285/Cheese-vs-Stockfish/internal/termui"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to $ARENA_CONFIG)")
	history := flag.String("history", ".chess_arena_history", "readline history file")
	flag.Parse()

	// logs go to stderr so they never interleave with the board
	opts := obslog.OptionsFromEnv()
	opts.Out = os.Stderr
	if err := obslog.Init(opts); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	eng, err := arenabuilder.NewEngine(cfg, logger)
	if err != nil {
		log.Fatalf("engine init error: %v", err)
	}
	ctrl, err := eng.NewController("tty")
	if err != nil {
		log.Fatalf("controller init error: %v", err)
	}
	defer ctrl.Close()

	ui, err := termui.New(termui.Options{
		Controller:   ctrl,
		Catalog:      eng.Catalog,
		DefaultLevel: eng.DefaultLevel(),
		NoColor:      !term.IsTerminal(int(os.Stdout.Fd())),
		HistoryFile:  *history,
		Logger:       logger.Named("tty"),
	})
	if err != nil {
		log.Fatalf("terminal init error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	if err := ui.Run(ctx); err != nil {
		log.Fatalf("terminal error: %v", err)
	}
}
