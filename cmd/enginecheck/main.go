package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/park285/Cheese-vs-Stockfish/internal/board"
	"github.com/park285/Cheese-vs-Stockfish/internal/chess/uci"
	appcfg "github.com/park285/Cheese-vs-Stockfish/internal/config"
	"github.com/park285/Cheese-vs-Stockfish/internal/obslog"
)

// enginecheck opens one engine channel with the configured dialer, asks for a
// move from a position and prints what the engine says.
func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to $ARENA_CONFIG)")
	fen := flag.String("fen", board.StartFEN, "position to search")
	level := flag.Int("level", int(uci.DefaultSkillLevel), "skill level 0-20")
	wait := flag.Duration("wait", 30*time.Second, "how long to wait for bestmove")
	flag.Parse()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	cfg, err := appcfg.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if _, err := board.FromFEN(*fen); err != nil {
		log.Fatalf("bad fen: %v", err)
	}

	var dialer uci.Dialer = uci.ProcessDialer{BinaryPath: cfg.StockfishPath}
	target := cfg.StockfishPath
	if ws := strings.TrimSpace(cfg.EngineWSURL); ws != "" {
		dialer = uci.WebSocketDialer{URL: ws}
		target = ws
	}
	log.Printf("engine: %s level=%d depth=%d", target, *level, cfg.SearchDepth)

	done := make(chan uci.Event, 1)
	started := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	ch, err := uci.Open(ctx, dialer, uci.Config{
		SkillLevel:  uci.SkillLevel(*level),
		Depth:       cfg.SearchDepth,
		InitTimeout: cfg.EngineInitTimeout,
		Generation:  1,
		Logger:      obslog.L(),
	}, func(ev uci.Event) {
		switch ev.Kind {
		case uci.EventLine:
			fmt.Printf("engine: %s\n", ev.Line)
		case uci.EventBestMove, uci.EventNoMove, uci.EventFailure:
			select {
			case done <- ev:
			default:
			}
		}
	})
	cancel()
	if err != nil {
		log.Fatalf("open engine: %v", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.RequestMove(*fen); err != nil {
		log.Fatalf("request move: %v", err)
	}

	t := time.NewTimer(*wait)
	defer t.Stop()
	select {
	case ev := <-done:
		switch ev.Kind {
		case uci.EventBestMove:
			log.Printf("bestmove %s in %s", ev.Move, time.Since(started).Round(time.Millisecond))
		case uci.EventNoMove:
			log.Printf("engine has no move (%s)", ev.Line)
		default:
			log.Fatalf("engine failure: %v", ev.Err)
		}
	case <-t.C:
		log.Fatalf("no bestmove within %s", *wait)
	}
}
