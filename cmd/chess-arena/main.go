package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-vs-Stockfish/internal/arenabuilder"
	appcfg "github.com/park285/Cheese-vs-Stockfish/internal/config"
	"github.com/park285/Cheese-vs-Stockfish/internal/obslog"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to $ARENA_CONFIG)")
	flag.Parse()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	deps, err := arenabuilder.New(cfg, logger)
	if err != nil {
		log.Fatalf("arena init error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go deps.Registry.Run(ctx, arenabuilder.SweepInterval(cfg))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		errCh <- deps.Server.ListenAndServe(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("http server stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := deps.Server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	deps.Close(shutdownCtx)
	logger.Info("bye")
}
