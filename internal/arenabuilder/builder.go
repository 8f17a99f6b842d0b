package arenabuilder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/Cheese-vs-Stockfish/internal/board"
	"github.com/park285/Cheese-vs-Stockfish/internal/chess/uci"
	"github.com/park285/Cheese-vs-Stockfish/internal/config"
	"github.com/park285/Cheese-vs-Stockfish/internal/game"
	"github.com/park285/Cheese-vs-Stockfish/internal/lease"
	"github.com/park285/Cheese-vs-Stockfish/internal/msgcat"
	"github.com/park285/Cheese-vs-Stockfish/internal/render"
	"github.com/park285/Cheese-vs-Stockfish/internal/shell"
)

// Engine holds what every front end needs to open games.
type Engine struct {
	Dialer  *uci.LimitedDialer
	Opener  game.EngineOpener
	Catalog *msgcat.Catalog
	Rules   board.Rules

	cfg    *config.AppConfig
	logger *zap.Logger
}

// Deps is the full web stack.
type Deps struct {
	*Engine
	Redis    *redis.Client
	Lease    lease.Lease
	Registry *shell.Registry
	Server   *shell.Server
}

// NewEngine builds the engine dialer and message catalog.
func NewEngine(cfg *config.AppConfig, logger *zap.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var inner uci.Dialer
	if ws := strings.TrimSpace(cfg.EngineWSURL); ws != "" {
		inner = uci.WebSocketDialer{URL: ws, DialTimeout: cfg.EngineInitTimeout}
		logger.Info("engine over websocket", zap.String("url", ws))
	} else {
		if strings.TrimSpace(cfg.StockfishPath) == "" {
			return nil, fmt.Errorf("STOCKFISH_PATH is required for the chess engine")
		}
		inner = uci.ProcessDialer{BinaryPath: cfg.StockfishPath}
		logger.Info("engine as local process", zap.String("path", cfg.StockfishPath))
	}
	capacity := cfg.MaxEngines
	if capacity <= 0 {
		capacity = uci.DefaultCapacity()
	}
	dialer := uci.NewLimitedDialer(inner, capacity)

	cat, err := msgcat.New(cfg.MessagesLang, cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	return &Engine{
		Dialer: dialer,
		Opener: game.UCIOpener{
			Dialer:      dialer,
			Depth:       cfg.SearchDepth,
			InitTimeout: cfg.EngineInitTimeout,
			Logger:      logger.Named("uci"),
		},
		Catalog: cat,
		Rules:   board.NewModel(),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// NewController builds one controller wired to the engine.
func (e *Engine) NewController(sessionID string) (*game.Controller, error) {
	return game.NewController(game.Options{
		Rules:       e.Rules,
		Opener:      e.Opener,
		MoveTimeout: e.cfg.EngineMoveTimeout,
		Logger:      e.logger.Named("game"),
		SessionID:   sessionID,
	})
}

func (e *Engine) DefaultLevel() uci.SkillLevel { return uci.SkillLevel(e.cfg.DefaultSkillLevel) }

// New builds the web stack. Redis is optional; without it leases are local
// to this process.
func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	eng, err := NewEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	logger = eng.logger

	deps := &Deps{Engine: eng}
	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, perr := redis.ParseURL(cfg.RedisURL)
		if perr != nil {
			return nil, fmt.Errorf("parse redis url: %w", perr)
		}
		rdb := redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		deps.Redis = rdb
		deps.Lease = lease.NewRedisLease(rdb, cfg.LeaseTTL)
	} else {
		logger.Info("REDIS_URL not set; using in-process session leases")
		deps.Lease = lease.NewLocalLease(cfg.LeaseTTL)
	}

	reg, err := shell.NewRegistry(shell.RegistryOptions{
		Factory: eng.NewController,
		Lease:   deps.Lease,
		IdleTTL: cfg.SessionIdleTTL,
		Logger:  logger.Named("registry"),
	})
	if err != nil {
		return nil, err
	}
	deps.Registry = reg
	deps.Server = shell.NewServer(shell.ServerOptions{
		Registry:     reg,
		Presenter:    shell.NewPresenter(eng.Catalog),
		Renderer:     render.NewRenderer(),
		DefaultLevel: eng.DefaultLevel(),
		StartTimeout: cfg.EngineInitTimeout + 10*time.Second,
		Logger:       logger.Named("http"),
	})
	return deps, nil
}

// SweepInterval keeps lease heartbeats well inside the lease ttl.
func SweepInterval(cfg *config.AppConfig) time.Duration {
	interval := cfg.LeaseTTL / 3
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return interval
}

func (d *Deps) Close(ctx context.Context) {
	if d.Registry != nil {
		d.Registry.Close(ctx)
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
}
