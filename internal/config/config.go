package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	HTTPAddr string `yaml:"http_addr" validate:"required"`

	StockfishPath string `yaml:"stockfish_path"`
	EngineWSURL   string `yaml:"engine_ws_url" validate:"omitempty,url"`
	SearchDepth   int    `yaml:"search_depth" validate:"min=1,max=40"`
	// MaxEngines caps live engine workers; 0 derives it from the CPU count.
	MaxEngines        int           `yaml:"max_engines" validate:"min=0"`
	DefaultSkillLevel int           `yaml:"default_skill_level" validate:"min=0,max=20"`
	EngineInitTimeout time.Duration `yaml:"engine_init_timeout" validate:"min=0"`
	EngineMoveTimeout time.Duration `yaml:"engine_move_timeout" validate:"min=0"`

	SessionIdleTTL time.Duration `yaml:"session_idle_ttl" validate:"min=0"`
	RedisURL       string        `yaml:"redis_url"`
	LeaseTTL       time.Duration `yaml:"lease_ttl" validate:"min=0"`

	MessagesDir  string `yaml:"messages_dir"`
	MessagesLang string `yaml:"messages_lang" validate:"required"`
}

func Defaults() *AppConfig {
	return &AppConfig{
		HTTPAddr:          ":8080",
		StockfishPath:     "stockfish",
		SearchDepth:       12,
		DefaultSkillLevel: 10,
		EngineInitTimeout: 5 * time.Second,
		EngineMoveTimeout: 30 * time.Second,
		SessionIdleTTL:    time.Hour,
		LeaseTTL:          30 * time.Second,
		MessagesLang:      "en",
	}
}

// Load layers defaults, an optional YAML file (path or ARENA_CONFIG) and the
// environment, then validates the result.
func Load(path string) (*AppConfig, error) {
	cfg := Defaults()

	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv("ARENA_CONFIG"))
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("STOCKFISH_PATH")); v != "" {
		cfg.StockfishPath = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_WS_URL")); v != "" {
		cfg.EngineWSURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SEARCH_DEPTH")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SearchDepth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_ENGINES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxEngines = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_SKILL_LEVEL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DefaultSkillLevel = n
		}
	}
	if d, ok := envDuration("ENGINE_INIT_TIMEOUT"); ok {
		cfg.EngineInitTimeout = d
	}
	if d, ok := envDuration("ENGINE_MOVE_TIMEOUT"); ok {
		cfg.EngineMoveTimeout = d
	}
	if d, ok := envDuration("SESSION_IDLE_TTL"); ok {
		cfg.SessionIdleTTL = d
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if d, ok := envDuration("LEASE_TTL"); ok {
		cfg.LeaseTTL = d
	}
	if v := strings.TrimSpace(os.Getenv("MESSAGES_DIR")); v != "" {
		cfg.MessagesDir = v
	}
	if v := strings.TrimSpace(os.Getenv("MESSAGES_LANG")); v != "" {
		cfg.MessagesLang = v
	}
}

// envDuration accepts Go durations ("30s") or bare seconds ("30").
func envDuration(name string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d, true
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return time.Duration(n) * time.Second, true
	}
	return 0, false
}

var validate = validator.New()

func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.StockfishPath == "" && c.EngineWSURL == "" {
		return errors.New("invalid config: STOCKFISH_PATH or ENGINE_WS_URL is required")
	}
	return nil
}
