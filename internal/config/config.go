package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// AppConfig is shared by the HTTP server, the terminal editor and the one-shot CLI.
// Values come from defaults, then the optional CONFIG_FILE, then the environment.
type AppConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	EnginePath      string   `yaml:"engine_path"`
	EngineArgs      []string `yaml:"engine_args"`
	EngineThreads   int      `yaml:"engine_threads"`
	EngineHashMB    int      `yaml:"engine_hash_mb"`
	SearchBudgetSec float64  `yaml:"search_budget_sec"`
	StopGraceMS     int      `yaml:"engine_stop_grace_ms"`

	FrameDelayMS   int    `yaml:"frame_delay_ms"`
	FrameHighlight bool   `yaml:"frame_highlight"`
	PieceAssetDir  string `yaml:"piece_asset_dir"`
	OutputDir      string `yaml:"output_dir"`

	RedisURL    string `yaml:"redis_url"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"`

	DatabaseURL  string `yaml:"database_url"`
	StoreDir     string `yaml:"store_dir"`
	HistoryLimit int    `yaml:"history_limit"`

	MessagesDir string `yaml:"messages_dir"`
}

func defaults() *AppConfig {
	return &AppConfig{
		HTTPAddr:        ":8080",
		EngineThreads:   1,
		EngineHashMB:    64,
		SearchBudgetSec: 10,
		StopGraceMS:     2000,
		FrameDelayMS:    500,
		CacheTTLSec:     3600,
		HistoryLimit:    10,
	}
}

// Load requires ENGINE_PATH (or engine_path in the file).
func Load() (*AppConfig, error) {
	cfg, err := LoadUnchecked()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUnchecked applies file and environment values without the required-field checks.
func LoadUnchecked() (*AppConfig, error) {
	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *AppConfig) applyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		c.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_PATH")); v != "" {
		c.EnginePath = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_ARGS")); v != "" {
		c.EngineArgs = strings.Fields(v)
	}
	positiveInt("ENGINE_THREADS", &c.EngineThreads)
	positiveInt("ENGINE_HASH_MB", &c.EngineHashMB)
	if v := strings.TrimSpace(os.Getenv("SEARCH_BUDGET")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.SearchBudgetSec = f
		}
	}
	positiveInt("ENGINE_STOP_GRACE_MS", &c.StopGraceMS)
	positiveInt("FRAME_DELAY_MS", &c.FrameDelayMS)
	if v := strings.TrimSpace(os.Getenv("FRAME_HIGHLIGHT")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.FrameHighlight = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("PIECE_ASSET_DIR")); v != "" {
		c.PieceAssetDir = v
	}
	if v := strings.TrimSpace(os.Getenv("OUTPUT_DIR")); v != "" {
		c.OutputDir = v
	}

	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		c.RedisURL = v
	}
	positiveInt("CACHE_TTL_SEC", &c.CacheTTLSec)
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		c.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("STORE_DIR")); v != "" {
		c.StoreDir = v
	}
	positiveInt("HISTORY_LIMIT", &c.HistoryLimit)
	if v := strings.TrimSpace(os.Getenv("MESSAGES_DIR")); v != "" {
		c.MessagesDir = v
	}
}

// positiveInt leaves dst untouched when the variable is unset or not a positive integer.
func positiveInt(key string, dst *int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		*dst = n
	}
}

func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.EnginePath) == "" {
		return errors.New("ENGINE_PATH is required")
	}
	if c.SearchBudgetSec <= 0 {
		return errors.New("SEARCH_BUDGET must be positive")
	}
	return nil
}

func (c *AppConfig) SearchBudget() time.Duration {
	return time.Duration(c.SearchBudgetSec * float64(time.Second))
}

func (c *AppConfig) StopGrace() time.Duration {
	return time.Duration(c.StopGraceMS) * time.Millisecond
}

func (c *AppConfig) FrameDelay() time.Duration {
	return time.Duration(c.FrameDelayMS) * time.Millisecond
}

func (c *AppConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}
