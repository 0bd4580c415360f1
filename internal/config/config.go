package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    string `json:"port" yaml:"port"`
}

type Telegram struct {
	Token          string `json:"token" yaml:"token"`
	Endpoint       string `json:"endpoint" yaml:"endpoint"`
	PollTimeoutSec int    `json:"poll_timeout_sec" yaml:"poll_timeout_sec"`
	MaxConcurrency int    `json:"max_concurrency" yaml:"max_concurrency"`
}

type CryptoCompare struct {
	APIKey            string `json:"api_key" yaml:"api_key"`
	Endpoint          string `json:"endpoint" yaml:"endpoint"`
	Currency          string `json:"currency" yaml:"currency"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
}

type Report struct {
	Top []string `json:"top" yaml:"top"`
	// LookbackSec places the change reference point at now - LookbackSec.
	LookbackSec    int `json:"lookback_sec" yaml:"lookback_sec"`
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`
}

type Redis struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

type Log struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

type Config struct {
	Server        Server        `json:"server" yaml:"server"`
	Telegram      Telegram      `json:"telegram" yaml:"telegram"`
	CryptoCompare CryptoCompare `json:"cryptocompare" yaml:"cryptocompare"`
	Report        Report        `json:"report" yaml:"report"`
	Redis         Redis         `json:"redis" yaml:"redis"`
	Log           Log           `json:"log" yaml:"log"`
}

func Default() Config {
	return Config{
		Server: Server{Enabled: true, Port: "8080"},
		Telegram: Telegram{
			Endpoint:       "https://api.telegram.org",
			PollTimeoutSec: 30,
			MaxConcurrency: 8,
		},
		CryptoCompare: CryptoCompare{
			Endpoint:          "https://min-api.cryptocompare.com",
			Currency:          "USD",
			RequestTimeoutSec: 10,
		},
		Report: Report{
			Top:            []string{"BTC", "ETH", "BNB", "XRP", "ADA", "DOGE", "SOL", "LTC", "TRX", "MATIC", "DOT"},
			LookbackSec:    86400,
			MaxConcurrency: 4,
		},
		Redis: Redis{Addr: "localhost:6379", KeyPrefix: "users/"},
		Log:   Log{Level: "info", Format: "text"},
	}
}

// Load reads a YAML or JSON config (chosen by extension) from path. If path
// is empty, config.yaml and then config.json in the working directory are
// tried; a missing file yields defaults. Environment variables override
// secrets and select fields afterwards.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		for _, candidate := range []string{"config.yaml", "config.yml", "config.json"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := decode(path, b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

// Validate checks fields that have no usable fallback.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CryptoCompare.Currency) == "" {
		return fmt.Errorf("cryptocompare.currency is required")
	}
	if len(c.Report.Top) == 0 {
		return fmt.Errorf("report.top must list at least one coin")
	}
	if c.CryptoCompare.RequestTimeoutSec <= 0 {
		return fmt.Errorf("cryptocompare.request_timeout_sec must be positive")
	}
	if c.Telegram.PollTimeoutSec < 0 {
		return fmt.Errorf("telegram.poll_timeout_sec must not be negative")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
	if v := os.Getenv("HTTP_ENABLED"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y": cfg.Server.Enabled = true
		case "0", "false", "no", "n": cfg.Server.Enabled = false
		}
	}

	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" { cfg.Telegram.Token = v }
	if v := os.Getenv("TELEGRAM_ENDPOINT"); v != "" { cfg.Telegram.Endpoint = v }
	if v := os.Getenv("TELEGRAM_POLL_TIMEOUT_SEC"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Telegram.PollTimeoutSec = x }
	}
	if v := os.Getenv("TELEGRAM_MAX_CONCURRENCY"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Telegram.MaxConcurrency = x }
	}

	if v := os.Getenv("CRYPTOCOMPARE_API_KEY"); v != "" { cfg.CryptoCompare.APIKey = v }
	if v := os.Getenv("CRYPTOCOMPARE_ENDPOINT"); v != "" { cfg.CryptoCompare.Endpoint = v }
	if v := os.Getenv("CURRENCY"); v != "" { cfg.CryptoCompare.Currency = strings.ToUpper(v) }
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.CryptoCompare.RequestTimeoutSec = x }
	}

	if v := os.Getenv("TOP_COINS"); v != "" { cfg.Report.Top = splitCSV(v) }
	if v := os.Getenv("LOOKBACK_SEC"); v != "" {
		// Negative values are allowed and move the reference into the future.
		var x int; if _, err := fmt.Sscanf(v, "%d", &x); err == nil { cfg.Report.LookbackSec = x }
	}
	if v := os.Getenv("REPORT_MAX_CONCURRENCY"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Report.MaxConcurrency = x }
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" { cfg.Redis.Addr = v }
	if v := os.Getenv("REDIS_PASSWORD"); v != "" { cfg.Redis.Password = v }
	if v := os.Getenv("REDIS_DB"); v != "" {
		var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Redis.DB = x }
	}
	if v := os.Getenv("REDIS_KEY_PREFIX"); v != "" { cfg.Redis.KeyPrefix = v }

	if v := os.Getenv("LOG_LEVEL"); v != "" { cfg.Log.Level = v }
	if v := os.Getenv("LOG_FORMAT"); v != "" { cfg.Log.Format = v }
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" { out = append(out, p) }
	}
	return out
}
