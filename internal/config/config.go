package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envFiles are tried in order; the first one found is loaded.
var envFiles = []string{".env", "../.env"}

type AppConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	DevMode  bool   `env:"DEV_MODE" envDefault:"false"`

	// TrustedProxies lists peer IPs or CIDRs whose ProxyHeader is believed.
	TrustedProxies  []string `env:"TRUSTED_PROXIES" envSeparator:","`
	ProxyHeader     string   `env:"PROXY_HEADER" envDefault:"X-Forwarded-For"`
	IngestRateLimit int      `env:"INGEST_RATE_LIMIT" envDefault:"0"`

	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH"`
	RedisURL    string `env:"REDIS_URL"`

	VocabularyFile string `env:"VOCABULARY_FILE"`

	SearchMaxResults int           `env:"SEARCH_MAX_RESULTS" envDefault:"100"`
	NameCacheTTL     time.Duration `env:"NAME_CACHE_TTL" envDefault:"10m"`

	IngestBloomCapacity uint    `env:"INGEST_BLOOM_CAPACITY" envDefault:"500000"`
	IngestBloomFPRate   float64 `env:"INGEST_BLOOM_FP_RATE" envDefault:"0.001"`
}

// StoreKind names the repository backend the configuration selects.
func (c *AppConfig) StoreKind() string {
	switch {
	case c.DatabaseURL != "":
		return "postgres"
	case c.SQLitePath != "":
		return "sqlite"
	default:
		return "memory"
	}
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (*AppConfig, error) {
	for _, path := range envFiles {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}
	return FromEnv()
}

// FromEnv parses the process environment without touching .env files.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.HTTPAddr = strings.TrimSpace(cfg.HTTPAddr)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.SQLitePath = strings.TrimSpace(cfg.SQLitePath)
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)
	cfg.VocabularyFile = strings.TrimSpace(cfg.VocabularyFile)
	cfg.ProxyHeader = strings.TrimSpace(cfg.ProxyHeader)
	proxies := cfg.TrustedProxies[:0]
	for _, p := range cfg.TrustedProxies {
		if p = strings.TrimSpace(p); p != "" {
			proxies = append(proxies, p)
		}
	}
	cfg.TrustedProxies = proxies

	if cfg.HTTPAddr == "" {
		return nil, errors.New("HTTP_ADDR is required")
	}
	if cfg.SearchMaxResults <= 0 {
		return nil, errors.New("SEARCH_MAX_RESULTS must be positive")
	}
	if cfg.NameCacheTTL <= 0 {
		return nil, errors.New("NAME_CACHE_TTL must be positive")
	}
	if cfg.IngestRateLimit < 0 {
		return nil, errors.New("INGEST_RATE_LIMIT must not be negative")
	}
	if cfg.IngestBloomCapacity == 0 {
		return nil, errors.New("INGEST_BLOOM_CAPACITY must be positive")
	}
	if cfg.IngestBloomFPRate <= 0 || cfg.IngestBloomFPRate >= 1 {
		return nil, errors.New("INGEST_BLOOM_FP_RATE must be between 0 and 1")
	}
	return cfg, nil
}
