package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "DATABASE_URL", "SQLITE_PATH", "REDIS_URL", "SEARCH_MAX_RESULTS", "NAME_CACHE_TTL", "INGEST_BLOOM_CAPACITY", "INGEST_BLOOM_FP_RATE", "TRUSTED_PROXIES", "INGEST_RATE_LIMIT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.SearchMaxResults != 100 || cfg.NameCacheTTL != 10*time.Minute {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.IngestBloomCapacity != 500000 || cfg.IngestBloomFPRate != 0.001 {
		t.Fatalf("unexpected bloom defaults: %+v", cfg)
	}
	if cfg.StoreKind() != "memory" {
		t.Fatalf("store kind: %s", cfg.StoreKind())
	}
	if len(cfg.TrustedProxies) != 0 || cfg.IngestRateLimit != 0 {
		t.Fatalf("proxies should be untrusted by default: %+v", cfg)
	}
}

func TestTrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1,192.168.0.0/16")
	t.Setenv("INGEST_RATE_LIMIT", "5")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[1] != "192.168.0.0/16" {
		t.Fatalf("trusted proxies: %v", cfg.TrustedProxies)
	}
	if cfg.IngestRateLimit != 5 || cfg.ProxyHeader != "X-Forwarded-For" {
		t.Fatalf("proxy settings: %+v", cfg)
	}
}

func TestStoreSelection(t *testing.T) {
	t.Setenv("SQLITE_PATH", " games.db ")
	t.Setenv("DATABASE_URL", "")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.StoreKind() != "sqlite" || cfg.SQLitePath != "games.db" {
		t.Fatalf("expected sqlite, got %s %q", cfg.StoreKind(), cfg.SQLitePath)
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/gaia")
	cfg, err = FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.StoreKind() != "postgres" {
		t.Fatalf("postgres should win, got %s", cfg.StoreKind())
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"SEARCH_MAX_RESULTS":    "0",
		"NAME_CACHE_TTL":        "soon",
		"INGEST_BLOOM_FP_RATE":  "1.5",
		"INGEST_BLOOM_CAPACITY": "0",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			if _, err := FromEnv(); err == nil {
				t.Fatalf("%s=%s accepted", k, v)
			}
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SEARCH_MAX_RESULTS=25\nREDIS_URL=redis://cache:6379/0\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Chdir(dir)
	t.Setenv("SEARCH_MAX_RESULTS", "")
	os.Unsetenv("SEARCH_MAX_RESULTS")
	t.Setenv("REDIS_URL", "")
	os.Unsetenv("REDIS_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SearchMaxResults != 25 || cfg.RedisURL != "redis://cache:6379/0" {
		t.Fatalf("dotenv not applied: %+v", cfg)
	}
}
