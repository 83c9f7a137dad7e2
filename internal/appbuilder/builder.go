// Package appbuilder assembles the search service from configuration.
package appbuilder

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/gaia-game-search/internal/cache"
	"github.com/park285/gaia-game-search/internal/config"
	"github.com/park285/gaia-game-search/internal/ingest"
	"github.com/park285/gaia-game-search/internal/search"
	"github.com/park285/gaia-game-search/internal/store"
	"github.com/park285/gaia-game-search/internal/vocab"
)

type Deps struct {
	Service   *search.Service
	Repo      store.Repository
	Cache     *cache.NameCache // nil without REDIS_URL
	Gate      *ingest.Gate
	Vocab     *vocab.Vocabulary
	StoreName string
}

// Close releases the cache and repository connections.
func (d *Deps) Close() error {
	var errs []error
	if d.Cache != nil {
		errs = append(errs, d.Cache.Close())
	}
	if d.Repo != nil {
		errs = append(errs, d.Repo.Close())
	}
	return errors.Join(errs...)
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	v, err := vocab.Load(cfg.VocabularyFile)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}

	repo, err := OpenRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	deps := &Deps{Repo: repo, Vocab: v, StoreName: cfg.StoreKind()}

	if cfg.RedisURL != "" {
		nc, err := cache.Open(ctx, cfg.RedisURL, cfg.NameCacheTTL)
		if err != nil {
			_ = deps.Close()
			return nil, fmt.Errorf("init cache: %w", err)
		}
		deps.Cache = nc
	} else {
		logger.Info("name_cache_disabled", zap.String("reason", "REDIS_URL not set"))
	}

	deps.Gate = ingest.NewGate(repo, ingest.Options{
		BloomCapacity: cfg.IngestBloomCapacity,
		BloomFPRate:   cfg.IngestBloomFPRate,
	}, logger)
	if err := deps.Gate.Warm(ctx); err != nil {
		_ = deps.Close()
		return nil, fmt.Errorf("warm ingest gate: %w", err)
	}

	// A nil *cache.NameCache must stay a nil interface.
	var names search.NameCache
	if deps.Cache != nil {
		names = deps.Cache
	}
	deps.Service, err = search.NewService(v, repo, deps.Gate, names, search.Config{MaxResults: cfg.SearchMaxResults}, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	logger.Info("search_service_ready",
		zap.String("store", deps.StoreName),
		zap.String("vocabulary", v.Game()),
		zap.Bool("name_cache", deps.Cache != nil))
	return deps, nil
}

// OpenRepository picks postgres, then sqlite, then the in-memory store.
func OpenRepository(ctx context.Context, cfg *config.AppConfig) (store.Repository, error) {
	switch cfg.StoreKind() {
	case "postgres":
		repo, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return repo, nil
	case "sqlite":
		repo, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return repo, nil
	default:
		return store.NewMemoryRepository(), nil
	}
}
