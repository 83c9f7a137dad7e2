package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/gaia-game-search/internal/appbuilder"
	appcfg "github.com/park285/gaia-game-search/internal/config"
	"github.com/park285/gaia-game-search/internal/httpapi"
	"github.com/park285/gaia-game-search/internal/obslog"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		migrate(cfg, logger)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	deps, err := appbuilder.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("init_failed", zap.Error(err))
	}
	defer func() { _ = deps.Close() }()

	app := httpapi.NewApp(deps.Service, httpapi.Options{
		DevMode:         cfg.DevMode,
		StoreName:       deps.StoreName,
		IngestRateLimit: cfg.IngestRateLimit,
		ProxyHeader:     cfg.ProxyHeader,
		TrustedProxies:  cfg.TrustedProxies,
	}, logger)
	go func() {
		logger.Info("http_listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", deps.StoreName))
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			logger.Error("http_listen_failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting_down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http_shutdown_failed", zap.Error(err))
	}
}

// migrate applies the schema of the configured SQL store and exits.
func migrate(cfg *appcfg.AppConfig, logger *zap.Logger) {
	if cfg.StoreKind() == "memory" {
		logger.Fatal("migrate_requires_sql_store", zap.String("hint", "set DATABASE_URL or SQLITE_PATH"))
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	repo, err := appbuilder.OpenRepository(ctx, cfg)
	if err != nil {
		logger.Fatal("migrate_failed", zap.Error(err))
	}
	_ = repo.Close()
	logger.Info("migrate_done", zap.String("store", cfg.StoreKind()))
}
