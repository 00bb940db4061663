package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"k8s.io/klog/v2"

	"github.com/openmcp-project/graph-explorer-db/internal/config"
	"github.com/openmcp-project/graph-explorer-db/internal/loader"
	"github.com/openmcp-project/graph-explorer-db/internal/query"
	"github.com/openmcp-project/graph-explorer-db/internal/server"
	"github.com/openmcp-project/graph-explorer-db/internal/store"
)

func main() {
	level := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	klog.SetSlogLogger(slog.Default())

	if err := run(context.Background(), level); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// run owns the store, which is closed on every return path.
func run(ctx context.Context, level *slog.LevelVar) error {
	configPath := os.Getenv(config.PathEnvVar)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config %q: %w", configPath, err)
	}
	setLevel(level, cfg)
	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, func(c config.Config) { setLevel(level, c) })
			if err != nil {
				slog.Error("failed to watch config", "path", configPath, "err", err)
			}
		}()
	}

	db, err := store.Open(cfg.Store.Engine, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store.Engine, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close store", "err", err)
		}
	}()

	loader.InitSchema(ctx, db)

	syncer, err := loader.Connect(db,
		loader.WithWorkers(cfg.Sync.Workers),
		loader.WithDiscoveryCache(cfg.Sync.DiscoveryCacheTTL),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to cluster: %w", err)
	}

	slog.Info("syncing cluster to local DB...")
	if _, err := syncer.Sync(ctx); err != nil {
		return fmt.Errorf("failed to sync cluster: %w", err)
	}

	var gateway query.Gateway = query.NewGateway(db)
	if cfg.Query.CacheTTL > 0 {
		gateway = query.NewCachingGateway(gateway, cfg.Query.CacheTTL, cfg.Query.CacheCleanupInterval)
	}
	mux := server.NewMiddleware(query.Instrumented(gateway), syncer)

	slog.Info("Starting server", "address", cfg.Address)
	if err := http.ListenAndServe(cfg.Address, mux); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func setLevel(level *slog.LevelVar, cfg config.Config) {
	l, err := cfg.Level()
	if err != nil {
		slog.Error("invalid log level", "err", err)
		return
	}
	level.Set(l)
}
