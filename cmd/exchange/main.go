package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/outcome-exchange/internal/api"
	"github.com/rickgao/outcome-exchange/internal/config"
	"github.com/rickgao/outcome-exchange/internal/database"
	"github.com/rickgao/outcome-exchange/internal/engine"
	"github.com/rickgao/outcome-exchange/internal/feed"
	"github.com/rickgao/outcome-exchange/internal/logging"
	"github.com/rickgao/outcome-exchange/internal/store"
	"github.com/rickgao/outcome-exchange/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/exchange.yaml", "path to config file")
	flag.Parse()

	// Bootstrap logger until config is loaded
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("starting exchange",
		"build", version.String(),
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = logging.New(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"feed_port", cfg.Feed.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("connecting to database",
		"host", cfg.Database.Postgres.Host,
		"port", cfg.Database.Postgres.Port,
		"database", cfg.Database.Postgres.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database.Postgres)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := store.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready")

	st := store.NewPostgres(pool, logger)

	hub := feed.NewHub(cfg.Feed.SubscriberQueue, logger)
	srv := feed.NewServer(cfg.Feed, hub, logger)

	eng := engine.New(engine.Config{
		SubmitTimeout: cfg.Engine.SubmitTimeout,
		LockStripes:   cfg.Engine.LockStripes,
	}, st, hub, logger)

	apiSrv := api.NewServer(cfg.API, eng, st, logger)

	logger.Info("exchange running",
		"instance_id", cfg.Instance.ID,
		"api_port", cfg.API.Port,
		"feed_port", cfg.Feed.Port,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return apiSrv.Run(gctx) })

	if err := g.Wait(); err != nil {
		logger.Error("exchange stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("exchange stopped")
}
