package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/ratehub/internal/api"
	"github.com/rickgao/ratehub/internal/config"
	"github.com/rickgao/ratehub/internal/database"
	"github.com/rickgao/ratehub/internal/httpapi"
	"github.com/rickgao/ratehub/internal/model"
	"github.com/rickgao/ratehub/internal/poller"
	"github.com/rickgao/ratehub/internal/rates"
	"github.com/rickgao/ratehub/internal/store"
	"github.com/rickgao/ratehub/internal/stream"
	"github.com/rickgao/ratehub/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/ratehub.example.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional dotenv file loaded before the config")
	flag.Parse()

	if err := config.LoadEnvFile(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting ratehub",
		"version", version.String(),
		"config", *configPath,
		"store", cfg.Store.Driver,
	)
	if cfg.Upstream.APIKey == "" {
		logger.Warn("no upstream api key configured; rate endpoints will report unavailable")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	snapStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}
	if snapStore != nil {
		defer snapStore.Close()
	}

	apiClient := api.NewClient(
		cfg.Upstream.RestURL,
		cfg.Upstream.APIKey,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Upstream.Timeout),
		api.WithRetries(cfg.Upstream.MaxAttempts, cfg.Upstream.RetryBaseDelay),
	)

	ratesCfg := rates.DefaultConfig()
	ratesCfg.Pairs = pairSpecs(cfg.Snapshot.Pairs)
	ratesCfg.TTL = cfg.Snapshot.TTL
	ratesCfg.LiveWindow = cfg.Snapshot.LiveWindow
	ratesCfg.ReferenceCurrency = cfg.Snapshot.ReferenceCurrency
	ratesCfg.GoldSymbol = cfg.Snapshot.GoldSymbol
	ratesCfg.Feed = cfg.Feed("rates")

	var ratesOpts []rates.Option
	if snapStore != nil {
		ratesOpts = append(ratesOpts, rates.WithSeed(snapStore))
	}
	ratesSvc := rates.New(ratesCfg, apiClient, logger, ratesOpts...)

	mux := stream.New(cfg.Feed("stream"), logger)

	// Persist every accepted snapshot, coalesced to the flush interval.
	var writer *store.Writer
	if snapStore != nil {
		writer = store.NewWriter(snapStore, cfg.Store.FlushInterval, logger)
		ratesSvc.OnUpdate(func(model.RatesView) {
			if snap := ratesSvc.Snapshot(); snap != nil {
				writer.Offer(snap)
			}
		})
		if err := writer.Start(ctx); err != nil {
			logger.Error("failed to start snapshot writer", "error", err)
			os.Exit(1)
		}
	}

	if err := ratesSvc.Start(ctx); err != nil {
		logger.Error("failed to start rate service", "error", err)
		os.Exit(1)
	}

	var warm *poller.Poller
	if ratesSvc.Available() {
		warm = poller.New(poller.Config{
			Interval: cfg.Snapshot.RefreshInterval,
			Timeout:  ratesCfg.RefreshTimeout + 5*time.Second,
		}, ratesSvc, logger)
		if err := warm.Start(ctx); err != nil {
			logger.Error("failed to start poller", "error", err)
			os.Exit(1)
		}
	}

	server := httpapi.NewServer(httpapi.Config{
		Port:              cfg.Server.Port,
		KeepaliveInterval: cfg.Server.KeepaliveInterval,
		MaxStreamDuration: cfg.Server.MaxStreamDuration,
		MetricsPath:       cfg.Metrics.Path,
	}, ratesSvc, mux, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	logger.Info("ratehub running",
		"port", cfg.Server.Port,
		"rates_available", ratesSvc.Available(),
		"stream_available", mux.Available(),
	)

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server error", "error", err)
		}
		cancel()
	}

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	if warm != nil {
		if err := warm.Stop(shutdownCtx); err != nil {
			logger.Error("poller stop error", "error", err)
		}
	}
	if err := mux.Stop(shutdownCtx); err != nil {
		logger.Error("stream stop error", "error", err)
	}
	if err := ratesSvc.Stop(shutdownCtx); err != nil {
		logger.Error("rate service stop error", "error", err)
	}
	if writer != nil {
		if err := writer.Stop(shutdownCtx); err != nil {
			logger.Error("snapshot writer stop error", "error", err)
		}
	}

	logger.Info("ratehub stopped")
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// openStore returns nil when persistence is disabled.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.StoreRedis:
		logger.Info("connecting to redis", "addr", cfg.Redis.Addr, "key", cfg.Redis.Key)
		return store.NewRedis(ctx, cfg.Redis)
	case config.StorePostgres:
		logger.Info("connecting to postgres",
			"host", cfg.Postgres.Host,
			"port", cfg.Postgres.Port,
			"database", cfg.Postgres.Name,
		)
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		pg, err := store.NewPostgres(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return pg, nil
	}
	return nil, nil
}

func pairSpecs(pairs []config.PairConfig) []rates.FxPairSpec {
	specs := make([]rates.FxPairSpec, len(pairs))
	for i, p := range pairs {
		specs[i] = rates.FxPairSpec{
			Base:      p.Base,
			Quote:     p.Quote,
			Optional:  p.Optional,
			Decimals:  p.Decimals,
			Derivable: p.Derivable,
		}
	}
	return specs
}
