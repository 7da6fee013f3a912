// streamtest subscribes symbols through the stream multiplexer and prints ticks.
// Usage: go run ./cmd/streamtest --config configs/ratehub.example.yaml --symbols XAU/USD,EUR/USD
//
// The upstream credential comes from the config file, usually via ${TWELVEDATA_API_KEY}.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rickgao/ratehub/internal/config"
	"github.com/rickgao/ratehub/internal/model"
	"github.com/rickgao/ratehub/internal/stream"
)

func main() {
	configPath := flag.String("config", "configs/ratehub.example.yaml", "path to config file")
	symbols := flag.String("symbols", "XAU/USD,USD/TRY", "comma-separated symbols to subscribe")
	duration := flag.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	if err := config.LoadEnvFile(".env"); err != nil {
		logger.Error("failed to load env file", "error", err)
		os.Exit(1)
	}
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	mux := stream.New(cfg.Feed("streamtest"), logger)
	if !mux.Available() {
		logger.Error("no upstream api key configured")
		os.Exit(1)
	}

	var count atomic.Int64
	for _, sym := range strings.Split(*symbols, ",") {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		unsubscribe := mux.Subscribe(sym, func(t model.Tick) {
			count.Add(1)
			printTick(t)
		})
		defer unsubscribe()
	}

	status := time.NewTicker(10 * time.Second)
	defer status.Stop()

	fmt.Println("Streaming... (Ctrl+C to stop)")
	fmt.Println(strings.Repeat("-", 60))

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-status.C:
			st := mux.Stats()
			logger.Info("status",
				"connection", st.Connection,
				"subscribed", st.Subscribed,
				"ticks", count.Load(),
			)
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	mux.Stop(stopCtx)

	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("received %d ticks\n", count.Load())
}

func printTick(t model.Tick) {
	ts := time.UnixMilli(t.TimestampMs).Format("15:04:05.000")
	if t.Volume != nil {
		fmt.Printf("[%s] %-10s %14.5f  vol=%g\n", ts, t.Symbol, t.Price, *t.Volume)
		return
	}
	fmt.Printf("[%s] %-10s %14.5f\n", ts, t.Symbol, t.Price)
}
