// tradesim — the simulation core of a multi-user equity trading simulator.
//
// Architecture:
//
//	main.go               — entry point: loads config and the seed snapshot,
//	                         wires every collaborator, starts the engine and
//	                         API server, waits for SIGINT/SIGTERM.
//	internal/seed         — one-time loader for the startup snapshot.
//	internal/registry     — immutable instrument/factor/news catalog (C1).
//	internal/ledger       — per-user cash, FIFO lots, realized P&L (C2).
//	internal/book         — central limit order book, price-time matching (C3).
//	internal/risk         — pre-trade risk gate (C4).
//	internal/news         — scheduled news activation and decay (C5).
//	internal/priceproc    — per-symbol GBM reference price process (C6).
//	internal/bots         — market-making bots (C7).
//	internal/generator    — periodic reference-order injector (C8).
//	internal/engine       — tick orchestrator and snapshot broadcaster (C9).
//	internal/api          — HTTP + WebSocket external interface.
//	internal/metrics      — Prometheus counters and gauges, served at /metrics.
package main

import (
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradesim/internal/api"
	"tradesim/internal/book"
	"tradesim/internal/bots"
	"tradesim/internal/config"
	"tradesim/internal/engine"
	"tradesim/internal/generator"
	"tradesim/internal/ledger"
	"tradesim/internal/metrics"
	"tradesim/internal/news"
	"tradesim/internal/priceproc"
	"tradesim/internal/registry"
	"tradesim/internal/risk"
	"tradesim/internal/seed"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("SIM_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	snap, err := seed.Load(cfg.Seed.Path)
	if err != nil {
		logger.Error("failed to load seed snapshot", "error", err, "path", cfg.Seed.Path)
		os.Exit(1)
	}

	reg := registry.New(snap)
	symbols := reg.Symbols()

	led := ledger.New(cfg.Risk.StartingCash)
	ob := book.New(led, symbols)
	riskGate := risk.New(reg, led, cfg.Risk)

	randSeed := cfg.Simulation.RandSeed
	if randSeed == 0 {
		randSeed = time.Now().UnixNano()
	}
	newsEngine := news.New(reg, rand.New(rand.NewSource(randSeed)), cfg.News.BucketSizeMs)
	sim := priceproc.New(reg, rand.New(rand.NewSource(randSeed+1)))
	botMgr := bots.New(reg, ob, cfg.Bots, rand.New(rand.NewSource(randSeed+2)))
	gen := generator.New(reg, ob, sim, cfg.Generator.UserID)

	eng := engine.New(cfg.Simulation, reg, ob, newsEngine, sim, botMgr, gen, logger)

	var metricsHandler http.Handler
	if cfg.Server.MetricsEnabled {
		metricsHandler = metrics.Handler()
	}

	srv := api.NewServer(cfg.Server, reg, ob, led, riskGate, newsEngine, eng, metricsHandler, logger)

	eng.Start()
	logger.Info("simulation engine started",
		"symbols", symbols,
		"news_tick_hz", cfg.Simulation.NewsTickHz,
		"price_tick_hz", cfg.Simulation.PriceTickHz,
		"bot_refresh_hz", cfg.Simulation.BotRefreshHz,
	)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("api server failed", "error", err)
		}
	}()
	logger.Info("api server started", "addr", cfg.Server.Addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if err := srv.Stop(); err != nil {
		logger.Error("failed to stop api server", "error", err)
	}
	eng.Stop()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
