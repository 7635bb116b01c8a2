package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"tradesim/internal/book"
	"tradesim/internal/config"
	"tradesim/internal/engine"
	"tradesim/internal/ledger"
	"tradesim/internal/news"
	"tradesim/internal/registry"
	"tradesim/internal/risk"
)

// Server runs the HTTP + WebSocket external interface over the
// simulation core.
type Server struct {
	cfg      config.ServerConfig
	engine   *engine.Engine
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger
}

// NewServer wires every route onto a stdlib mux. metricsHandler may be
// nil; when set, it's mounted at /metrics.
func NewServer(
	cfg config.ServerConfig,
	reg *registry.Registry,
	b *book.Book,
	led *ledger.Ledger,
	riskGate *risk.Gate,
	newsEngine *news.Engine,
	eng *engine.Engine,
	metricsHandler http.Handler,
	logger *slog.Logger,
) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(reg, b, led, riskGate, newsEngine, eng, cfg, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/orders", handlers.HandleOrders)
	mux.HandleFunc("/orderbook/", handlers.HandleOrderbook)
	mux.HandleFunc("/portfolio", handlers.HandlePortfolio)
	mux.HandleFunc("/admin/news", handlers.HandleAdminNews)
	mux.HandleFunc("/news/status", handlers.HandleNewsStatus)
	mux.HandleFunc("/news/all", handlers.HandleNewsAll)
	mux.HandleFunc("/news/candidates", handlers.HandleNewsCandidates)
	mux.HandleFunc("/news/active", handlers.HandleNewsActive)
	mux.HandleFunc("/ws/market", handlers.HandleWebSocket)

	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		engine:   eng,
		hub:      hub,
		handlers: handlers,
		server:   server,
		logger:   logger.With("component", "api-server"),
	}
}

// Start launches the WS hub, the market-snapshot consumer, and the HTTP
// server. Blocks until the server is stopped.
func (s *Server) Start() error {
	go s.hub.Run()
	go s.consumeMarketSnapshots()

	s.logger.Info("api server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop() error {
	s.logger.Info("stopping api server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// consumeMarketSnapshots subscribes to the engine's broadcaster and fans
// each snapshot out to every connected WebSocket client.
func (s *Server) consumeMarketSnapshots() {
	ch := s.engine.Subscribe()
	defer s.engine.Unsubscribe(ch)

	for snap := range ch {
		s.hub.BroadcastSnapshot(snap)
	}
}
