package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/ratehub/internal/model"
	"github.com/rickgao/ratehub/internal/stream"
)

// RatesService is the snapshot side of the bridge.
type RatesService interface {
	Available() bool
	EnsureSnapshot(ctx context.Context, force bool) (model.RatesPayload, error)
	View() model.RatesView
	OnUpdate(fn func(model.RatesView)) (remove func())
}

// StreamService is the per-symbol side of the bridge.
type StreamService interface {
	Available() bool
	Subscribe(symbol string, fn func(model.Tick)) (unsubscribe func())
	Stats() stream.Stats
}

// Config holds server settings.
type Config struct {
	Port              int
	KeepaliveInterval time.Duration
	MaxStreamDuration time.Duration
	MetricsPath       string
}

// Server serves the HTTP bridge.
type Server struct {
	cfg     Config
	rates   RatesService
	streams StreamService
	logger  *slog.Logger

	handler    http.Handler
	httpServer *http.Server
}

// NewServer creates a Server and registers its routes.
func NewServer(cfg Config, rates RatesService, streams StreamService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		rates:   rates,
		streams: streams,
		logger:  logger.With("component", "http"),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/rates", s.handleRates)
	mux.HandleFunc("GET /api/rates/stream", s.handleRatesStream)
	mux.HandleFunc("GET /api/stream/{symbol...}", s.handleSymbolStream)

	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	mux.Handle("GET "+metricsPath, promhttp.Handler())

	s.handler = mux
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the route handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
