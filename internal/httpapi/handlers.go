package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/ratehub/internal/model"
	"github.com/rickgao/ratehub/internal/rates"
	"github.com/rickgao/ratehub/internal/stream"
	"github.com/rickgao/ratehub/internal/version"
)

type healthResponse struct {
	Status    string       `json:"status"`
	Timestamp string       `json:"timestamp"`
	Build     version.Info `json:"build"`
	Rates     ratesHealth  `json:"rates"`
	Stream    stream.Stats `json:"stream"`
}

type ratesHealth struct {
	Available bool         `json:"available"`
	Source    model.Source `json:"source"`
	Stale     bool         `json:"stale"`
	Live      bool         `json:"live"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	view := s.rates.View()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Build:     version.Get(),
		Rates: ratesHealth{
			Available: s.rates.Available(),
			Source:    view.Meta.Source,
			Stale:     view.Meta.Stale,
			Live:      view.Meta.Live,
		},
		Stream: s.streams.Stats(),
	})
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	if _, err := s.rates.EnsureSnapshot(r.Context(), false); err != nil {
		var upErr *rates.UpstreamError
		switch {
		case errors.Is(err, rates.ErrNotConfigured):
			writeError(w, http.StatusServiceUnavailable, "rates unavailable: upstream not configured")
		case errors.As(err, &upErr):
			s.logger.Warn("rates request failed", "error", err)
			writeError(w, http.StatusBadGateway, "rates upstream unavailable")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "rates refresh timed out")
		default:
			s.logger.Error("rates request failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, s.rates.View())
}

func (s *Server) handleRatesStream(w http.ResponseWriter, r *http.Request) {
	if !s.rates.Available() {
		writeError(w, http.StatusServiceUnavailable, "rates unavailable: upstream not configured")
		return
	}
	sse, ok := newSSE(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	log := s.streamLogger("rates")
	log.Debug("stream opened")
	defer log.Debug("stream closed")

	updates := make(chan model.RatesView, 1)
	remove := s.rates.OnUpdate(func(v model.RatesView) {
		offerLatest(updates, v)
	})
	defer remove()

	// Make sure a refresh is underway if the snapshot is missing or old.
	go s.warm(r.Context(), log)

	if err := sse.event("rates", s.rates.View()); err != nil {
		return
	}

	pump(r.Context(), s.cfg, sse, updates, "rates")
}

func (s *Server) handleSymbolStream(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if !s.streams.Available() {
		writeError(w, http.StatusServiceUnavailable, "stream unavailable: upstream not configured")
		return
	}
	sse, ok := newSSE(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	log := s.streamLogger("symbol").With("symbol", symbol)
	log.Debug("stream opened")
	defer log.Debug("stream closed")

	ticks := make(chan model.Tick, tickBuffer)
	unsubscribe := s.streams.Subscribe(symbol, func(t model.Tick) {
		select {
		case ticks <- t:
		default:
			// Slow client; drop rather than stall the feed.
		}
	})
	defer unsubscribe()

	if err := sse.comment("subscribed " + symbol); err != nil {
		return
	}

	pump(r.Context(), s.cfg, sse, ticks, "tick")
}

// warm triggers a refresh for a new rates stream and logs why it failed.
func (s *Server) warm(ctx context.Context, log *slog.Logger) {
	_, err := s.rates.EnsureSnapshot(ctx, false)
	if err == nil || errors.Is(err, rates.ErrNotConfigured) {
		return
	}
	log.Debug("stream refresh failed", "error", err)
}

// streamLogger tags a stream's log lines with a client id.
func (s *Server) streamLogger(kind string) *slog.Logger {
	return s.logger.With("stream", kind, "client", uuid.NewString())
}

const (
	// tickBuffer bounds queued ticks per stream client.
	tickBuffer       = 64
	defaultKeepalive = 15 * time.Second
)

// pump writes events until the client leaves or the stream reaches its
// maximum duration, with a keep-alive comment every interval.
func pump[T any](ctx context.Context, cfg Config, sse *sseWriter, ready chan T, name string) {
	interval := cfg.KeepaliveInterval
	if interval <= 0 {
		interval = defaultKeepalive
	}
	keepalive := time.NewTicker(interval)
	defer keepalive.Stop()

	var deadline <-chan time.Time
	if cfg.MaxStreamDuration > 0 {
		timer := time.NewTimer(cfg.MaxStreamDuration)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			sse.event("close", map[string]string{"reason": "max stream duration reached"})
			return
		case <-keepalive.C:
			if err := sse.comment("keepalive"); err != nil {
				return
			}
		case v := <-ready:
			if err := sse.event(name, v); err != nil {
				return
			}
		}
	}
}

// offerLatest puts v in a one-slot channel, replacing any unread value.
func offerLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
