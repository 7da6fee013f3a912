package stream

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/rickgao/ratehub/internal/connection"
	"github.com/rickgao/ratehub/internal/metrics"
	"github.com/rickgao/ratehub/internal/model"
	"github.com/rickgao/ratehub/internal/router"
)

// Upstream is the push connection the multiplexer drives.
type Upstream interface {
	Connect()
	Send(msg any) error
	State() connection.State
	Stop(ctx context.Context) error
}

// Option configures a Multiplexer.
type Option func(*Multiplexer)

// WithUpstream replaces the push connection the multiplexer would otherwise dial.
func WithUpstream(u Upstream) Option {
	return func(m *Multiplexer) {
		m.feed = u
	}
}

// Stats is a point-in-time summary of the registry.
type Stats struct {
	Available  bool   `json:"available"`
	Connection string `json:"connection"`
	Symbols    int    `json:"symbols"`    // symbols with at least one listener
	Subscribed int    `json:"subscribed"` // symbols subscribed upstream
	Listeners  int    `json:"listeners"`
}

// Multiplexer is the StreamMultiplexer.
type Multiplexer struct {
	logger    *slog.Logger
	available bool
	feed      Upstream

	mu         sync.Mutex
	open       bool
	symbols    map[string]*router.Listeners[model.Tick]
	subscribed map[string]bool
}

// New creates a Multiplexer. Without a credential in cfg.Client.APIKey it is
// permanently unavailable: Subscribe registers listeners but nothing is dialed.
func New(cfg connection.FeedConfig, logger *slog.Logger, opts ...Option) *Multiplexer {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "stream")

	m := &Multiplexer{
		logger:     logger,
		available:  cfg.Client.APIKey != "",
		symbols:    make(map[string]*router.Listeners[model.Tick]),
		subscribed: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.feed == nil {
		m.feed = connection.NewFeed(cfg, m, logger)
	}
	return m
}

// Available reports whether an upstream credential is configured.
func (m *Multiplexer) Available() bool {
	return m.available
}

// Subscribe registers fn for ticks of symbol and returns a function that
// removes it. The returned function is safe to call more than once.
func (m *Multiplexer) Subscribe(symbol string, fn func(model.Tick)) (unsubscribe func()) {
	sym := router.NormalizeSymbol(symbol)
	if sym == "" {
		m.logger.Warn("ignoring subscribe for empty symbol", "raw", symbol)
		return func() {}
	}

	m.mu.Lock()
	set, ok := m.symbols[sym]
	if !ok {
		set = router.NewListeners[model.Tick]("stream", m.logger)
		m.symbols[sym] = set
		metrics.StreamSymbols.Set(float64(len(m.symbols)))
	}
	remove := set.Add(fn)
	metrics.StreamListeners.Inc()

	connect := false
	if m.available && !m.subscribed[sym] {
		if m.open {
			m.sendLocked(connection.EventSubscribe, []string{sym})
		} else {
			connect = true
		}
	}
	m.mu.Unlock()

	if connect {
		m.feed.Connect()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			remove()
			metrics.StreamListeners.Dec()
			m.release(sym, set)
		})
	}
}

// release drops sym once its last listener is gone.
func (m *Multiplexer) release(sym string, set *router.Listeners[model.Tick]) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.symbols[sym] != set || set.Len() > 0 {
		return
	}
	delete(m.symbols, sym)
	metrics.StreamSymbols.Set(float64(len(m.symbols)))

	if !m.subscribed[sym] {
		return
	}
	delete(m.subscribed, sym)
	if m.open {
		m.sendLocked(connection.EventUnsubscribe, []string{sym})
	}
}

// sendLocked writes a control message and updates the subscribed set.
// Unsubscribe failures are logged and otherwise ignored. m.mu must be held.
func (m *Multiplexer) sendLocked(event string, symbols []string) {
	msg := connection.ControlMessage{Event: event, Symbols: strings.Join(symbols, ",")}
	err := m.feed.Send(msg)

	if event == connection.EventSubscribe {
		if err != nil {
			m.logger.Warn("subscribe failed", "symbols", msg.Symbols, "error", err)
			return
		}
		for _, s := range symbols {
			m.subscribed[s] = true
		}
		m.logger.Debug("subscribed", "symbols", msg.Symbols)
		return
	}

	if err != nil {
		m.logger.Info("unsubscribe failed", "symbols", msg.Symbols, "error", err)
		return
	}
	m.logger.Debug("unsubscribed", "symbols", msg.Symbols)
}

// OnOpen subscribes every tracked symbol.
func (m *Multiplexer) OnOpen() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.open = true
	clear(m.subscribed)
	if len(m.symbols) == 0 {
		return
	}

	symbols := make([]string, 0, len(m.symbols))
	for s := range m.symbols {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	m.sendLocked(connection.EventSubscribe, symbols)
}

// OnClose forgets upstream subscriptions; they are re-sent on the next open.
func (m *Multiplexer) OnClose(err error) {
	m.mu.Lock()
	m.open = false
	clear(m.subscribed)
	m.mu.Unlock()

	m.logger.Debug("push connection closed", "error", err)
}

// OnMessage delivers each tick in a frame to the listeners of its symbol.
func (m *Multiplexer) OnMessage(msg connection.TimestampedMessage) {
	if !m.available {
		return
	}

	ticks, err := router.ParseTicks(msg.Data, msg.ReceivedAt)
	if err != nil {
		metrics.ParseErrors.WithLabelValues("stream").Inc()
		m.logger.Debug("dropping push frame", "error", err)
		return
	}

	for _, t := range ticks {
		t.Symbol = router.NormalizeSymbol(t.Symbol)

		m.mu.Lock()
		set := m.symbols[t.Symbol]
		m.mu.Unlock()
		if set == nil {
			continue
		}

		metrics.TicksReceived.WithLabelValues("stream").Inc()
		set.Emit(t)
	}
}

// Stats returns registry counts and the connection state.
func (m *Multiplexer) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Stats{
		Available:  m.available,
		Connection: m.feed.State().String(),
		Symbols:    len(m.symbols),
		Subscribed: len(m.subscribed),
	}
	for _, set := range m.symbols {
		st.Listeners += set.Len()
	}
	return st
}

// Stop closes the push connection.
func (m *Multiplexer) Stop(ctx context.Context) error {
	return m.feed.Stop(ctx)
}
