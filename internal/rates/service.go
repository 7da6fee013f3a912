package rates

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rickgao/ratehub/internal/connection"
	"github.com/rickgao/ratehub/internal/metrics"
	"github.com/rickgao/ratehub/internal/model"
	"github.com/rickgao/ratehub/internal/router"
)

// Config holds RateSnapshotService configuration.
type Config struct {
	Pairs             []FxPairSpec
	TTL               time.Duration // snapshot age after which it is refreshed and reported stale
	LiveWindow        time.Duration // push tick recency required for live=true
	ReferenceCurrency string        // cross-rate pivot for derivable pairs
	GoldSymbol        string        // vendor symbol for the spot ounce price
	RefreshTimeout    time.Duration // bound on one shared REST refresh
	Feed              connection.FeedConfig
}

// DefaultConfig returns sensible defaults. Feed.Client.URL and APIKey must be set.
func DefaultConfig() Config {
	return Config{
		Pairs:             DefaultPairs(),
		TTL:               45 * time.Second,
		LiveWindow:        30 * time.Second,
		ReferenceCurrency: "USD",
		GoldSymbol:        "XAU/USD",
		RefreshTimeout:    35 * time.Second,
		Feed: connection.FeedConfig{
			Name:    "rates",
			Client:  connection.DefaultClientConfig(),
			Backoff: connection.DefaultBackoffConfig(),
		},
	}
}

// RateSource is the REST side of the vendor.
type RateSource interface {
	PairRate(ctx context.Context, base, quote string) (float64, error)
	Quote(ctx context.Context, symbol string) (float64, error)
}

// Upstream is the push connection the service drives.
type Upstream interface {
	Connect()
	Send(msg any) error
	IsConnected() bool
	Stop(ctx context.Context) error
}

// SnapshotLoader provides a previously persisted snapshot for warm start.
type SnapshotLoader interface {
	Load(ctx context.Context) (*model.Snapshot, error)
}

// Option configures a Service.
type Option func(*Service)

// WithUpstream replaces the push connection the service would otherwise dial.
func WithUpstream(u Upstream) Option {
	return func(s *Service) {
		s.feed = u
	}
}

// WithSeed sets the store the current snapshot is seeded from at Start.
func WithSeed(l SnapshotLoader) Option {
	return func(s *Service) {
		s.seed = l
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// pushTarget is the payload field a push symbol writes to.
type pushTarget struct {
	pair FxPairSpec
	gold bool
}

// Service is the RateSnapshotService.
type Service struct {
	cfg       Config
	source    RateSource
	logger    *slog.Logger
	available bool

	feed    Upstream
	seed    SnapshotLoader
	now     func() time.Time
	keys    []string
	targets map[string]pushTarget
	symbols []string

	current atomic.Pointer[model.Snapshot]
	swapMu  sync.Mutex // serializes copy-modify-swap
	flight  singleflight.Group

	listeners *router.Listeners[model.RatesView]
}

// New creates a Service. The service is unavailable when cfg.Feed.Client.APIKey
// is empty; EnsureSnapshot then fails with ErrNotConfigured and nothing is dialed.
func New(cfg Config, source RateSource, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "rates")

	s := &Service{
		cfg:       cfg,
		source:    source,
		logger:    logger,
		available: cfg.Feed.Client.APIKey != "",
		now:       time.Now,
		keys:      pairKeys(cfg.Pairs),
		targets:   make(map[string]pushTarget, len(cfg.Pairs)+1),
		listeners: router.NewListeners[model.RatesView]("rates", logger),
	}

	for _, p := range cfg.Pairs {
		sym := router.NormalizeSymbol(p.Symbol())
		s.targets[sym] = pushTarget{pair: p}
		s.symbols = append(s.symbols, sym)
	}
	if cfg.GoldSymbol != "" {
		sym := router.NormalizeSymbol(cfg.GoldSymbol)
		s.targets[sym] = pushTarget{gold: true}
		s.symbols = append(s.symbols, sym)
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.feed == nil {
		s.feed = connection.NewFeed(cfg.Feed, s, logger)
	}

	return s
}

// Available reports whether an upstream credential is configured.
func (s *Service) Available() bool {
	return s.available
}

// Start seeds the snapshot from the store, if any, and opens the push feed.
func (s *Service) Start(ctx context.Context) error {
	if s.seed != nil {
		s.loadSeed(ctx)
	}
	if !s.available {
		s.logger.Warn("no upstream credential, rates unavailable")
		return nil
	}
	s.feed.Connect()
	s.logger.Info("rate snapshot service started", "pairs", len(s.cfg.Pairs), "symbols", len(s.symbols))
	return nil
}

// Stop closes the push feed.
func (s *Service) Stop(ctx context.Context) error {
	return s.feed.Stop(ctx)
}

func (s *Service) loadSeed(ctx context.Context) {
	snap, err := s.seed.Load(ctx)
	if err != nil {
		s.logger.Info("no stored snapshot", "error", err)
		return
	}
	if snap == nil {
		return
	}

	// Reshape to the current pair table; the stored copy may predate it.
	payload := model.EmptyPayload(s.keys)
	for _, k := range s.keys {
		payload.FX[k] = snap.Payload.FX[k]
	}
	payload.Gold = snap.Payload.Gold
	payload.USD = snap.Payload.USD
	seeded := *snap
	seeded.Payload = payload.Clone()

	s.swapMu.Lock()
	if s.current.Load() == nil {
		s.current.Store(&seeded)
	}
	s.swapMu.Unlock()

	s.logger.Info("seeded snapshot from store", "fetched_at", snap.FetchedAt, "source", snap.Source)
}

// Snapshot returns the current snapshot, or nil before the first one.
// The returned value must not be modified.
func (s *Service) Snapshot() *model.Snapshot {
	return s.current.Load()
}

// EnsureSnapshot returns a payload no older than the TTL, refreshing over REST
// when needed. Concurrent callers share one refresh. If the refresh fails and a
// previous snapshot exists, that snapshot's payload is returned instead.
func (s *Service) EnsureSnapshot(ctx context.Context, force bool) (model.RatesPayload, error) {
	if !s.available {
		return model.RatesPayload{}, ErrNotConfigured
	}

	if snap := s.current.Load(); snap != nil && !force && s.now().Sub(snap.FetchedAt) < s.cfg.TTL {
		return snap.Payload.Clone(), nil
	}

	ch := s.flight.DoChan("refresh", func() (any, error) {
		// Detached so a caller going away does not cancel the shared fetch.
		rctx, cancel := context.WithTimeout(context.Background(), s.cfg.RefreshTimeout)
		defer cancel()

		snap, err := s.refresh(rctx)
		if err != nil {
			s.logger.Warn("rest refresh failed", "error", err)
			if s.current.Load() != nil {
				metrics.RefreshTotal.WithLabelValues("fallback").Inc()
			}
			return nil, err
		}
		s.store(func(cur *model.Snapshot) *model.Snapshot {
			if cur != nil {
				snap.LastPushAt = cur.LastPushAt
			}
			return snap
		})
		return snap, nil
	})

	select {
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(*model.Snapshot).Payload.Clone(), nil
		}
		if cached := s.current.Load(); cached != nil {
			s.logger.Info("serving cached snapshot", "fetched_at", cached.FetchedAt)
			return cached.Payload.Clone(), nil
		}
		return model.RatesPayload{}, &UpstreamError{Err: res.Err}
	case <-ctx.Done():
		if cached := s.current.Load(); cached != nil {
			return cached.Payload.Clone(), nil
		}
		return model.RatesPayload{}, ctx.Err()
	}
}

// View returns the current payload annotated with freshness metadata.
func (s *Service) View() model.RatesView {
	return s.viewOf(s.current.Load())
}

func (s *Service) viewOf(snap *model.Snapshot) model.RatesView {
	if snap == nil {
		return model.RatesView{
			RatesPayload: model.EmptyPayload(s.keys),
			Meta:         model.ViewMeta{Stale: true, Source: model.SourceCache},
		}
	}

	now := s.now()
	age := now.Sub(snap.FetchedAt)
	stale := age > s.cfg.TTL

	meta := model.ViewMeta{
		Stale:      stale,
		StaleForMs: max(0, (age - s.cfg.TTL).Milliseconds()),
		Source:     snap.Source,
		LastPushAt: snap.LastPushAt,
	}
	fetchedAt := snap.FetchedAt
	meta.FetchedAt = &fetchedAt
	if stale {
		meta.Source = model.SourceCache
	}
	if snap.LastPushAt != nil {
		meta.Live = s.feed.IsConnected() && now.Sub(*snap.LastPushAt) <= s.cfg.LiveWindow
	}

	return model.RatesView{RatesPayload: snap.Payload.Clone(), Meta: meta}
}

// OnUpdate registers fn to receive the view after every snapshot replacement.
// fn runs synchronously on the updating goroutine; a panic in fn is recovered.
func (s *Service) OnUpdate(fn func(model.RatesView)) (remove func()) {
	return s.listeners.Add(fn)
}

// store swaps in the snapshot built from the current one and notifies listeners.
// build returning nil leaves the current snapshot in place.
func (s *Service) store(build func(cur *model.Snapshot) *model.Snapshot) bool {
	s.swapMu.Lock()
	next := build(s.current.Load())
	if next == nil {
		s.swapMu.Unlock()
		return false
	}
	s.current.Store(next)
	s.swapMu.Unlock()

	s.listeners.Emit(s.viewOf(next))
	return true
}

// OnOpen subscribes the full fixed symbol set. It runs on every connect.
func (s *Service) OnOpen() {
	msg := connection.ControlMessage{
		Event:   connection.EventSubscribe,
		Symbols: strings.Join(s.symbols, ","),
	}
	if err := s.feed.Send(msg); err != nil {
		s.logger.Warn("subscribe failed", "error", err)
		return
	}
	s.logger.Info("subscribed push symbols", "symbols", msg.Symbols)
}

// OnClose is called when the push connection is lost; the feed reconnects on its own.
func (s *Service) OnClose(err error) {
	s.logger.Debug("push connection closed", "error", err)
}

// OnMessage applies every tick in a push frame.
func (s *Service) OnMessage(msg connection.TimestampedMessage) {
	ticks, err := router.ParseTicks(msg.Data, msg.ReceivedAt)
	if err != nil {
		metrics.ParseErrors.WithLabelValues("rates").Inc()
		s.logger.Debug("dropping push frame", "error", err)
		return
	}
	for _, t := range ticks {
		s.Ingest(t)
	}
}

// Ingest applies one tick. It reports whether the snapshot changed; ticks for
// unmapped symbols, and ticks arriving before the first snapshot, are ignored.
func (s *Service) Ingest(t model.Tick) bool {
	target, ok := s.targets[router.NormalizeSymbol(t.Symbol)]
	if !ok {
		return false
	}
	metrics.TicksReceived.WithLabelValues("rates").Inc()

	return s.store(func(cur *model.Snapshot) *model.Snapshot {
		if cur == nil {
			return nil
		}

		now := s.now()
		next := &model.Snapshot{
			Payload:    cur.Payload.Clone(),
			FetchedAt:  cur.FetchedAt,
			Source:     model.SourcePush,
			LastPushAt: &now,
			Inputs:     cur.Inputs,
		}

		price := t.Price
		recompute := target.gold
		if target.gold {
			next.Inputs.OunceUSD = &price
		} else {
			key := target.pair.Key()
			next.Payload.FX[key] = floatPtr(roundPrice(price, target.pair.Decimals))
			if key == KeyUSDTRY {
				next.Inputs.USDTRY = &price
				next.Payload.USD.TRY = floatPtr(*next.Payload.FX[key])
				recompute = true
			}
		}
		if recompute {
			next.Payload.Gold = ComputeGold(next.Inputs)
		}
		return next
	})
}
