package rates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/rickgao/ratehub/internal/metrics"
	"github.com/rickgao/ratehub/internal/model"
)

// errNoDerivation is returned when no route produces a rate for a pair.
var errNoDerivation = errors.New("no direct, cross or inverse rate")

// rateMemo fetches each vendor pair at most once for the lifetime of one refresh.
type rateMemo struct {
	source RateSource
	group  singleflight.Group

	mu   sync.Mutex
	done map[string]memoResult
}

type memoResult struct {
	price float64
	err   error
}

func newRateMemo(source RateSource) *rateMemo {
	return &rateMemo{source: source, done: make(map[string]memoResult)}
}

func (m *rateMemo) lookup(key string) (memoResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.done[key]
	return r, ok
}

// rate returns base/quote, calling the vendor only on the first request for it.
func (m *rateMemo) rate(ctx context.Context, base, quote string) (float64, error) {
	key := base + "/" + quote
	if r, ok := m.lookup(key); ok {
		return r.price, r.err
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		if r, ok := m.lookup(key); ok {
			return r.price, r.err
		}
		price, err := m.source.PairRate(ctx, base, quote)
		m.mu.Lock()
		m.done[key] = memoResult{price: price, err: err}
		m.mu.Unlock()
		return price, err
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// leg returns from→to, inverting to→from when the direct pair is unavailable.
func (m *rateMemo) leg(ctx context.Context, from, to string) (float64, error) {
	if v, err := m.rate(ctx, from, to); err == nil {
		return v, nil
	}
	inv, err := m.rate(ctx, to, from)
	if err != nil {
		return 0, err
	}
	if inv <= 0 {
		return 0, errNoDerivation
	}
	return 1 / inv, nil
}

// resolvePair walks the derivation chain for p: direct, cross via ref, inverse.
func resolvePair(ctx context.Context, m *rateMemo, p FxPairSpec, ref string) (float64, error) {
	direct, err := m.rate(ctx, p.Base, p.Quote)
	if err == nil {
		return direct, nil
	}
	if !p.Derivable {
		return 0, err
	}

	if ref != "" && p.Base != ref && p.Quote != ref {
		toRef, errA := m.leg(ctx, p.Base, ref)
		fromRef, errB := m.leg(ctx, ref, p.Quote)
		if errA == nil && errB == nil {
			return toRef * fromRef, nil
		}
	}

	if inv, errInv := m.rate(ctx, p.Quote, p.Base); errInv == nil && inv > 0 {
		return 1 / inv, nil
	}

	return 0, fmt.Errorf("%w: %w", errNoDerivation, err)
}

// refresh fetches every pair and the gold quote and builds a new REST snapshot.
// Optional pairs and the gold quote degrade to null; a missing mandatory pair
// fails the whole refresh.
func (s *Service) refresh(ctx context.Context) (*model.Snapshot, error) {
	start := time.Now()
	memo := newRateMemo(s.source)

	var (
		mu    sync.Mutex
		raw   = make(map[string]float64, len(s.cfg.Pairs))
		ounce *float64
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range s.cfg.Pairs {
		g.Go(func() error {
			v, err := resolvePair(gctx, memo, p, s.cfg.ReferenceCurrency)
			if err != nil {
				if p.Optional {
					s.logger.Debug("optional pair unavailable", "pair", p.Key(), "error", err)
					return nil
				}
				return fmt.Errorf("pair %s: %w", p.Key(), err)
			}
			mu.Lock()
			raw[p.Key()] = v
			mu.Unlock()
			return nil
		})
	}
	g.Go(func() error {
		v, err := s.source.Quote(gctx, s.cfg.GoldSymbol)
		if err != nil {
			s.logger.Warn("gold quote unavailable", "symbol", s.cfg.GoldSymbol, "error", err)
			return nil
		}
		mu.Lock()
		ounce = &v
		mu.Unlock()
		return nil
	})

	err := g.Wait()
	metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RefreshTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.RefreshTotal.WithLabelValues("ok").Inc()

	payload := model.EmptyPayload(pairKeys(s.cfg.Pairs))
	inputs := model.GoldInputs{OunceUSD: ounce}
	for _, p := range s.cfg.Pairs {
		v, ok := raw[p.Key()]
		if !ok {
			continue
		}
		payload.FX[p.Key()] = floatPtr(roundPrice(v, p.Decimals))
		if p.Key() == KeyUSDTRY {
			inputs.USDTRY = floatPtr(v)
			payload.USD.TRY = floatPtr(*payload.FX[p.Key()])
		}
	}
	payload.Gold = ComputeGold(inputs)

	return &model.Snapshot{
		Payload:   payload,
		FetchedAt: s.now(),
		Source:    model.SourceREST,
		Inputs:    inputs,
	}, nil
}
