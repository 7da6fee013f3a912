package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/ratehub/internal/model"
)

// Refresher is the snapshot service the poller keeps warm.
type Refresher interface {
	EnsureSnapshot(ctx context.Context, force bool) (model.RatesPayload, error)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll interval; 0 disables the poller
	Timeout  time.Duration // Per-poll timeout (default: 40s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
		Timeout:  40 * time.Second,
	}
}

// Stats counts poll outcomes.
type Stats struct {
	Polls  int64
	Errors int64
}

// Poller periodically calls EnsureSnapshot.
type Poller struct {
	cfg       Config
	refresher Refresher
	logger    *slog.Logger

	polls  atomic.Int64
	errors atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, refresher Refresher, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:       cfg,
		refresher: refresher,
		logger:    logger.With("component", "poller"),
	}
}

// Start begins the polling loop. It is a no-op when the interval is zero.
func (p *Poller) Start(ctx context.Context) error {
	if p.cfg.Interval <= 0 {
		p.logger.Info("keep-warm poller disabled")
		return nil
	}

	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("keep-warm poller started", "interval", p.cfg.Interval)
	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("keep-warm poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns poll counters.
func (p *Poller) Stats() Stats {
	return Stats{Polls: p.polls.Load(), Errors: p.errors.Load()}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.poll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

// poll runs one EnsureSnapshot call.
func (p *Poller) poll() {
	ctx := p.ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(p.ctx, p.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	p.polls.Add(1)

	if _, err := p.refresher.EnsureSnapshot(ctx, false); err != nil {
		if errors.Is(err, context.Canceled) && p.ctx.Err() != nil {
			return
		}
		p.errors.Add(1)
		p.logger.Warn("keep-warm poll failed", "error", err)
		return
	}

	p.logger.Debug("keep-warm poll complete", "duration", time.Since(start))
}
