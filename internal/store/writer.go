package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/ratehub/internal/metrics"
	"github.com/rickgao/ratehub/internal/model"
)

// Saver persists one snapshot.
type Saver interface {
	Save(ctx context.Context, snap *model.Snapshot) error
}

// WriterStats counts flush outcomes.
type WriterStats struct {
	Offered int64
	Flushes int64
	Errors  int64
}

// Writer keeps only the newest offered snapshot and saves it on a ticker.
type Writer struct {
	saver    Saver
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending *model.Snapshot
	stats   WriterStats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWriter creates a Writer that flushes every interval.
func NewWriter(saver Saver, interval time.Duration, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Writer{
		saver:    saver,
		interval: interval,
		logger:   logger.With("component", "store_writer"),
	}
}

// Offer replaces the pending snapshot. It never blocks on I/O.
func (w *Writer) Offer(snap *model.Snapshot) {
	if snap == nil {
		return
	}
	w.mu.Lock()
	w.pending = snap
	w.stats.Offered++
	w.mu.Unlock()
}

// Start begins the flush loop.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("snapshot writer started", "flush_interval", w.interval)
	return nil
}

// Stop ends the flush loop and writes whatever is still pending.
func (w *Writer) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("snapshot writer stop timed out")
	}

	// Final flush
	w.flush(ctx)
	w.logger.Info("snapshot writer stopped")
	return nil
}

// Stats returns current counters.
func (w *Writer) Stats() WriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Writer) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush(w.ctx)
		}
	}
}

// flush saves the pending snapshot, if any. On failure it is kept for the next
// tick unless a newer one has been offered meanwhile.
func (w *Writer) flush(ctx context.Context) {
	w.mu.Lock()
	snap := w.pending
	w.pending = nil
	w.mu.Unlock()

	if snap == nil {
		return
	}

	start := time.Now()
	if err := w.saver.Save(ctx, snap); err != nil {
		metrics.StoreFlushes.WithLabelValues("error").Inc()
		w.logger.Error("snapshot save failed", "error", err)
		w.mu.Lock()
		w.stats.Errors++
		if w.pending == nil {
			w.pending = snap
		}
		w.mu.Unlock()
		return
	}

	metrics.StoreFlushes.WithLabelValues("ok").Inc()
	w.mu.Lock()
	w.stats.Flushes++
	w.mu.Unlock()

	w.logger.Debug("snapshot saved",
		"source", snap.Source,
		"fetched_at", snap.FetchedAt,
		"duration", time.Since(start),
	)
}
