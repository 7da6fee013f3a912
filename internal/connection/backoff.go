package connection

import (
	"math"
	"time"
)

// BackoffConfig configures reconnect delays.
type BackoffConfig struct {
	Base   time.Duration
	Factor float64
	Max    time.Duration
}

// DefaultBackoffConfig returns the reconnect schedule: 750ms, ×1.5, capped at 25s.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Base:   750 * time.Millisecond,
		Factor: 1.5,
		Max:    25 * time.Second,
	}
}

// Backoff produces exponentially growing delays for consecutive failures.
// It is not safe for concurrent use; Feed guards it with its mutex.
type Backoff struct {
	cfg      BackoffConfig
	failures int
}

// NewBackoff creates a Backoff at its base delay.
func NewBackoff(cfg BackoffConfig) *Backoff {
	if cfg.Factor < 1 {
		cfg.Factor = 1
	}
	if cfg.Max < cfg.Base {
		cfg.Max = cfg.Base
	}
	return &Backoff{cfg: cfg}
}

// Next returns the delay for the current failure count and records one more failure.
// Delays are truncated to whole milliseconds.
func (b *Backoff) Next() time.Duration {
	d := float64(b.cfg.Base) * math.Pow(b.cfg.Factor, float64(b.failures))
	if d >= float64(b.cfg.Max) {
		return b.cfg.Max
	}
	b.failures++
	return time.Duration(d).Truncate(time.Millisecond)
}

// Reset returns the next delay to the base value.
func (b *Backoff) Reset() {
	b.failures = 0
}
