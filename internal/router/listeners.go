package router

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rickgao/ratehub/internal/metrics"
)

// Listener receives values from a Listeners set.
type Listener[T any] func(T)

type entry[T any] struct {
	id uuid.UUID
	fn Listener[T]
}

// Listeners is a set of callbacks with synchronous, per-listener isolated dispatch.
type Listeners[T any] struct {
	name   string
	logger *slog.Logger

	mu      sync.RWMutex
	entries []entry[T]
}

// NewListeners creates an empty set. name labels log lines and metrics.
func NewListeners[T any](name string, logger *slog.Logger) *Listeners[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listeners[T]{name: name, logger: logger}
}

// Add registers fn and returns a function that removes it. The remove function is
// safe to call more than once.
func (l *Listeners[T]) Add(fn Listener[T]) (remove func()) {
	id := uuid.New()

	l.mu.Lock()
	l.entries = append(l.entries, entry[T]{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *Listeners[T]) remove(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered listeners.
func (l *Listeners[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Emit delivers v to every listener registered at the time of the call, in
// registration order. It returns the number of listeners that panicked.
func (l *Listeners[T]) Emit(v T) int {
	l.mu.RLock()
	entries := l.entries
	l.mu.RUnlock()

	failed := 0
	for _, e := range entries {
		if !l.call(e, v) {
			failed++
		}
	}
	return failed
}

// call runs one listener and recovers a panic.
func (l *Listeners[T]) call(e entry[T], v T) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			metrics.ListenerPanics.WithLabelValues(l.name).Inc()
			l.logger.Error("listener panicked",
				"listeners", l.name,
				"listener_id", e.id,
				"panic", r,
			)
		}
	}()
	e.fn(v)
	return true
}
