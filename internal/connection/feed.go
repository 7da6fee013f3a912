package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/ratehub/internal/metrics"
)

// Handler receives lifecycle callbacks from a Feed.
//
// OnOpen runs on every successful connect, before any frame of the new connection
// is delivered; it is where subscriptions are (re-)sent. OnMessage runs on the
// feed's read goroutine, one frame at a time. OnClose runs once per lost
// connection, after the state has moved to disconnected.
type Handler interface {
	OnOpen()
	OnMessage(msg TimestampedMessage)
	OnClose(err error)
}

// ClientFactory creates the Client for one connection attempt.
type ClientFactory func(cfg ClientConfig, logger *slog.Logger) Client

// Feed maintains one push connection, reconnecting until stopped.
type Feed struct {
	cfg       FeedConfig
	handler   Handler
	logger    *slog.Logger
	newClient ClientFactory

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	state   State
	client  Client
	session uuid.UUID
	backoff *Backoff
	timer   *time.Timer
	stopped bool
}

// NewFeed creates a disconnected Feed. Nothing is dialed until Connect.
func NewFeed(cfg FeedConfig, handler Handler, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Feed{
		cfg:       cfg,
		handler:   handler,
		logger:    logger.With("feed", cfg.Name),
		newClient: NewClient,
		ctx:       ctx,
		cancel:    cancel,
		backoff:   NewBackoff(cfg.Backoff),
	}
}

// Connect starts a connection attempt unless one is connected, in progress, or
// already scheduled. It does not block.
func (f *Feed) Connect() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped || f.state != StateDisconnected || f.timer != nil {
		return
	}
	f.setState(StateConnecting)

	f.wg.Add(1)
	go f.dial()
}

// State returns the current lifecycle state.
func (f *Feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// IsConnected reports whether the feed is open.
func (f *Feed) IsConnected() bool {
	return f.State() == StateConnected
}

// Send encodes msg as JSON and writes it to the open connection.
func (f *Feed) Send(msg any) error {
	f.mu.Lock()
	c := f.client
	connected := f.state == StateConnected
	f.mu.Unlock()

	if !connected || c == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode control message: %w", err)
	}
	return c.Send(data)
}

// Stop closes the connection and cancels any pending reconnect.
func (f *Feed) Stop(ctx context.Context) error {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return nil
	}
	f.stopped = true
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	c := f.client
	f.client = nil
	f.setState(StateDisconnected)
	f.mu.Unlock()

	f.cancel()
	if c != nil {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		f.logger.Info("push feed stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dial performs one connection attempt.
func (f *Feed) dial() {
	defer f.wg.Done()

	c := f.newClient(f.cfg.Client, f.logger)
	if err := c.Connect(f.ctx); err != nil {
		c.Close()
		f.logger.Warn("push connect failed", "error", err)
		f.mu.Lock()
		f.setState(StateDisconnected)
		f.scheduleReconnectLocked()
		f.mu.Unlock()
		return
	}

	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		c.Close()
		return
	}
	f.client = c
	f.session = uuid.New()
	f.backoff.Reset()
	f.setState(StateConnected)
	session := f.session
	f.mu.Unlock()

	f.logger.Info("push feed connected", "session", session)

	f.handler.OnOpen()

	f.wg.Add(1)
	go f.readLoop(c, session)
}

// readLoop forwards frames to the handler until the connection ends.
func (f *Feed) readLoop(c Client, session uuid.UUID) {
	defer f.wg.Done()

	for {
		select {
		case <-f.ctx.Done():
			return

		case err := <-c.Errors():
			f.drop(c, session, err)
			return

		case msg := <-c.Messages():
			f.handler.OnMessage(msg)
		}
	}
}

// drop tears down a failed connection and schedules a reconnect.
func (f *Feed) drop(c Client, session uuid.UUID, err error) {
	f.mu.Lock()
	if f.client != c {
		f.mu.Unlock()
		return
	}
	f.client = nil
	f.setState(StateDisconnected)
	f.logger.Warn("push connection lost", "session", session, "error", err)
	f.scheduleReconnectLocked()
	f.mu.Unlock()

	c.Close()
	f.handler.OnClose(err)
}

// scheduleReconnectLocked arms the reconnect timer unless one is already
// pending. f.mu must be held.
func (f *Feed) scheduleReconnectLocked() {
	if f.stopped || f.timer != nil {
		return
	}

	delay := f.backoff.Next()
	metrics.Reconnects.WithLabelValues(f.cfg.Name).Inc()
	f.logger.Info("push reconnect scheduled", "delay", delay)

	f.timer = time.AfterFunc(delay, func() {
		f.mu.Lock()
		f.timer = nil
		f.mu.Unlock()
		f.Connect()
	})
}

// setState must be called with f.mu held.
func (f *Feed) setState(s State) {
	f.state = s
	metrics.ConnectionState.WithLabelValues(f.cfg.Name).Set(float64(s))
}
