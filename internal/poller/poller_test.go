package poller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/ratehub/internal/api"
	"github.com/rickgao/ratehub/internal/model"
	"github.com/rickgao/ratehub/internal/rates"
)

// countingRefresher counts EnsureSnapshot calls.
type countingRefresher struct {
	calls  atomic.Int32
	forced atomic.Int32
	err    error
}

func (r *countingRefresher) EnsureSnapshot(ctx context.Context, force bool) (model.RatesPayload, error) {
	r.calls.Add(1)
	if force {
		r.forced.Add(1)
	}
	return model.RatesPayload{}, r.err
}

func TestPoller_StartStop(t *testing.T) {
	r := &countingRefresher{}
	p := New(Config{Interval: 20 * time.Millisecond, Timeout: time.Second}, r, nil)

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Wait for the immediate poll plus at least one tick.
	time.Sleep(70 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := r.calls.Load(); got < 2 {
		t.Errorf("calls = %d, want >= 2", got)
	}
	if got := r.forced.Load(); got != 0 {
		t.Errorf("forced calls = %d, want 0", got)
	}
	if st := p.Stats(); st.Polls != int64(r.calls.Load()) {
		t.Errorf("Stats().Polls = %d, want %d", st.Polls, r.calls.Load())
	}
}

func TestPoller_Disabled(t *testing.T) {
	r := &countingRefresher{}
	p := New(Config{}, r, nil)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := r.calls.Load(); got != 0 {
		t.Errorf("calls = %d, want 0", got)
	}
}

func TestPoller_CountsErrors(t *testing.T) {
	r := &countingRefresher{err: errors.New("upstream down")}
	p := New(Config{Interval: time.Hour}, r, nil)
	p.ctx = context.Background()

	p.poll()
	p.poll()

	if st := p.Stats(); st.Polls != 2 || st.Errors != 2 {
		t.Errorf("Stats() = %+v, want 2 polls, 2 errors", st)
	}
}

func TestPoller_WarmsRateService(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch {
		case r.URL.Path == api.PathQuote:
			w.Write([]byte(`{"symbol":"XAU/USD","price":"2000"}`))
		case strings.HasSuffix(r.URL.Query().Get("symbol"), "/TRY"):
			w.Write([]byte(`{"rate":32}`))
		default:
			w.Write([]byte(`{"rate":1.1}`))
		}
	}))
	defer server.Close()

	cfg := rates.DefaultConfig()
	cfg.Feed.Client.APIKey = "key"
	svc := rates.New(cfg, api.NewClient(server.URL, "key"), nil, rates.WithUpstream(nopUpstream{}))

	p := New(Config{Interval: time.Hour, Timeout: 5 * time.Second}, svc, nil)
	p.ctx = context.Background()
	p.poll()
	first := hits.Load()
	p.poll()

	if first == 0 {
		t.Fatal("first poll made no REST calls")
	}
	if hits.Load() != first {
		t.Errorf("second poll within TTL made %d calls, want 0", hits.Load()-first)
	}
	if v := svc.View(); v.Gold.K24 == nil || *v.Gold.K24 != 2057 {
		t.Errorf("k24 = %v, want 2057", v.Gold.K24)
	}
}

type nopUpstream struct{}

func (nopUpstream) Connect()                       {}
func (nopUpstream) Send(any) error                 { return nil }
func (nopUpstream) IsConnected() bool              { return false }
func (nopUpstream) Stop(ctx context.Context) error { return nil }
