package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/ratehub/internal/model"
)

type recordingSaver struct {
	mu    sync.Mutex
	saved []*model.Snapshot
	err   error
}

func (s *recordingSaver) Save(ctx context.Context, snap *model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, snap)
	return nil
}

func (s *recordingSaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func TestWriter_CoalescesToNewest(t *testing.T) {
	saver := &recordingSaver{}
	w := NewWriter(saver, time.Hour, nil)

	w.Offer(testSnapshot(31))
	w.Offer(testSnapshot(32))
	w.Offer(nil)
	w.flush(context.Background())
	w.flush(context.Background())

	if saver.count() != 1 {
		t.Fatalf("saves = %d, want 1", saver.count())
	}
	if v := saver.saved[0].Payload.FX["USD_TRY"]; *v != 32 {
		t.Errorf("saved USD_TRY = %v, want 32", *v)
	}

	st := w.Stats()
	if st.Offered != 2 || st.Flushes != 1 || st.Errors != 0 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestWriter_RetriesFailedSave(t *testing.T) {
	saver := &recordingSaver{err: errors.New("connection refused")}
	w := NewWriter(saver, time.Hour, nil)

	w.Offer(testSnapshot(32))
	w.flush(context.Background())
	if w.Stats().Errors != 1 {
		t.Fatalf("Errors = %d, want 1", w.Stats().Errors)
	}

	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()
	w.flush(context.Background())

	if saver.count() != 1 {
		t.Errorf("saves = %d, want 1 after retry", saver.count())
	}
}

func TestWriter_Lifecycle(t *testing.T) {
	saver := &recordingSaver{}
	w := NewWriter(saver, 10*time.Millisecond, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	w.Offer(testSnapshot(32))
	deadline := time.Now().Add(2 * time.Second)
	for saver.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if saver.count() != 1 {
		t.Fatalf("saves = %d, want 1 from the flush loop", saver.count())
	}

	w.Offer(testSnapshot(33))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if saver.count() < 2 {
		t.Errorf("saves = %d, want final flush on Stop", saver.count())
	}
}
