package router

import (
	"sync"
	"testing"
)

func TestListeners_EmitInOrder(t *testing.T) {
	l := NewListeners[int]("test", nil)

	var got []string
	l.Add(func(v int) { got = append(got, "a") })
	l.Add(func(v int) { got = append(got, "b") })

	if failed := l.Emit(1); failed != 0 {
		t.Errorf("failed = %d, want 0", failed)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("delivery order = %v, want [a b]", got)
	}
}

func TestListeners_PanicIsolated(t *testing.T) {
	l := NewListeners[string]("test", nil)

	var before, after []string
	l.Add(func(v string) { before = append(before, v) })
	l.Add(func(v string) { panic("boom") })
	l.Add(func(v string) { after = append(after, v) })

	failed := l.Emit("tick")

	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
	if len(before) != 1 || len(after) != 1 {
		t.Errorf("before = %v, after = %v, want one delivery each", before, after)
	}
}

func TestListeners_Remove(t *testing.T) {
	l := NewListeners[int]("test", nil)

	calls := 0
	remove := l.Add(func(int) { calls++ })
	l.Add(func(int) {})

	remove()
	remove() // second call is a no-op

	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}

	l.Emit(1)
	if calls != 0 {
		t.Errorf("removed listener called %d times", calls)
	}
}

func TestListeners_RemoveDuringEmit(t *testing.T) {
	l := NewListeners[int]("test", nil)

	var removeSecond func()
	secondCalls := 0
	l.Add(func(int) { removeSecond() })
	removeSecond = l.Add(func(int) { secondCalls++ })

	// The snapshot taken at Emit time still includes the second listener.
	l.Emit(1)
	if secondCalls != 1 {
		t.Errorf("secondCalls = %d, want 1", secondCalls)
	}

	l.Emit(2)
	if secondCalls != 1 {
		t.Errorf("secondCalls = %d after removal, want 1", secondCalls)
	}
}

func TestListeners_Concurrent(t *testing.T) {
	l := NewListeners[int]("test", nil)

	var mu sync.Mutex
	total := 0
	l.Add(func(v int) {
		mu.Lock()
		total += v
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			l.Emit(1)
		}()
		go func() {
			defer wg.Done()
			remove := l.Add(func(int) {})
			remove()
		}()
	}
	wg.Wait()

	if total != 50 {
		t.Errorf("total = %d, want 50", total)
	}
}
