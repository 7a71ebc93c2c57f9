package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/unitctl/internal/testutil/testlog"
)

func TestCompletionSettlesOnce(t *testing.T) {
	testlog.Start(t)
	c := NewCompletion()
	if c.Err() != nil {
		t.Fatalf("pending completion reported error")
	}
	first := errors.New("first")
	c.Complete(first)
	c.Complete(errors.New("second"))
	if err := Wait(c); !errors.Is(err, first) {
		t.Fatalf("expected first error to stick, got %v", err)
	}
}

func TestAwaitReturnsContextErrorWithoutSettling(t *testing.T) {
	testlog.Start(t)
	c := NewCompletion()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := Await(ctx, c); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	select {
	case <-c.Done():
		t.Fatalf("await must not settle the operation")
	default:
	}
	c.Complete(nil)
	if err := Await(context.Background(), c); err != nil {
		t.Fatalf("unexpected error after completion: %v", err)
	}
}

func TestAwaitPrefersCompletedOperationOverDoneContext(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 50; i++ {
		if err := Await(ctx, Completed(nil)); err != nil {
			t.Fatalf("completed op must win over cancelled ctx, got %v", err)
		}
	}
}

func TestHeadlessModes(t *testing.T) {
	testlog.Start(t)
	h := NewHeadless(func(name string) bool { return name != "missing" })

	if err := h.LoadUnit("main", Exclusive); err != nil {
		t.Fatalf("load root: %v", err)
	}
	if err := Wait(h.LoadUnitAsync("ui", Additive)); err != nil {
		t.Fatalf("load child: %v", err)
	}
	if err := h.LoadUnit("missing", Additive); !errors.Is(err, ErrUnknownUnit) {
		t.Fatalf("expected ErrUnknownUnit, got %v", err)
	}
	if h.ActiveRoot() != "main" || !h.IsLoaded("ui") {
		t.Fatalf("unexpected state active=%q loaded=%v", h.ActiveRoot(), h.Loaded())
	}

	if err := h.LoadUnit("other", Exclusive); err != nil {
		t.Fatalf("replace root: %v", err)
	}
	if h.IsLoaded("ui") || h.IsLoaded("main") {
		t.Fatalf("exclusive load kept previous units: %v", h.Loaded())
	}
	if err := Wait(h.UnloadUnitAsync("ui")); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}

func TestHeadlessPicking(t *testing.T) {
	testlog.Start(t)
	h := NewHeadless(nil)
	if err := h.SetPickable("a.unit", false); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded for closed location, got %v", err)
	}
	if err := h.OpenAdditive("a.unit"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := h.SetPickable("a.unit", false); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if h.IsPickable("a.unit") {
		t.Fatalf("expected locked location")
	}
	if err := h.SetPickable("a.unit", true); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if !h.IsPickable("a.unit") {
		t.Fatalf("expected unlocked location")
	}
}
