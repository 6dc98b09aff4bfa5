package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakePurger struct {
	calls  atomic.Int32
	before time.Time
	n      int64
	err    error
}

func (f *fakePurger) PurgeSessions(ctx context.Context, before time.Time) (int64, error) {
	f.calls.Add(1)
	f.before = before
	return f.n, f.err
}

func TestSessionSweeperRunOnce(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &fakePurger{n: 3}
	w := NewSessionSweeper(p, 0)
	w.now = func() time.Time { return now }

	if got := w.RunOnce(context.Background()); got != 3 {
		t.Fatalf("expected 3 purged, got %d", got)
	}
	if !p.before.Equal(now) {
		t.Fatalf("expected cutoff %v, got %v", now, p.before)
	}
	if w.interval != time.Hour {
		t.Fatalf("expected default interval 1h, got %v", w.interval)
	}

	p.err = errors.New("db down")
	if got := w.RunOnce(context.Background()); got != 0 {
		t.Fatalf("expected 0 on error, got %d", got)
	}
}

func TestSessionSweeperStartStop(t *testing.T) {
	p := &fakePurger{}
	w := NewSessionSweeper(p, time.Hour)
	w.Start()
	w.Stop()
	w.Stop()
	if p.calls.Load() != 1 {
		t.Fatalf("expected one immediate run, got %d", p.calls.Load())
	}
}
