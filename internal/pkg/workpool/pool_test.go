package workpool

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := New(testLogger(), 3, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	var completed atomic.Int32
	for i := 0; i < 5; i++ {
		ok := p.Submit(func(ctx context.Context) error {
			completed.Add(1)
			return nil
		})
		if !ok {
			t.Fatalf("submit %d rejected", i)
		}
	}

	p.Shutdown()

	if completed.Load() != 5 {
		t.Errorf("expected 5 completed tasks, got %d", completed.Load())
	}
	if s := p.Stats(); s.Submitted != 5 || s.Succeeded != 5 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestPool_CountsFailures(t *testing.T) {
	p := New(testLogger(), 2, 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	p.Submit(func(ctx context.Context) error { return nil })
	p.Submit(func(ctx context.Context) error { return errors.New("boom") })

	p.Shutdown()

	s := p.Stats()
	if s.Succeeded != 1 {
		t.Errorf("expected 1 success, got %d", s.Succeeded)
	}
	if s.Failed != 1 {
		t.Errorf("expected 1 failure, got %d", s.Failed)
	}
}

func TestPool_RecoversFromPanic(t *testing.T) {
	p := New(testLogger(), 1, 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	p.Submit(func(ctx context.Context) error {
		panic("intentional panic")
	})

	var executed atomic.Bool
	p.Submit(func(ctx context.Context) error {
		executed.Store(true)
		return nil
	})

	p.Shutdown()

	if s := p.Stats(); s.Panics != 1 {
		t.Errorf("expected 1 panic recorded, got %d", s.Panics)
	}
	if !executed.Load() {
		t.Error("worker should survive a panicking task")
	}
}

func TestPool_DropsWhenFull(t *testing.T) {
	p := New(testLogger(), 1, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	block := make(chan struct{})
	p.Submit(func(ctx context.Context) error {
		<-block
		return nil
	})
	time.Sleep(50 * time.Millisecond)

	p.Submit(func(ctx context.Context) error { return nil })
	p.Submit(func(ctx context.Context) error { return nil })

	if p.Submit(func(ctx context.Context) error { return nil }) {
		t.Error("expected submit to fail when pool is full")
	}

	close(block)
	p.Shutdown()

	if s := p.Stats(); s.Dropped < 1 {
		t.Errorf("expected at least 1 dropped task, got %d", s.Dropped)
	}
}

func TestPool_SubmitWaitHonorsContext(t *testing.T) {
	p := New(testLogger(), 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	block := make(chan struct{})
	p.Submit(func(ctx context.Context) error {
		<-block
		return nil
	})
	time.Sleep(50 * time.Millisecond)
	p.Submit(func(ctx context.Context) error { return nil })

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer waitCancel()

	if err := p.SubmitWait(waitCtx, func(ctx context.Context) error { return nil }); err == nil {
		t.Error("expected context deadline error")
	}

	close(block)
	p.Shutdown()
}

func TestPool_RejectsAfterShutdown(t *testing.T) {
	p := New(testLogger(), 2, 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	p.Shutdown()

	if p.Submit(func(ctx context.Context) error { return nil }) {
		t.Error("pool should reject tasks after shutdown")
	}
}
