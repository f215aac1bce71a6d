package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitDone(t *testing.T, l *Loop) {
	t.Helper()
	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("loop %q did not stop", l.Name())
	}
}

func TestLoopRunsCountTimes(t *testing.T) {
	var calls atomic.Int32
	l := NewLoop("count", time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, WithCount(3))

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, l)

	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
	if got := l.CurrentIteration(); got != 3 {
		t.Errorf("CurrentIteration = %d, want 3", got)
	}
	if l.IsRunning() {
		t.Errorf("IsRunning = true after count reached")
	}
}

func TestLoopHooksOrder(t *testing.T) {
	var order []string
	l := NewLoop("hooks", time.Millisecond, func(ctx context.Context) error {
		order = append(order, "run")
		return nil
	}, WithCount(1))
	l.BeforeLoop(func(ctx context.Context) error {
		order = append(order, "before")
		return nil
	})
	l.AfterLoop(func(ctx context.Context) error {
		order = append(order, "after")
		return nil
	})
	if !l.HasBeforeLoop() {
		t.Fatalf("HasBeforeLoop = false")
	}

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, l)

	want := []string{"before", "run", "after"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestLoopStartTwice(t *testing.T) {
	l := NewLoop("twice", time.Hour, func(ctx context.Context) error { return nil })
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer l.Cancel()

	if err := l.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}
}

func TestLoopCancel(t *testing.T) {
	l := NewLoop("cancel", time.Hour, func(ctx context.Context) error { return nil })
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	l.Cancel()
	waitDone(t, l)

	if l.IsRunning() {
		t.Errorf("IsRunning = true after Cancel")
	}
	if err := l.Start(context.Background()); err != nil {
		t.Errorf("restart after Cancel: %v", err)
	}
	l.Cancel()
}

func TestLoopStopsOnError(t *testing.T) {
	var calls atomic.Int32
	l := NewLoop("fail", time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("boom")
	})
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, l)

	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestLoopBeforeHookBlocksUntilReady(t *testing.T) {
	ready := make(chan struct{})
	var ran atomic.Bool
	l := NewLoop("gated", time.Hour, func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}, WithCount(1))
	l.BeforeLoop(func(ctx context.Context) error {
		select {
		case <-ready:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if ran.Load() {
		t.Fatalf("loop ran before the before-loop hook returned")
	}
	close(ready)
	waitDone(t, l)
	if !ran.Load() {
		t.Errorf("loop never ran")
	}
}

func TestLoopStopWaitsForAfterHook(t *testing.T) {
	var afterDone atomic.Bool
	l := NewLoop("restart", time.Hour, func(ctx context.Context) error { return nil })
	l.AfterLoop(func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		afterDone.Store(true)
		return nil
	})

	for i := 0; i < 3; i++ {
		afterDone.Store(false)
		if err := l.Start(context.Background()); err != nil {
			t.Fatalf("Start #%d: %v", i, err)
		}
		if err := l.Stop(context.Background()); err != nil {
			t.Fatalf("Stop #%d: %v", i, err)
		}
		if !afterDone.Load() {
			t.Fatalf("Stop #%d returned before the after-loop hook finished", i)
		}
		if l.IsRunning() {
			t.Fatalf("IsRunning = true after Stop #%d", i)
		}
	}
}

func TestLoopStopHonorsContext(t *testing.T) {
	release := make(chan struct{})
	l := NewLoop("stuck", time.Hour, func(ctx context.Context) error {
		<-release
		return nil
	})
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		close(release)
		waitDone(t, l)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop = %v, want context.DeadlineExceeded", err)
	}
}

func TestStopIdleLoop(t *testing.T) {
	l := NewLoop("idle", time.Hour, func(ctx context.Context) error { return nil })
	if err := l.Stop(context.Background()); err != nil {
		t.Fatalf("Stop on a stopped loop = %v", err)
	}
}
