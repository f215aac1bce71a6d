// Package tasks runs a function on a fixed interval until cancelled.
//
//	l := tasks.NewLoop("status", time.Minute, func(ctx context.Context) error {
//	    return updateStatus(ctx)
//	})
//	_ = l.Start(ctx)
//	defer l.Cancel()
package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrAlreadyRunning is returned by Start while the loop is running.
var ErrAlreadyRunning = errors.New("loop is already running")

// Func is one iteration of a loop, or a before/after hook.
type Func func(ctx context.Context) error

// Loop calls a Func immediately and then on every tick.
type Loop struct {
	name     string
	interval time.Duration
	fn       Func
	count    int
	logger   zerolog.Logger

	mu        sync.Mutex
	before    Func
	after     Func
	cancel    context.CancelFunc
	done      chan struct{}
	iteration int
}

// Option configures a Loop.
type Option func(*Loop)

// WithCount stops the loop after n iterations. Zero means forever.
func WithCount(n int) Option {
	return func(l *Loop) { l.count = n }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// NewLoop returns a stopped loop.
func NewLoop(name string, interval time.Duration, fn Func, opts ...Option) *Loop {
	l := &Loop{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loop) Name() string { return l.name }

// BeforeLoop sets the hook run once before the first iteration.
// A failing hook aborts the run.
func (l *Loop) BeforeLoop(h Func) {
	l.mu.Lock()
	l.before = h
	l.mu.Unlock()
}

// AfterLoop sets the hook run once the loop stops.
func (l *Loop) AfterLoop(h Func) {
	l.mu.Lock()
	l.after = h
	l.mu.Unlock()
}

func (l *Loop) HasBeforeLoop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.before != nil
}

// Start runs the loop in a new goroutine. The loop stops when ctx is done,
// Cancel is called, the count is reached or an iteration fails.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.iteration = 0
	go l.run(ctx, l.before, l.after, l.done)
	return nil
}

// Cancel stops the loop. It is a no-op when the loop is not running.
func (l *Loop) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Stop cancels the loop and waits for the current run, after-hook included,
// to finish or for ctx to be done.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

// Done is closed when the current run ends. It is nil before the first Start.
func (l *Loop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

func (l *Loop) CurrentIteration() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.iteration
}

func (l *Loop) run(ctx context.Context, before, after Func, done chan struct{}) {
	defer func() {
		l.mu.Lock()
		if l.cancel != nil {
			l.cancel()
		}
		l.cancel = nil
		l.mu.Unlock()
		close(done)
	}()

	if before != nil {
		if err := before(ctx); err != nil {
			if ctx.Err() == nil {
				l.logger.Error().Err(err).Str("loop", l.name).Msg("before-loop hook failed")
			}
			return
		}
	}
	if after != nil {
		defer func() {
			if err := after(context.WithoutCancel(ctx)); err != nil {
				l.logger.Error().Err(err).Str("loop", l.name).Msg("after-loop hook failed")
			}
		}()
	}

	var tick <-chan time.Time
	if l.interval > 0 {
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if ctx.Err() != nil {
			return
		}
		if err := l.fn(ctx); err != nil {
			if ctx.Err() == nil {
				l.logger.Error().Err(err).Str("loop", l.name).Msg("loop iteration failed")
			}
			return
		}
		l.mu.Lock()
		l.iteration++
		n := l.iteration
		l.mu.Unlock()
		if l.count > 0 && n >= l.count {
			return
		}
		if tick == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-tick:
		}
	}
}
