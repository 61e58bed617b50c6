package app

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Task is a unit of work run on the mutation loop.
type Task func(ctx context.Context)

// Loop runs posted tasks one at a time on a single goroutine. State and the
// bus are only touched from inside tasks, so they need no locking of their
// own. Post never blocks, which lets a task post follow-up work.
type Loop struct {
	mu      sync.Mutex
	queue   []Task
	wake    chan struct{}
	stopped chan struct{}
	running atomic.Bool

	logger  *Logger
	repanic bool
}

// NewLoop creates a loop. When repanic is set a panicking task crashes the
// loop goroutine after being logged; otherwise the loop carries on.
func NewLoop(logger *Logger, repanic bool) *Loop {
	if logger == nil {
		logger = NullLogger()
	}
	return &Loop{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		logger:  logger.WithComponent("loop"),
		repanic: repanic,
	}
}

// Post queues task. Tasks posted before Run are kept until it starts.
func (l *Loop) Post(task Task) error {
	select {
	case <-l.stopped:
		return ErrLoopStopped
	default:
	}

	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Do runs fn on the loop with the caller's ctx and waits for its result.
// A panic in fn is returned as a *RecoveredPanicError.
func (l *Loop) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	err := l.Post(func(context.Context) {
		defer func() {
			if r := recover(); r != nil {
				done <- NewRecoveredPanicError(r, "")
				panic(r)
			}
		}()
		done <- fn(ctx)
	})
	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		select {
		case err := <-done:
			return err
		default:
			return ErrLoopStopped
		}
	}
}

// Run processes tasks until ctx is done. Tasks receive ctx. Tasks still
// queued when ctx ends are dropped.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(l.stopped)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-l.wake:
			}
			continue
		}

		for i, task := range batch {
			if ctx.Err() != nil {
				l.logger.Debug("dropping %d queued tasks", len(batch)-i)
				return nil
			}
			l.run(ctx, task)
		}
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.stopped
}

func (l *Loop) run(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked: %v\n%s", r, debug.Stack())
			if l.repanic {
				panic(r)
			}
		}
	}()
	task(ctx)
}
