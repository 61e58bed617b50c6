package dispatch

import (
	"context"
	"runtime/debug"
	"time"
)

// Executor handles the actual execution of event handlers with
// panic recovery and timing.
type Executor struct {
	panicHandler PanicHandler
	repanic      bool
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		panicHandler: defaultPanicHandler,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorPanicHandler sets the panic handler for the executor.
func WithExecutorPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) {
		e.panicHandler = h
	}
}

// WithRepanic makes the executor re-raise a handler panic after the panic
// handler has seen it. Used in development builds so that programmer errors
// fail fast instead of being converted into results.
func WithRepanic(enabled bool) ExecutorOption {
	return func(e *Executor) {
		e.repanic = enabled
	}
}

// Execute runs a handler with the given event and returns the result.
// It recovers from panics and captures timing information.
func (e *Executor) Execute(ctx context.Context, event any, handler Handler) (result Result) {
	select {
	case <-ctx.Done():
		return Result{
			Success: false,
			Error:   ctx.Err(),
			Skipped: true,
		}
	default:
	}

	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)

		r := recover()
		if r == nil {
			return
		}

		stack := debug.Stack()

		result.Success = false
		result.Panicked = true
		result.PanicValue = r
		result.PanicStack = stack

		if e.panicHandler != nil {
			func() {
				// A panicking panic handler must not mask the original panic.
				defer func() { _ = recover() }()
				e.panicHandler(event, r, stack)
			}()
		}

		if e.repanic {
			panic(r)
		}
	}()

	if err := handler.Handle(ctx, event); err != nil {
		result.Success = false
		result.Error = err
	} else {
		result.Success = true
	}

	return result
}
