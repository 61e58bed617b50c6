package event

import (
	"context"
	"time"

	"github.com/dshills/storefront/internal/event/dispatch"
	"github.com/dshills/storefront/internal/event/topic"
)

// Handler is the interface for event handlers.
type Handler interface {
	// Handle processes an event. The payload is env.Payload, passed
	// exactly as the emitter supplied it.
	Handle(ctx context.Context, env Envelope) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, env Envelope) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, env Envelope) error {
	return f(ctx, env)
}

// dispatchHandler adapts a Handler to the type-erased dispatch.Handler.
type dispatchHandler struct {
	h Handler
}

func (d dispatchHandler) Handle(ctx context.Context, event any) error {
	env, ok := event.(Envelope)
	if !ok {
		return ErrInvalidEvent
	}
	return d.h.Handle(ctx, env)
}

// FilterFunc is a predicate for filtering events.
// Return true to allow the event, false to filter it out.
type FilterFunc func(env Envelope) bool

// Stats contains event bus statistics.
type Stats struct {
	// EventsEmitted is the total number of Emit calls with a valid topic.
	EventsEmitted uint64

	// EventsUnrouted is the number of emits that matched no subscription.
	EventsUnrouted uint64

	// HandlersExecuted is the total number of handler executions.
	HandlersExecuted uint64

	// HandlerErrors is the number of handlers that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of handlers that panicked.
	HandlerPanics uint64

	// HandlerTime is the total time spent in handlers.
	HandlerTime time.Duration

	// ActiveSubscriptions is the current number of active subscriptions.
	ActiveSubscriptions int
}

// PanicHandler is called when a handler panics.
type PanicHandler func(env Envelope, recovered any, stack []byte)

// DefaultPanicHandler ignores the panic. The recovered value is still
// returned from Emit as a *PanicError.
func DefaultPanicHandler(env Envelope, recovered any, stack []byte) {}

// Recorder receives a notification for every emit and every handler run.
// internal/metrics implements it with Prometheus collectors.
type Recorder interface {
	EventEmitted(t topic.Topic, handlers int)
	HandlerCompleted(t topic.Topic, result dispatch.Result)
}

type nopRecorder struct{}

func (nopRecorder) EventEmitted(topic.Topic, int) {}
func (nopRecorder) HandlerCompleted(topic.Topic, dispatch.Result) {}
