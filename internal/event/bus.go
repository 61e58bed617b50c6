package event

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/dshills/storefront/internal/event/dispatch"
	"github.com/dshills/storefront/internal/event/topic"
)

// Bus is the central event bus interface.
type Bus interface {
	Registrar

	// Emit delivers payload to every subscription whose topic equals t or
	// whose pattern matches it, synchronously and in registration order.
	// Handler failures do not stop delivery; they are joined into the
	// returned error.
	Emit(ctx context.Context, t topic.Topic, payload any) error

	// Unsubscribe cancels a subscription and drops its registration.
	Unsubscribe(sub Subscription) error

	// Clear cancels and drops every subscription.
	Clear()

	// Stats returns current bus statistics.
	Stats() Stats
}

// Registrar is the subscribing half of a Bus. Subscriber implements it too,
// so typed helpers such as On work with either.
type Registrar interface {
	Subscribe(t topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error)
	SubscribeFunc(t topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error)
	SubscribePattern(p topic.Pattern, handler Handler, opts ...SubscriptionOption) (Subscription, error)
}

// bus is the default Bus implementation.
type bus struct {
	registry   *Registry
	dispatcher *dispatch.SyncDispatcher
	config     busConfig

	// Handler counts live in the dispatcher.
	eventsEmitted  atomic.Uint64
	eventsUnrouted atomic.Uint64
}

// NewBus creates a new synchronous event bus with the given options.
func NewBus(opts ...BusOption) Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	b := &bus{
		registry: NewRegistry(),
		config:   config,
	}

	// dispatch only sees the type-erased event; recover the envelope here.
	dispatchPanicHandler := func(event any, panicValue any, stack []byte) {
		env, _ := event.(Envelope)
		config.panicHandler(env, panicValue, stack)
	}

	b.dispatcher = dispatch.NewSyncDispatcher(
		dispatch.WithExecutorPanicHandler(dispatchPanicHandler),
		dispatch.WithRepanic(config.strict),
	)

	return b
}

// Emit sends an event synchronously.
//
// The matching subscriptions are snapshotted before the first handler runs:
// a subscription added by a handler does not see the current event, while a
// subscription cancelled by a handler is skipped if it has not run yet.
// A handler may emit; the nested emit completes before the remaining
// handlers of the outer emit run. Delivery stops early only when ctx is done.
func (b *bus) Emit(ctx context.Context, t topic.Topic, payload any) error {
	if !t.IsValid() {
		return ErrInvalidTopic
	}
	if ctx == nil {
		ctx = context.Background()
	}

	b.eventsEmitted.Add(1)

	subs := b.registry.Match(t)
	b.config.recorder.EventEmitted(t, len(subs))
	if len(subs) == 0 {
		b.eventsUnrouted.Add(1)
		return nil
	}

	env := newEnvelope(ctx, t, payload, b.config.source)
	handlerCtx := context.WithValue(ctx, envelopeKey{}, env)

	var errs []error
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !sub.shouldDeliver(env) {
			if sub.IsCancelled() {
				b.registry.Remove(sub.ID())
			}
			continue
		}

		result := b.dispatcher.Dispatch(handlerCtx, env, dispatchHandler{h: sub.handler})
		b.config.recorder.HandlerCompleted(t, result)

		if sub.config.Once {
			b.registry.Remove(sub.ID())
		}
		if result.Skipped {
			errs = append(errs, result.Error)
			break
		}
		switch {
		case result.IsPanic():
			errs = append(errs, &PanicError{
				SubscriptionID: sub.ID(),
				Topic:          t.String(),
				Value:          result.PanicValue,
				Stack:          string(result.PanicStack),
			})
		case result.IsError():
			errs = append(errs, &HandlerError{
				SubscriptionID: sub.ID(),
				Topic:          t.String(),
				Err:            result.Error,
			})
		}
	}

	return errors.Join(errs...)
}

// Subscribe registers a handler for an exact topic.
// Subscribing the same handler twice registers it twice, and it is then
// invoked twice per matching emit.
// This method is safe to call concurrently.
func (b *bus) Subscribe(t topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !t.IsValid() {
		return nil, ErrInvalidTopic
	}

	sub := newSubscription(t, nil, handler, opts...)
	b.registry.Add(sub)
	return sub, nil
}

// SubscribeFunc is a convenience method for subscribing with a function handler.
func (b *bus) SubscribeFunc(t topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(t, fn, opts...)
}

// SubscribePattern registers a handler for every topic the pattern matches.
// This method is safe to call concurrently.
func (b *bus) SubscribePattern(p topic.Pattern, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if p == nil {
		return nil, ErrInvalidPattern
	}

	sub := newSubscription("", p, handler, opts...)
	b.registry.Add(sub)
	return sub, nil
}

// Unsubscribe removes a subscription.
// This method is safe to call concurrently.
func (b *bus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return ErrInvalidSubscription
	}

	sub.Cancel()
	if !b.registry.Remove(sub.ID()) {
		return ErrSubscriptionNotFound
	}
	return nil
}

// Clear removes every subscription.
func (b *bus) Clear() {
	b.registry.Clear()
}

// Stats returns current bus statistics.
func (b *bus) Stats() Stats {
	ds := b.dispatcher.Stats()
	return Stats{
		EventsEmitted:       b.eventsEmitted.Load(),
		EventsUnrouted:      b.eventsUnrouted.Load(),
		HandlersExecuted:    ds.Dispatched - ds.Skipped,
		HandlerErrors:       ds.Failed,
		HandlerPanics:       ds.Panicked,
		HandlerTime:         ds.TotalDuration,
		ActiveSubscriptions: b.registry.CountActive(),
	}
}
