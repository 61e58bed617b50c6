// Package event provides the storefront's synchronous event bus.
//
// Every component talks through the bus: the console emits user intents,
// the application turns intents into state operations, and the state emits
// change notifications that views and loggers subscribe to. No component
// holds a reference to another.
//
// # Delivery
//
// Emit is synchronous. Handlers run in the emitting goroutine, in the order
// their subscriptions were registered, across exact and pattern
// subscriptions alike. A handler may emit; the nested emit is delivered
// depth-first before the outer emit continues, and its Metadata records the
// causing event and the nesting depth.
//
// Emitting a topic nobody listens to is not an error. Handler errors and
// recovered panics do not stop delivery; Emit joins them into its result.
// With WithStrict a panic is re-raised instead, so programmer errors fail
// fast during development.
//
// # Topics and Patterns
//
// Topics are plain names such as "basket-changed" or "order.address:change".
// SubscribePattern accepts a topic.Pattern: an exact name, a glob where "*"
// spans any run of characters, or a regular expression.
//
//	bus := event.NewBus()
//	bus.SubscribePattern(topic.MustGlob("order.*:change"), handler)
//	bus.Emit(ctx, "order.address:change", change)
//
// # Typed Keys
//
// Key[T] pairs a topic with its payload type. Emit and On use it to keep
// both sides of an event in agreement:
//
//	var BasketChanged = event.NewKey[[]catalog.Product]("basket-changed")
//
//	event.On(bus, BasketChanged, func(ctx context.Context, items []catalog.Product) error {
//		return nil
//	})
//	event.Emit(ctx, bus, BasketChanged, items)
//
// # Thread Safety
//
// Subscribe, Unsubscribe and Emit may be called from any goroutine. Handlers
// of a single emit run sequentially; callers that need a single writer for
// their own state serialize emits themselves (see internal/app).
package event
