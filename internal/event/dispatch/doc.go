// Package dispatch runs event handlers on behalf of the event bus.
//
// Handlers always run synchronously in the caller's goroutine. The Executor
// wraps each call with panic recovery and timing; the SyncDispatcher adds
// counters on top of it.
//
// # Panic Recovery
//
// A panicking handler is converted into a Result with Panicked set and the
// configured PanicHandler is told about it. With WithRepanic(true) the panic
// is re-raised after the PanicHandler returns, which is how development
// builds make programmer errors fail fast.
//
// # Usage
//
//	d := dispatch.NewSyncDispatcher(
//	    dispatch.WithExecutorPanicHandler(func(event any, v any, stack []byte) {
//	        log.Printf("panic in handler: %v\n%s", v, stack)
//	    }),
//	)
//	result := d.Dispatch(ctx, event, handler)
//	if !result.IsSuccess() {
//	    // handle error or panic
//	}
package dispatch
