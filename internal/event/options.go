package event

// BusOption configures an event Bus.
type BusOption func(*busConfig)

// busConfig contains configuration for the event bus.
type busConfig struct {
	// panicHandler is called when a handler panics.
	panicHandler PanicHandler

	// strict re-raises handler panics instead of converting them to errors.
	strict bool

	// recorder receives per-emit and per-handler notifications.
	recorder Recorder

	// source is stamped on envelopes whose context carries no source.
	source string
}

// defaultBusConfig returns sensible default configuration.
func defaultBusConfig() busConfig {
	return busConfig{
		panicHandler: DefaultPanicHandler,
		recorder:     nopRecorder{},
		source:       "storefront",
	}
}

// WithPanicHandler sets the panic handler for the bus.
func WithPanicHandler(h PanicHandler) BusOption {
	return func(c *busConfig) {
		if h != nil {
			c.panicHandler = h
		}
	}
}

// WithStrict makes handler panics propagate out of Emit after the panic
// handler has run. Intended for development builds and tests.
func WithStrict(strict bool) BusOption {
	return func(c *busConfig) {
		c.strict = strict
	}
}

// WithRecorder installs a Recorder, typically internal/metrics.
func WithRecorder(r Recorder) BusOption {
	return func(c *busConfig) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithDefaultSource sets the Metadata.Source used when the emitting context
// does not carry one.
func WithDefaultSource(source string) BusOption {
	return func(c *busConfig) {
		c.source = source
	}
}
