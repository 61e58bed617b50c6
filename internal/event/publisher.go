package event

import (
	"context"

	"github.com/dshills/storefront/internal/event/topic"
)

// Publisher binds a Bus to a source name. Every event it emits carries
// that source in its Metadata, which FilterBySource and the logs use.
type Publisher struct {
	bus    Bus
	source string
}

// NewPublisher creates a new Publisher wrapping the given bus.
// The source parameter identifies where events originate (e.g., "console", "app").
func NewPublisher(bus Bus, source string) *Publisher {
	return &Publisher{
		bus:    bus,
		source: source,
	}
}

// Emit emits payload under t with the publisher's source.
func (p *Publisher) Emit(ctx context.Context, t topic.Topic, payload any) error {
	return p.bus.Emit(WithSource(ctx, p.source), t, payload)
}

// Emitter is implemented by Bus and Publisher.
type Emitter interface {
	Emit(ctx context.Context, t topic.Topic, payload any) error
}
