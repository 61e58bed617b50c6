package event

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/storefront/internal/event/topic"
)

// timeNow is a variable to allow testing with fixed timestamps.
var timeNow = time.Now

// Envelope is what handlers receive: the emitted topic, the payload as
// supplied by the emitter (never cloned) and delivery metadata.
type Envelope struct {
	// Topic is the topic the event was emitted under. Pattern subscribers
	// use it to tell which concrete event matched.
	Topic topic.Topic

	// Payload is the type-erased event payload.
	Payload any

	// Metadata is the event metadata.
	Metadata Metadata
}

// Metadata contains standard information attached to every event.
type Metadata struct {
	// ID is a unique identifier for this event instance.
	ID string

	// Timestamp is when the event was emitted.
	Timestamp time.Time

	// Source identifies the component that emitted the event.
	Source string

	// CausationID is the ID of the event whose handler emitted this one.
	// Empty for top-level emits.
	CausationID string

	// Depth is the re-entrancy depth: 0 for a top-level emit, 1 for an
	// event emitted from inside a handler, and so on.
	Depth int
}

// generateID generates a unique event or subscription ID.
func generateID() string {
	return uuid.NewString()
}

type envelopeKey struct{}
type sourceKey struct{}

// FromContext returns the envelope currently being handled, if ctx was
// passed to a handler by the bus.
func FromContext(ctx context.Context) (Envelope, bool) {
	env, ok := ctx.Value(envelopeKey{}).(Envelope)
	return env, ok
}

// WithSource returns a context whose emits are stamped with the given
// source in their Metadata.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// newEnvelope builds the envelope for an emit, linking it to the event
// being handled in ctx when the emit is re-entrant.
func newEnvelope(ctx context.Context, t topic.Topic, payload any, defaultSource string) Envelope {
	env := Envelope{
		Topic:   t,
		Payload: payload,
		Metadata: Metadata{
			ID:        generateID(),
			Timestamp: timeNow(),
			Source:    defaultSource,
		},
	}

	if src, ok := ctx.Value(sourceKey{}).(string); ok && src != "" {
		env.Metadata.Source = src
	}

	if parent, ok := FromContext(ctx); ok {
		env.Metadata.CausationID = parent.Metadata.ID
		env.Metadata.Depth = parent.Metadata.Depth + 1
	}

	return env
}
