package event

import (
	"sync/atomic"

	"github.com/dshills/storefront/internal/event/topic"
)

// SubscriptionState represents the state of a subscription.
type SubscriptionState int32

const (
	// SubscriptionStateActive means the subscription is receiving events.
	SubscriptionStateActive SubscriptionState = iota

	// SubscriptionStatePaused means the subscription is temporarily not receiving events.
	SubscriptionStatePaused

	// SubscriptionStateCancelled means the subscription has been permanently cancelled.
	SubscriptionStateCancelled
)

// String returns a human-readable state name.
func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionStateActive:
		return "active"
	case SubscriptionStatePaused:
		return "paused"
	case SubscriptionStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Subscription represents a registered handler.
// It provides methods to control the subscription lifecycle.
type Subscription interface {
	// ID returns the unique subscription identifier.
	ID() string

	// Pattern returns the pattern the subscription was registered with.
	// Exact subscriptions report topic.Exact(name).
	Pattern() topic.Pattern

	// State returns the current subscription state.
	State() SubscriptionState

	// IsActive returns true if the subscription can receive events.
	IsActive() bool

	// Pause temporarily stops event delivery to this subscription.
	Pause()

	// Resume restarts event delivery after a pause.
	Resume()

	// Cancel permanently cancels the subscription. The registration itself
	// is dropped by Bus.Unsubscribe or on the next emit that matches it.
	Cancel()
}

// SubscriptionConfig contains configuration for a subscription.
type SubscriptionConfig struct {
	// Filter is an optional predicate to filter events.
	// If set, events are only delivered if Filter returns true.
	Filter FilterFunc

	// Once indicates the subscription should auto-cancel after its first delivery.
	Once bool
}

// SubscriptionOption is a function that configures a subscription.
type SubscriptionOption func(*SubscriptionConfig)

// WithFilter sets a filter predicate.
func WithFilter(f FilterFunc) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Filter = f
	}
}

// WithOnce sets the subscription to auto-cancel after the first event.
func WithOnce() SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Once = true
	}
}

// subscription is the internal implementation of Subscription.
type subscription struct {
	id      string
	seq     uint64
	exact   topic.Topic // set for exact-name subscriptions
	pattern topic.Pattern
	handler Handler
	config  SubscriptionConfig
	state   atomic.Int32
}

// newSubscription creates a new subscription. Exactly one of t and p is
// meaningful: a non-nil p makes a pattern subscription.
func newSubscription(t topic.Topic, p topic.Pattern, h Handler, opts ...SubscriptionOption) *subscription {
	var config SubscriptionConfig
	for _, opt := range opts {
		opt(&config)
	}

	s := &subscription{
		id:      generateID(),
		exact:   t,
		pattern: p,
		handler: h,
		config:  config,
	}
	if p == nil {
		s.pattern = topic.Exact(t)
	}
	s.state.Store(int32(SubscriptionStateActive))
	return s
}

// ID returns the subscription ID.
func (s *subscription) ID() string {
	return s.id
}

// Pattern returns the subscribed pattern.
func (s *subscription) Pattern() topic.Pattern {
	return s.pattern
}

// isExact returns true for subscriptions registered by exact name.
func (s *subscription) isExact() bool {
	return s.exact != ""
}

// State returns the current subscription state.
func (s *subscription) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

// IsActive returns true if the subscription is active.
func (s *subscription) IsActive() bool {
	return s.State() == SubscriptionStateActive
}

// IsCancelled returns true if the subscription is cancelled.
func (s *subscription) IsCancelled() bool {
	return s.State() == SubscriptionStateCancelled
}

// Pause temporarily stops event delivery.
func (s *subscription) Pause() {
	s.state.CompareAndSwap(int32(SubscriptionStateActive), int32(SubscriptionStatePaused))
}

// Resume restarts event delivery.
func (s *subscription) Resume() {
	s.state.CompareAndSwap(int32(SubscriptionStatePaused), int32(SubscriptionStateActive))
}

// Cancel permanently cancels the subscription.
func (s *subscription) Cancel() {
	s.state.Store(int32(SubscriptionStateCancelled))
}

// shouldDeliver returns true if the envelope should be delivered now.
// A once-subscription is claimed here, so a re-entrant emit of the same
// topic cannot deliver to it a second time.
func (s *subscription) shouldDeliver(env Envelope) bool {
	if !s.IsActive() {
		return false
	}

	if s.config.Filter != nil && !s.config.Filter(env) {
		return false
	}

	if s.config.Once {
		return s.state.CompareAndSwap(int32(SubscriptionStateActive), int32(SubscriptionStateCancelled))
	}

	return true
}
