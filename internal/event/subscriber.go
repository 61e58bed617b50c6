package event

import (
	"sync"

	"github.com/dshills/storefront/internal/event/topic"
)

// Subscriber provides a simplified API for subscribing to events.
// It manages multiple subscriptions and provides cleanup on close.
type Subscriber struct {
	bus           Bus
	subscriptions []Subscription
	mu            sync.Mutex
	closed        bool
}

// NewSubscriber creates a new Subscriber wrapping the given bus.
func NewSubscriber(bus Bus) *Subscriber {
	return &Subscriber{
		bus:           bus,
		subscriptions: make([]Subscription, 0),
	}
}

// Subscribe creates a subscription for the given topic.
// The subscription is tracked for cleanup when Close is called.
func (s *Subscriber) Subscribe(t topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSubscriberClosed
	}

	sub, err := s.bus.Subscribe(t, handler, opts...)
	if err != nil {
		return nil, err
	}

	s.subscriptions = append(s.subscriptions, sub)
	return sub, nil
}

// SubscribeFunc creates a subscription with a function handler.
func (s *Subscriber) SubscribeFunc(t topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return s.Subscribe(t, fn, opts...)
}

// SubscribePattern creates a pattern subscription tracked by this subscriber.
func (s *Subscriber) SubscribePattern(p topic.Pattern, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSubscriberClosed
	}

	sub, err := s.bus.SubscribePattern(p, handler, opts...)
	if err != nil {
		return nil, err
	}

	s.subscriptions = append(s.subscriptions, sub)
	return sub, nil
}

// Unsubscribe removes a specific subscription.
func (s *Subscriber) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return ErrInvalidSubscription
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, tracked := range s.subscriptions {
		if tracked.ID() == sub.ID() {
			s.subscriptions = append(s.subscriptions[:i], s.subscriptions[i+1:]...)
			break
		}
	}

	return s.bus.Unsubscribe(sub)
}

// Close cancels all subscriptions and prevents new ones.
// This should be called when the owning component is being shut down.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	for _, sub := range s.subscriptions {
		_ = s.bus.Unsubscribe(sub)
	}
	s.subscriptions = nil

	return nil
}

// Count returns the number of tracked subscriptions.
func (s *Subscriber) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscriptions)
}
