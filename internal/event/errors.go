package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the event bus.
var (
	// ErrInvalidEvent is returned when a dispatched value is not an Envelope.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrInvalidTopic is returned when a topic is empty or malformed.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrInvalidPattern is returned when a nil pattern is subscribed.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrInvalidSubscription is returned when a subscription is invalid.
	ErrInvalidSubscription = errors.New("invalid subscription")

	// ErrSubscriptionNotFound is returned when trying to unsubscribe a non-existent subscription.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrHandlerPanic is matched by errors.Is for every *PanicError.
	ErrHandlerPanic = errors.New("handler panicked")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrSubscriberClosed is returned when subscribing through a closed Subscriber.
	ErrSubscriberClosed = errors.New("subscriber is closed")

	// ErrPayloadType is matched by errors.Is for every *PayloadTypeError.
	ErrPayloadType = errors.New("unexpected payload type")
)

// HandlerError wraps an error from a handler with additional context.
type HandlerError struct {
	// SubscriptionID is the ID of the subscription whose handler failed.
	SubscriptionID string

	// Topic is the topic that was emitted.
	Topic string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return "handler error for subscription " + e.SubscriptionID + " on topic " + e.Topic + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a panic value as an error.
type PanicError struct {
	// SubscriptionID is the ID of the subscription whose handler panicked.
	SubscriptionID string

	// Topic is the topic that was emitted.
	Topic string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic for subscription %s on topic %s: %v", e.SubscriptionID, e.Topic, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}

// PayloadTypeError is returned by typed handlers when an event carries a
// payload of a different type than the handler expects.
type PayloadTypeError struct {
	Topic string
	Want  string
	Got   string
}

// Error implements the error interface.
func (e *PayloadTypeError) Error() string {
	return fmt.Sprintf("payload for topic %s: want %s, got %s", e.Topic, e.Want, e.Got)
}

// Is allows errors.Is to match PayloadTypeError with ErrPayloadType.
func (e *PayloadTypeError) Is(target error) bool {
	return target == ErrPayloadType
}
