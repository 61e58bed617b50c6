package event

import (
	"context"
	"fmt"

	"github.com/dshills/storefront/internal/event/topic"
)

// Key names a topic together with the payload type carried under it.
// Emitting and subscribing through the same Key keeps both sides agreed on
// the payload without a runtime type switch at every handler.
type Key[T any] struct {
	name topic.Topic
}

// NewKey creates a typed key for the topic name.
func NewKey[T any](name topic.Topic) Key[T] {
	return Key[T]{name: name}
}

// Topic returns the key's topic.
func (k Key[T]) Topic() topic.Topic {
	return k.name
}

// String returns the topic name.
func (k Key[T]) String() string {
	return string(k.name)
}

// Emit emits payload under the key's topic.
func Emit[T any](ctx context.Context, e Emitter, k Key[T], payload T) error {
	return e.Emit(ctx, k.name, payload)
}

// On subscribes fn to the key's topic. An envelope whose payload is not a T
// makes the handler return a *PayloadTypeError without calling fn.
func On[T any](r Registrar, k Key[T], fn func(ctx context.Context, payload T) error, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return r.Subscribe(k.name, typedHandler(fn), opts...)
}

// OnPattern subscribes fn to every topic p matches, for families of events
// that share a payload type.
func OnPattern[T any](r Registrar, p topic.Pattern, fn func(ctx context.Context, payload T) error, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return r.SubscribePattern(p, typedHandler(fn), opts...)
}

func typedHandler[T any](fn func(ctx context.Context, payload T) error) HandlerFunc {
	return func(ctx context.Context, env Envelope) error {
		payload, err := Payload[T](env)
		if err != nil {
			return err
		}
		return fn(ctx, payload)
	}
}

// Payload extracts a T from env.
func Payload[T any](env Envelope) (T, error) {
	payload, ok := env.Payload.(T)
	if !ok {
		var zero T
		return zero, &PayloadTypeError{
			Topic: env.Topic.String(),
			Want:  fmt.Sprintf("%T", zero),
			Got:   fmt.Sprintf("%T", env.Payload),
		}
	}
	return payload, nil
}
