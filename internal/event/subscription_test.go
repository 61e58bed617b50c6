package event

import (
	"testing"

	"github.com/dshills/storefront/internal/event/topic"
)

func TestSubscriptionState_String(t *testing.T) {
	tests := []struct {
		state SubscriptionState
		want  string
	}{
		{SubscriptionStateActive, "active"},
		{SubscriptionStatePaused, "paused"},
		{SubscriptionStateCancelled, "cancelled"},
		{SubscriptionState(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSubscription_Lifecycle(t *testing.T) {
	sub := newSubscription("basket:changed", nil, newTestHandler())

	if !sub.IsActive() {
		t.Fatal("new subscription should be active")
	}
	if sub.ID() == "" {
		t.Error("expected non-empty ID")
	}

	sub.Pause()
	if sub.State() != SubscriptionStatePaused {
		t.Errorf("State() = %v, want paused", sub.State())
	}

	sub.Resume()
	if !sub.IsActive() {
		t.Errorf("State() = %v, want active", sub.State())
	}

	sub.Cancel()
	if !sub.IsCancelled() {
		t.Errorf("State() = %v, want cancelled", sub.State())
	}

	// Resume after cancel is a no-op.
	sub.Resume()
	if !sub.IsCancelled() {
		t.Error("Resume() revived a cancelled subscription")
	}
}

func TestSubscription_Pattern(t *testing.T) {
	exact := newSubscription("basket:changed", nil, newTestHandler())
	if !exact.isExact() {
		t.Error("expected exact subscription")
	}
	if got := exact.Pattern().String(); got != "basket:changed" {
		t.Errorf("Pattern() = %q, want %q", got, "basket:changed")
	}

	glob := topic.MustGlob("order.*:change")
	pat := newSubscription("", glob, newTestHandler())
	if pat.isExact() {
		t.Error("expected pattern subscription")
	}
	if pat.Pattern() != glob {
		t.Error("Pattern() did not return the subscribed pattern")
	}
}

func TestSubscription_ShouldDeliver(t *testing.T) {
	env := Envelope{Topic: "basket:changed", Metadata: Metadata{Source: "console"}}

	t.Run("active", func(t *testing.T) {
		sub := newSubscription("basket:changed", nil, newTestHandler())
		if !sub.shouldDeliver(env) {
			t.Error("expected delivery")
		}
	})

	t.Run("paused", func(t *testing.T) {
		sub := newSubscription("basket:changed", nil, newTestHandler())
		sub.Pause()
		if sub.shouldDeliver(env) {
			t.Error("expected no delivery while paused")
		}
	})

	t.Run("filtered", func(t *testing.T) {
		sub := newSubscription("basket:changed", nil, newTestHandler(), WithFilter(FilterBySource("app")))
		if sub.shouldDeliver(env) {
			t.Error("expected filter to reject")
		}
	})

	t.Run("once", func(t *testing.T) {
		sub := newSubscription("basket:changed", nil, newTestHandler(), WithOnce())
		if !sub.shouldDeliver(env) {
			t.Fatal("expected first delivery")
		}
		if sub.shouldDeliver(env) {
			t.Error("expected once subscription to deliver only once")
		}
		if !sub.IsCancelled() {
			t.Error("expected once subscription to be cancelled after delivery")
		}
	})

	t.Run("once filtered keeps waiting", func(t *testing.T) {
		sub := newSubscription("basket:changed", nil, newTestHandler(),
			WithOnce(), WithFilter(FilterBySource("app")))
		if sub.shouldDeliver(env) {
			t.Fatal("expected filter to reject")
		}
		if !sub.IsActive() {
			t.Error("a filtered-out event must not consume a once subscription")
		}
	})
}
