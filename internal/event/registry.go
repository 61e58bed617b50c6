package event

import (
	"sync"

	"github.com/dshills/storefront/internal/event/topic"
)

// Registry holds subscriptions in registration order.
// Exact-name subscriptions are indexed by topic; pattern subscriptions are
// kept in a separate list and tested one by one. Both share one sequence
// counter so Match can interleave them in the order they were registered.
// It is safe for concurrent access.
type Registry struct {
	mu       sync.RWMutex
	seq      uint64
	exact    map[topic.Topic][]*subscription
	patterns []*subscription
	byID     map[string]*subscription
}

// NewRegistry creates a new subscription registry.
func NewRegistry() *Registry {
	return &Registry{
		exact: make(map[topic.Topic][]*subscription),
		byID:  make(map[string]*subscription),
	}
}

// Add appends a subscription after every existing one.
func (r *Registry) Add(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	sub.seq = r.seq

	if sub.isExact() {
		r.exact[sub.exact] = append(r.exact[sub.exact], sub)
	} else {
		r.patterns = append(r.patterns, sub)
	}
	r.byID[sub.ID()] = sub
}

// Remove removes a subscription by ID.
func (r *Registry) Remove(subID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(subID)
}

func (r *Registry) removeLocked(subID string) bool {
	sub, exists := r.byID[subID]
	if !exists {
		return false
	}

	if sub.isExact() {
		r.exact[sub.exact] = removeSub(r.exact[sub.exact], subID)
		if len(r.exact[sub.exact]) == 0 {
			delete(r.exact, sub.exact)
		}
	} else {
		r.patterns = removeSub(r.patterns, subID)
	}

	delete(r.byID, subID)
	return true
}

// removeSub returns subs without the subscription with the given ID.
// It never modifies the backing array of subs in place, since slices
// previously returned by Match may still be iterated by an emit.
func removeSub(subs []*subscription, subID string) []*subscription {
	out := make([]*subscription, 0, len(subs))
	for _, s := range subs {
		if s.ID() != subID {
			out = append(out, s)
		}
	}
	return out
}

// Match returns all subscriptions whose exact topic equals t or whose
// pattern matches it, in registration order. The result is a fresh slice.
func (r *Registry) Match(t topic.Topic) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exact := r.exact[t]

	var matched []*subscription
	for _, sub := range r.patterns {
		if sub.pattern.Match(t) {
			matched = append(matched, sub)
		}
	}

	if len(exact) == 0 && len(matched) == 0 {
		return nil
	}

	// Both inputs are already in sequence order; merge them.
	result := make([]*subscription, 0, len(exact)+len(matched))
	i, j := 0, 0
	for i < len(exact) && j < len(matched) {
		if exact[i].seq < matched[j].seq {
			result = append(result, exact[i])
			i++
		} else {
			result = append(result, matched[j])
			j++
		}
	}
	result = append(result, exact[i:]...)
	result = append(result, matched[j:]...)
	return result
}

// Count returns the total number of subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}

// CountActive returns the number of active subscriptions.
func (r *Registry) CountActive() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, sub := range r.byID {
		if sub.IsActive() {
			count++
		}
	}
	return count
}

// Clear removes all subscriptions.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range r.byID {
		sub.Cancel()
	}
	r.exact = make(map[topic.Topic][]*subscription)
	r.patterns = nil
	r.byID = make(map[string]*subscription)
}
