// Package basket keeps the customer's selected products and their running
// total, announcing every change on the event bus.
package basket

import (
	"context"
	"slices"

	"github.com/dshills/storefront/internal/catalog"
	"github.com/dshills/storefront/internal/event"
)

// Changed is emitted after every ledger mutation with a Basket snapshot.
var Changed = event.NewKey[Basket]("basket-changed")

// Basket is a snapshot of the ledger: product ids in insertion order and
// their total price.
type Basket struct {
	Items []string `json:"items"`
	Total int64    `json:"total"`
}

// Len returns the number of items.
func (b Basket) Len() int {
	return len(b.Items)
}

// Contains returns true if id is in the basket.
func (b Basket) Contains(id string) bool {
	return slices.Contains(b.Items, id)
}

// IsEmpty returns true if the basket has no items.
func (b Basket) IsEmpty() bool {
	return len(b.Items) == 0
}

// Ledger tracks basket contents. The total always equals the sum of the
// prices charged for the ids currently present and never goes negative.
//
// A Ledger is not safe for concurrent use; the application serializes all
// mutations.
type Ledger struct {
	emitter event.Emitter
	items   []string
	charged map[string]int64
	total   int64
}

// NewLedger creates an empty ledger that announces changes on e.
func NewLedger(e event.Emitter) *Ledger {
	return &Ledger{
		emitter: e,
		items:   []string{},
		charged: make(map[string]int64),
	}
}

// Contains returns true if the product id is in the basket.
func (l *Ledger) Contains(id string) bool {
	_, ok := l.charged[id]
	return ok
}

// Len returns the number of items in the basket.
func (l *Ledger) Len() int {
	return len(l.items)
}

// Total returns the running total.
func (l *Ledger) Total() int64 {
	return l.total
}

// Add appends p and charges its price. Adding a product that is already
// present changes nothing, but the basket is still announced.
// A priceless product is charged 0.
func (l *Ledger) Add(ctx context.Context, p catalog.Product) error {
	if !l.Contains(p.ID) {
		price := p.PriceValue()
		l.items = append(l.items, p.ID)
		l.charged[p.ID] = price
		l.total += price
	}
	return l.announce(ctx)
}

// Remove drops p and refunds what was charged for it when it was added.
// Removing an absent product changes nothing, but the basket is still
// announced.
func (l *Ledger) Remove(ctx context.Context, p catalog.Product) error {
	if price, ok := l.charged[p.ID]; ok {
		l.items = slices.DeleteFunc(l.items, func(id string) bool { return id == p.ID })
		delete(l.charged, p.ID)
		l.total = max(0, l.total-price)
	}
	return l.announce(ctx)
}

// Clear empties the basket.
func (l *Ledger) Clear(ctx context.Context) error {
	l.items = []string{}
	l.charged = make(map[string]int64)
	l.total = 0
	return l.announce(ctx)
}

// Snapshot returns a copy of the current basket.
func (l *Ledger) Snapshot() Basket {
	return Basket{
		Items: slices.Clone(l.items),
		Total: l.total,
	}
}

func (l *Ledger) announce(ctx context.Context) error {
	return event.Emit(ctx, l.emitter, Changed, l.Snapshot())
}
