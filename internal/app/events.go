package app

import (
	"github.com/dshills/storefront/internal/catalog"
	"github.com/dshills/storefront/internal/event"
	"github.com/dshills/storefront/internal/event/topic"
	"github.com/dshills/storefront/internal/order"
)

// Intents emitted by front ends.
var (
	ProductSelected = event.NewKey[catalog.Product]("product:selected")
	BasketToggle    = event.NewKey[catalog.Product]("basket:toggle")
	BasketRemove    = event.NewKey[catalog.Product]("basket:remove")
	BasketOpen      = event.NewKey[struct{}]("basket:open")
	OrderOpen       = event.NewKey[struct{}]("order:open")
	OrderSubmit     = event.NewKey[struct{}]("order:submit")
	ContactsSubmit  = event.NewKey[struct{}]("contacts:submit")
)

// Results of asynchronous work.
var (
	OrderSucceeded = event.NewKey[order.Result]("order:success")
	OrderFailed    = event.NewKey[error]("order:failed")
	CatalogFailed  = event.NewKey[error]("catalog:failed")
)

// Form field changes. The payment and address step emits under "order.",
// the contacts step under "contacts.".
var (
	OrderFieldChanges    = topic.MustGlob("order.*:change")
	ContactsFieldChanges = topic.MustGlob("contacts.*:change")
)

// OrderFieldChanged returns the key for a field change on the payment and
// address step.
func OrderFieldChanged(f order.Field) event.Key[order.FieldChange] {
	return event.NewKey[order.FieldChange](topic.Compose("order", f.String(), "change"))
}

// ContactsFieldChanged returns the key for a field change on the contacts
// step.
func ContactsFieldChanged(f order.Field) event.Key[order.FieldChange] {
	return event.NewKey[order.FieldChange](topic.Compose("contacts", f.String(), "change"))
}
