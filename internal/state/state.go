// Package state holds the storefront's single source of truth: the catalog,
// the previewed product, the basket and the order draft. Every mutation is
// announced on the event bus; views never reach into State to learn that
// something changed.
//
// State is not safe for concurrent use. internal/app runs every call on
// one mutation loop.
package state

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dshills/storefront/internal/basket"
	"github.com/dshills/storefront/internal/catalog"
	"github.com/dshills/storefront/internal/event"
	"github.com/dshills/storefront/internal/order"
	"github.com/dshills/storefront/internal/validation"
)

// Programmer errors. In strict mode they panic instead of being returned.
var (
	ErrUnknownField   = order.ErrUnknownField
	ErrUnknownPayment = order.ErrUnknownPayment
	ErrMissingProduct = errors.New("basket references a product missing from the catalog")
)

// CatalogChange is the payload of CatalogChanged.
type CatalogChange struct {
	Catalog []catalog.Product `json:"catalog"`
}

// Result events.
var (
	CatalogChanged    = event.NewKey[CatalogChange]("catalog-changed")
	PreviewChanged    = event.NewKey[catalog.Product]("preview-changed")
	BasketChanged     = basket.Changed
	FormErrorsChanged = validation.Changed
)

// Option configures a State.
type Option func(*State)

// WithStrict makes programmer errors panic.
func WithStrict(strict bool) Option {
	return func(s *State) {
		s.strict = strict
	}
}

// State is the application state.
type State struct {
	emitter event.Emitter
	strict  bool

	catalog   []catalog.Product
	index     map[string]int
	preview   *catalog.Product
	ledger    *basket.Ledger
	draft     order.Draft
	validator *validation.Engine
}

// New creates an empty state that announces changes on e.
func New(e event.Emitter, opts ...Option) *State {
	s := &State{
		emitter:   e,
		catalog:   []catalog.Product{},
		index:     make(map[string]int),
		ledger:    basket.NewLedger(e),
		draft:     order.NewDraft(),
		validator: validation.NewEngine(e),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Strict reports whether programmer errors panic.
func (s *State) Strict() bool {
	return s.strict
}

// fail reports a programmer error: panic in strict mode, otherwise return it.
func (s *State) fail(err error) error {
	if s.strict {
		panic(err)
	}
	return err
}

// SetCatalog replaces the catalog and emits CatalogChanged.
func (s *State) SetCatalog(ctx context.Context, products []catalog.Product) error {
	s.catalog = slices.Clone(products)
	if s.catalog == nil {
		s.catalog = []catalog.Product{}
	}
	s.index = make(map[string]int, len(s.catalog))
	for i, p := range s.catalog {
		s.index[p.ID] = i
	}
	return event.Emit(ctx, s.emitter, CatalogChanged, CatalogChange{Catalog: s.Catalog()})
}

// Catalog returns a copy of the catalog.
func (s *State) Catalog() []catalog.Product {
	return slices.Clone(s.catalog)
}

// Product looks up a catalog entry by id.
func (s *State) Product(id string) (catalog.Product, bool) {
	i, ok := s.index[id]
	if !ok {
		return catalog.Product{}, false
	}
	return s.catalog[i], true
}

// PreviewProduct makes p the previewed product and emits PreviewChanged.
func (s *State) PreviewProduct(ctx context.Context, p catalog.Product) error {
	s.preview = &p
	return event.Emit(ctx, s.emitter, PreviewChanged, p)
}

// Preview returns the previewed product, if any.
func (s *State) Preview() (catalog.Product, bool) {
	if s.preview == nil {
		return catalog.Product{}, false
	}
	return *s.preview, true
}

// IsInBasket returns true if the product id is in the basket.
func (s *State) IsInBasket(id string) bool {
	return s.ledger.Contains(id)
}

// AddToBasket adds p and emits BasketChanged. Adding a product that is
// already in the basket leaves it unchanged.
func (s *State) AddToBasket(ctx context.Context, p catalog.Product) error {
	return s.ledger.Add(ctx, p)
}

// RemoveFromBasket removes p and emits BasketChanged.
func (s *State) RemoveFromBasket(ctx context.Context, p catalog.Product) error {
	return s.ledger.Remove(ctx, p)
}

// ToggleBasket adds p when absent and removes it when present.
func (s *State) ToggleBasket(ctx context.Context, p catalog.Product) error {
	if s.ledger.Contains(p.ID) {
		return s.ledger.Remove(ctx, p)
	}
	return s.ledger.Add(ctx, p)
}

// ClearBasket empties the basket and emits BasketChanged.
func (s *State) ClearBasket(ctx context.Context) error {
	return s.ledger.Clear(ctx)
}

// Basket returns a snapshot of the basket.
func (s *State) Basket() basket.Basket {
	return s.ledger.Snapshot()
}

// BasketProducts resolves the basket against the catalog, in basket order.
// A basket id missing from the catalog is a programmer error; the products
// that did resolve are returned alongside it.
func (s *State) BasketProducts() ([]catalog.Product, error) {
	snap := s.ledger.Snapshot()
	products := make([]catalog.Product, 0, snap.Len())
	var missing []string
	for _, id := range snap.Items {
		p, ok := s.Product(id)
		if !ok {
			missing = append(missing, id)
			continue
		}
		products = append(products, p)
	}
	if len(missing) > 0 {
		return products, s.fail(fmt.Errorf("%w: %v", ErrMissingProduct, missing))
	}
	return products, nil
}

// SetPaymentMethod sets the payment method and re-validates the draft.
func (s *State) SetPaymentMethod(ctx context.Context, m order.PaymentMethod) error {
	if !m.IsValid() {
		return s.fail(fmt.Errorf("%w: %q", ErrUnknownPayment, m))
	}
	s.draft.Payment = m
	return s.validate(ctx)
}

// UpdateOrderField assigns value to field and re-validates the draft.
// Payment values are routed through SetPaymentMethod.
func (s *State) UpdateOrderField(ctx context.Context, field order.Field, value string) error {
	switch field {
	case order.FieldPayment:
		return s.SetPaymentMethod(ctx, order.PaymentMethod(value))
	case order.FieldEmail:
		s.draft.Email = value
	case order.FieldPhone:
		s.draft.Phone = value
	case order.FieldAddress:
		s.draft.Address = value
	default:
		return s.fail(fmt.Errorf("%w: %v", ErrUnknownField, field))
	}
	return s.validate(ctx)
}

// UpdateOrderFieldName is UpdateOrderField for a field given by its wire
// name, as carried by order.FieldChange.
func (s *State) UpdateOrderFieldName(ctx context.Context, name, value string) error {
	field, err := order.ParseField(name)
	if err != nil {
		return s.fail(err)
	}
	return s.UpdateOrderField(ctx, field, value)
}

func (s *State) validate(ctx context.Context) error {
	_, err := s.validator.Validate(ctx, s.draft)
	return err
}

// ValidateAndCommit re-validates the draft. Only when every field passes
// are the basket's items and total copied into the draft; otherwise the
// draft keeps whatever it held before. A non-nil error comes from
// form-errors handlers and is returned alongside the verdict.
func (s *State) ValidateAndCommit(ctx context.Context) (bool, error) {
	errs, err := s.validator.Validate(ctx, s.draft)
	if !errs.Valid() {
		return false, err
	}
	snap := s.ledger.Snapshot()
	s.draft.Items = snap.Items
	s.draft.Total = snap.Total
	return true, err
}

// Order returns a copy of the draft.
func (s *State) Order() order.Draft {
	return s.draft.Clone()
}

// Errors returns the latest validation result.
func (s *State) Errors() validation.Errors {
	return s.validator.Errors()
}

// OrderPayload returns the committed draft for submission. The basket is
// read at call time so the payload always matches what is being paid for.
func (s *State) OrderPayload() order.Draft {
	d := s.draft.Clone()
	snap := s.ledger.Snapshot()
	d.Items = snap.Items
	d.Total = snap.Total
	return d
}
