// Package order defines the order form model: the draft a customer fills in
// across the payment and contacts steps, and the result of submitting it.
package order

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrUnknownField is returned for a field name outside the order form.
	ErrUnknownField = errors.New("unknown order field")

	// ErrUnknownPayment is returned for a payment method other than card or cash.
	ErrUnknownPayment = errors.New("unknown payment method")
)

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentCash PaymentMethod = "cash"
)

// IsValid returns true for card and cash.
func (m PaymentMethod) IsValid() bool {
	return m == PaymentCard || m == PaymentCash
}

// ParsePaymentMethod parses "card" or "cash".
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(s)
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPayment, s)
	}
	return m, nil
}

// Field identifies an editable order form field.
type Field int

const (
	FieldPayment Field = iota + 1
	FieldEmail
	FieldPhone
	FieldAddress
)

var fieldNames = map[Field]string{
	FieldPayment: "payment",
	FieldEmail:   "email",
	FieldPhone:   "phone",
	FieldAddress: "address",
}

// String returns the field's wire name.
func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// MarshalText implements encoding.TextMarshaler so Field can key JSON maps.
func (f Field) MarshalText() ([]byte, error) {
	name, ok := fieldNames[f]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownField, int(f))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Field) UnmarshalText(text []byte) error {
	parsed, err := ParseField(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseField maps a wire name to a Field.
func ParseField(name string) (Field, error) {
	for f, n := range fieldNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Draft is the order being filled in. Items and Total stay unset until the
// form is committed; they are copied from the basket at that moment only.
type Draft struct {
	Payment PaymentMethod `json:"payment"`
	Email   string        `json:"email"`
	Phone   string        `json:"phone"`
	Address string        `json:"address"`
	Total   int64         `json:"total"`
	Items   []string      `json:"items"`
}

// NewDraft returns an empty draft paying by card.
func NewDraft() Draft {
	return Draft{
		Payment: PaymentCard,
		Items:   []string{},
	}
}

// Clone returns a copy that shares no memory with d.
func (d Draft) Clone() Draft {
	d.Items = slices.Clone(d.Items)
	if d.Items == nil {
		d.Items = []string{}
	}
	return d
}

// Result is the order service's confirmation.
type Result struct {
	ID    string `json:"id"`
	Total int64  `json:"total"`
}

// FieldChange is the payload of a form field intent such as
// "order.address:change". Field holds the wire name as typed by the form.
type FieldChange struct {
	Field string `json:"field"`
	Value string `json:"value"`
}
