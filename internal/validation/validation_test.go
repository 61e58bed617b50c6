package validation

import (
	"context"
	"testing"

	"github.com/dshills/storefront/internal/event"
	"github.com/dshills/storefront/internal/order"
)

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"a@b.co", true},
		{"first.last-name_1@mail.example.com", true},
		{"a@b.info", true},
		{"a@b", false},
		{"a@b.c", false},
		{"a@b.museum", false},
		{"x@y.example", false},
		{"buyer@shop.ru", true},
		{"@b.co", false},
		{"a b@c.co", false},
		{"a+tag@b.co", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := ValidEmail(tt.email); got != tt.want {
				t.Errorf("ValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"+79991234567", true},
		{"89991234567", true},
		{"+7 (999) 123-45-67", true},
		{"8 999 123 45 67", true},
		{"123", false},
		{"79991234567", false},
		{"+7999123456", false},
		{"+799912345678", false},
		{"+7999123456a", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			if got := ValidPhone(tt.phone); got != tt.want {
				t.Errorf("ValidPhone(%q) = %v, want %v", tt.phone, got, tt.want)
			}
		})
	}
}

func TestValidAddress(t *testing.T) {
	tests := []struct {
		address string
		want    bool
	}{
		{"12345", true},
		{"1234", false},
		{"  1234  ", false},
		{"  12345 ", true},
		{"улица", true},
		{"", false},
		{"     ", false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			if got := ValidAddress(tt.address); got != tt.want {
				t.Errorf("ValidAddress(%q) = %v, want %v", tt.address, got, tt.want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	d := order.NewDraft()
	d.Email = "a@b"
	d.Phone = "+79991234567"
	d.Address = "1234"

	errs := Check(d)

	if len(errs) != 3 {
		t.Fatalf("Check() returned %d keys, want 3", len(errs))
	}
	if errs[order.FieldEmail] != MsgEmail {
		t.Errorf("email = %q, want %q", errs[order.FieldEmail], MsgEmail)
	}
	if msg, ok := errs[order.FieldPhone]; !ok || msg != "" {
		t.Errorf("phone = %q, %v, want present and empty", msg, ok)
	}
	if errs[order.FieldAddress] != MsgAddress {
		t.Errorf("address = %q, want %q", errs[order.FieldAddress], MsgAddress)
	}
	if errs.Valid() {
		t.Error("Valid() = true with failing fields")
	}
}

func TestCheck_Fields(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		phone   string
		address string
		want    Errors
	}{
		{
			name:    "all valid",
			email:   "buyer@shop.ru",
			phone:   "8 (999) 123-45-67",
			address: "12 Market Street",
			want:    Errors{order.FieldEmail: "", order.FieldPhone: "", order.FieldAddress: ""},
		},
		{
			name: "all empty",
			want: Errors{order.FieldEmail: MsgEmail, order.FieldPhone: MsgPhone, order.FieldAddress: MsgAddress},
		},
		{
			name:    "long tld",
			email:   "x@y.example",
			phone:   "+79991234567",
			address: "12345",
			want:    Errors{order.FieldEmail: MsgEmail, order.FieldPhone: "", order.FieldAddress: ""},
		},
		{
			name:    "padded address",
			email:   "a@b.co",
			phone:   "+79991234567",
			address: "  123  ",
			want:    Errors{order.FieldEmail: "", order.FieldPhone: "", order.FieldAddress: MsgAddress},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := order.NewDraft()
			d.Email, d.Phone, d.Address = tt.email, tt.phone, tt.address

			got := Check(d)
			if len(got) != len(tt.want) {
				t.Fatalf("Check() = %v, want %v", got, tt.want)
			}
			for f, msg := range tt.want {
				if got[f] != msg {
					t.Errorf("%s = %q, want %q", f, got[f], msg)
				}
			}
		})
	}
}

func TestErrors_Messages(t *testing.T) {
	errs := Errors{
		order.FieldEmail:   MsgEmail,
		order.FieldPhone:   MsgPhone,
		order.FieldAddress: "",
	}

	if got := errs.Messages(order.FieldPayment, order.FieldAddress); got != "" {
		t.Errorf("order step messages = %q, want empty", got)
	}
	if got, want := errs.Messages(order.FieldPhone, order.FieldEmail), MsgPhone+"; "+MsgEmail; got != want {
		t.Errorf("contacts step messages = %q, want %q", got, want)
	}
	if !errs.ValidFields(order.FieldAddress) || errs.ValidFields(order.FieldEmail) {
		t.Error("ValidFields() mismatch")
	}
}

func TestErrors_ValidIgnoresEmptyMessages(t *testing.T) {
	errs := Errors{order.FieldEmail: "", order.FieldPhone: "", order.FieldAddress: ""}
	if !errs.Valid() {
		t.Error("Valid() = false with only empty messages")
	}
	if !(Errors{}).Valid() {
		t.Error("Valid() = false on empty map")
	}
}

func TestEngine_Validate(t *testing.T) {
	bus := event.NewBus()
	var announced []Errors
	event.On(bus, Changed, func(ctx context.Context, e Errors) error {
		announced = append(announced, e)
		return nil
	})

	v := NewEngine(bus)
	if len(v.Errors()) != 0 {
		t.Fatalf("new engine has %d errors, want 0", len(v.Errors()))
	}

	d := order.NewDraft()
	d.Email = "a@b"
	errs, err := v.Validate(context.Background(), d)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if errs.Valid() || v.Valid() {
		t.Error("expected invalid result")
	}

	// Fixing every field clears every message on the next pass.
	d.Email = "a@b.co"
	d.Phone = "89991234567"
	d.Address = "Main St 1"
	errs, _ = v.Validate(context.Background(), d)
	if !errs.Valid() || !v.Valid() {
		t.Errorf("expected valid result, got %v", errs)
	}
	if len(errs) != 3 {
		t.Errorf("result has %d keys, want 3", len(errs))
	}

	if len(announced) != 2 {
		t.Fatalf("announced %d times, want 2", len(announced))
	}
	if announced[0][order.FieldEmail] != MsgEmail {
		t.Errorf("first announcement email = %q", announced[0][order.FieldEmail])
	}
}

func TestEngine_ResultIsCopy(t *testing.T) {
	bus := event.NewBus()
	event.On(bus, Changed, func(ctx context.Context, e Errors) error {
		e[order.FieldEmail] = "tampered"
		return nil
	})

	v := NewEngine(bus)
	errs, _ := v.Validate(context.Background(), order.NewDraft())
	errs[order.FieldPhone] = "tampered"

	got := v.Errors()
	if got[order.FieldEmail] != MsgEmail || got[order.FieldPhone] != MsgPhone {
		t.Errorf("engine state was modified through a copy: %v", got)
	}
}
