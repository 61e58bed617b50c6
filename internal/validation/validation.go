// Package validation checks the order form and broadcasts the resulting
// field errors.
package validation

import (
	"context"
	"errors"
	"maps"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/dshills/storefront/internal/event"
	"github.com/dshills/storefront/internal/order"
)

// Changed is emitted after every validation pass with a copy of the errors.
var Changed = event.NewKey[Errors]("form-errors-changed")

// Messages shown for invalid fields.
const (
	MsgEmail   = "Provide a valid email"
	MsgPhone   = "Provide a phone number"
	MsgAddress = "Provide a delivery address of at least 5 characters"
)

// MinAddressLength is the shortest accepted address, after trimming.
const MinAddressLength = 5

// Fields are the fields every pass checks.
var Fields = []order.Field{order.FieldEmail, order.FieldPhone, order.FieldAddress}

// Validation tags registered on the validator.
const (
	tagEmail      = "shop_email"
	tagPhone      = "ru_phone"
	tagMinTrimmed = "min_trimmed"
)

var (
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,4}$`)
	phoneRe = regexp.MustCompile(`^(?:\+7|8)\d{10}$`)
)

// contacts is the part of a draft the form checks.
type contacts struct {
	Email   string `validate:"shop_email"`
	Phone   string `validate:"ru_phone"`
	Address string `validate:"min_trimmed=5"`
}

// fieldNames maps contacts struct fields to form fields.
var fieldNames = map[string]order.Field{
	"Email":   order.FieldEmail,
	"Phone":   order.FieldPhone,
	"Address": order.FieldAddress,
}

var messages = map[order.Field]string{
	order.FieldEmail:   MsgEmail,
	order.FieldPhone:   MsgPhone,
	order.FieldAddress: MsgAddress,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	rules := map[string]validator.Func{
		tagEmail: func(fl validator.FieldLevel) bool {
			return emailRe.MatchString(fl.Field().String())
		},
		tagPhone: func(fl validator.FieldLevel) bool {
			return phoneRe.MatchString(sanitizePhone(fl.Field().String()))
		},
		tagMinTrimmed: func(fl validator.FieldLevel) bool {
			n, err := strconv.Atoi(fl.Param())
			if err != nil {
				return false
			}
			return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	return v
}

// ValidEmail reports whether s looks like local@domain.tld, with a two to
// four letter top-level domain.
func ValidEmail(s string) bool {
	return validate.Var(s, tagEmail) == nil
}

// ValidPhone reports whether s is a +7 or 8 number with ten more digits,
// ignoring whitespace, parentheses and hyphens.
func ValidPhone(s string) bool {
	return validate.Var(s, tagPhone) == nil
}

func sanitizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '(' || r == ')' || r == '-' {
			return -1
		}
		return r
	}, s)
}

// ValidAddress reports whether the trimmed address has at least
// MinAddressLength characters.
func ValidAddress(s string) bool {
	return validate.Var(s, tagMinTrimmed+"="+strconv.Itoa(MinAddressLength)) == nil
}

// Errors maps each checked field to its message. An empty message means the
// field was checked and is valid; an absent key means it was never checked.
type Errors map[order.Field]string

// Valid returns true if no field has a message.
func (e Errors) Valid() bool {
	for _, msg := range e {
		if msg != "" {
			return false
		}
	}
	return true
}

// Clone returns a copy of e.
func (e Errors) Clone() Errors {
	if e == nil {
		return Errors{}
	}
	return maps.Clone(e)
}

// Messages joins the non-empty messages of the given fields with "; ",
// in the order the fields are listed. A form step shows only its own fields.
func (e Errors) Messages(fields ...order.Field) string {
	var msgs []string
	for _, f := range fields {
		if msg := e[f]; msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return strings.Join(msgs, "; ")
}

// ValidFields returns true if none of the given fields has a message.
func (e Errors) ValidFields(fields ...order.Field) bool {
	return e.Messages(fields...) == ""
}

// Check computes the errors for d. Every field in Fields gets an entry.
func Check(d order.Draft) Errors {
	errs := Errors{
		order.FieldEmail:   "",
		order.FieldPhone:   "",
		order.FieldAddress: "",
	}
	err := validate.Struct(contacts{Email: d.Email, Phone: d.Phone, Address: d.Address})

	var failed validator.ValidationErrors
	if errors.As(err, &failed) {
		for _, fe := range failed {
			if f, ok := fieldNames[fe.Field()]; ok {
				errs[f] = messages[f]
			}
		}
	}
	return errs
}

// Engine holds the result of the latest validation pass.
type Engine struct {
	emitter event.Emitter
	errs    Errors
}

// NewEngine creates an engine that has not validated anything yet.
func NewEngine(e event.Emitter) *Engine {
	return &Engine{
		emitter: e,
		errs:    Errors{},
	}
}

// Validate recomputes every field from d, replacing the previous result,
// and emits Changed. The returned Errors is the engine's new result; the
// error reports handler failures from the emit.
func (v *Engine) Validate(ctx context.Context, d order.Draft) (Errors, error) {
	v.errs = Check(d)
	return v.errs.Clone(), event.Emit(ctx, v.emitter, Changed, v.errs.Clone())
}

// Errors returns a copy of the latest result.
func (v *Engine) Errors() Errors {
	return v.errs.Clone()
}

// Valid returns true if the latest pass found no errors. Before the first
// pass nothing has failed, so it is also true.
func (v *Engine) Valid() bool {
	return v.errs.Valid()
}
