package topic

import (
	"strings"
	"unicode"
)

// Topic is the name an event is emitted under.
//
// Plain result events use kebab-case ("basket-changed"). Form intents use a
// scoped form "<scope>.<field>:<action>", e.g. "order.address:change".
type Topic string

const (
	// ScopeSeparator separates the scope from the field in a scoped topic.
	ScopeSeparator = "."

	// ActionSeparator separates the field from the action in a scoped topic.
	ActionSeparator = ":"
)

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// IsValid returns true if the topic is non-empty and contains no whitespace.
func (t Topic) IsValid() bool {
	if t == "" {
		return false
	}
	return strings.IndexFunc(string(t), unicode.IsSpace) < 0
}

// Compose builds a scoped topic.
//
// Example: Compose("order", "email", "change") -> "order.email:change"
func Compose(scope, field, action string) Topic {
	return Topic(scope + ScopeSeparator + field + ActionSeparator + action)
}

// Split breaks a scoped topic into its scope, field and action.
// ok is false if the topic is not of the form "<scope>.<field>:<action>".
func (t Topic) Split() (scope, field, action string, ok bool) {
	s := string(t)
	dot := strings.Index(s, ScopeSeparator)
	colon := strings.LastIndex(s, ActionSeparator)
	if dot <= 0 || colon <= dot+1 || colon == len(s)-1 {
		return "", "", "", false
	}
	return s[:dot], s[dot+1 : colon], s[colon+1:], true
}

// Scope returns the scope of a scoped topic, or "" if the topic is not scoped.
//
// Example: "contacts.phone:change" -> "contacts"
func (t Topic) Scope() string {
	scope, _, _, ok := t.Split()
	if !ok {
		return ""
	}
	return scope
}

// Field returns the field of a scoped topic, or "" if the topic is not scoped.
//
// Example: "contacts.phone:change" -> "phone"
func (t Topic) Field() string {
	_, field, _, ok := t.Split()
	if !ok {
		return ""
	}
	return field
}
