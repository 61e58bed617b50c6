// Package topic provides event names and the patterns used to select them.
//
// # Topic Format
//
// Result events use plain kebab-case names:
//
//	catalog-changed
//	basket-changed
//	form-errors-changed
//
// Form intents are scoped by the form that produced them:
//
//	order.payment:change
//	order.address:change
//	contacts.email:change
//
// # Patterns
//
// Subscriptions can select topics with a Pattern:
//
//   - Exact("basket-changed") matches one topic
//   - Glob("order.*:change") matches any field change of the order form
//   - Glob("basket-*") is a prefix match, Glob("*:change") a suffix match
//   - Regexp(`^contacts\..*:change`) for anything the globs cannot express
//
// # Usage
//
//	p := topic.MustGlob("order.*:change")
//	p.Match(topic.Compose("order", "address", "change")) // true
package topic
