package event

// FilterBySource creates a filter that only allows events from the specified
// source. Front ends use it to render only their own intents.
func FilterBySource(source string) FilterFunc {
	return func(env Envelope) bool {
		return env.Metadata.Source == source
	}
}
