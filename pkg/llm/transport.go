package llm

import "time"

// DefaultTimeout bounds a single completion round trip.
const DefaultTimeout = 120 * time.Second

// ResolveOptions applies opts over the provider defaults.
func ResolveOptions(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// PromptMessages wraps a single prompt as a one-turn user conversation.
func PromptMessages(prompt string) []Message {
	return []Message{{Role: RoleUser, Content: prompt}}
}
