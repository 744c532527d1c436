// Package llm wraps the generative-model transport. The orchestrator treats
// the model as untrusted: it may hang, fail, or return malformed text, so
// everything above this package works with plain strings and its own parsing.
package llm

import "context"

// Prompt carries the three fixed prompt roles of one generation request.
// System sets the persona and hard constraints, Developer pins the exact
// output shape, User carries the per-request payload.
type Prompt struct {
	System    string
	Developer string
	User      string
}

// Client is a minimal text-generation transport. Cross-cutting concerns
// (timeouts, logging) are applied via Middleware.
type Client interface {
	Name() string
	GenerateText(ctx context.Context, p Prompt) (string, error)
	Close() error
}
