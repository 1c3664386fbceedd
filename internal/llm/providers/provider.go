// File path: internal/llm/providers/provider.go
package providers

import "context"

type Message struct {
	Role    string
	Content string
}

// Provider is the oracle contract: it proposes text for a conversation. No
// guarantee of correctness or safety is implied; validation happens entirely
// on the caller's side.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Name() string
}
