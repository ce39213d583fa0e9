package text

import "context"

// DefaultMaxTokens is the reply budget used when the caller does not pass one.
const DefaultMaxTokens = 350

type Provider interface {
	// Complete issues one synchronous chat-completion request and returns
	// the first textual completion. No retries at this layer.
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}
