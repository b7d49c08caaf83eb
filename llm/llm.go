package llm

import (
	"context"
	"errors"
)

var ErrCompletionFailed = errors.New("chat completion failed")

// Provider is a single-turn, non-streaming chat completion backend.
type Provider interface {
	Complete(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}
