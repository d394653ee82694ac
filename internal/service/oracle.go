package service

import "context"

// CompletionClient defines the interface for text-completion calls. The
// OpenAI client satisfies it; tests substitute mocks.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
