package driven

import "context"

// ModelProvider embeds text and completes prompts.
//
// Implementations include:
//   - Ollama (local models)
//   - OpenAI and OpenAI-compatible servers
type ModelProvider interface {
	// Embed returns the embedding of text. A provider that cannot embed
	// returns an error; an empty vector is never a valid result.
	Embed(ctx context.Context, text string) ([]float64, error)

	// Complete returns the model's trimmed completion of prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// Name returns the provider name (e.g. "ollama").
	Name() string

	// ModelName returns the completion model.
	ModelName() string

	// EmbeddingModel returns the embedding model.
	EmbeddingModel() string

	// Ping validates the provider is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
