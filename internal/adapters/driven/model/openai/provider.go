// Package openai provides a model provider adapter using the OpenAI API
// or any server that implements its embeddings and chat completions endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.ModelProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultModel          = "gpt-3.5-turbo"
	DefaultEmbeddingModel = "text-embedding-ada-002"
	DefaultMaxRetries     = 2
)

// Config holds OpenAI provider configuration.
type Config struct {
	// APIKey is required.
	APIKey string

	// BaseURL overrides the API endpoint, e.g. for compatible servers or tests.
	BaseURL string

	// Model is the chat model (default: gpt-3.5-turbo).
	Model string

	// EmbeddingModel is the embedding model (default: text-embedding-ada-002).
	EmbeddingModel string

	// MaxRetries is the SDK retry budget. Negative disables retries.
	MaxRetries int
}

// Provider embeds and completes text through the OpenAI SDK.
type Provider struct {
	client         openaisdk.Client
	model          string
	embeddingModel string
}

// New creates a new OpenAI provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w: missing api key", domain.ErrInvalidInput)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}

	retries := cfg.MaxRetries
	if retries == 0 {
		retries = DefaultMaxRetries
	}
	if retries < 0 {
		retries = 0
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(retries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Provider{
		client:         openaisdk.NewClient(opts...),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := p.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{OfString: openaisdk.String(text)},
		Model: openaisdk.EmbeddingModel(p.embeddingModel),
	})
	if err != nil {
		return nil, classify("embed", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai: embed: %w: empty embedding", domain.ErrMalformedRecord)
	}
	return resp.Data[0].Embedding, nil
}

// Complete sends prompt as a single user message and returns the trimmed reply.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", classify("complete", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: complete: %w: no choices", domain.ErrMalformedRecord)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Name returns "openai".
func (p *Provider) Name() string {
	return string(domain.AIProviderOpenAI)
}

// ModelName returns the chat model.
func (p *Provider) ModelName() string {
	return p.model
}

// EmbeddingModel returns the embedding model.
func (p *Provider) EmbeddingModel() string {
	return p.embeddingModel
}

// Ping lists models to validate the key and endpoint.
func (p *Provider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}

// classify wraps SDK errors with the matching domain sentinel.
func classify(op string, err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("openai: %s: %w: %w", op, domain.ErrRateLimited, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("openai: %s: %w: %w", op, domain.ErrModelUnavailable, err)
		}
		return fmt.Errorf("openai: %s: %w", op, err)
	}
	return fmt.Errorf("openai: %s: %w: %w", op, domain.ErrModelUnavailable, err)
}
