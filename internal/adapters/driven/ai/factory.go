// Package ai provides factory functions for creating model provider adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/notewise/internal/adapters/driven/model"
	"github.com/custodia-labs/notewise/internal/adapters/driven/model/ollama"
	"github.com/custodia-labs/notewise/internal/adapters/driven/model/openai"
	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateModelProvider creates the provider described by settings, wrapped
// with rate limiting from indexing.
func CreateModelProvider(settings *domain.ModelSettings, indexing domain.IndexingSettings) (driven.ModelProvider, error) {
	if settings == nil || !settings.Provider.IsValid() {
		return nil, fmt.Errorf("%w: unsupported model provider %q", domain.ErrModelUnavailable, providerName(settings))
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: %s requires an API key. Run 'notewise settings api-key' to set one",
			domain.ErrModelUnavailable, settings.Provider)
	}

	var (
		provider driven.ModelProvider
		err      error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		provider = ollama.New(ollama.Config{
			BaseURL:        settings.Endpoint,
			Model:          settings.Model,
			EmbeddingModel: settings.EmbeddingModel,
		})

	case domain.AIProviderOpenAI:
		provider, err = openai.New(openai.Config{
			APIKey:         settings.APIKey,
			BaseURL:        settings.Endpoint,
			Model:          settings.Model,
			EmbeddingModel: settings.EmbeddingModel,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
		}
	}

	return model.NewRateLimited(provider, model.RateLimitConfig{
		RequestsPerSecond: indexing.RequestsPerSecond,
		BurstSize:         indexing.Burst,
	}), nil
}

// CreateAndValidate creates a provider and validates connectivity.
// Returns the provider if successful, or an error with guidance.
func CreateAndValidate(settings *domain.ModelSettings, indexing domain.IndexingSettings) (driven.ModelProvider, error) {
	provider, err := CreateModelProvider(settings, indexing)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := provider.Ping(ctx); err != nil {
		provider.Close()
		return nil, fmt.Errorf("%w: %s unreachable (%w). Run 'notewise settings show' to check the endpoint",
			domain.ErrModelUnavailable, settings.Provider, err)
	}

	return provider, nil
}

// ValidateConfig creates a provider for settings and pings it.
// This is intended for use by the settings commands to validate configuration.
func ValidateConfig(settings *domain.ModelSettings) error {
	provider, err := CreateModelProvider(settings, domain.IndexingSettings{})
	if err != nil {
		return err
	}
	defer provider.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return provider.Ping(ctx)
}

func providerName(settings *domain.ModelSettings) string {
	if settings == nil {
		return ""
	}
	return string(settings.Provider)
}
