package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies a model provider for embeddings and completions.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API or a compatible server.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// AvailableModels lists the completion models offered for the provider.
func (p AIProvider) AvailableModels() []string {
	switch p {
	case AIProviderOllama:
		return []string{"llama2", "gpt4all", "bloom"}
	case AIProviderOpenAI:
		return []string{"gpt-3.5-turbo", "gpt-4"}
	default:
		return nil
	}
}

// AllAIProviders returns every supported provider.
func AllAIProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI}
}

// DefaultModels returns the default completion model per provider.
func DefaultModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama2",
		AIProviderOpenAI: "gpt-3.5-turbo",
	}
}

// DefaultEmbeddingModels returns the default embedding model per provider.
// Ollama embeds with the completion model unless configured otherwise.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama2",
		AIProviderOpenAI: "text-embedding-ada-002",
	}
}

// DefaultEndpoints returns the default API endpoint per provider.
func DefaultEndpoints() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "http://localhost:11434",
		AIProviderOpenAI: "https://api.openai.com/v1",
	}
}

// ModelSettings holds model provider configuration.
type ModelSettings struct {
	// Provider is the model service provider.
	Provider AIProvider

	// Model is the completion model name.
	Model string

	// EmbeddingModel is the embedding model name.
	EmbeddingModel string

	// Endpoint is the API base URL.
	Endpoint string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the provider is set up.
func (m ModelSettings) IsConfigured() bool {
	if !m.Provider.IsValid() {
		return false
	}
	if m.Provider.RequiresAPIKey() && m.APIKey == "" {
		return false
	}
	return true
}

// CacheSettings controls embedding freshness.
type CacheSettings struct {
	// Expiration is how long embeddings stay fresh. Zero means always regenerate.
	Expiration time.Duration
}

// VaultSettings locates the note directory.
type VaultSettings struct {
	Path string
}

// StorageSettings locates the embedding database.
type StorageSettings struct {
	DataDir string
}

// IndexingSettings bounds provider load during regeneration.
type IndexingSettings struct {
	// Concurrency is the number of chunks embedded in parallel.
	Concurrency int

	// RequestsPerSecond limits provider calls. Zero disables limiting.
	RequestsPerSecond float64

	// Burst is the rate limiter bucket size.
	Burst int
}

// AppSettings holds all application configuration.
type AppSettings struct {
	Model     ModelSettings
	Cache     CacheSettings
	Vault     VaultSettings
	Storage   StorageSettings
	Indexing  IndexingSettings
	PathRules []PathRule
}

// DefaultCacheExpiration is how long embeddings stay fresh by default.
const DefaultCacheExpiration = 24 * time.Hour

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Model: ModelSettings{
			Provider:       AIProviderOllama,
			Model:          DefaultModels()[AIProviderOllama],
			EmbeddingModel: DefaultEmbeddingModels()[AIProviderOllama],
			Endpoint:       DefaultEndpoints()[AIProviderOllama],
		},
		Cache: CacheSettings{
			Expiration: DefaultCacheExpiration,
		},
		Vault: VaultSettings{
			Path: ".",
		},
		Indexing: IndexingSettings{
			Concurrency:       4,
			RequestsPerSecond: 0,
			Burst:             1,
		},
	}
}
