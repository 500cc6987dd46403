package driving

import (
	"time"

	"github.com/custodia-labs/notewise/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetProvider configures the model provider. Empty model and endpoint
	// select the provider defaults.
	SetProvider(provider domain.AIProvider, model, endpoint string) error

	// SetAPIKey stores the provider API key.
	SetAPIKey(apiKey string) error

	// SetCacheExpiration changes how long embeddings stay fresh.
	SetCacheExpiration(expiration time.Duration) error

	// AddPathRule appends a routing rule.
	AddPathRule(rule domain.PathRule) error

	// RemovePathRule removes the rule at index.
	RemovePathRule(index int) error

	// Validate checks the current settings are usable.
	Validate() error

	// ValidateModelConfig pings the configured provider.
	ValidateModelConfig() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
