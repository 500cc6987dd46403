package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
	"github.com/custodia-labs/notewise/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyModelProvider    = "model.provider"
	keyModelName        = "model.name"
	keyEmbeddingModel   = "model.embedding_model"
	keyModelEndpoint    = "model.endpoint"
	keyModelAPIKey      = "model.api_key"
	keyCacheExpiration  = "cache.expiration_ms"
	keyVaultPath        = "vault.path"
	keyStorageDataDir   = "storage.data_dir"
	keyIndexConcurrency = "indexing.concurrency"
	keyIndexRPS         = "indexing.requests_per_second"
	keyIndexBurst       = "indexing.burst"
	keyPathRules        = "path_rules"
	keyRuleCriteria     = "criteria"
	keyRuleTargetPath   = "target_path"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	validator   driven.ModelValidator
}

// NewSettingsService creates a new settings service. validator may be nil.
func NewSettingsService(configStore driven.ConfigStore, validator driven.ModelValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		validator:   validator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	provider := s.getProvider(defaults.Model.Provider)
	settings := &domain.AppSettings{
		Model: domain.ModelSettings{
			Provider:       provider,
			Model:          s.getString(keyModelName, domain.DefaultModels()[provider]),
			EmbeddingModel: s.getString(keyEmbeddingModel, domain.DefaultEmbeddingModels()[provider]),
			Endpoint:       s.getString(keyModelEndpoint, domain.DefaultEndpoints()[provider]),
			APIKey:         s.configStore.GetString(keyModelAPIKey),
		},
		Cache: domain.CacheSettings{
			Expiration: s.getExpiration(defaults.Cache.Expiration),
		},
		Vault: domain.VaultSettings{
			Path: s.getString(keyVaultPath, defaults.Vault.Path),
		},
		Storage: domain.StorageSettings{
			DataDir: s.configStore.GetString(keyStorageDataDir), // Empty selects the adapter default
		},
		Indexing: domain.IndexingSettings{
			Concurrency:       s.getInt(keyIndexConcurrency, defaults.Indexing.Concurrency),
			RequestsPerSecond: s.configStore.GetFloat(keyIndexRPS),
			Burst:             s.getInt(keyIndexBurst, defaults.Indexing.Burst),
		},
		PathRules: s.getPathRules(),
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if settings.Cache.Expiration < 0 {
		return fmt.Errorf("%w: cache expiration must not be negative", domain.ErrInvalidInput)
	}

	values := []struct {
		key   string
		value any
	}{
		{keyModelProvider, settings.Model.Provider.String()},
		{keyModelName, settings.Model.Model},
		{keyEmbeddingModel, settings.Model.EmbeddingModel},
		{keyModelEndpoint, settings.Model.Endpoint},
		{keyCacheExpiration, settings.Cache.Expiration.Milliseconds()},
		{keyVaultPath, settings.Vault.Path},
		{keyStorageDataDir, settings.Storage.DataDir},
		{keyIndexConcurrency, settings.Indexing.Concurrency},
		{keyIndexRPS, settings.Indexing.RequestsPerSecond},
		{keyIndexBurst, settings.Indexing.Burst},
		{keyPathRules, pathRulesToConfig(settings.PathRules)},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Model.APIKey != "" {
		if err := s.configStore.Set(keyModelAPIKey, settings.Model.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyModelAPIKey, err)
		}
	}

	return nil
}

// SetProvider configures the model provider.
func (s *SettingsService) SetProvider(provider domain.AIProvider, model, endpoint string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	changed := settings.Model.Provider != provider
	settings.Model.Provider = provider

	// Set model - use provided or default
	switch {
	case model != "":
		settings.Model.Model = model
	case changed:
		settings.Model.Model = domain.DefaultModels()[provider]
	}
	if changed {
		settings.Model.EmbeddingModel = domain.DefaultEmbeddingModels()[provider]
	}

	switch {
	case endpoint != "":
		settings.Model.Endpoint = endpoint
	case changed:
		settings.Model.Endpoint = domain.DefaultEndpoints()[provider]
	}

	return s.Save(settings)
}

// SetAPIKey stores the provider API key.
func (s *SettingsService) SetAPIKey(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("%w: API key must not be empty", domain.ErrInvalidInput)
	}
	return s.configStore.Set(keyModelAPIKey, apiKey)
}

// SetCacheExpiration changes how long embeddings stay fresh.
func (s *SettingsService) SetCacheExpiration(expiration time.Duration) error {
	if expiration < 0 {
		return fmt.Errorf("%w: cache expiration must not be negative", domain.ErrInvalidInput)
	}
	return s.configStore.Set(keyCacheExpiration, expiration.Milliseconds())
}

// AddPathRule appends a routing rule.
func (s *SettingsService) AddPathRule(rule domain.PathRule) error {
	if rule.Criteria == "" || rule.TargetPath == "" {
		return fmt.Errorf("%w: rule needs criteria and target path", domain.ErrInvalidInput)
	}
	rules := append(s.getPathRules(), rule)
	return s.configStore.Set(keyPathRules, pathRulesToConfig(rules))
}

// RemovePathRule removes the rule at index.
func (s *SettingsService) RemovePathRule(index int) error {
	rules := s.getPathRules()
	if index < 0 || index >= len(rules) {
		return fmt.Errorf("%w: no rule at index %d", domain.ErrNotFound, index)
	}
	rules = append(rules[:index], rules[index+1:]...)
	return s.configStore.Set(keyPathRules, pathRulesToConfig(rules))
}

// Validate checks the current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Model.Provider.IsValid() {
		return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, settings.Model.Provider)
	}
	if !settings.Model.IsConfigured() {
		return fmt.Errorf("%w: %s requires an API key", domain.ErrModelUnavailable, settings.Model.Provider)
	}
	if settings.Cache.Expiration < 0 {
		return fmt.Errorf("%w: cache expiration must not be negative", domain.ErrInvalidInput)
	}
	if settings.Indexing.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests per second must not be negative", domain.ErrInvalidInput)
	}
	return nil
}

// ValidateModelConfig pings the configured provider.
func (s *SettingsService) ValidateModelConfig() error {
	if s.validator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.validator.Validate(&settings.Model)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getProvider(defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(keyModelProvider)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

// getExpiration distinguishes an explicit zero (always regenerate) from unset.
func (s *SettingsService) getExpiration(defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(keyCacheExpiration); !exists {
		return defaultVal
	}
	ms := s.configStore.GetInt(keyCacheExpiration)
	if ms < 0 {
		return defaultVal
	}
	return time.Duration(ms) * time.Millisecond
}

func (s *SettingsService) getPathRules() []domain.PathRule {
	tables := s.configStore.GetMapSlice(keyPathRules)
	rules := make([]domain.PathRule, 0, len(tables))
	for _, t := range tables {
		criteria, _ := t[keyRuleCriteria].(string)
		target, _ := t[keyRuleTargetPath].(string)
		if criteria == "" || target == "" {
			continue
		}
		rules = append(rules, domain.PathRule{Criteria: criteria, TargetPath: target})
	}
	return rules
}

func pathRulesToConfig(rules []domain.PathRule) []map[string]any {
	out := make([]map[string]any, len(rules))
	for i, r := range rules {
		out[i] = map[string]any{
			keyRuleCriteria:   r.Criteria,
			keyRuleTargetPath: r.TargetPath,
		}
	}
	return out
}
