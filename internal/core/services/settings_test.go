package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notewise/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/notewise/internal/core/domain"
)

type mockValidator struct {
	err    error
	called *domain.ModelSettings
}

func (m *mockValidator) Validate(config *domain.ModelSettings) error {
	m.called = config
	return m.err
}

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	require.NotNil(t, settings)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Model, settings.Model)
	assert.Equal(t, domain.DefaultCacheExpiration, settings.Cache.Expiration)
	assert.Equal(t, defaults.Vault.Path, settings.Vault.Path)
	assert.Equal(t, defaults.Indexing, settings.Indexing)
	assert.Empty(t, settings.PathRules)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("model.provider", "openai")
	_ = store.Set("model.name", "gpt-4")
	_ = store.Set("model.api_key", "sk-test")
	_ = store.Set("cache.expiration_ms", int64(60000))
	_ = store.Set("vault.path", "/notes")
	_ = store.Set("indexing.concurrency", 8)
	_ = store.Set("indexing.requests_per_second", 2.5)
	_ = store.Set("path_rules", []any{
		map[string]any{"criteria": "#work", "target_path": "Work"},
		map[string]any{"criteria": "", "target_path": "Skipped"},
	})
	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Model.Provider)
	assert.Equal(t, "gpt-4", settings.Model.Model)
	assert.Equal(t, "text-embedding-ada-002", settings.Model.EmbeddingModel)
	assert.Equal(t, "https://api.openai.com/v1", settings.Model.Endpoint)
	assert.Equal(t, "sk-test", settings.Model.APIKey)
	assert.Equal(t, time.Minute, settings.Cache.Expiration)
	assert.Equal(t, "/notes", settings.Vault.Path)
	assert.Equal(t, 8, settings.Indexing.Concurrency)
	assert.InDelta(t, 2.5, settings.Indexing.RequestsPerSecond, 1e-9)
	assert.Equal(t, []domain.PathRule{{Criteria: "#work", TargetPath: "Work"}}, settings.PathRules)
}

func TestSettingsService_Get_ZeroExpirationIsKept(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("cache.expiration_ms", 0)
	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), settings.Cache.Expiration)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("model.provider", "invalid_provider")
	_ = store.Set("cache.expiration_ms", -5)
	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Model.Provider)
	assert.Equal(t, domain.DefaultCacheExpiration, settings.Cache.Expiration)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.Model.Endpoint = "http://gpu:11434"
	settings.Cache.Expiration = 90 * time.Second
	settings.PathRules = []domain.PathRule{{Criteria: "#a", TargetPath: "A"}}

	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "http://gpu:11434", got.Model.Endpoint)
	assert.Equal(t, 90*time.Second, got.Cache.Expiration)
	assert.Equal(t, settings.PathRules, got.PathRules)
	assert.Equal(t, int64(90000), mustGet(t, store, "cache.expiration_ms"))
}

func mustGet(t *testing.T, store *memory.ConfigStore, key string) any {
	t.Helper()
	v, ok := store.Get(key)
	require.True(t, ok, key)
	return v
}

func TestSettingsService_Save_RejectsNegativeExpiration(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)
	settings := domain.DefaultAppSettings()
	settings.Cache.Expiration = -time.Second

	err := service.Save(&settings)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_SetProvider(t *testing.T) {
	t.Run("switching applies provider defaults", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)

		require.NoError(t, service.SetProvider(domain.AIProviderOpenAI, "", ""))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, domain.AIProviderOpenAI, settings.Model.Provider)
		assert.Equal(t, "gpt-3.5-turbo", settings.Model.Model)
		assert.Equal(t, "text-embedding-ada-002", settings.Model.EmbeddingModel)
		assert.Equal(t, "https://api.openai.com/v1", settings.Model.Endpoint)
	})

	t.Run("explicit model and endpoint", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)

		require.NoError(t, service.SetProvider(domain.AIProviderOllama, "bloom", "http://box:11434"))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, "bloom", settings.Model.Model)
		assert.Equal(t, "http://box:11434", settings.Model.Endpoint)
	})

	t.Run("invalid provider", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)

		err := service.SetProvider("anthropic", "", "")

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestSettingsService_SetAPIKey(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NoError(t, service.SetAPIKey("sk-123"))
	assert.Equal(t, "sk-123", store.GetString("model.api_key"))

	assert.ErrorIs(t, service.SetAPIKey(""), domain.ErrInvalidInput)
}

func TestSettingsService_SetCacheExpiration(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, service.SetCacheExpiration(2*time.Hour))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, settings.Cache.Expiration)

	assert.ErrorIs(t, service.SetCacheExpiration(-time.Millisecond), domain.ErrInvalidInput)
}

func TestSettingsService_PathRules(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, service.AddPathRule(domain.PathRule{Criteria: "#a", TargetPath: "A"}))
	require.NoError(t, service.AddPathRule(domain.PathRule{Criteria: "#b", TargetPath: "B"}))
	assert.ErrorIs(t, service.AddPathRule(domain.PathRule{Criteria: "#c"}), domain.ErrInvalidInput)

	require.NoError(t, service.RemovePathRule(0))
	assert.ErrorIs(t, service.RemovePathRule(5), domain.ErrNotFound)

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, []domain.PathRule{{Criteria: "#b", TargetPath: "B"}}, settings.PathRules)
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)
		assert.NoError(t, service.Validate())
	})

	t.Run("openai without key", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("model.provider", "openai")
		service := NewSettingsService(store, nil)

		assert.ErrorIs(t, service.Validate(), domain.ErrModelUnavailable)
	})

	t.Run("negative rate", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("indexing.requests_per_second", -1.0)
		service := NewSettingsService(store, nil)

		assert.ErrorIs(t, service.Validate(), domain.ErrInvalidInput)
	})
}

func TestSettingsService_ValidateModelConfig(t *testing.T) {
	t.Run("nil validator", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)
		assert.NoError(t, service.ValidateModelConfig())
	})

	t.Run("delegates to validator", func(t *testing.T) {
		validator := &mockValidator{err: errors.New("unreachable")}
		service := NewSettingsService(memory.NewConfigStore(), validator)

		err := service.ValidateModelConfig()

		assert.EqualError(t, err, "unreachable")
		require.NotNil(t, validator.called)
		assert.Equal(t, domain.AIProviderOllama, validator.called.Provider)
	})
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}
