// Package app wires the adapters and services into the CLI.
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/notewise/internal/adapters/driven/ai"
	"github.com/custodia-labs/notewise/internal/adapters/driven/config/file"
	"github.com/custodia-labs/notewise/internal/adapters/driven/model"
	"github.com/custodia-labs/notewise/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/notewise/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/notewise/internal/adapters/driven/vault/filesystem"
	"github.com/custodia-labs/notewise/internal/adapters/driving/cli"
	"github.com/custodia-labs/notewise/internal/chunker"
	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
	"github.com/custodia-labs/notewise/internal/core/services"
	"github.com/custodia-labs/notewise/internal/logger"
)

// Environment variables that override the config file.
const (
	EnvProvider = "NOTEWISE_PROVIDER"
	EnvModel    = "NOTEWISE_MODEL"
	EnvEndpoint = "NOTEWISE_ENDPOINT"
	EnvAPIKey   = "NOTEWISE_API_KEY" //nolint:gosec // G101: variable name, not a credential.
	EnvVault    = "NOTEWISE_VAULT"
)

const regeneratorWorkers = 2

// ErrNoVault is returned when the vault directory cannot be opened.
var ErrNoVault = errors.New("vault not found")

// Bootstrap builds every service from the config directory and flags.
// Environment overrides apply to this run only and are never saved.
func Bootstrap(opts cli.Options) (*cli.Services, func(), error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	configDir := opts.ConfigDir
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, nil, err
		}
		configDir = dir
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open config: %w", err)
	}
	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		return nil, nil, fmt.Errorf("open prompts: %w", err)
	}

	settingsSvc := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	applyEnv(settings)
	if opts.Vault != "" {
		settings.Vault.Path = opts.Vault
	}

	vault, err := filesystem.New(settings.Vault.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrNoVault, err)
	}

	store, closeStore, err := openStore(opts.Ephemeral, settings.Storage.DataDir, configDir)
	if err != nil {
		return nil, nil, err
	}

	provider, err := ai.CreateModelProvider(&settings.Model, settings.Indexing)
	if err != nil {
		logger.Debug("model provider unavailable: %v", err)
		provider = model.NewUnavailable(settings.Model, err)
	}

	embeddings := services.NewEmbeddingService(vault, store, provider, chunker.New(),
		services.WithExpiration(settings.Cache.Expiration),
		services.WithConcurrency(settings.Indexing.Concurrency),
	)
	query := services.NewQueryService(embeddings, store, vault)
	router := services.NewPathRouter(vault, settings.PathRules)
	regenerator := services.NewRegenerator(embeddings, services.RegeneratorConfig{
		Workers: regeneratorWorkers,
		OnError: func(change domain.DocumentChange, err error) {
			logger.Warn("regenerate %s: %v", change.DocumentID, err)
		},
	})

	svc := &cli.Services{
		Embeddings:  embeddings,
		Query:       query,
		Settings:    settingsSvc,
		Titles:      services.NewTitleService(vault, query, provider, prompts),
		Tags:        services.NewTagService(vault, provider, prompts),
		Atomizer:    services.NewAtomizerService(vault, provider, prompts),
		Cleaner:     services.NewCleanerService(vault, provider, prompts),
		Tasks:       services.NewTaskService(provider, prompts),
		Chat:        services.NewChatService(provider),
		Router:      router,
		Vault:       vault,
		Store:       store,
		Model:       provider,
		Regenerator: regenerator,
		Expiration:  settings.Cache.Expiration,
	}

	release := func() {
		regenerator.Stop()
		router.Wait()
		if err := provider.Close(); err != nil {
			logger.Debug("close model provider: %v", err)
		}
		if err := closeStore(); err != nil {
			logger.Warn("close embedding store: %v", err)
		}
	}

	return svc, release, nil
}

// openStore returns the embedding store and a function that closes it.
// Ephemeral runs keep embeddings in memory.
func openStore(ephemeral bool, dataDir, configDir string) (driven.EmbeddingStore, func() error, error) {
	if ephemeral {
		return memory.NewEmbeddingStore(), func() error { return nil }, nil
	}
	if dataDir == "" {
		dataDir = filepath.Join(configDir, "data")
	}
	db, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	return db.EmbeddingStore(), db.Close, nil
}

// applyEnv overlays NOTEWISE_* variables onto settings. Changing the
// provider without a model or endpoint selects that provider's defaults.
func applyEnv(settings *domain.AppSettings) {
	if v := lookup(EnvProvider); v != "" {
		p := domain.AIProvider(strings.ToLower(v))
		if p != settings.Model.Provider {
			settings.Model.Provider = p
			settings.Model.Model = domain.DefaultModels()[p]
			settings.Model.EmbeddingModel = domain.DefaultEmbeddingModels()[p]
			settings.Model.Endpoint = domain.DefaultEndpoints()[p]
		}
	}
	if v := lookup(EnvModel); v != "" {
		settings.Model.Model = v
	}
	if v := lookup(EnvEndpoint); v != "" {
		settings.Model.Endpoint = v
	}
	if v := lookup(EnvAPIKey); v != "" {
		settings.Model.APIKey = v
	}
	if v := lookup(EnvVault); v != "" {
		settings.Vault.Path = v
	}
}

func lookup(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
