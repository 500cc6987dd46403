package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
	"github.com/custodia-labs/notewise/internal/core/ports/driving"
	"github.com/custodia-labs/notewise/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Vault is the note vault as the CLI sees it.
type Vault interface {
	driven.DocumentStore

	// Root returns the absolute vault directory.
	Root() string

	// Watch reports external edits until ctx is cancelled.
	Watch(ctx context.Context) error
}

// Regenerator re-embeds changed notes in the background.
type Regenerator interface {
	HandleChange(change domain.DocumentChange)
	Start(ctx context.Context)
	Stop()
}

// Services holds everything the commands need. The composition root
// builds it; tests install mocks with SetServices.
type Services struct {
	Embeddings driving.EmbeddingService
	Query      driving.QueryService
	Settings   driving.SettingsService
	Titles     driving.TitleSuggester
	Tags       driving.TagSuggester
	Atomizer   driving.Atomizer
	Cleaner    driving.TextCleaner
	Tasks      driving.TaskRunner
	Chat       driving.ChatService
	Router     driving.PathRouter

	Vault       Vault
	Store       driven.EmbeddingStore
	Model       driven.ModelProvider
	Regenerator Regenerator

	// Expiration is the configured embedding freshness window.
	Expiration time.Duration
}

// Options are the global flags passed to the bootstrap function.
type Options struct {
	ConfigDir string
	Vault     string
	Ephemeral bool
}

// BootstrapFunc builds the services. The returned cleanup releases them.
type BootstrapFunc func(opts Options) (*Services, func(), error)

var (
	svc       *Services
	bootstrap BootstrapFunc
	cleanup   func()
	opts      Options
	verbose   bool
)

// SetServices installs prebuilt services, skipping bootstrap.
func SetServices(s *Services) {
	svc = s
}

// SetBootstrap sets the function that builds services on first use.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

var rootCmd = &cobra.Command{
	Use:   "notewise",
	Short: "Semantic search and writing assistance for a markdown vault",
	Long: `Notewise indexes a folder of markdown notes with embeddings and uses
a language model to search, title, tag, split and tidy them.

Embeddings are cached per note and regenerated when they expire or
when the note changes.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initServices,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		release()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "configuration directory (default ~/.notewise)")
	rootCmd.PersistentFlags().StringVar(&opts.Vault, "vault", "", "vault directory (overrides settings)")
	rootCmd.PersistentFlags().BoolVar(&opts.Ephemeral, "ephemeral", false, "keep embeddings in memory only")
}

// needsServices reports whether cmd touches the vault or the model.
func needsServices(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion":
		return false
	}
	return cmd.Runnable()
}

func initServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if svc != nil || !needsServices(cmd) {
		return nil
	}
	if bootstrap == nil {
		return errors.New("services not configured")
	}

	s, done, err := bootstrap(opts)
	if err != nil {
		return err
	}
	svc = s
	cleanup = done
	return nil
}

// release runs the bootstrap cleanup once.
func release() {
	if cleanup == nil {
		return
	}
	cleanup()
	cleanup = nil
	svc = nil
}

// services returns the installed services.
func services() (*Services, error) {
	if svc == nil {
		return nil, errors.New("services not configured")
	}
	return svc, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		release()
		fmt.Fprintln(os.Stderr, "Error:", domain.UserMessage(err))
		stop()
		os.Exit(1)
	}
}
