package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/notewise/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the model provider, embedding cache and path rules.

Use subcommands to configure specific settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to choose a provider, models and API key.`,
	RunE:  runSettingsWizard,
}

var settingsProviderCmd = &cobra.Command{
	Use:   "provider <ollama|openai>",
	Short: "Set the model provider",
	Long: `Select the provider used for embeddings and completions.

Switching provider resets the models and endpoint to the provider's
defaults unless --model, --embedding-model or --endpoint are given.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsProvider,
}

var settingsAPIKeyCmd = &cobra.Command{
	Use:   "api-key [key]",
	Short: "Set the provider API key",
	Long:  `Store the API key. When no key is given it is read from the terminal without echo.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSettingsAPIKey,
}

var settingsCacheCmd = &cobra.Command{
	Use:   "cache <expiration>",
	Short: "Set how long embeddings stay fresh",
	Long: `Set the embedding cache expiration as a duration ("24h", "90m") or in
milliseconds. Zero regenerates embeddings on every request.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsCache,
}

var settingsRuleCmd = &cobra.Command{
	Use:   "rule",
	Short: "List path rules",
	Long: `Path rules move notes whose content contains the criteria text.
A target ending in .md renames the note; any other target is a folder.`,
	Args: cobra.NoArgs,
	RunE: runSettingsRuleList,
}

var settingsRuleAddCmd = &cobra.Command{
	Use:   "add <criteria> <target>",
	Short: "Add a path rule",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsRuleAdd,
}

var settingsRuleRemoveCmd = &cobra.Command{
	Use:   "remove <number>",
	Short: "Remove a path rule by its number",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsRuleRemove,
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check settings and provider connectivity",
	RunE:  runSettingsValidate,
}

func init() {
	settingsProviderCmd.Flags().String("model", "", "completion model")
	settingsProviderCmd.Flags().String("embedding-model", "", "embedding model")
	settingsProviderCmd.Flags().String("endpoint", "", "API base URL")

	settingsRuleCmd.AddCommand(settingsRuleAddCmd)
	settingsRuleCmd.AddCommand(settingsRuleRemoveCmd)

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsProviderCmd)
	settingsCmd.AddCommand(settingsAPIKeyCmd)
	settingsCmd.AddCommand(settingsCacheCmd)
	settingsCmd.AddCommand(settingsRuleCmd)
	settingsCmd.AddCommand(settingsValidateCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	s, err := services()
	if err != nil {
		return err
	}

	settings, err := s.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Model]")
	cmd.Printf("  Provider: %s\n", settings.Model.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Model.Model)
	cmd.Printf("  Embedding model: %s\n", settings.Model.EmbeddingModel)
	cmd.Printf("  Endpoint: %s\n", settings.Model.Endpoint)
	if settings.Model.Provider.RequiresAPIKey() {
		if settings.Model.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Model.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !settings.Model.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Cache]")
	if settings.Cache.Expiration == 0 {
		cmd.Println("  Expiration: 0 (always regenerate)")
	} else {
		cmd.Printf("  Expiration: %s\n", settings.Cache.Expiration)
	}
	cmd.Println()

	cmd.Println("[Vault]")
	cmd.Printf("  Path: %s\n", settings.Vault.Path)
	if settings.Storage.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", settings.Storage.DataDir)
	}
	cmd.Println()

	cmd.Println("[Indexing]")
	cmd.Printf("  Concurrency: %d\n", settings.Indexing.Concurrency)
	if settings.Indexing.RequestsPerSecond > 0 {
		cmd.Printf("  Rate limit: %g req/s (burst %d)\n", settings.Indexing.RequestsPerSecond, settings.Indexing.Burst)
	} else {
		cmd.Println("  Rate limit: none")
	}
	cmd.Println()

	cmd.Println("[Path Rules]")
	printRules(cmd, settings.PathRules)
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	s, err := services()
	if err != nil {
		return err
	}

	cmd.Println("Notewise Settings Wizard")
	cmd.Println("========================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Select Model Provider")
	cmd.Println("-----------------------------")
	providers := domain.AllAIProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	provider := providers[idx-1]

	cmd.Println()
	cmd.Println("Step 2: Models")
	cmd.Println("--------------")
	defaultModel := domain.DefaultModels()[provider]
	cmd.Printf("Completion model [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}
	defaultEndpoint := domain.DefaultEndpoints()[provider]
	cmd.Printf("Endpoint [%s]: ", defaultEndpoint)
	endpoint := readLine(reader)

	if err := s.Settings.SetProvider(provider, model, endpoint); err != nil {
		return fmt.Errorf("failed to set provider: %w", err)
	}

	if provider.RequiresAPIKey() {
		cmd.Println()
		cmd.Println("Step 3: API Key")
		cmd.Println("---------------")
		cmd.Print("Enter API key: ")
		apiKey := readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
		if err := s.Settings.SetAPIKey(apiKey); err != nil {
			return fmt.Errorf("failed to set API key: %w", err)
		}
	}

	cmd.Println()
	cmd.Print("Validating configuration... ")
	if err := s.Settings.ValidateModelConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		cmd.Println("Settings were saved; fix the provider and run 'notewise settings validate'.")
		return nil
	}
	cmd.Println("OK")
	cmd.Printf("Model provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

func runSettingsProvider(cmd *cobra.Command, args []string) error {
	s, err := services()
	if err != nil {
		return err
	}

	provider := domain.AIProvider(strings.ToLower(args[0]))
	if !provider.IsValid() {
		return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, args[0])
	}
	model, _ := cmd.Flags().GetString("model")
	embeddingModel, _ := cmd.Flags().GetString("embedding-model")
	endpoint, _ := cmd.Flags().GetString("endpoint")

	if err := s.Settings.SetProvider(provider, model, endpoint); err != nil {
		return fmt.Errorf("failed to set provider: %w", err)
	}

	if embeddingModel != "" {
		settings, err := s.Settings.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		settings.Model.EmbeddingModel = embeddingModel
		if err := s.Settings.Save(settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
	}

	cmd.Printf("Provider set to %s\n", provider.Description())
	if provider.RequiresAPIKey() {
		cmd.Println("Run 'notewise settings api-key' to store your API key.")
	}
	return nil
}

func runSettingsAPIKey(cmd *cobra.Command, args []string) error {
	s, err := services()
	if err != nil {
		return err
	}

	var key string
	if len(args) == 1 {
		key = strings.TrimSpace(args[0])
	} else {
		cmd.Print("Enter API key: ")
		key = readPassword(cmd.InOrStdin(), bufio.NewReader(cmd.InOrStdin()))
		cmd.Println()
	}
	if key == "" {
		return fmt.Errorf("%w: API key is empty", domain.ErrInvalidInput)
	}

	if err := s.Settings.SetAPIKey(key); err != nil {
		return fmt.Errorf("failed to set API key: %w", err)
	}
	cmd.Printf("API key saved: %s\n", maskAPIKey(key))
	return nil
}

func runSettingsCache(cmd *cobra.Command, args []string) error {
	s, err := services()
	if err != nil {
		return err
	}

	expiration, err := parseExpiration(args[0])
	if err != nil {
		return err
	}
	if err := s.Settings.SetCacheExpiration(expiration); err != nil {
		return fmt.Errorf("failed to set cache expiration: %w", err)
	}
	if expiration == 0 {
		cmd.Println("Cache expiration set to 0: embeddings regenerate on every request")
		return nil
	}
	cmd.Printf("Cache expiration set to %s\n", expiration)
	return nil
}

func runSettingsRuleList(cmd *cobra.Command, _ []string) error {
	s, err := services()
	if err != nil {
		return err
	}
	settings, err := s.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	printRules(cmd, settings.PathRules)
	return nil
}

func runSettingsRuleAdd(cmd *cobra.Command, args []string) error {
	s, err := services()
	if err != nil {
		return err
	}
	rule := domain.PathRule{Criteria: args[0], TargetPath: args[1]}
	if err := s.Settings.AddPathRule(rule); err != nil {
		return fmt.Errorf("failed to add rule: %w", err)
	}
	cmd.Printf("Added rule: %q -> %s\n", rule.Criteria, rule.TargetPath)
	return nil
}

func runSettingsRuleRemove(cmd *cobra.Command, args []string) error {
	s, err := services()
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return fmt.Errorf("%w: rule number must be a positive integer", domain.ErrInvalidInput)
	}
	if err := s.Settings.RemovePathRule(n - 1); err != nil {
		return fmt.Errorf("failed to remove rule %d: %w", n, err)
	}
	cmd.Printf("Removed rule %d\n", n)
	return nil
}

func runSettingsValidate(cmd *cobra.Command, _ []string) error {
	s, err := services()
	if err != nil {
		return err
	}
	if err := s.Settings.Validate(); err != nil {
		return err
	}
	cmd.Print("Validating configuration... ")
	if err := s.Settings.ValidateModelConfig(); err != nil {
		cmd.Println("FAILED")
		return err
	}
	cmd.Println("OK")
	return nil
}

func printRules(cmd *cobra.Command, rules []domain.PathRule) {
	if len(rules) == 0 {
		cmd.Println("  (none)")
		return
	}
	for i, r := range rules {
		cmd.Printf("  %d. %q -> %s\n", i+1, r.Criteria, r.TargetPath)
	}
}

// parseExpiration accepts a Go duration or a plain number of milliseconds.
func parseExpiration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("%w: expiration must not be negative", domain.ErrInvalidInput)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: expiration %q is neither a duration nor milliseconds", domain.ErrInvalidInput, s)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: expiration must not be negative", domain.ErrInvalidInput)
	}
	return d, nil
}

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal, otherwise a line
// from reader, which must wrap in.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	// Try to read password without echo
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	// Fallback to regular input
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
