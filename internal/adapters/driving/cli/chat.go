package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/notewise/internal/adapters/driving/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the model in an interactive terminal UI",
	Long: `Open a full-screen chat with the configured model. The conversation
is kept until you quit or start a new one.

Controls:
  Enter      - Send
  Alt+Enter  - New line
  PgUp/PgDn  - Scroll
  Ctrl+R     - New conversation
  Esc        - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) (err error) {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	s, err := services()
	if err != nil {
		return err
	}

	ports := &tui.Ports{Chat: s.Chat}
	if s.Model != nil {
		ports.ModelLabel = s.Model.Name() + "/" + s.Model.ModelName()
	}

	app, err := tui.NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
