package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep embeddings current while notes change",
	Long: `Watch the vault and regenerate the embeddings of every note that is
edited, renamed or deleted. Runs until interrupted.

With --auto-move, edited notes are also checked against the path rules
and moved when one matches.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("auto-move", false, "move edited notes that match a path rule")
	watchCmd.Flags().Bool("index", false, "index the whole vault before watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	s, err := services()
	if err != nil {
		return err
	}
	autoMove, _ := cmd.Flags().GetBool("auto-move")
	index, _ := cmd.Flags().GetBool("index")
	ctx := cmd.Context()

	if index {
		stats, err := s.Embeddings.IndexAll(ctx)
		if err != nil {
			return fmt.Errorf("indexing vault: %w", err)
		}
		cmd.Printf("Indexed %d notes (%d regenerated, %d failed)\n", stats.Total(), stats.Regenerated, stats.Failed)
	}

	s.Regenerator.Start(ctx)
	defer s.Regenerator.Stop()

	unsubscribe := s.Vault.OnContentChanged(func(change domain.DocumentChange) {
		logger.Debug("change: %s %s", change.Kind, change.DocumentID)
		s.Regenerator.HandleChange(change)
		if autoMove {
			s.Router.HandleChange(change)
		}
	})
	defer unsubscribe()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", s.Vault.Root())
	if err := s.Vault.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watching vault: %w", err)
	}
	cmd.Println("Stopped.")
	return nil
}
