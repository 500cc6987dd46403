package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/notewise/internal/core/domain"
)

var indexCmd = &cobra.Command{
	Use:   "index [note...]",
	Short: "Generate embeddings for notes",
	Long: `Generate or refresh embeddings for the given notes, or for the whole
vault when no note is named.

Cached embeddings younger than the configured expiration are reused.
Use --force to regenerate regardless of age.

Examples:
  notewise index
  notewise index projects/alpha.md --force`,
	RunE: runIndex,
}

var embeddingsCmd = &cobra.Command{
	Use:   "embeddings <note>",
	Short: "Show the cached embeddings of a note",
	Long: `List the stored embedding records of a note without regenerating them.

Each record shows its chunk, vector size, age and whether it is still fresh.`,
	Args: cobra.ExactArgs(1),
	RunE: runEmbeddings,
}

func init() {
	indexCmd.Flags().BoolP("force", "f", false, "regenerate even when cached embeddings are fresh")
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(embeddingsCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	s, err := services()
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	ctx := cmd.Context()

	if len(args) == 0 && !force {
		stats, err := s.Embeddings.IndexAll(ctx)
		if err != nil {
			return fmt.Errorf("indexing vault: %w", err)
		}
		cmd.Printf("Indexed %d notes: %d fresh, %d regenerated, %d failed\n",
			stats.Total(), stats.Fresh, stats.Regenerated, stats.Failed)
		return nil
	}

	ids := args
	if len(ids) == 0 {
		docs, err := s.Vault.List(ctx)
		if err != nil {
			return fmt.Errorf("listing vault: %w", err)
		}
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
	}

	var failed int
	for _, id := range ids {
		var records []domain.EmbeddingRecord
		if force {
			records, err = s.Embeddings.RegenerateDocument(ctx, id)
		} else {
			records, err = s.Embeddings.GetEmbeddingsForDocument(ctx, id)
		}
		if err != nil {
			if errors.Is(err, domain.ErrStorageUnavailable) {
				return err
			}
			failed++
			cmd.PrintErrf("  %s: %s\n", id, domain.UserMessage(err))
			continue
		}
		cmd.Printf("  %s: %d chunks\n", id, len(records))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d notes failed", failed, len(ids))
	}
	return nil
}

func runEmbeddings(cmd *cobra.Command, args []string) error {
	s, err := services()
	if err != nil {
		return err
	}
	id := args[0]

	records, err := s.Store.GetByDocument(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("reading embeddings: %w", err)
	}
	if len(records) == 0 {
		cmd.Printf("No embeddings for %s. Run 'notewise index %s' to generate them.\n", id, id)
		return nil
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Ordinal() < records[j].Ordinal()
	})

	now := time.Now()
	cmd.Printf("%s (%d chunks)\n\n", id, len(records))
	for _, r := range records {
		state := "stale"
		if r.IsFresh(now, s.Expiration) {
			state = "fresh"
		}
		cmd.Printf("  %s  dims=%d  age=%s  %s\n", r.ID, len(r.Vector), now.Sub(r.CreatedAt).Round(time.Second), state)
		cmd.Printf("    %s\n", preview(r.ChunkText, 72))
	}
	return nil
}

// preview collapses whitespace and shortens text to at most n runes.
func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n-3]) + "..."
}
