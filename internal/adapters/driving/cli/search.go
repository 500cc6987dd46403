package cli

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driving"
)

var (
	searchLimit       int
	searchJSON        bool
	searchPerDocument bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search notes by meaning",
	Long: `Embeds the query and ranks every cached note chunk by cosine similarity.
A note may appear once per matching paragraph; use --per-document to keep
only each note's best paragraph.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var similarCmd = &cobra.Command{
	Use:   "similar <note>",
	Short: "Find notes similar to a note",
	Long:  `Ranks other notes by their similarity to the given note's content.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSimilar,
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, similarCmd} {
		c.Flags().IntVarP(&searchLimit, "limit", "n", driving.DefaultTopK, "maximum number of results")
		c.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	}
	searchCmd.Flags().BoolVar(&searchPerDocument, "per-document", false, "show only the best match of each note")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(similarCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	s, err := services()
	if err != nil {
		return err
	}
	query := strings.Join(args, " ")

	limit := searchLimit
	if searchPerDocument && limit > 0 {
		// Over-fetch so deduplication still fills the page.
		limit *= 10
	}

	hits, err := s.Query.Query(cmd.Context(), query, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if searchPerDocument {
		hits = domain.DedupeByDocument(hits)
		if searchLimit > 0 && len(hits) > searchLimit {
			hits = hits[:searchLimit]
		}
	}

	if searchJSON {
		return outputHitsJSON(cmd, hits)
	}
	return outputHitsTable(cmd, hits)
}

func runSimilar(cmd *cobra.Command, args []string) error {
	s, err := services()
	if err != nil {
		return err
	}

	hits, err := s.Query.Similar(cmd.Context(), args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("similar notes: %w", err)
	}

	if searchJSON {
		return outputHitsJSON(cmd, hits)
	}
	return outputHitsTable(cmd, hits)
}

// hitJSON is the JSON shape of a hit. Score is null when undefined.
type hitJSON struct {
	Document string   `json:"document"`
	Title    string   `json:"title"`
	RecordID string   `json:"record_id"`
	Chunk    string   `json:"chunk"`
	Score    *float64 `json:"score"`
}

func outputHitsJSON(cmd *cobra.Command, hits []domain.SimilarityHit) error {
	out := make([]hitJSON, 0, len(hits))
	for _, h := range hits {
		item := hitJSON{
			Document: h.Document.ID,
			Title:    h.Document.Title,
			RecordID: h.RecordID,
			Chunk:    h.ChunkText,
		}
		if !math.IsNaN(h.Score) {
			score := h.Score
			item.Score = &score
		}
		out = append(out, item)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputHitsTable(cmd *cobra.Command, hits []domain.SimilarityHit) error {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, h := range hits {
		title := h.Document.Title
		if title == "" {
			title = h.Document.ID
		}

		score := "n/a"
		if !math.IsNaN(h.Score) {
			score = fmt.Sprintf("%.2f", h.Score)
		}

		cmd.Printf("  [%d] %s (%s)\n", i+1, title, score)
		cmd.Printf("      %s\n", h.Document.ID)
		if h.ChunkText != "" {
			cmd.Printf("      %s\n", preview(h.ChunkText, 96))
		}
		cmd.Println()
	}
	return nil
}
