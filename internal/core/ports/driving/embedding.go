package driving

import (
	"context"

	"github.com/custodia-labs/notewise/internal/core/domain"
)

// IndexStats summarises an IndexAll pass.
type IndexStats struct {
	// Fresh counts documents whose cached embeddings were reused.
	Fresh int

	// Regenerated counts documents that were embedded again.
	Regenerated int

	// Failed counts documents that could not be embedded.
	Failed int
}

// Total returns the number of documents visited.
func (s IndexStats) Total() int {
	return s.Fresh + s.Regenerated + s.Failed
}

// EmbeddingService keeps per-document embeddings fresh.
type EmbeddingService interface {
	// GetEmbeddingsForDocument returns the document's records ordered by
	// chunk index, regenerating them when missing or stale.
	GetEmbeddingsForDocument(ctx context.Context, documentID string) ([]domain.EmbeddingRecord, error)

	// RegenerateDocument embeds the document from scratch and replaces its records.
	RegenerateDocument(ctx context.Context, documentID string) ([]domain.EmbeddingRecord, error)

	// GenerateEmbedding embeds arbitrary text without caching.
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)

	// InvalidateDocument removes every record of the document.
	InvalidateDocument(ctx context.Context, documentID string) error

	// IndexAll brings every note in the vault up to date.
	IndexAll(ctx context.Context) (IndexStats, error)
}
