package driving

import (
	"context"

	"github.com/custodia-labs/notewise/internal/core/domain"
)

// DefaultTopK is the hit count driving adapters ask for when the user does not choose.
const DefaultTopK = 5

// QueryService ranks embedded chunks by similarity to a query.
type QueryService interface {
	// Query returns up to topK hits ordered by descending cosine similarity.
	// topK <= 0 yields no hits. Hits are per chunk and not deduplicated.
	Query(ctx context.Context, text string, topK int) ([]domain.SimilarityHit, error)

	// Similar returns notes similar to documentID, one hit per note,
	// excluding the note itself.
	Similar(ctx context.Context, documentID string, topK int) ([]domain.SimilarityHit, error)
}
