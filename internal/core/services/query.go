package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
	"github.com/custodia-labs/notewise/internal/core/ports/driving"
	"github.com/custodia-labs/notewise/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// QueryService ranks stored chunks by cosine similarity to a query.
// It scans every record; there is no approximate index.
type QueryService struct {
	embeddings driving.EmbeddingService
	store      driven.EmbeddingStore
	docs       driven.DocumentStore
}

// NewQueryService creates a new query engine.
func NewQueryService(
	embeddings driving.EmbeddingService,
	store driven.EmbeddingStore,
	docs driven.DocumentStore,
) *QueryService {
	return &QueryService{
		embeddings: embeddings,
		store:      store,
		docs:       docs,
	}
}

// Query returns up to topK chunk hits ordered by descending similarity.
func (s *QueryService) Query(ctx context.Context, text string, topK int) ([]domain.SimilarityHit, error) {
	logger.Section("Similarity Query")
	logger.Debug("Query: %q", text)

	if topK <= 0 || strings.TrimSpace(text) == "" {
		return []domain.SimilarityHit{}, nil
	}

	hits, err := s.rank(ctx, text, "")
	if err != nil {
		return nil, err
	}
	return truncate(hits, topK), nil
}

// Similar returns the notes most similar to documentID, one hit per note.
func (s *QueryService) Similar(ctx context.Context, documentID string, topK int) ([]domain.SimilarityHit, error) {
	if topK <= 0 {
		return []domain.SimilarityHit{}, nil
	}

	content, err := s.docs.ReadText(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", documentID, err)
	}
	if strings.TrimSpace(content) == "" {
		return []domain.SimilarityHit{}, nil
	}

	hits, err := s.rank(ctx, content, documentID)
	if err != nil {
		return nil, err
	}
	return truncate(domain.DedupeByDocument(hits), topK), nil
}

// rank scores every stored record against text, skipping records of exclude.
func (s *QueryService) rank(ctx context.Context, text, exclude string) ([]domain.SimilarityHit, error) {
	query, err := s.embeddings.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	records, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	logger.Debug("Scoring %d records", len(records))

	resolver := newDocResolver(s.docs)
	queryNorm := magnitude(query)

	hits := make([]domain.SimilarityHit, 0, len(records))
	for _, r := range records {
		if r.DocumentID == exclude {
			continue
		}
		if len(r.Vector) != len(query) {
			logger.Warn("skipping record %s: vector has %d dimensions, query has %d", r.ID, len(r.Vector), len(query))
			continue
		}

		doc, err := resolver.resolve(ctx, r.DocumentID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			continue
		}

		hits = append(hits, domain.SimilarityHit{
			Document:  *doc,
			RecordID:  r.ID,
			ChunkText: r.ChunkText,
			Score:     cosine(query, r.Vector, queryNorm),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return scoreLess(hits[j].Score, hits[i].Score)
	})
	return hits, nil
}

// docResolver memoises document lookups for the duration of one query.
type docResolver struct {
	docs  driven.DocumentStore
	cache map[string]*domain.Document
	miss  map[string]struct{}
}

func newDocResolver(docs driven.DocumentStore) *docResolver {
	return &docResolver{
		docs:  docs,
		cache: make(map[string]*domain.Document),
		miss:  make(map[string]struct{}),
	}
}

func (r *docResolver) resolve(ctx context.Context, id string) (*domain.Document, error) {
	if doc, ok := r.cache[id]; ok {
		return doc, nil
	}
	if _, ok := r.miss[id]; ok {
		return nil, domain.ErrDocumentNotFound
	}

	// Hits of a note that cannot be resolved are dropped, never fatal.
	doc, err := r.docs.Stat(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			logger.Debug("dropping hits for missing document %s", id)
		} else {
			logger.Warn("dropping hits for %s: %v", id, err)
		}
		r.miss[id] = struct{}{}
		return nil, domain.ErrDocumentNotFound
	}
	r.cache[id] = doc
	return doc, nil
}

// CosineSimilarity returns dot(a,b) / (|a| |b|), or NaN when the vectors
// differ in length or either has zero magnitude.
func CosineSimilarity(a, b []float64) float64 {
	return cosine(a, b, magnitude(a))
}

func cosine(a, b []float64, normA float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.NaN()
	}
	var dot, sumB float64
	for i := range a {
		dot += a[i] * b[i]
		sumB += b[i] * b[i]
	}
	normB := math.Sqrt(sumB)
	if normA == 0 || normB == 0 {
		return math.NaN()
	}
	return dot / (normA * normB)
}

func magnitude(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// scoreLess orders scores ascending with NaN below every number.
func scoreLess(a, b float64) bool {
	switch {
	case math.IsNaN(a):
		return !math.IsNaN(b)
	case math.IsNaN(b):
		return false
	default:
		return a < b
	}
}

func truncate(hits []domain.SimilarityHit, topK int) []domain.SimilarityHit {
	if topK <= 0 {
		return []domain.SimilarityHit{}
	}
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}
