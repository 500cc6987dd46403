package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
	"github.com/custodia-labs/notewise/internal/core/ports/driving"
	"github.com/custodia-labs/notewise/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driving.EmbeddingService = (*EmbeddingService)(nil)

// defaultConcurrency bounds parallel chunk embedding when not configured.
const defaultConcurrency = 4

// errEmptyVector is the cause recorded when a provider returns no values.
var errEmptyVector = errors.New("provider returned an empty vector")

// EmbeddingService is the embedding cache manager. It reuses stored
// embeddings while they are fresh and regenerates them otherwise.
type EmbeddingService struct {
	docs     driven.DocumentStore
	store    driven.EmbeddingStore
	provider driven.ModelProvider
	chunker  driven.Chunker

	expiration  time.Duration
	concurrency int
	now         func() time.Time

	flight singleflight.Group

	mu     sync.Mutex
	passes map[string]*pass
}

// pass is the context of one shared regeneration. It outlives any single
// caller and is cancelled once every caller waiting on it has gone.
type pass struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// EmbeddingOption configures an EmbeddingService.
type EmbeddingOption func(*EmbeddingService)

// WithClock overrides the time source used for freshness and CreatedAt.
func WithClock(now func() time.Time) EmbeddingOption {
	return func(s *EmbeddingService) {
		s.now = now
	}
}

// WithExpiration sets how long embeddings stay fresh. Zero disables reuse.
func WithExpiration(d time.Duration) EmbeddingOption {
	return func(s *EmbeddingService) {
		s.expiration = d
	}
}

// WithConcurrency bounds how many chunks are embedded in parallel.
func WithConcurrency(n int) EmbeddingOption {
	return func(s *EmbeddingService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewEmbeddingService creates a cache manager over the given ports.
func NewEmbeddingService(
	docs driven.DocumentStore,
	store driven.EmbeddingStore,
	provider driven.ModelProvider,
	chunker driven.Chunker,
	opts ...EmbeddingOption,
) *EmbeddingService {
	s := &EmbeddingService{
		docs:        docs,
		store:       store,
		provider:    provider,
		chunker:     chunker,
		expiration:  domain.DefaultCacheExpiration,
		concurrency: defaultConcurrency,
		now:         time.Now,
		passes:      make(map[string]*pass),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetEmbeddingsForDocument returns the document's records, regenerating
// them when none exist or the first record is stale.
func (s *EmbeddingService) GetEmbeddingsForDocument(
	ctx context.Context, documentID string,
) ([]domain.EmbeddingRecord, error) {
	records, _, err := s.ensure(ctx, documentID)
	return records, err
}

// ensure is GetEmbeddingsForDocument that also reports whether it regenerated.
func (s *EmbeddingService) ensure(
	ctx context.Context, documentID string,
) ([]domain.EmbeddingRecord, bool, error) {
	records, err := s.store.GetByDocument(ctx, documentID)
	if err != nil {
		return nil, false, fmt.Errorf("get embeddings for %s: %w", documentID, err)
	}
	sortByOrdinal(records)

	if len(records) > 0 && records[0].IsFresh(s.now(), s.expiration) {
		logger.Debug("embeddings for %s are fresh (%d records)", documentID, len(records))
		return records, false, nil
	}

	logger.Debug("embeddings for %s missing or stale, regenerating", documentID)
	records, err = s.RegenerateDocument(ctx, documentID)
	if err != nil {
		return nil, false, err
	}
	return records, true, nil
}

// RegenerateDocument embeds every chunk of the document and replaces its
// stored records. Concurrent calls for one document share a single pass.
// A caller whose ctx ends returns ctx.Err() without failing the others.
func (s *EmbeddingService) RegenerateDocument(
	ctx context.Context, documentID string,
) ([]domain.EmbeddingRecord, error) {
	p := s.join(ctx, documentID)
	defer s.leave(documentID, p)

	for {
		ch := s.flight.DoChan(documentID, func() (any, error) {
			return s.regenerate(p.ctx, documentID)
		})

		var res singleflight.Result
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res = <-ch:
		}

		// A pass abandoned by all of its earlier callers may be joined just
		// before it stops. Start a new one.
		if errors.Is(res.Err, context.Canceled) && p.ctx.Err() == nil && ctx.Err() == nil {
			logger.Debug("regeneration of %s was abandoned, retrying", documentID)
			continue
		}
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logger.Debug("regeneration of %s shared with a concurrent caller", documentID)
		}
		records, _ := res.Val.([]domain.EmbeddingRecord)
		return slices.Clone(records), nil
	}
}

// join registers a caller of the pass for documentID, creating the pass
// context from ctx without its cancellation when none is running.
func (s *EmbeddingService) join(ctx context.Context, documentID string) *pass {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.passes[documentID]
	if !ok {
		pctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		p = &pass{ctx: pctx, cancel: cancel}
		s.passes[documentID] = p
	}
	p.waiters++
	return p
}

// leave unregisters a caller and cancels the pass when it was the last.
func (s *EmbeddingService) leave(documentID string, p *pass) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.waiters--
	if p.waiters > 0 {
		return
	}
	p.cancel()
	if s.passes[documentID] == p {
		delete(s.passes, documentID)
	}
}

func (s *EmbeddingService) regenerate(ctx context.Context, documentID string) ([]domain.EmbeddingRecord, error) {
	text, err := s.docs.ReadText(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	type chunk struct {
		index int
		text  string
	}

	// Identical paragraphs are embedded once; the first keeps its index.
	var chunks []chunk
	seen := make(map[string]struct{})
	for i, para := range s.chunker.Split(text) {
		if _, ok := seen[para]; ok {
			continue
		}
		seen[para] = struct{}{}
		chunks = append(chunks, chunk{index: i, text: para})
	}

	vectors := make([][]float64, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			vec, err := s.provider.Embed(gctx, c.text)
			if err != nil {
				return &domain.GenerationError{DocumentID: documentID, ChunkIndex: c.index, Err: err}
			}
			if len(vec) == 0 {
				return &domain.GenerationError{DocumentID: documentID, ChunkIndex: c.index, Err: errEmptyVector}
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	createdAt := s.now()
	records := make([]domain.EmbeddingRecord, len(chunks))
	for i, c := range chunks {
		records[i] = domain.EmbeddingRecord{
			ID:         domain.RecordID(documentID, c.index),
			Vector:     vectors[i],
			DocumentID: documentID,
			ChunkText:  c.text,
			CreatedAt:  createdAt,
		}
		if err := records[i].Validate(); err != nil {
			return nil, &domain.GenerationError{DocumentID: documentID, ChunkIndex: c.index, Err: err}
		}
	}

	if err := s.store.ReplaceDocument(ctx, documentID, records); err != nil {
		return nil, fmt.Errorf("store embeddings for %s: %w", documentID, err)
	}
	logger.Debug("regenerated %d embeddings for %s", len(records), documentID)
	return records, nil
}

// GenerateEmbedding embeds text directly. Results are not cached.
func (s *EmbeddingService) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	vec, err := s.provider.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingGenerationFailed, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingGenerationFailed, errEmptyVector)
	}
	return vec, nil
}

// InvalidateDocument removes the document's records.
func (s *EmbeddingService) InvalidateDocument(ctx context.Context, documentID string) error {
	if err := s.store.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("invalidate %s: %w", documentID, err)
	}
	return nil
}

// IndexAll ensures every note in the vault has fresh embeddings.
// Failures of individual notes are counted; storage failures abort.
func (s *EmbeddingService) IndexAll(ctx context.Context) (driving.IndexStats, error) {
	var stats driving.IndexStats

	docs, err := s.docs.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("list vault: %w", err)
	}
	logger.Info("indexing %d notes", len(docs))

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		_, regenerated, err := s.ensure(ctx, doc.ID)
		switch {
		case errors.Is(err, domain.ErrStorageUnavailable):
			return stats, err
		case err != nil:
			stats.Failed++
			logger.Warn("index %s: %v", doc.ID, err)
		case regenerated:
			stats.Regenerated++
		default:
			stats.Fresh++
		}
	}
	return stats, nil
}

func sortByOrdinal(records []domain.EmbeddingRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Ordinal() < records[j].Ordinal()
	})
}
