package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
)

// Ensure EmbeddingStore implements the interface.
var _ driven.EmbeddingStore = (*EmbeddingStore)(nil)

type chunkKey struct {
	documentID string
	chunkText  string
}

// EmbeddingStore is an in-memory implementation of driven.EmbeddingStore.
// Records are copied on the way in and out so callers cannot mutate stored vectors.
type EmbeddingStore struct {
	mu      sync.RWMutex
	records map[string]domain.EmbeddingRecord
	byChunk map[chunkKey]string
	closed  bool
}

// NewEmbeddingStore creates a new in-memory embedding store.
func NewEmbeddingStore() *EmbeddingStore {
	return &EmbeddingStore{
		records: make(map[string]domain.EmbeddingRecord),
		byChunk: make(map[chunkKey]string),
	}
}

// Put upserts records. Validation happens before any write, so a
// rejected batch leaves the store unchanged.
func (s *EmbeddingStore) Put(_ context.Context, records []domain.EmbeddingRecord) error {
	if err := validate(records); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("put: %w", domain.ErrStorageUnavailable)
	}
	for _, r := range records {
		s.put(r)
	}
	return nil
}

// ReplaceDocument swaps the document's records for records.
func (s *EmbeddingStore) ReplaceDocument(_ context.Context, documentID string, records []domain.EmbeddingRecord) error {
	if err := validate(records); err != nil {
		return err
	}
	for _, r := range records {
		if r.DocumentID != documentID {
			return fmt.Errorf("%w: record %s belongs to %s, not %s", domain.ErrInvalidInput, r.ID, r.DocumentID, documentID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("replace: %w", domain.ErrStorageUnavailable)
	}
	s.deleteDocument(documentID)
	for _, r := range records {
		s.put(r)
	}
	return nil
}

// GetByDocument returns the document's records ordered by id.
func (s *EmbeddingStore) GetByDocument(_ context.Context, documentID string) ([]domain.EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("get by document: %w", domain.ErrStorageUnavailable)
	}

	var out []domain.EmbeddingRecord
	for _, r := range s.records {
		if r.DocumentID == documentID {
			out = append(out, clone(r))
		}
	}
	sortByID(out)
	return out, nil
}

// GetByDocumentAndChunk returns the record for a chunk, or domain.ErrNotFound.
func (s *EmbeddingStore) GetByDocumentAndChunk(_ context.Context, documentID, chunkText string) (*domain.EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("get by chunk: %w", domain.ErrStorageUnavailable)
	}

	id, ok := s.byChunk[chunkKey{documentID, chunkText}]
	if !ok {
		return nil, fmt.Errorf("embedding for %s: %w", documentID, domain.ErrNotFound)
	}
	r := clone(s.records[id])
	return &r, nil
}

// GetAll returns a snapshot of every record.
func (s *EmbeddingStore) GetAll(_ context.Context) ([]domain.EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("get all: %w", domain.ErrStorageUnavailable)
	}

	out := make([]domain.EmbeddingRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, clone(r))
	}
	sortByID(out)
	return out, nil
}

// DeleteByDocument removes the document's records.
func (s *EmbeddingStore) DeleteByDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("delete: %w", domain.ErrStorageUnavailable)
	}
	s.deleteDocument(documentID)
	return nil
}

// Close marks the store closed.
func (s *EmbeddingStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// put writes one record (caller must hold lock).
func (s *EmbeddingStore) put(r domain.EmbeddingRecord) {
	key := chunkKey{r.DocumentID, r.ChunkText}
	if other, ok := s.byChunk[key]; ok && other != r.ID {
		delete(s.records, other)
	}
	if prev, ok := s.records[r.ID]; ok {
		delete(s.byChunk, chunkKey{prev.DocumentID, prev.ChunkText})
	}
	s.records[r.ID] = clone(r)
	s.byChunk[key] = r.ID
}

// deleteDocument removes records (caller must hold lock).
func (s *EmbeddingStore) deleteDocument(documentID string) {
	for id, r := range s.records {
		if r.DocumentID == documentID {
			delete(s.records, id)
			delete(s.byChunk, chunkKey{r.DocumentID, r.ChunkText})
		}
	}
}

func validate(records []domain.EmbeddingRecord) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
	}
	return nil
}

func clone(r domain.EmbeddingRecord) domain.EmbeddingRecord {
	r.Vector = append([]float64(nil), r.Vector...)
	return r
}

func sortByID(records []domain.EmbeddingRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
}
