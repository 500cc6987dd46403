package driven

import (
	"context"

	"github.com/custodia-labs/notewise/internal/core/domain"
)

// EmbeddingStore persists embedding records keyed by record id.
//
// Every failure of the backing store is reported as domain.ErrStorageUnavailable.
// Records that fail domain.EmbeddingRecord.Validate on read are skipped.
type EmbeddingStore interface {
	// Put upserts records atomically: either all are written or none.
	// A record replaces any existing record with the same id, and any other
	// record sharing its (DocumentID, ChunkText) pair.
	Put(ctx context.Context, records []domain.EmbeddingRecord) error

	// GetByDocument returns all records for a document in unspecified order.
	GetByDocument(ctx context.Context, documentID string) ([]domain.EmbeddingRecord, error)

	// GetByDocumentAndChunk returns the record for a chunk of a document.
	// Returns domain.ErrNotFound when no record matches.
	GetByDocumentAndChunk(ctx context.Context, documentID, chunkText string) (*domain.EmbeddingRecord, error)

	// GetAll returns a snapshot of every record.
	GetAll(ctx context.Context) ([]domain.EmbeddingRecord, error)

	// DeleteByDocument removes all records of a document. Deleting a
	// document with no records succeeds.
	DeleteByDocument(ctx context.Context, documentID string) error

	// ReplaceDocument atomically deletes the document's records and puts
	// the given ones, so the stored set equals records afterwards.
	ReplaceDocument(ctx context.Context, documentID string, records []domain.EmbeddingRecord) error

	// Close releases resources. Calls after Close fail with ErrStorageUnavailable.
	Close() error
}
