package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/logger"
)

// EmbeddingStore implements driven.EmbeddingStore on the embeddings table.
// Every database error is reported as domain.ErrStorageUnavailable.
type EmbeddingStore struct {
	store *Store
}

const selectColumns = `SELECT id, document_id, chunk_text, vector, created_at FROM embeddings`

// Put upserts records in a single transaction.
func (s *EmbeddingStore) Put(ctx context.Context, records []domain.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := validateAll(records); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		return putRecords(ctx, tx, records)
	})
}

// ReplaceDocument deletes the document's records and puts records in one transaction.
func (s *EmbeddingStore) ReplaceDocument(ctx context.Context, documentID string, records []domain.EmbeddingRecord) error {
	if err := validateAll(records); err != nil {
		return err
	}
	for _, r := range records {
		if r.DocumentID != documentID {
			return fmt.Errorf("%w: record %s belongs to %s, not %s", domain.ErrInvalidInput, r.ID, r.DocumentID, documentID)
		}
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE document_id = ?`, documentID); err != nil {
			return fmt.Errorf("deleting records: %w", err)
		}
		return putRecords(ctx, tx, records)
	})
}

// GetByDocument returns all valid records of a document.
func (s *EmbeddingStore) GetByDocument(ctx context.Context, documentID string) ([]domain.EmbeddingRecord, error) {
	return s.query(ctx, selectColumns+` WHERE document_id = ? ORDER BY id`, documentID)
}

// GetByDocumentAndChunk returns the record for a chunk, or domain.ErrNotFound.
func (s *EmbeddingStore) GetByDocumentAndChunk(ctx context.Context, documentID, chunkText string) (*domain.EmbeddingRecord, error) {
	records, err := s.query(ctx, selectColumns+` WHERE document_id = ? AND chunk_text = ?`, documentID, chunkText)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("embedding for %s: %w", documentID, domain.ErrNotFound)
	}
	return &records[0], nil
}

// GetAll returns every valid record.
func (s *EmbeddingStore) GetAll(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	return s.query(ctx, selectColumns+` ORDER BY document_id, id`)
}

// DeleteByDocument removes all records of a document.
func (s *EmbeddingStore) DeleteByDocument(ctx context.Context, documentID string) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM embeddings WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("deleting records for %s: %w: %w", documentID, domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Count returns the number of stored records and distinct documents.
func (s *EmbeddingStore) Count(ctx context.Context) (records, documents int, err error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT COUNT(*), COUNT(DISTINCT document_id) FROM embeddings`)
	if err := row.Scan(&records, &documents); err != nil {
		return 0, 0, fmt.Errorf("counting records: %w: %w", domain.ErrStorageUnavailable, err)
	}
	return records, documents, nil
}

// Close closes the underlying database.
func (s *EmbeddingStore) Close() error {
	return s.store.Close()
}

func (s *EmbeddingStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w: %w", domain.ErrStorageUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// putRecords removes records that share a record's (document, chunk) pair
// under a different id, then upserts by id.
func putRecords(ctx context.Context, tx *sql.Tx, records []domain.EmbeddingRecord) error {
	evict, err := tx.PrepareContext(ctx, `DELETE FROM embeddings WHERE document_id = ? AND chunk_text = ? AND id <> ?`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer evict.Close()

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO embeddings (id, document_id, chunk_text, vector, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			chunk_text = excluded.chunk_text,
			vector = excluded.vector,
			created_at = excluded.created_at
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer upsert.Close()

	for _, r := range records {
		if _, err := evict.ExecContext(ctx, r.DocumentID, r.ChunkText, r.ID); err != nil {
			return fmt.Errorf("evicting chunk of %s: %w", r.ID, err)
		}
		if _, err := upsert.ExecContext(ctx, r.ID, r.DocumentID, r.ChunkText,
			float64SliceToBytes(r.Vector), r.CreatedAt.UnixMilli()); err != nil {
			return fmt.Errorf("saving record %s: %w", r.ID, err)
		}
	}
	return nil
}

func (s *EmbeddingStore) query(ctx context.Context, query string, args ...any) ([]domain.EmbeddingRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w: %w", domain.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var records []domain.EmbeddingRecord
	for rows.Next() {
		var (
			r         domain.EmbeddingRecord
			blob      []byte
			createdAt int64
		)
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.ChunkText, &blob, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w: %w", domain.ErrStorageUnavailable, err)
		}

		vector, err := bytesToFloat64Slice(blob)
		if err != nil {
			logger.Warn("skipping record %s: %v", r.ID, err)
			continue
		}
		r.Vector = vector
		r.CreatedAt = time.UnixMilli(createdAt)

		if err := r.Validate(); err != nil {
			logger.Warn("skipping record: %v", err)
			continue
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w: %w", domain.ErrStorageUnavailable, err)
	}
	return records, nil
}

func validateAll(records []domain.EmbeddingRecord) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
	}
	return nil
}

// float64SliceToBytes encodes a vector as little-endian float64s.
func float64SliceToBytes(floats []float64) []byte {
	buf := make([]byte, len(floats)*8)
	for i, f := range floats {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

// bytesToFloat64Slice decodes a vector written by float64SliceToBytes.
func bytesToFloat64Slice(data []byte) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("%w: vector blob of %d bytes", domain.ErrMalformedRecord, len(data))
	}
	floats := make([]float64, len(data)/8)
	for i := range floats {
		floats[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return floats, nil
}
