// Package storetest holds the behavioural tests every driven.EmbeddingStore
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) driven.EmbeddingStore

// Record builds a valid record for tests. CreatedAt is millisecond aligned
// so it survives stores that persist milliseconds.
func Record(documentID string, index int, chunk string, vector ...float64) domain.EmbeddingRecord {
	if len(vector) == 0 {
		vector = []float64{float64(index) + 0.5, 1}
	}
	return domain.EmbeddingRecord{
		ID:         domain.RecordID(documentID, index),
		Vector:     vector,
		DocumentID: documentID,
		ChunkText:  chunk,
		CreatedAt:  time.UnixMilli(1_700_000_000_000 + int64(index)),
	}
}

// RunEmbeddingStoreTests runs the contract against stores built by newStore.
func RunEmbeddingStoreTests(t *testing.T, newStore Factory) {
	ctx := context.Background()

	open := func(t *testing.T) driven.EmbeddingStore {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("empty store", func(t *testing.T) {
		s := open(t)

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		byDoc, err := s.GetByDocument(ctx, "a.md")
		require.NoError(t, err)
		assert.Empty(t, byDoc)
	})

	t.Run("put and read back", func(t *testing.T) {
		s := open(t)
		in := []domain.EmbeddingRecord{
			Record("a.md", 0, "alpha", 0.1, 0.2, 0.30000000000000004),
			Record("a.md", 1, "beta"),
			Record("b.md", 0, "gamma"),
		}
		require.NoError(t, s.Put(ctx, in))

		got, err := s.GetByDocument(ctx, "a.md")
		require.NoError(t, err)
		require.Len(t, got, 2)
		byID := map[string]domain.EmbeddingRecord{}
		for _, r := range got {
			byID[r.ID] = r
		}
		first := byID["a.md-0"]
		assert.Equal(t, []float64{0.1, 0.2, 0.30000000000000004}, first.Vector)
		assert.Equal(t, "alpha", first.ChunkText)
		assert.True(t, in[0].CreatedAt.Equal(first.CreatedAt))

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("upsert by id", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, []domain.EmbeddingRecord{Record("a.md", 0, "old")}))
		require.NoError(t, s.Put(ctx, []domain.EmbeddingRecord{Record("a.md", 0, "new", 9, 9)}))

		got, err := s.GetByDocument(ctx, "a.md")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "new", got[0].ChunkText)
		assert.Equal(t, []float64{9, 9}, got[0].Vector)

		_, err = s.GetByDocumentAndChunk(ctx, "a.md", "old")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("compound key keeps one record", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, []domain.EmbeddingRecord{Record("a.md", 0, "same", 1, 0)}))
		require.NoError(t, s.Put(ctx, []domain.EmbeddingRecord{Record("a.md", 3, "same", 0, 1)}))

		got, err := s.GetByDocumentAndChunk(ctx, "a.md", "same")
		require.NoError(t, err)
		assert.Equal(t, "a.md-3", got.ID)
		assert.Equal(t, []float64{0, 1}, got.Vector)

		all, err := s.GetByDocument(ctx, "a.md")
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("chunk lookup", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, []domain.EmbeddingRecord{Record("a.md", 0, "alpha"), Record("b.md", 0, "alpha")}))

		got, err := s.GetByDocumentAndChunk(ctx, "b.md", "alpha")
		require.NoError(t, err)
		assert.Equal(t, "b.md-0", got.ID)

		_, err = s.GetByDocumentAndChunk(ctx, "c.md", "alpha")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("invalid batch is rejected whole", func(t *testing.T) {
		s := open(t)
		bad := Record("a.md", 1, "beta")
		bad.Vector = nil

		err := s.Put(ctx, []domain.EmbeddingRecord{Record("a.md", 0, "alpha"), bad})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrMalformedRecord))

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, []domain.EmbeddingRecord{Record("a.md", 0, "alpha"), Record("b.md", 0, "beta")}))

		require.NoError(t, s.DeleteByDocument(ctx, "a.md"))
		require.NoError(t, s.DeleteByDocument(ctx, "a.md"))
		require.NoError(t, s.DeleteByDocument(ctx, "never.md"))

		got, err := s.GetByDocument(ctx, "a.md")
		require.NoError(t, err)
		assert.Empty(t, got)

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("replace document drops stale chunks", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, []domain.EmbeddingRecord{
			Record("a.md", 0, "one"), Record("a.md", 1, "two"), Record("a.md", 2, "three"),
			Record("b.md", 0, "other"),
		}))

		require.NoError(t, s.ReplaceDocument(ctx, "a.md", []domain.EmbeddingRecord{
			Record("a.md", 0, "one"), Record("a.md", 1, "four"),
		}))

		got, err := s.GetByDocument(ctx, "a.md")
		require.NoError(t, err)
		assert.Len(t, got, 2)
		_, err = s.GetByDocumentAndChunk(ctx, "a.md", "three")
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		other, err := s.GetByDocument(ctx, "b.md")
		require.NoError(t, err)
		assert.Len(t, other, 1)
	})

	t.Run("replace rejects foreign records", func(t *testing.T) {
		s := open(t)
		err := s.ReplaceDocument(ctx, "a.md", []domain.EmbeddingRecord{Record("b.md", 0, "x")})
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("returned vectors are copies", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, []domain.EmbeddingRecord{Record("a.md", 0, "alpha", 1, 2)}))

		got, err := s.GetByDocument(ctx, "a.md")
		require.NoError(t, err)
		got[0].Vector[0] = 42

		again, err := s.GetByDocument(ctx, "a.md")
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2}, again[0].Vector)
	})

	t.Run("concurrent puts", func(t *testing.T) {
		s := open(t)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.ReplaceDocument(ctx, "a.md", []domain.EmbeddingRecord{
					Record("a.md", 0, "one"), Record("a.md", 1, "two"),
				}))
			}()
		}
		wg.Wait()

		got, err := s.GetByDocument(ctx, "a.md")
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("closed store is unavailable", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Close())

		_, err := s.GetAll(ctx)
		assert.True(t, errors.Is(err, domain.ErrStorageUnavailable))
		err = s.Put(ctx, []domain.EmbeddingRecord{Record("a.md", 0, "alpha")})
		assert.True(t, errors.Is(err, domain.ErrStorageUnavailable))
		err = s.DeleteByDocument(ctx, "a.md")
		assert.True(t, errors.Is(err, domain.ErrStorageUnavailable))
	})
}
