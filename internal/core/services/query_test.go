package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notewise/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/notewise/internal/chunker"
	"github.com/custodia-labs/notewise/internal/core/domain"
)

type queryFixture struct {
	docs    *mockDocStore
	store   *memory.EmbeddingStore
	model   *mockModel
	service *QueryService
}

func newQueryFixture(docs map[string]string) *queryFixture {
	f := &queryFixture{
		docs:  newMockDocStore(docs),
		store: memory.NewEmbeddingStore(),
		model: &mockModel{vectors: map[string][]float64{}},
	}
	embeddings := NewEmbeddingService(f.docs, f.store, f.model, chunker.New())
	f.service = NewQueryService(embeddings, f.store, f.docs)
	return f
}

func (f *queryFixture) put(t *testing.T, doc string, idx int, chunk string, vector ...float64) {
	t.Helper()
	err := f.store.Put(context.Background(), []domain.EmbeddingRecord{{
		ID:         domain.RecordID(doc, idx),
		Vector:     vector,
		DocumentID: doc,
		ChunkText:  chunk,
		CreatedAt:  time.Now(),
	}})
	require.NoError(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 2}, []float64{-1, -2}, -1},
		{"scaled", []float64{1, 1}, []float64{5, 5}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-12)
		})
	}

	t.Run("zero magnitude is NaN", func(t *testing.T) {
		assert.True(t, math.IsNaN(CosineSimilarity([]float64{0, 0}, []float64{1, 1})))
		assert.True(t, math.IsNaN(CosineSimilarity([]float64{1, 1}, []float64{0, 0})))
	})

	t.Run("length mismatch is NaN", func(t *testing.T) {
		assert.True(t, math.IsNaN(CosineSimilarity([]float64{1, 1}, []float64{1, 1, 1})))
	})
}

func TestQueryService_TopK(t *testing.T) {
	ctx := context.Background()
	docs := map[string]string{}
	for i := range 10 {
		docs[string(rune('a'+i))+".md"] = "content"
	}
	f := newQueryFixture(docs)
	f.model.vectors["query"] = []float64{1, 0}

	// Record i points further from the query as i grows.
	for i := range 10 {
		f.put(t, string(rune('a'+i))+".md", 0, "chunk", 1, float64(i))
	}

	hits, err := f.service.Query(ctx, "query", 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "a.md", hits[0].Document.ID)
	assert.Equal(t, "b.md", hits[1].Document.ID)
	assert.Equal(t, "c.md", hits[2].Document.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-12)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	assert.GreaterOrEqual(t, hits[1].Score, hits[2].Score)

	hits, err = f.service.Query(ctx, "query", 0)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)

	hits, err = f.service.Query(ctx, "query", -2)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = f.service.Query(ctx, "query", 50)
	require.NoError(t, err)
	assert.Len(t, hits, 10)
}

func TestQueryService_NaNSortsLast(t *testing.T) {
	ctx := context.Background()
	f := newQueryFixture(map[string]string{"zero.md": "x", "neg.md": "y", "pos.md": "z"})
	f.model.vectors["q"] = []float64{1, 0}

	f.put(t, "zero.md", 0, "zero", 0, 0)
	f.put(t, "neg.md", 0, "neg", -1, 0)
	f.put(t, "pos.md", 0, "pos", 1, 0)

	hits, err := f.service.Query(ctx, "q", 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "pos.md", hits[0].Document.ID)
	assert.Equal(t, "neg.md", hits[1].Document.ID)
	assert.Equal(t, "zero.md", hits[2].Document.ID)
	assert.True(t, math.IsNaN(hits[2].Score))
}

func TestQueryService_DropsMissingDocuments(t *testing.T) {
	ctx := context.Background()
	f := newQueryFixture(map[string]string{"here.md": "x"})
	f.model.vectors["q"] = []float64{1, 1}

	f.put(t, "here.md", 0, "one", 1, 1)
	f.put(t, "here.md", 1, "two", 1, 0.5)
	f.put(t, "gone.md", 0, "lost", 1, 1)
	f.put(t, "gone.md", 1, "lost too", 1, 0.9)

	hits, err := f.service.Query(ctx, "q", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, "here.md", h.Document.ID)
	}

	// Lookups are memoised per query.
	assert.Equal(t, 1, f.docs.statCalls["here.md"])
	assert.Equal(t, 1, f.docs.statCalls["gone.md"])
}

func TestQueryService_SkipsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	f := newQueryFixture(map[string]string{"a.md": "x", "b.md": "y"})
	f.model.vectors["q"] = []float64{1, 0}

	f.put(t, "a.md", 0, "ok", 1, 0)
	f.put(t, "b.md", 0, "wide", 1, 0, 0)

	hits, err := f.service.Query(ctx, "q", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a.md-0", hits[0].RecordID)
}

func TestQueryService_ReturnsEveryChunk(t *testing.T) {
	ctx := context.Background()
	f := newQueryFixture(map[string]string{"a.md": "x"})
	f.model.vectors["q"] = []float64{1, 0}

	f.put(t, "a.md", 0, "first", 1, 0)
	f.put(t, "a.md", 1, "second", 1, 1)

	hits, err := f.service.Query(ctx, "q", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "first", hits[0].ChunkText)
	assert.Equal(t, "second", hits[1].ChunkText)
}

func TestQueryService_EmptyInputs(t *testing.T) {
	ctx := context.Background()
	f := newQueryFixture(nil)

	hits, err := f.service.Query(ctx, "anything", 5)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)

	hits, err = f.service.Query(ctx, "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, int64(1), f.model.embedCalls.Load(), "blank query must not be embedded")
}

func TestQueryService_EmbeddingFailurePropagates(t *testing.T) {
	ctx := context.Background()
	f := newQueryFixture(nil)
	f.model.embedErr = errors.New("offline")

	_, err := f.service.Query(ctx, "q", 5)
	assert.ErrorIs(t, err, domain.ErrEmbeddingGenerationFailed)
}

func TestQueryService_Similar(t *testing.T) {
	ctx := context.Background()
	f := newQueryFixture(map[string]string{
		"self.md":  "my note",
		"near.md":  "x",
		"far.md":   "y",
		"other.md": "z",
	})
	f.model.vectors["my note"] = []float64{1, 0}

	f.put(t, "self.md", 0, "my note", 1, 0)
	f.put(t, "near.md", 0, "n0", 1, 0.1)
	f.put(t, "near.md", 1, "n1", 1, 0.2)
	f.put(t, "far.md", 0, "f0", 0, 1)
	f.put(t, "other.md", 0, "o0", 1, 1)

	hits, err := f.service.Similar(ctx, "self.md", 5)
	require.NoError(t, err)

	var ids []string
	for _, h := range hits {
		ids = append(ids, h.Document.ID)
	}
	assert.Equal(t, []string{"near.md", "other.md", "far.md"}, ids)
	assert.Equal(t, "n0", hits[0].ChunkText)
}

func TestQueryService_NonPositiveTopK(t *testing.T) {
	ctx := context.Background()
	f := newQueryFixture(map[string]string{"self.md": "my note", "near.md": "x"})
	f.model.vectors["my note"] = []float64{1, 0}
	f.put(t, "near.md", 0, "n0", 1, 0)

	hits, err := f.service.Query(ctx, "my note", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = f.service.Similar(ctx, "self.md", 0)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)

	hits, err = f.service.Similar(ctx, "self.md", -1)
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.Zero(t, f.model.embedCalls.Load())
}

func TestQueryService_DropsUnreadableDocuments(t *testing.T) {
	ctx := context.Background()
	f := newQueryFixture(map[string]string{"a.md": "x"})
	f.model.vectors["q"] = []float64{1, 0}
	f.docs.statErr = errors.New("permission denied")

	f.put(t, "a.md", 0, "first", 1, 0)
	f.put(t, "a.md", 1, "second", 1, 1)

	hits, err := f.service.Query(ctx, "q", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 1, f.docs.statCalls["a.md"])
}
