package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driving"
)

// recordingEmbeddings records the calls a Regenerator makes.
type recordingEmbeddings struct {
	mu            sync.Mutex
	regenerated   []string
	invalidated   []string
	regenerateErr map[string]error
	delay         time.Duration
}

var _ driving.EmbeddingService = (*recordingEmbeddings)(nil)

func (r *recordingEmbeddings) GetEmbeddingsForDocument(ctx context.Context, id string) ([]domain.EmbeddingRecord, error) {
	return r.RegenerateDocument(ctx, id)
}

func (r *recordingEmbeddings) RegenerateDocument(_ context.Context, id string) ([]domain.EmbeddingRecord, error) {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regenerated = append(r.regenerated, id)
	return nil, r.regenerateErr[id]
}

func (r *recordingEmbeddings) GenerateEmbedding(_ context.Context, _ string) ([]float64, error) {
	return []float64{1}, nil
}

func (r *recordingEmbeddings) InvalidateDocument(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, id)
	return nil
}

func (r *recordingEmbeddings) IndexAll(_ context.Context) (driving.IndexStats, error) {
	return driving.IndexStats{}, nil
}

func (r *recordingEmbeddings) calls() (regenerated, invalidated []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.regenerated...), append([]string(nil), r.invalidated...)
}

func TestRegenerator_CoalescesPendingChanges(t *testing.T) {
	emb := &recordingEmbeddings{}
	r := NewRegenerator(emb, RegeneratorConfig{Workers: 1})

	for range 5 {
		r.HandleChange(domain.DocumentChange{Kind: domain.ChangeModified, DocumentID: "a.md"})
	}
	r.HandleChange(domain.DocumentChange{Kind: domain.ChangeModified, DocumentID: "b.md"})
	assert.Equal(t, 2, r.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	r.Wait()
	r.Stop()

	regenerated, invalidated := emb.calls()
	assert.Equal(t, []string{"a.md", "b.md"}, regenerated)
	assert.Empty(t, invalidated)
	assert.Equal(t, 0, r.Pending())
}

func TestRegenerator_LatestKindWins(t *testing.T) {
	emb := &recordingEmbeddings{}
	r := NewRegenerator(emb, RegeneratorConfig{})

	r.HandleChange(domain.DocumentChange{Kind: domain.ChangeModified, DocumentID: "a.md"})
	r.HandleChange(domain.DocumentChange{Kind: domain.ChangeDeleted, DocumentID: "a.md"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	r.Wait()
	r.Stop()

	regenerated, invalidated := emb.calls()
	assert.Empty(t, regenerated)
	assert.Equal(t, []string{"a.md"}, invalidated)
}

func TestRegenerator_Rename(t *testing.T) {
	emb := &recordingEmbeddings{}
	r := NewRegenerator(emb, RegeneratorConfig{Workers: 3})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	r.HandleChange(domain.DocumentChange{Kind: domain.ChangeRenamed, DocumentID: "new.md", OldID: "old.md"})
	r.Wait()
	r.Stop()

	regenerated, invalidated := emb.calls()
	assert.Equal(t, []string{"new.md"}, regenerated)
	assert.Equal(t, []string{"old.md"}, invalidated)
}

func TestRegenerator_MissingDocumentIsInvalidated(t *testing.T) {
	emb := &recordingEmbeddings{regenerateErr: map[string]error{"gone.md": domain.ErrDocumentNotFound}}
	var reported []error
	r := NewRegenerator(emb, RegeneratorConfig{
		OnError: func(_ domain.DocumentChange, err error) { reported = append(reported, err) },
	})

	r.HandleChange(domain.DocumentChange{Kind: domain.ChangeModified, DocumentID: "gone.md"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	r.Wait()
	r.Stop()

	_, invalidated := emb.calls()
	assert.Equal(t, []string{"gone.md"}, invalidated)
	assert.Empty(t, reported)
}

func TestRegenerator_ReportsErrors(t *testing.T) {
	boom := errors.New("boom")
	emb := &recordingEmbeddings{regenerateErr: map[string]error{"bad.md": boom}}

	var mu sync.Mutex
	var failed []domain.DocumentChange
	r := NewRegenerator(emb, RegeneratorConfig{
		Workers: 2,
		OnError: func(c domain.DocumentChange, err error) {
			mu.Lock()
			defer mu.Unlock()
			assert.ErrorIs(t, err, boom)
			failed = append(failed, c)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	r.HandleChange(domain.DocumentChange{Kind: domain.ChangeModified, DocumentID: "bad.md"})
	r.HandleChange(domain.DocumentChange{Kind: domain.ChangeModified, DocumentID: "good.md"})
	r.Wait()
	r.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failed, 1)
	assert.Equal(t, "bad.md", failed[0].DocumentID)

	regenerated, _ := emb.calls()
	assert.ElementsMatch(t, []string{"bad.md", "good.md"}, regenerated)
}

func TestRegenerator_HandleChangeDoesNotBlock(t *testing.T) {
	emb := &recordingEmbeddings{delay: time.Second}
	r := NewRegenerator(emb, RegeneratorConfig{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Stop()

	done := make(chan struct{})
	go func() {
		for i := range 100 {
			r.HandleChange(domain.DocumentChange{Kind: domain.ChangeModified, DocumentID: string(rune('a' + i%26))})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("HandleChange blocked")
	}
	cancel()
}

func TestRegenerator_StartStopIdempotent(t *testing.T) {
	r := NewRegenerator(&recordingEmbeddings{}, RegeneratorConfig{})
	ctx := context.Background()

	r.Start(ctx)
	r.Start(ctx)
	r.Stop()
	r.Stop()
}
