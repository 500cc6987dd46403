package mcp

import (
	"context"
	"slices"
	"sort"

	"github.com/custodia-labs/notewise/internal/core/domain"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	hits []domain.SimilarityHit
	err  error

	lastText  string
	lastTopK  int
	lastDocID string
}

func (m *mockQueryService) Query(_ context.Context, text string, topK int) ([]domain.SimilarityHit, error) {
	m.lastText = text
	m.lastTopK = topK
	return m.hits, m.err
}

func (m *mockQueryService) Similar(_ context.Context, documentID string, topK int) ([]domain.SimilarityHit, error) {
	m.lastDocID = documentID
	m.lastTopK = topK
	return m.hits, m.err
}

// mockVault is a mock implementation of driven.DocumentStore.
type mockVault struct {
	notes   map[string]string
	listErr error
}

func (m *mockVault) ReadText(_ context.Context, id string) (string, error) {
	content, ok := m.notes[id]
	if !ok {
		return "", domain.ErrDocumentNotFound
	}
	return content, nil
}

func (m *mockVault) WriteText(_ context.Context, _, _ string) error { return nil }

func (m *mockVault) Create(_ context.Context, _, _ string) error { return nil }

func (m *mockVault) Rename(_ context.Context, _, _ string) error { return nil }

func (m *mockVault) Stat(_ context.Context, id string) (*domain.Document, error) {
	if _, ok := m.notes[id]; !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return &domain.Document{ID: id, Title: domain.TitleFromID(id)}, nil
}

func (m *mockVault) List(_ context.Context) ([]domain.Document, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	ids := make([]string, 0, len(m.notes))
	for id := range m.notes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, domain.Document{ID: id, Title: domain.TitleFromID(id)})
	}
	return docs, nil
}

func (m *mockVault) OnContentChanged(_ func(domain.DocumentChange)) func() {
	return func() {}
}

// mockSuggester implements driving.TitleSuggester and driving.TagSuggester.
type mockSuggester struct {
	title string
	tags  []string
	err   error
}

func (m *mockSuggester) SuggestTitle(_ context.Context, _ string) (string, error) {
	return m.title, m.err
}

func (m *mockSuggester) ApplyTitle(_ context.Context, id, _ string) (string, error) {
	return id, m.err
}

func (m *mockSuggester) SuggestTags(_ context.Context, _ string) ([]string, error) {
	return slices.Clone(m.tags), m.err
}

func (m *mockSuggester) ApplyTags(_ context.Context, _ string, _ []string) error {
	return m.err
}

func hit(docID, chunk string, score float64) domain.SimilarityHit {
	return domain.SimilarityHit{
		Document:  domain.Document{ID: docID, Title: domain.TitleFromID(docID)},
		RecordID:  domain.RecordID(docID, 0),
		ChunkText: chunk,
		Score:     score,
	}
}
