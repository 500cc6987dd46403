package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
)

// mockDocStore is an in-memory vault.
type mockDocStore struct {
	mu        sync.Mutex
	docs      map[string]string
	readErr   error
	statErr   error
	statCalls map[string]int
}

var _ driven.DocumentStore = (*mockDocStore)(nil)

func newMockDocStore(docs map[string]string) *mockDocStore {
	m := &mockDocStore{docs: make(map[string]string), statCalls: make(map[string]int)}
	for id, content := range docs {
		m.docs[id] = content
	}
	return m
}

func (m *mockDocStore) set(id, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = content
}

func (m *mockDocStore) content(id string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.docs[id]
	return c, ok
}

func (m *mockDocStore) ReadText(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return "", m.readErr
	}
	c, ok := m.docs[id]
	if !ok {
		return "", fmt.Errorf("%s: %w", id, domain.ErrDocumentNotFound)
	}
	return c, nil
}

func (m *mockDocStore) WriteText(_ context.Context, id, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("%s: %w", id, domain.ErrDocumentNotFound)
	}
	m.docs[id] = content
	return nil
}

func (m *mockDocStore) Create(_ context.Context, id, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; ok {
		return fmt.Errorf("create %s: %w", id, domain.ErrAlreadyExists)
	}
	m.docs[id] = content
	return nil
}

func (m *mockDocStore) Rename(_ context.Context, oldID, newID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.docs[oldID]
	if !ok {
		return fmt.Errorf("%s: %w", oldID, domain.ErrDocumentNotFound)
	}
	if _, taken := m.docs[newID]; taken {
		return fmt.Errorf("rename to %s: %w", newID, domain.ErrAlreadyExists)
	}
	delete(m.docs, oldID)
	m.docs[newID] = c
	return nil
}

func (m *mockDocStore) Stat(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statCalls[id]++
	if m.statErr != nil {
		return nil, m.statErr
	}
	if _, ok := m.docs[id]; !ok {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrDocumentNotFound)
	}
	return &domain.Document{ID: id, Title: domain.TitleFromID(id), ModifiedAt: time.Unix(0, 0)}, nil
}

func (m *mockDocStore) List(_ context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := make([]domain.Document, 0, len(m.docs))
	for id := range m.docs {
		docs = append(docs, domain.Document{ID: id, Title: domain.TitleFromID(id)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (m *mockDocStore) OnContentChanged(_ func(domain.DocumentChange)) func() {
	return func() {}
}

// mockModel returns scripted embeddings and completions.
type mockModel struct {
	mu          sync.Mutex
	vectors     map[string][]float64
	embedFn     func(text string) ([]float64, error)
	embedErr    error
	replies     []string
	completeErr error
	prompts     []string

	embedCalls atomic.Int64

	// gate, when set, holds Embed until it is closed or ctx ends.
	gate    chan struct{}
	entered chan struct{}
	enterMu sync.Once
	aborted atomic.Int64
}

var _ driven.ModelProvider = (*mockModel)(nil)

func (m *mockModel) Embed(ctx context.Context, text string) ([]float64, error) {
	m.embedCalls.Add(1)
	if m.gate != nil {
		m.enterMu.Do(func() { close(m.entered) })
		select {
		case <-ctx.Done():
			m.aborted.Add(1)
			return nil, ctx.Err()
		case <-m.gate:
		}
	}
	if m.embedFn != nil {
		return m.embedFn(text)
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.mu.Lock()
	v, ok := m.vectors[text]
	m.mu.Unlock()
	if ok {
		return append([]float64(nil), v...), nil
	}
	return []float64{float64(len(text)), 1}, nil
}

func (m *mockModel) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.completeErr != nil {
		return "", m.completeErr
	}
	if len(m.replies) == 0 {
		return "", nil
	}
	reply := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return reply, nil
}

func (m *mockModel) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

func (m *mockModel) Name() string { return "mock" }
func (m *mockModel) ModelName() string { return "mock-model" }
func (m *mockModel) EmbeddingModel() string { return "mock-embed" }
func (m *mockModel) Ping(_ context.Context) error { return nil }
func (m *mockModel) Close() error { return nil }

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
