package cli

import (
	"bytes"
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/notewise/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driving"
)

// fakes holds the doubles installed by setupTestServices.
type fakes struct {
	embeddings *fakeEmbeddings
	query      *fakeQuery
	settings   *fakeSettings
	assist     *fakeAssist
	chat       *fakeChat
	vault      *fakeVault
	store      *memory.EmbeddingStore
	regen      *fakeRegenerator
	services   *Services
}

// setupTestServices installs fresh fakes and returns them with a cleanup func.
func setupTestServices() (*fakes, func()) {
	f := &fakes{
		embeddings: &fakeEmbeddings{},
		query:      &fakeQuery{},
		settings:   &fakeSettings{current: domain.DefaultAppSettings()},
		assist:     &fakeAssist{},
		chat:       &fakeChat{},
		vault:      newFakeVault(),
		store:      memory.NewEmbeddingStore(),
		regen:      &fakeRegenerator{},
	}
	f.services = &Services{
		Embeddings:  f.embeddings,
		Query:       f.query,
		Settings:    f.settings,
		Titles:      f.assist,
		Tags:        f.assist,
		Atomizer:    f.assist,
		Cleaner:     f.assist,
		Tasks:       f.assist,
		Chat:        f.chat,
		Router:      f.assist,
		Vault:       f.vault,
		Store:       f.store,
		Regenerator: f.regen,
		Expiration:  time.Hour,
	}
	SetServices(f.services)

	return f, func() {
		SetServices(nil)
	}
}

// execute runs the root command with args and returns combined output.
// Flags are restored to their defaults afterwards.
func execute(args ...string) (string, error) {
	return executeWithInput("", args...)
}

func executeWithInput(input string, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

type fakeEmbeddings struct {
	records     map[string][]domain.EmbeddingRecord
	err         error
	stats       driving.IndexStats
	regenerated []string
	fetched     []string
	indexed     int
}

func (f *fakeEmbeddings) GetEmbeddingsForDocument(_ context.Context, id string) ([]domain.EmbeddingRecord, error) {
	f.fetched = append(f.fetched, id)
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.records[id]; !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return f.records[id], nil
}

func (f *fakeEmbeddings) RegenerateDocument(_ context.Context, id string) ([]domain.EmbeddingRecord, error) {
	f.regenerated = append(f.regenerated, id)
	if f.err != nil {
		return nil, f.err
	}
	return f.records[id], nil
}

func (f *fakeEmbeddings) GenerateEmbedding(_ context.Context, _ string) ([]float64, error) {
	return []float64{1}, f.err
}

func (f *fakeEmbeddings) InvalidateDocument(_ context.Context, _ string) error {
	return f.err
}

func (f *fakeEmbeddings) IndexAll(_ context.Context) (driving.IndexStats, error) {
	f.indexed++
	return f.stats, f.err
}

type fakeQuery struct {
	hits     []domain.SimilarityHit
	err      error
	lastText string
	lastTopK int
	lastDoc  string
}

func (f *fakeQuery) Query(_ context.Context, text string, topK int) ([]domain.SimilarityHit, error) {
	f.lastText = text
	f.lastTopK = topK
	return slices.Clone(f.hits), f.err
}

func (f *fakeQuery) Similar(_ context.Context, id string, topK int) ([]domain.SimilarityHit, error) {
	f.lastDoc = id
	f.lastTopK = topK
	return slices.Clone(f.hits), f.err
}

type fakeSettings struct {
	current     domain.AppSettings
	err         error
	validateErr error
	pingErr     error
}

func (f *fakeSettings) Get() (*domain.AppSettings, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := f.current
	s.PathRules = slices.Clone(f.current.PathRules)
	return &s, nil
}

func (f *fakeSettings) Save(s *domain.AppSettings) error {
	f.current = *s
	return f.err
}

func (f *fakeSettings) SetProvider(p domain.AIProvider, model, endpoint string) error {
	if model == "" {
		model = domain.DefaultModels()[p]
	}
	if endpoint == "" {
		endpoint = domain.DefaultEndpoints()[p]
	}
	f.current.Model.Provider = p
	f.current.Model.Model = model
	f.current.Model.EmbeddingModel = domain.DefaultEmbeddingModels()[p]
	f.current.Model.Endpoint = endpoint
	return f.err
}

func (f *fakeSettings) SetAPIKey(key string) error {
	f.current.Model.APIKey = key
	return f.err
}

func (f *fakeSettings) SetCacheExpiration(d time.Duration) error {
	f.current.Cache.Expiration = d
	return f.err
}

func (f *fakeSettings) AddPathRule(r domain.PathRule) error {
	f.current.PathRules = append(f.current.PathRules, r)
	return f.err
}

func (f *fakeSettings) RemovePathRule(i int) error {
	if i < 0 || i >= len(f.current.PathRules) {
		return domain.ErrNotFound
	}
	f.current.PathRules = slices.Delete(f.current.PathRules, i, i+1)
	return f.err
}

func (f *fakeSettings) Validate() error { return f.validateErr }

func (f *fakeSettings) ValidateModelConfig() error { return f.pingErr }

func (f *fakeSettings) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

// fakeAssist implements every assistant port.
type fakeAssist struct {
	title   string
	tags    []string
	atoms   []domain.AtomicNote
	cleaned string
	output  string
	target  string
	err     error

	appliedTitle string
	appliedTags  []string
	saved        int
	cleanApply   bool
	task         string
	taskText     string
	changes      []domain.DocumentChange
}

func (f *fakeAssist) SuggestTitle(_ context.Context, _ string) (string, error) {
	return f.title, f.err
}

func (f *fakeAssist) ApplyTitle(_ context.Context, id, title string) (string, error) {
	f.appliedTitle = title
	return strings.TrimSuffix(id, "note.md") + title + ".md", f.err
}

func (f *fakeAssist) SuggestTags(_ context.Context, _ string) ([]string, error) {
	return f.tags, f.err
}

func (f *fakeAssist) ApplyTags(_ context.Context, _ string, tags []string) error {
	f.appliedTags = tags
	return f.err
}

func (f *fakeAssist) Atomize(_ context.Context, _ string) ([]domain.AtomicNote, error) {
	return f.atoms, f.err
}

func (f *fakeAssist) Save(_ context.Context, _ string, notes []domain.AtomicNote) ([]string, error) {
	f.saved = len(notes)
	ids := make([]string, len(notes))
	for i, n := range notes {
		ids[i] = n.Title + ".md"
	}
	return ids, f.err
}

func (f *fakeAssist) Clean(_ context.Context, _ string, apply bool) (string, error) {
	f.cleanApply = apply
	return f.cleaned, f.err
}

func (f *fakeAssist) Perform(_ context.Context, task, text string) (string, error) {
	f.task = task
	f.taskText = text
	return f.output, f.err
}

func (f *fakeAssist) SuggestPath(_ context.Context, _ string) (string, error) {
	return f.target, f.err
}

func (f *fakeAssist) CheckAndMove(_ context.Context, id string) (string, bool, error) {
	if f.err != nil {
		return id, false, f.err
	}
	if f.target == "" {
		return id, false, nil
	}
	return f.target, true, nil
}

func (f *fakeAssist) HandleChange(c domain.DocumentChange) {
	f.changes = append(f.changes, c)
}

type fakeChat struct {
	history []domain.ChatMessage
}

func (f *fakeChat) Send(_ context.Context, m string) (string, error) {
	f.history = append(f.history, domain.ChatMessage{Role: domain.RoleUser, Content: m})
	return "ok", nil
}

func (f *fakeChat) History() []domain.ChatMessage { return f.history }

func (f *fakeChat) Reset() { f.history = nil }

func (f *fakeChat) ConversationID() string { return "test" }

// fakeVault is an in-memory vault. Watch replays events to subscribers
// and returns.
type fakeVault struct {
	mu     sync.Mutex
	notes  map[string]string
	subs   []func(domain.DocumentChange)
	events []domain.DocumentChange
}

func newFakeVault() *fakeVault {
	return &fakeVault{notes: make(map[string]string)}
}

func (v *fakeVault) Root() string { return "/vault" }

func (v *fakeVault) Watch(_ context.Context) error {
	v.mu.Lock()
	subs := slices.Clone(v.subs)
	v.mu.Unlock()
	for _, e := range v.events {
		for _, fn := range subs {
			fn(e)
		}
	}
	return nil
}

func (v *fakeVault) ReadText(_ context.Context, id string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.notes[id]
	if !ok {
		return "", domain.ErrDocumentNotFound
	}
	return c, nil
}

func (v *fakeVault) WriteText(_ context.Context, id, content string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notes[id] = content
	return nil
}

func (v *fakeVault) Create(ctx context.Context, id, content string) error {
	return v.WriteText(ctx, id, content)
}

func (v *fakeVault) Rename(_ context.Context, oldID, newID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notes[newID] = v.notes[oldID]
	delete(v.notes, oldID)
	return nil
}

func (v *fakeVault) Stat(_ context.Context, id string) (*domain.Document, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.notes[id]; !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return &domain.Document{ID: id, Title: domain.TitleFromID(id)}, nil
}

func (v *fakeVault) List(_ context.Context) ([]domain.Document, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	docs := make([]domain.Document, 0, len(v.notes))
	for id := range v.notes {
		docs = append(docs, domain.Document{ID: id, Title: domain.TitleFromID(id)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (v *fakeVault) OnContentChanged(fn func(domain.DocumentChange)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.subs = append(v.subs, fn)
	n := len(v.subs) - 1
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.subs[n] = func(domain.DocumentChange) {}
	}
}

type fakeRegenerator struct {
	started bool
	stopped bool
	changes []domain.DocumentChange
}

func (f *fakeRegenerator) HandleChange(c domain.DocumentChange) {
	f.changes = append(f.changes, c)
}

func (f *fakeRegenerator) Start(_ context.Context) { f.started = true }

func (f *fakeRegenerator) Stop() { f.stopped = true }

// record builds an embedding record for tests.
func record(docID string, index int, chunk string, created time.Time) domain.EmbeddingRecord {
	return domain.EmbeddingRecord{
		ID:         domain.RecordID(docID, index),
		Vector:     []float64{0.1, 0.2, 0.3},
		DocumentID: docID,
		ChunkText:  chunk,
		CreatedAt:  created,
	}
}
