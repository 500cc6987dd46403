// Package filesystem provides a note vault backed by a directory of Markdown files.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
)

// Ensure Vault implements the interface.
var _ driven.DocumentStore = (*Vault)(nil)

// Vault stores notes as files under a root directory. Document ids are
// slash separated paths relative to the root.
type Vault struct {
	root string

	mu     sync.RWMutex
	subs   map[int]func(domain.DocumentChange)
	nextID int
}

// New opens the vault rooted at dir.
func New(dir string) (*Vault, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve vault path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open vault: %w: %s is not a directory", domain.ErrInvalidInput, abs)
	}

	return &Vault{
		root: abs,
		subs: make(map[int]func(domain.DocumentChange)),
	}, nil
}

// Root returns the absolute vault directory.
func (v *Vault) Root() string {
	return v.root
}

// ReadText returns a note's content.
func (v *Vault) ReadText(_ context.Context, id string) (string, error) {
	p, err := v.resolve(id)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", notFound(id, err)
	}
	return string(data), nil
}

// WriteText replaces a note's content and notifies subscribers.
func (v *Vault) WriteText(_ context.Context, id, content string) error {
	p, err := v.resolve(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(p); err != nil {
		return notFound(id, err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}
	v.notify(domain.DocumentChange{Kind: domain.ChangeModified, DocumentID: id})
	return nil
}

// Create writes a new note, creating parent folders.
func (v *Vault) Create(_ context.Context, id, content string) error {
	p, err := v.resolve(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("create folder for %s: %w", id, err)
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("create %s: %w", id, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("create %s: %w", id, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", id, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", id, err)
	}
	v.notify(domain.DocumentChange{Kind: domain.ChangeModified, DocumentID: id})
	return nil
}

// Rename moves a note. The target must not exist.
func (v *Vault) Rename(_ context.Context, oldID, newID string) error {
	from, err := v.resolve(oldID)
	if err != nil {
		return err
	}
	to, err := v.resolve(newID)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if _, err := os.Stat(from); err != nil {
		return notFound(oldID, err)
	}
	if _, err := os.Stat(to); err == nil {
		return fmt.Errorf("rename to %s: %w", newID, domain.ErrAlreadyExists)
	}
	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return fmt.Errorf("create folder for %s: %w", newID, err)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename %s: %w", oldID, err)
	}
	v.notify(domain.DocumentChange{Kind: domain.ChangeRenamed, DocumentID: v.idFor(to), OldID: v.idFor(from)})
	return nil
}

// Stat returns note metadata without content.
func (v *Vault) Stat(_ context.Context, id string) (*domain.Document, error) {
	p, err := v.resolve(id)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, notFound(id, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("stat %s: %w", id, domain.ErrDocumentNotFound)
	}
	return &domain.Document{
		ID:         v.idFor(p),
		Title:      domain.TitleFromID(id),
		ModifiedAt: info.ModTime(),
	}, nil
}

// List returns every Markdown note, skipping hidden files and folders.
func (v *Vault) List(ctx context.Context) ([]domain.Document, error) {
	var docs []domain.Document
	err := filepath.WalkDir(v.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p != v.root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isNote(p) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		id := v.idFor(p)
		docs = append(docs, domain.Document{
			ID:         id,
			Title:      domain.TitleFromID(id),
			ModifiedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list vault: %w", err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// OnContentChanged subscribes fn to change notifications.
func (v *Vault) OnContentChanged(fn func(domain.DocumentChange)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := v.nextID
	v.nextID++
	v.subs[id] = fn

	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.subs, id)
	}
}

func (v *Vault) notify(change domain.DocumentChange) {
	v.mu.RLock()
	subs := make([]func(domain.DocumentChange), 0, len(v.subs))
	for _, fn := range v.subs {
		subs = append(subs, fn)
	}
	v.mu.RUnlock()

	for _, fn := range subs {
		fn(change)
	}
}

// resolve maps a document id to an absolute path inside the vault.
func (v *Vault) resolve(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty document id", domain.ErrInvalidInput)
	}
	clean := path.Clean(strings.ReplaceAll(id, "\\", "/"))
	if path.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s is outside the vault", domain.ErrInvalidInput, id)
	}
	return filepath.Join(v.root, filepath.FromSlash(clean)), nil
}

// idFor maps an absolute path back to a document id.
func (v *Vault) idFor(p string) string {
	rel, err := filepath.Rel(v.root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

func notFound(id string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", id, domain.ErrDocumentNotFound)
	}
	return fmt.Errorf("%s: %w", id, err)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func isNote(p string) bool {
	return strings.EqualFold(filepath.Ext(p), domain.MarkdownExt)
}
