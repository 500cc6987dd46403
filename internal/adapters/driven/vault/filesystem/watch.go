package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/logger"
)

// Watch forwards filesystem changes to subscribers until ctx is cancelled.
// New folders are watched as they appear.
func (v *Vault) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := v.addTree(watcher, v.root); err != nil {
		return err
	}
	logger.Info("watching vault %s", v.root)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !isHidden(info.Name()) {
					if err := v.addTree(watcher, event.Name); err != nil {
						logger.Warn("watch %s: %v", event.Name, err)
					}
					continue
				}
			}
			if change := v.handleFsEvent(event); change != nil {
				logger.Debug("vault change: %s %s", change.Kind, change.DocumentID)
				v.notify(*change)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("vault watcher: %v", err)
		}
	}
}

// handleFsEvent converts a filesystem event to a change notification.
// Returns nil for events that do not concern a visible Markdown note.
func (v *Vault) handleFsEvent(event fsnotify.Event) *domain.DocumentChange {
	if !isNote(event.Name) || v.hiddenPath(event.Name) {
		return nil
	}
	id := v.idFor(event.Name)

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		return &domain.DocumentChange{Kind: domain.ChangeModified, DocumentID: id}

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &domain.DocumentChange{Kind: domain.ChangeDeleted, DocumentID: id}

	default:
		return nil
	}
}

// hiddenPath reports whether any component below the root is hidden.
func (v *Vault) hiddenPath(p string) bool {
	rel, err := filepath.Rel(v.root, p)
	if err != nil {
		return true
	}
	dir := rel
	for dir != "." && dir != string(filepath.Separator) && dir != "" {
		if isHidden(filepath.Base(dir)) {
			return true
		}
		dir = filepath.Dir(dir)
	}
	return false
}

func (v *Vault) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != v.root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}
