package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
	"github.com/custodia-labs/notewise/internal/core/ports/driving"
	"github.com/custodia-labs/notewise/internal/logger"
)

// Ensure PathRouter implements the interface.
var _ driving.PathRouter = (*PathRouter)(nil)

// moveTimeout bounds a background move triggered by a change notification.
const moveTimeout = 30 * time.Second

// PathRouter files notes into folders by content. The first matching rule wins.
type PathRouter struct {
	docs  driven.DocumentStore
	rules []domain.PathRule

	wg sync.WaitGroup
}

// NewPathRouter creates a router over an ordered rule list.
func NewPathRouter(docs driven.DocumentStore, rules []domain.PathRule) *PathRouter {
	return &PathRouter{
		docs:  docs,
		rules: append([]domain.PathRule(nil), rules...),
	}
}

// SuggestPath returns where the note belongs, or "" when no rule matches.
func (r *PathRouter) SuggestPath(ctx context.Context, documentID string) (string, error) {
	content, err := r.docs.ReadText(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", documentID, err)
	}
	for _, rule := range r.rules {
		if rule.Matches(content) {
			return ruleTarget(documentID, rule.TargetPath), nil
		}
	}
	return "", nil
}

// CheckAndMove moves the note to its suggested path when that differs from
// where it is.
func (r *PathRouter) CheckAndMove(ctx context.Context, documentID string) (string, bool, error) {
	target, err := r.SuggestPath(ctx, documentID)
	if err != nil {
		return documentID, false, err
	}
	if target == "" || target == documentID {
		return documentID, false, nil
	}
	if err := r.docs.Rename(ctx, documentID, target); err != nil {
		return documentID, false, fmt.Errorf("move %s: %w", documentID, err)
	}
	logger.Info("moved %s to %s", documentID, target)
	return target, true, nil
}

// HandleChange checks modified notes against the rules in the background.
// It returns immediately; failures are logged.
func (r *PathRouter) HandleChange(change domain.DocumentChange) {
	if change.Kind == domain.ChangeDeleted || len(r.rules) == 0 {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), moveTimeout)
		defer cancel()
		if _, _, err := r.CheckAndMove(ctx, change.DocumentID); err != nil {
			logger.Warn("auto-move %s: %v", change.DocumentID, err)
		}
	}()
}

// Wait blocks until background moves started by HandleChange finish.
func (r *PathRouter) Wait() {
	r.wg.Wait()
}

// ruleTarget resolves a rule's target path for a note. A target ending in
// .md names the note itself; anything else is a folder.
func ruleTarget(documentID, target string) string {
	target = strings.Trim(path.Clean(strings.ReplaceAll(target, "\\", "/")), "/")
	if strings.EqualFold(path.Ext(target), domain.MarkdownExt) {
		return target
	}
	if target == "" || target == "." {
		return path.Base(documentID)
	}
	return path.Join(target, path.Base(documentID))
}
