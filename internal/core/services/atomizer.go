package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
	"github.com/custodia-labs/notewise/internal/core/ports/driving"
	"github.com/custodia-labs/notewise/internal/logger"
)

// Ensure AtomizerService implements the interface.
var _ driving.Atomizer = (*AtomizerService)(nil)

// AtomizerService breaks a note into one note per key concept.
type AtomizerService struct {
	assistant
	docs driven.DocumentStore
}

// NewAtomizerService creates an atomizer. prompts may be nil.
func NewAtomizerService(docs driven.DocumentStore, provider driven.ModelProvider, prompts driven.PromptStore) *AtomizerService {
	return &AtomizerService{
		assistant: assistant{provider: provider, prompts: prompts},
		docs:      docs,
	}
}

// Atomize identifies the note's concepts and drafts a note for each.
// Concepts whose draft cannot be parsed are skipped unless all fail.
func (s *AtomizerService) Atomize(ctx context.Context, documentID string) ([]domain.AtomicNote, error) {
	content, err := s.docs.ReadText(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", documentID, err)
	}

	reply, err := s.complete(ctx, domain.PromptConcepts, content)
	if err != nil {
		return nil, err
	}
	var concepts []string
	if err := decodeJSON(reply, &concepts); err != nil {
		return nil, fmt.Errorf("parse concepts: %w", err)
	}
	logger.Debug("atomizing %s into %d concepts", documentID, len(concepts))

	var (
		notes   []domain.AtomicNote
		lastErr error
	)
	for _, concept := range concepts {
		concept = strings.TrimSpace(concept)
		if concept == "" {
			continue
		}

		reply, err := s.complete(ctx, domain.PromptAtomicNote, concept, content)
		if err != nil {
			return nil, err
		}

		var note domain.AtomicNote
		if err := decodeJSON(reply, &note); err != nil {
			logger.Warn("skipping concept %q: %v", concept, err)
			lastErr = err
			continue
		}
		note.Title = strings.TrimSpace(note.Title)
		if note.Title == "" {
			note.Title = concept
		}
		notes = append(notes, note)
	}

	if len(notes) == 0 && lastErr != nil {
		return nil, fmt.Errorf("atomize %s: %w", documentID, lastErr)
	}
	return notes, nil
}

// Save writes notes next to the source note. A name already taken gets a
// short random suffix.
func (s *AtomizerService) Save(ctx context.Context, documentID string, notes []domain.AtomicNote) ([]string, error) {
	ids := make([]string, 0, len(notes))
	for _, note := range notes {
		title := sanitizeTitle(note.Title)
		if title == "" {
			title = "note"
		}

		id := siblingID(documentID, title)
		err := s.docs.Create(ctx, id, note.Content)
		if errors.Is(err, domain.ErrAlreadyExists) {
			id = siblingID(documentID, title+"-"+uuid.NewString()[:8])
			err = s.docs.Create(ctx, id, note.Content)
		}
		if err != nil {
			return ids, fmt.Errorf("save atomic note %q: %w", note.Title, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
