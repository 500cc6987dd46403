package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
	"github.com/custodia-labs/notewise/internal/core/ports/driving"
)

// Ensure CleanerService implements the interface.
var _ driving.TextCleaner = (*CleanerService)(nil)

// CleanerService fixes grammar and clarity of a note.
type CleanerService struct {
	assistant
	docs driven.DocumentStore
}

// NewCleanerService creates a text cleaner. prompts may be nil.
func NewCleanerService(docs driven.DocumentStore, provider driven.ModelProvider, prompts driven.PromptStore) *CleanerService {
	return &CleanerService{
		assistant: assistant{provider: provider, prompts: prompts},
		docs:      docs,
	}
}

// Clean returns the cleaned note text and overwrites the note when apply is set.
func (s *CleanerService) Clean(ctx context.Context, documentID string, apply bool) (string, error) {
	content, err := s.docs.ReadText(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", documentID, err)
	}

	cleaned, err := s.complete(ctx, domain.PromptCleanText, content)
	if err != nil {
		return "", err
	}
	if cleaned == "" {
		return "", fmt.Errorf("%w: empty cleaned text", domain.ErrMalformedRecord)
	}

	if apply {
		if err := s.docs.WriteText(ctx, documentID, cleaned); err != nil {
			return "", fmt.Errorf("write %s: %w", documentID, err)
		}
	}
	return cleaned, nil
}
