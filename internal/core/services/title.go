package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
	"github.com/custodia-labs/notewise/internal/core/ports/driving"
	"github.com/custodia-labs/notewise/internal/logger"
)

// Ensure TitleService implements the interface.
var _ driving.TitleSuggester = (*TitleService)(nil)

// similarTitleCount is how many neighbouring notes inform a title.
const similarTitleCount = 5

// TitleService suggests note titles using similar notes as context.
type TitleService struct {
	assistant
	docs  driven.DocumentStore
	query driving.QueryService
}

// NewTitleService creates a title suggester. prompts may be nil.
func NewTitleService(
	docs driven.DocumentStore,
	query driving.QueryService,
	provider driven.ModelProvider,
	prompts driven.PromptStore,
) *TitleService {
	return &TitleService{
		assistant: assistant{provider: provider, prompts: prompts},
		docs:      docs,
		query:     query,
	}
}

// SuggestTitle proposes a title for the note.
func (s *TitleService) SuggestTitle(ctx context.Context, documentID string) (string, error) {
	content, err := s.docs.ReadText(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", documentID, err)
	}

	var titles []string
	hits, err := s.query.Similar(ctx, documentID, similarTitleCount)
	if err != nil {
		// Titles can still be suggested without neighbours.
		logger.Warn("find notes similar to %s: %v", documentID, err)
	}
	for _, h := range hits {
		titles = append(titles, h.Document.Title)
	}
	neighbours := "none"
	if len(titles) > 0 {
		neighbours = strings.Join(titles, ", ")
	}

	reply, err := s.complete(ctx, domain.PromptSuggestTitle, neighbours, content)
	if err != nil {
		return "", err
	}
	title := sanitizeTitle(reply)
	if title == "" {
		return "", fmt.Errorf("%w: empty title", domain.ErrMalformedRecord)
	}
	return title, nil
}

// ApplyTitle renames the note to title within its folder.
func (s *TitleService) ApplyTitle(ctx context.Context, documentID, title string) (string, error) {
	title = sanitizeTitle(title)
	if title == "" {
		return "", fmt.Errorf("%w: empty title", domain.ErrInvalidInput)
	}
	newID := siblingID(documentID, title)
	if newID == documentID {
		return documentID, nil
	}
	if err := s.docs.Rename(ctx, documentID, newID); err != nil {
		return "", fmt.Errorf("rename %s: %w", documentID, err)
	}
	return newID, nil
}
