package driven

import (
	"context"

	"github.com/custodia-labs/notewise/internal/core/domain"
)

// DocumentStore is the note vault. Document ids are vault-relative
// slash separated paths.
type DocumentStore interface {
	// ReadText returns a note's content.
	// Returns domain.ErrDocumentNotFound if the note does not exist.
	ReadText(ctx context.Context, id string) (string, error)

	// WriteText replaces a note's content.
	WriteText(ctx context.Context, id, content string) error

	// Create writes a new note. Returns domain.ErrAlreadyExists if present.
	Create(ctx context.Context, id, content string) error

	// Rename moves a note, creating missing parent folders.
	Rename(ctx context.Context, oldID, newID string) error

	// Stat returns note metadata without content.
	// Returns domain.ErrDocumentNotFound if the note does not exist.
	Stat(ctx context.Context, id string) (*domain.Document, error)

	// List returns metadata for every note in the vault.
	List(ctx context.Context) ([]domain.Document, error)

	// OnContentChanged subscribes fn to change notifications and returns
	// a function that removes the subscription. fn must not block.
	OnContentChanged(fn func(domain.DocumentChange)) (unsubscribe func())
}
