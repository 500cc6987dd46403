package driving

import (
	"context"

	"github.com/custodia-labs/notewise/internal/core/domain"
)

// TitleSuggester proposes note titles.
type TitleSuggester interface {
	// SuggestTitle proposes a title using similar notes as context.
	SuggestTitle(ctx context.Context, documentID string) (string, error)

	// ApplyTitle renames the note and returns its new id.
	ApplyTitle(ctx context.Context, documentID, title string) (string, error)
}

// TagSuggester proposes note tags.
type TagSuggester interface {
	// SuggestTags returns normalised tags for the note.
	SuggestTags(ctx context.Context, documentID string) ([]string, error)

	// ApplyTags merges tags into the note's front matter.
	ApplyTags(ctx context.Context, documentID string, tags []string) error
}

// Atomizer splits a note into single-concept notes.
type Atomizer interface {
	// Atomize generates one atomic note per key concept.
	Atomize(ctx context.Context, documentID string) ([]domain.AtomicNote, error)

	// Save writes atomic notes next to the source note and returns their ids.
	Save(ctx context.Context, documentID string, notes []domain.AtomicNote) ([]string, error)
}

// TextCleaner rewrites notes for grammar and clarity.
type TextCleaner interface {
	// Clean returns the cleaned text, writing it back when apply is set.
	Clean(ctx context.Context, documentID string, apply bool) (string, error)
}

// TaskRunner performs an arbitrary NLP task on text.
type TaskRunner interface {
	Perform(ctx context.Context, task, text string) (string, error)
}

// ChatService holds a conversation with the model.
type ChatService interface {
	// Send appends message to the conversation and returns the reply.
	Send(ctx context.Context, message string) (string, error)

	// History returns the conversation so far.
	History() []domain.ChatMessage

	// Reset starts a new conversation.
	Reset()

	// ConversationID identifies the current conversation.
	ConversationID() string
}

// PathRouter moves notes according to path rules.
type PathRouter interface {
	// SuggestPath returns the target id for the note, or "" when no rule matches.
	SuggestPath(ctx context.Context, documentID string) (string, error)

	// CheckAndMove moves the note when a rule matches. It returns the new
	// id and whether the note moved.
	CheckAndMove(ctx context.Context, documentID string) (string, bool, error)

	// HandleChange checks a changed note in the background. It must not block.
	HandleChange(change domain.DocumentChange)
}
