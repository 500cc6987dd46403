package domain

import (
	"path"
	"strings"
	"time"
)

// MarkdownExt is the file extension of vault notes.
const MarkdownExt = ".md"

// Document is a note in the vault.
type Document struct {
	// ID is the vault-relative, slash separated path (e.g. "projects/alpha.md").
	ID string

	// Title is the base name without extension.
	Title string

	// Content is the full note text. Empty when only metadata was requested.
	Content string

	// ModifiedAt is the last modification time reported by the vault.
	ModifiedAt time.Time
}

// TitleFromID derives a note title from its vault path.
func TitleFromID(id string) string {
	return strings.TrimSuffix(path.Base(id), path.Ext(id))
}

// ChangeKind classifies a document change notification.
type ChangeKind string

// Change kinds.
const (
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeRenamed  ChangeKind = "renamed"
)

// DocumentChange notifies that a note was modified, deleted or renamed.
type DocumentChange struct {
	Kind       ChangeKind
	DocumentID string

	// OldID is set for renames only.
	OldID string
}
