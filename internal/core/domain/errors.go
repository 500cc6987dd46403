package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageUnavailable indicates the embedding store backend cannot be
	// reached or returned an error. No partial results accompany it.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrEmbeddingGenerationFailed indicates the model provider failed to
	// embed a chunk. See GenerationError for the failing chunk.
	ErrEmbeddingGenerationFailed = errors.New("embedding generation failed")

	// ErrMalformedRecord indicates a stored record or a model response could
	// not be decoded. Reads skip malformed records rather than failing.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrDocumentNotFound indicates a record references a document that no
	// longer exists in the vault.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrModelUnavailable indicates the model provider is not configured
	// or not reachable.
	ErrModelUnavailable = errors.New("model provider unavailable")

	// ErrRateLimited indicates the provider rejected a request for exceeding its rate limit.
	ErrRateLimited = errors.New("rate limited")
)

// GenerationError reports which chunk of a document failed to embed.
// It matches both ErrEmbeddingGenerationFailed and the underlying cause
// with errors.Is.
type GenerationError struct {
	DocumentID string
	ChunkIndex int
	Err        error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("embedding generation failed for %s chunk %d: %v", e.DocumentID, e.ChunkIndex, e.Err)
}

// Unwrap exposes the sentinel and the cause.
func (e *GenerationError) Unwrap() []error {
	return []error{ErrEmbeddingGenerationFailed, e.Err}
}

// UserMessage maps an error to a short message suitable for the terminal.
func UserMessage(err error) string {
	var genErr *GenerationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &genErr):
		return fmt.Sprintf("could not embed paragraph %d of %s; check that the model provider is running", genErr.ChunkIndex+1, genErr.DocumentID)
	case errors.Is(err, ErrStorageUnavailable):
		return "embedding store unavailable; check the data directory is writable"
	case errors.Is(err, ErrModelUnavailable):
		return "model provider unavailable; run 'notewise settings show' to review the configuration"
	case errors.Is(err, ErrRateLimited):
		return "model provider rate limit reached; try again shortly"
	case errors.Is(err, ErrDocumentNotFound), errors.Is(err, ErrNotFound):
		return "note not found in vault"
	case errors.Is(err, ErrMalformedRecord):
		return "the model returned a response that could not be understood; try again"
	default:
		return err.Error()
	}
}
