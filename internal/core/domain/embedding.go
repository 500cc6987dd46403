package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// EmbeddingRecord is the persisted embedding of one chunk of a document.
type EmbeddingRecord struct {
	// ID is "<document-id>-<chunk-index>".
	ID string

	// Vector is the embedding. Stored and returned as float64.
	Vector []float64

	// DocumentID identifies the source document.
	DocumentID string

	// ChunkText is the exact chunk text that was embedded.
	ChunkText string

	// CreatedAt is when the embedding was generated.
	CreatedAt time.Time
}

// RecordID builds the deterministic record id for a chunk.
func RecordID(documentID string, index int) string {
	return documentID + "-" + strconv.Itoa(index)
}

// Ordinal returns the chunk index encoded in the record id, or -1.
func (r EmbeddingRecord) Ordinal() int {
	i := strings.LastIndexByte(r.ID, '-')
	if i < 0 {
		return -1
	}
	n, err := strconv.Atoi(r.ID[i+1:])
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// Validate reports ErrMalformedRecord for records that cannot be used.
func (r EmbeddingRecord) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: empty id", ErrMalformedRecord)
	case r.DocumentID == "":
		return fmt.Errorf("%w: record %s has no document", ErrMalformedRecord, r.ID)
	case r.ChunkText == "":
		return fmt.Errorf("%w: record %s has no chunk text", ErrMalformedRecord, r.ID)
	case len(r.Vector) == 0:
		return fmt.Errorf("%w: record %s has no vector", ErrMalformedRecord, r.ID)
	}
	for _, v := range r.Vector {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: record %s has non-finite vector component", ErrMalformedRecord, r.ID)
		}
	}
	return nil
}

// IsFresh reports whether the record is younger than expiration at now.
// A zero expiration is never fresh.
func (r EmbeddingRecord) IsFresh(now time.Time, expiration time.Duration) bool {
	return expiration > 0 && now.Sub(r.CreatedAt) < expiration
}
