package domain

// SimilarityHit is one ranked result of a similarity query.
// Each embedded chunk produces its own hit, so a document may appear
// more than once.
type SimilarityHit struct {
	// Document is the live vault reference resolved at query time.
	Document Document

	// RecordID identifies the matched embedding record.
	RecordID string

	// ChunkText is the matched paragraph.
	ChunkText string

	// Score is the cosine similarity, NaN when undefined.
	Score float64
}

// DedupeByDocument keeps the first hit of each document, preserving order.
// Applied to ranked hits this keeps each document's best chunk.
func DedupeByDocument(hits []SimilarityHit) []SimilarityHit {
	seen := make(map[string]struct{}, len(hits))
	out := make([]SimilarityHit, 0, len(hits))
	for _, h := range hits {
		if _, ok := seen[h.Document.ID]; ok {
			continue
		}
		seen[h.Document.ID] = struct{}{}
		out = append(out, h)
	}
	return out
}
