package driven

// Chunker splits note text into ordered, non-empty chunks.
type Chunker interface {
	// Name returns the chunker's identifier.
	Name() string

	// Split returns the chunks of text. Identical input yields identical output.
	Split(text string) []string
}
