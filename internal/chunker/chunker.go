// Package chunker splits note text into paragraphs for embedding.
package chunker

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/custodia-labs/notewise/internal/core/ports/driven"
)

// Ensure Paragraph implements the interface.
var _ driven.Chunker = (*Paragraph)(nil)

// paragraphBreak matches a blank line, including whitespace-only lines.
var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)

// Paragraph splits text on blank lines. Paragraphs that are empty after
// trimming whitespace are dropped. The chunk text is the paragraph as
// written, minus surrounding newlines.
type Paragraph struct {
	maxChars int
}

// Option configures the paragraph chunker.
type Option func(*Paragraph)

// WithMaxChars splits paragraphs longer than n characters at the last
// line break or space before the limit. Zero disables the limit.
func WithMaxChars(n int) Option {
	return func(p *Paragraph) {
		if n >= 0 {
			p.maxChars = n
		}
	}
}

// New creates a paragraph chunker.
func New(opts ...Option) *Paragraph {
	p := &Paragraph{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the chunker name.
func (p *Paragraph) Name() string {
	return "paragraph"
}

// Split returns the non-empty paragraphs of text in order.
func (p *Paragraph) Split(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var chunks []string
	for _, part := range paragraphBreak.Split(text, -1) {
		part = strings.Trim(part, "\n")
		if strings.TrimSpace(part) == "" {
			continue
		}
		chunks = append(chunks, p.limit(part)...)
	}
	return chunks
}

// Split splits text with the default paragraph chunker.
func Split(text string) []string {
	return New().Split(text)
}

func (p *Paragraph) limit(part string) []string {
	if p.maxChars == 0 {
		return []string{part}
	}

	var out []string
	runes := []rune(part)
	for len(runes) > p.maxChars {
		cut := lastBreak(runes[:p.maxChars])
		piece := strings.TrimSpace(string(runes[:cut]))
		if piece != "" {
			out = append(out, piece)
		}
		runes = runes[cut:]
	}
	if rest := strings.TrimSpace(string(runes)); rest != "" {
		out = append(out, rest)
	}
	return out
}

// lastBreak returns the index after the last newline, or else the last
// space, in window. Falls back to the full window.
func lastBreak(window []rune) int {
	for i := len(window) - 1; i > 0; i-- {
		if window[i] == '\n' {
			return i + 1
		}
	}
	for i := len(window) - 1; i > 0; i-- {
		if unicode.IsSpace(window[i]) {
			return i + 1
		}
	}
	return len(window)
}
