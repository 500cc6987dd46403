package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
	"github.com/custodia-labs/notewise/internal/core/ports/driving"
)

// Ensure TagService implements the interface.
var _ driving.TagSuggester = (*TagService)(nil)

const (
	frontMatterDelim = "---"
	tagsKey          = "tags"
)

// TagService suggests tags and writes them to note front matter.
type TagService struct {
	assistant
	docs driven.DocumentStore
}

// NewTagService creates a tag suggester. prompts may be nil.
func NewTagService(docs driven.DocumentStore, provider driven.ModelProvider, prompts driven.PromptStore) *TagService {
	return &TagService{
		assistant: assistant{provider: provider, prompts: prompts},
		docs:      docs,
	}
}

// SuggestTags asks the model for tags and normalises them.
func (s *TagService) SuggestTags(ctx context.Context, documentID string) ([]string, error) {
	content, err := s.docs.ReadText(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", documentID, err)
	}

	reply, err := s.complete(ctx, domain.PromptSuggestTags, content)
	if err != nil {
		return nil, err
	}

	var raw []string
	if err := decodeJSON(reply, &raw); err != nil {
		return nil, fmt.Errorf("parse tags: %w", err)
	}
	return normaliseTags(raw), nil
}

// ApplyTags merges tags into the note's YAML front matter, creating it
// when absent. Other keys and the body are preserved.
func (s *TagService) ApplyTags(ctx context.Context, documentID string, tags []string) error {
	content, err := s.docs.ReadText(ctx, documentID)
	if err != nil {
		return fmt.Errorf("read %s: %w", documentID, err)
	}

	updated, err := mergeFrontMatterTags(content, tags)
	if err != nil {
		return fmt.Errorf("update front matter of %s: %w", documentID, err)
	}
	if updated == content {
		return nil
	}
	return s.docs.WriteText(ctx, documentID, updated)
}

// normaliseTags strips '#', trims, joins words with '-' and drops
// duplicates (case-insensitive, first spelling wins).
func normaliseTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(t), "#"))
		t = strings.Join(strings.Fields(t), "-")
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// splitFrontMatter separates a leading "---" block from the body.
func splitFrontMatter(content string) (frontMatter, body string, ok bool) {
	lines := strings.SplitAfter(content, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r\n") != frontMatterDelim {
		return "", content, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r\n") == frontMatterDelim {
			return strings.Join(lines[1:i], ""), strings.Join(lines[i+1:], ""), true
		}
	}
	return "", content, false
}

func mergeFrontMatterTags(content string, tags []string) (string, error) {
	fm, body, _ := splitFrontMatter(content)

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(fm), &doc); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	var mapping *yaml.Node
	switch {
	case doc.Kind == 0 || len(doc.Content) == 0:
		mapping = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{mapping}}
	case doc.Content[0].Kind == yaml.MappingNode:
		mapping = doc.Content[0]
	default:
		return "", fmt.Errorf("%w: front matter is not a mapping", domain.ErrInvalidInput)
	}

	valueIdx := -1
	var existing []string
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == tagsKey {
			valueIdx = i + 1
			existing = tagValues(mapping.Content[i+1])
			break
		}
	}

	merged := normaliseTags(append(existing, tags...))
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, t := range merged {
		seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t})
	}
	if valueIdx >= 0 {
		mapping.Content[valueIdx] = seq
	} else {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: tagsKey}
		mapping.Content = append(mapping.Content, key, seq)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode front matter: %w", err)
	}

	return frontMatterDelim + "\n" + buf.String() + frontMatterDelim + "\n" + body, nil
}

// tagValues reads tags written either as a list or as a comma or space
// separated string.
func tagValues(n *yaml.Node) []string {
	switch n.Kind {
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			out = append(out, c.Value)
		}
		return out
	case yaml.ScalarNode:
		return strings.FieldsFunc(n.Value, func(r rune) bool {
			return r == ',' || r == ' '
		})
	default:
		return nil
	}
}
