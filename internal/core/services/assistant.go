package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
	"github.com/custodia-labs/notewise/internal/logger"
)

// assistant bundles the model and prompt templates shared by the note tools.
type assistant struct {
	provider driven.ModelProvider
	prompts  driven.PromptStore
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func (a assistant) loadPrompt(name string) string {
	if a.prompts != nil {
		prompt, err := a.prompts.Load(name)
		if err == nil {
			return prompt
		}
		logger.Warn("load prompt %s: %v, using default", name, err)
	}
	return domain.DefaultPrompts()[name]
}

// complete fills the named template with args and returns the trimmed reply.
func (a assistant) complete(ctx context.Context, name string, args ...any) (string, error) {
	prompt := fmt.Sprintf(a.loadPrompt(name), args...)
	logger.Debug("prompt %s: %d bytes", name, len(prompt))

	out, err := a.provider.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return strings.TrimSpace(out), nil
}

// decodeJSON parses the first JSON value in a model reply into v.
// Markdown code fences and surrounding prose are tolerated.
func decodeJSON(reply string, v any) error {
	s := strings.TrimSpace(reply)
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return fmt.Errorf("%w: no JSON in model reply", domain.ErrMalformedRecord)
	}
	closer := "]"
	if s[start] == '{' {
		closer = "}"
	}
	end := strings.LastIndex(s, closer)
	if end < start {
		return fmt.Errorf("%w: unterminated JSON in model reply", domain.ErrMalformedRecord)
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrMalformedRecord, err)
	}
	return nil
}

// sanitizeTitle makes a model-proposed title usable as a file name.
func sanitizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimSpace(strings.TrimLeft(title, "# "))
	title = strings.Trim(title, "\"'`*")
	title = strings.TrimSuffix(title, domain.MarkdownExt)
	title = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, title)
	return strings.TrimSpace(title)
}

// siblingID returns the id of a note named title in the folder of documentID.
func siblingID(documentID, title string) string {
	return path.Join(path.Dir(documentID), title+domain.MarkdownExt)
}
