package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/notewise/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for Notewise resources.
	uriScheme = "notewise://"

	notesPrefix = uriScheme + "notes/"
)

// registerResources registers the note listing and note content resources.
func (s *Server) registerResources() {
	if s.ports.Vault == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "notes",
		Name:        "notes",
		Description: "Every note in the vault",
		MIMEType:    "application/json",
	}, s.handleNotesResource)

	// {+path} keeps the slashes of nested notes.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: notesPrefix + "{+path}",
		Name:        "note",
		Description: "Markdown content of a note",
		MIMEType:    "text/markdown",
	}, s.handleNoteResource)
}

func (s *Server) handleNotesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Vault.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}

	type noteInfo struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		URI        string `json:"uri"`
		ModifiedAt string `json:"modified_at"`
	}

	infos := make([]noteInfo, len(docs))
	for i, d := range docs {
		infos[i] = noteInfo{
			ID:         d.ID,
			Title:      d.Title,
			URI:        noteURI(d.ID),
			ModifiedAt: d.ModifiedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling notes: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) handleNoteResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractNotePath(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	content, err := s.ports.Vault.ReadText(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) || errors.Is(err, domain.ErrInvalidInput) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("reading note: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     content,
		}},
	}, nil
}

// noteURI builds the resource URI of a note, escaping each path segment.
func noteURI(id string) string {
	parts := strings.Split(id, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return notesPrefix + strings.Join(parts, "/")
}

// extractNotePath extracts the note id from a URI like notewise://notes/{path}.
func extractNotePath(uri string) string {
	if !strings.HasPrefix(uri, notesPrefix) {
		return ""
	}

	id, err := url.PathUnescape(strings.TrimPrefix(uri, notesPrefix))
	if err != nil {
		return ""
	}
	return id
}
