package mcp

import (
	"context"
	"math"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driving"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query       string `json:"query" jsonschema:"what to look for, in natural language"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 5)"`
	PerDocument bool   `json:"per_document,omitempty" jsonschema:"return only the best paragraph of each note"`
}

// SimilarInput is the input schema for the similar tool.
type SimilarInput struct {
	DocumentID string `json:"document_id" jsonschema:"vault-relative path of the note"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 5)"`
}

// SearchOutput is the output schema for the search and similar tools.
type SearchOutput struct {
	Results []HitOutput `json:"results"`
	Count   int         `json:"count"`
}

// HitOutput represents a single ranked paragraph.
type HitOutput struct {
	DocumentID string   `json:"document_id"`
	Title      string   `json:"title"`
	URI        string   `json:"uri"`
	RecordID   string   `json:"record_id"`
	Chunk      string   `json:"chunk"`
	Score      *float64 `json:"score"`
}

// NoteInput names a single note.
type NoteInput struct {
	DocumentID string `json:"document_id" jsonschema:"vault-relative path of the note"`
}

// TitleOutput is the output schema for the suggest_title tool.
type TitleOutput struct {
	Title string `json:"title"`
}

// TagsOutput is the output schema for the suggest_tags tool.
type TagsOutput struct {
	Tags []string `json:"tags"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the vault's notes by meaning and return the best matching paragraphs",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "similar",
		Description: "Find notes similar to a given note",
	}, s.handleSimilar)

	if s.ports.Titles != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "suggest_title",
			Description: "Suggest a title for a note without renaming it",
		}, s.handleSuggestTitle)
	}

	if s.ports.Tags != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "suggest_tags",
			Description: "Suggest tags for a note without modifying it",
		}, s.handleSuggestTags)
	}
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = driving.DefaultTopK
	}

	fetch := limit
	if input.PerDocument {
		fetch = limit * 10
	}

	hits, err := s.ports.Query.Query(ctx, input.Query, fetch)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	if input.PerDocument {
		hits = domain.DedupeByDocument(hits)
		if len(hits) > limit {
			hits = hits[:limit]
		}
	}

	return nil, searchOutput(hits), nil
}

func (s *Server) handleSimilar(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SimilarInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = driving.DefaultTopK
	}

	hits, err := s.ports.Query.Similar(ctx, input.DocumentID, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return nil, searchOutput(hits), nil
}

func (s *Server) handleSuggestTitle(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input NoteInput,
) (*mcp.CallToolResult, TitleOutput, error) {
	title, err := s.ports.Titles.SuggestTitle(ctx, input.DocumentID)
	if err != nil {
		return nil, TitleOutput{}, err
	}
	return nil, TitleOutput{Title: title}, nil
}

func (s *Server) handleSuggestTags(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input NoteInput,
) (*mcp.CallToolResult, TagsOutput, error) {
	tags, err := s.ports.Tags.SuggestTags(ctx, input.DocumentID)
	if err != nil {
		return nil, TagsOutput{}, err
	}
	if tags == nil {
		tags = []string{}
	}
	return nil, TagsOutput{Tags: tags}, nil
}

// searchOutput converts hits, mapping undefined scores to null.
func searchOutput(hits []domain.SimilarityHit) SearchOutput {
	output := SearchOutput{
		Results: make([]HitOutput, len(hits)),
		Count:   len(hits),
	}

	for i, h := range hits {
		output.Results[i] = HitOutput{
			DocumentID: h.Document.ID,
			Title:      h.Document.Title,
			URI:        noteURI(h.Document.ID),
			RecordID:   h.RecordID,
			Chunk:      h.ChunkText,
		}
		if !math.IsNaN(h.Score) {
			score := h.Score
			output.Results[i].Score = &score
		}
	}

	return output
}
