package mcp

import (
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
	"github.com/custodia-labs/notewise/internal/core/ports/driving"
)

// Ports aggregates the services exposed by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query ranks notes by similarity. Required.
	Query driving.QueryService

	// Vault serves note listings and content.
	Vault driven.DocumentStore

	// Titles and Tags back the suggestion tools.
	Titles driving.TitleSuggester
	Tags   driving.TagSuggester
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	// Vault and the suggesters are optional; their tools and resources
	// are only registered when present.
	return nil
}
