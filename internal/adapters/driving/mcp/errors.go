// Package mcp provides an MCP (Model Context Protocol) server adapter for Notewise.
// It lets AI assistants search the vault, read notes and ask for titles and tags.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")
