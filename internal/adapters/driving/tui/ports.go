// Package tui provides the interactive chat terminal user interface.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/notewise/internal/core/ports/driving"
)

// Ports aggregates the services the TUI talks to.
type Ports struct {
	// Chat holds the conversation with the model.
	Chat driving.ChatService

	// ModelLabel names the provider and model in the status bar,
	// e.g. "ollama/llama2". Optional.
	ModelLabel string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
