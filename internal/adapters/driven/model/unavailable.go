package model

import (
	"context"
	"fmt"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
)

// Ensure Unavailable implements the interface.
var _ driven.ModelProvider = (*Unavailable)(nil)

// Unavailable stands in for a provider that could not be created, so
// commands that never call the model still work. Every call reports why.
type Unavailable struct {
	settings domain.ModelSettings
	reason   error
}

// NewUnavailable creates a placeholder provider that fails with reason.
func NewUnavailable(settings domain.ModelSettings, reason error) *Unavailable {
	return &Unavailable{settings: settings, reason: reason}
}

func (u *Unavailable) err() error {
	return fmt.Errorf("%w: %w", domain.ErrModelUnavailable, u.reason)
}

// Embed always fails.
func (u *Unavailable) Embed(_ context.Context, _ string) ([]float64, error) {
	return nil, u.err()
}

// Complete always fails.
func (u *Unavailable) Complete(_ context.Context, _ string) (string, error) {
	return "", u.err()
}

// Name returns the configured provider name.
func (u *Unavailable) Name() string {
	return u.settings.Provider.String()
}

// ModelName returns the configured completion model.
func (u *Unavailable) ModelName() string {
	return u.settings.Model
}

// EmbeddingModel returns the configured embedding model.
func (u *Unavailable) EmbeddingModel() string {
	return u.settings.EmbeddingModel
}

// Ping always fails.
func (u *Unavailable) Ping(_ context.Context) error {
	return u.err()
}

// Close is a no-op.
func (u *Unavailable) Close() error {
	return nil
}
