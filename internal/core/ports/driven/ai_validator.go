package driven

import "github.com/custodia-labs/notewise/internal/core/domain"

// ModelValidator validates model provider configurations by testing
// connectivity to the underlying service.
type ModelValidator interface {
	// Validate pings the provider described by config.
	Validate(config *domain.ModelSettings) error
}
