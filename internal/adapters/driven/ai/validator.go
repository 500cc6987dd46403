package ai

import (
	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.ModelValidator = (*ConfigValidator)(nil)

// ConfigValidator validates model provider configurations.
type ConfigValidator struct{}

// NewConfigValidator creates a new model config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// Validate pings the provider described by config.
func (v *ConfigValidator) Validate(config *domain.ModelSettings) error {
	return ValidateConfig(config)
}
