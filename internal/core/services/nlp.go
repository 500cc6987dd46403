package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
	"github.com/custodia-labs/notewise/internal/core/ports/driving"
)

// Ensure TaskService implements the interface.
var _ driving.TaskRunner = (*TaskService)(nil)

// TaskService runs free-form NLP tasks such as summarising or translating.
type TaskService struct {
	assistant
}

// NewTaskService creates a task runner. prompts may be nil.
func NewTaskService(provider driven.ModelProvider, prompts driven.PromptStore) *TaskService {
	return &TaskService{assistant: assistant{provider: provider, prompts: prompts}}
}

// Perform runs task over text.
func (s *TaskService) Perform(ctx context.Context, task, text string) (string, error) {
	if strings.TrimSpace(task) == "" {
		return "", fmt.Errorf("%w: task is required", domain.ErrInvalidInput)
	}
	return s.complete(ctx, domain.PromptNLPTask, task, text)
}
