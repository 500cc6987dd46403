package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/notewise/internal/core/domain"
	"github.com/custodia-labs/notewise/internal/core/ports/driven"
	"github.com/custodia-labs/notewise/internal/core/ports/driving"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// ChatService keeps a conversation and replays it to the model on every turn.
type ChatService struct {
	provider driven.ModelProvider

	mu      sync.Mutex
	id      string
	history []domain.ChatMessage
}

// NewChatService starts an empty conversation.
func NewChatService(provider driven.ModelProvider) *ChatService {
	return &ChatService{
		provider: provider,
		id:       uuid.NewString(),
	}
}

// Send adds message to the conversation and returns the model's reply.
// A failed turn leaves the history unchanged.
func (s *ChatService) Send(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("%w: empty message", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	turn := append(append([]domain.ChatMessage(nil), s.history...), domain.ChatMessage{Role: domain.RoleUser, Content: message})
	s.mu.Unlock()

	reply, err := s.provider.Complete(ctx, formatTranscript(turn))
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	reply = strings.TrimSpace(reply)

	s.mu.Lock()
	s.history = append(turn, domain.ChatMessage{Role: domain.RoleAssistant, Content: reply})
	s.mu.Unlock()

	return reply, nil
}

// History returns a copy of the conversation.
func (s *ChatService) History() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ChatMessage(nil), s.history...)
}

// Reset clears the conversation and assigns a new id.
func (s *ChatService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.id = uuid.NewString()
}

// ConversationID identifies the current conversation.
func (s *ChatService) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// formatTranscript renders messages one per line as "role: content".
func formatTranscript(messages []domain.ChatMessage) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}
