package domain

import "strings"

// AtomicNote is a single-concept note produced by atomizing a larger note.
type AtomicNote struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ChatRole identifies the author of a chat message.
type ChatRole string

// Chat roles.
const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    ChatRole
	Content string
}

// PathRule moves notes whose content contains Criteria to TargetPath.
type PathRule struct {
	Criteria   string
	TargetPath string
}

// Matches reports whether content satisfies the rule.
func (r PathRule) Matches(content string) bool {
	return r.Criteria != "" && strings.Contains(content, r.Criteria)
}
