// Package messages defines Bubbletea message types for the chat TUI.
package messages

// SendRequested is emitted when the user submits a message.
type SendRequested struct {
	Text string
}

// ReplyReceived carries the model's reply, or the error that prevented it.
type ReplyReceived struct {
	// Conversation is the id the message was sent under. Replies for an
	// earlier conversation are dropped after a reset.
	Conversation string
	Reply        string
	Err          error
}

// ConversationReset is emitted after a new conversation starts.
type ConversationReset struct {
	Conversation string
}
