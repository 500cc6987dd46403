package messages

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestMessagesAreTeaMessages(t *testing.T) {
	msgs := []tea.Msg{
		SendRequested{Text: "hi"},
		ReplyReceived{Conversation: "c1", Reply: "hello"},
		ConversationReset{Conversation: "c2"},
	}

	kinds := make([]string, 0, len(msgs))
	for _, m := range msgs {
		switch m.(type) {
		case SendRequested:
			kinds = append(kinds, "send")
		case ReplyReceived:
			kinds = append(kinds, "reply")
		case ConversationReset:
			kinds = append(kinds, "reset")
		}
	}
	assert.Equal(t, []string{"send", "reply", "reset"}, kinds)
}

func TestReplyReceived_CarriesError(t *testing.T) {
	err := errors.New("model down")
	msg := ReplyReceived{Conversation: "c1", Err: err}

	assert.ErrorIs(t, msg.Err, err)
	assert.Empty(t, msg.Reply)
}
