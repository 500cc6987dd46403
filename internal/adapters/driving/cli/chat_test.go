package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatCmd_Metadata(t *testing.T) {
	assert.Equal(t, "chat", chatCmd.Use)
	assert.Contains(t, chatCmd.Long, "Ctrl+R")
	assert.Contains(t, chatCmd.Long, "Esc")
}

func TestChatCmd_RejectsArgs(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("chat", "hello")

	assert.Error(t, err)
}
