package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()

	require.NotNil(t, km)
	assert.Contains(t, km.Quit.Keys(), "esc")
	assert.Contains(t, km.Quit.Keys(), "ctrl+c")
	assert.Equal(t, []string{"enter"}, km.Send.Keys())
	assert.Contains(t, km.Newline.Keys(), "alt+enter")
	assert.Contains(t, km.Reset.Keys(), "ctrl+r")
}

func TestKeyMap_HelpText(t *testing.T) {
	km := DefaultKeyMap()

	assert.Equal(t, "send", km.Send.Help().Desc)
	assert.Equal(t, "quit", km.Quit.Help().Desc)
}

func TestKeyMap_ShortHelp(t *testing.T) {
	km := DefaultKeyMap()

	help := km.ShortHelp()

	require.Len(t, help, 3)
	assert.Equal(t, km.Send.Keys(), help[0].Keys())
	assert.Equal(t, km.Quit.Keys(), help[2].Keys())
}

func TestKeyMap_FullHelpCoversEveryBinding(t *testing.T) {
	km := DefaultKeyMap()

	var n int
	for _, group := range km.FullHelp() {
		n += len(group)
	}
	assert.Equal(t, 6, n)
}

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"enter sends", "enter", true},
		{"esc does not send", "esc", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.key, km.Send))
		})
	}

	assert.True(t, Matches("ctrl+c", km.Quit))
	assert.True(t, Matches("ctrl+j", km.Newline))
}
