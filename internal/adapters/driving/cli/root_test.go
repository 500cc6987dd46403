package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Metadata(t *testing.T) {
	assert.Equal(t, "notewise", rootCmd.Use)
	assert.True(t, rootCmd.SilenceUsage)
	assert.True(t, rootCmd.SilenceErrors)
}

func TestRootCmd_GlobalFlags(t *testing.T) {
	for _, name := range []string{"verbose", "config-dir", "vault", "ephemeral"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "v", rootCmd.PersistentFlags().Lookup("verbose").Shorthand)
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{
		"index", "embeddings", "search", "similar", "title", "tags",
		"atomize", "clean", "task", "move", "watch", "chat", "settings", "mcp", "version",
	} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRootCmd_BootstrapsOnDemand(t *testing.T) {
	f, cleanupServices := setupTestServices()
	cleanupServices()
	defer SetBootstrap(nil)

	var (
		gotOpts Options
		calls   int
		closed  bool
	)
	SetBootstrap(func(o Options) (*Services, func(), error) {
		calls++
		gotOpts = o
		return f.services, func() { closed = true }, nil
	})

	f.query.hits = nil
	out, err := execute("--vault", "/notes", "--ephemeral", "search", "anything")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
	assert.Equal(t, 1, calls)
	assert.Equal(t, "/notes", gotOpts.Vault)
	assert.True(t, gotOpts.Ephemeral)
	assert.True(t, closed, "cleanup runs after the command")
	assert.Nil(t, svc)
}

func TestRootCmd_BootstrapError(t *testing.T) {
	SetServices(nil)
	SetBootstrap(func(Options) (*Services, func(), error) {
		return nil, nil, errors.New("no vault")
	})
	defer SetBootstrap(nil)

	_, err := execute("search", "x")

	assert.EqualError(t, err, "no vault")
}

func TestRootCmd_VersionSkipsBootstrap(t *testing.T) {
	SetServices(nil)
	SetBootstrap(func(Options) (*Services, func(), error) {
		t.Fatal("bootstrap must not run for version")
		return nil, nil, nil
	})
	defer SetBootstrap(nil)

	out, err := execute("version")

	require.NoError(t, err)
	assert.Contains(t, out, "notewise version")
}

func TestRootCmd_NoBootstrapConfigured(t *testing.T) {
	SetServices(nil)
	SetBootstrap(nil)

	_, err := execute("search", "x")

	assert.EqualError(t, err, "services not configured")
}
