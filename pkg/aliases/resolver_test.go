package aliases

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAliasFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolver_ResolveKnownAlias(t *testing.T) {
	path := writeAliasFile(t, t.TempDir(), `
aliases:
  fast:
    provider: openai
    model: gpt-4o-mini
`)

	r, err := NewResolver(path)
	require.NoError(t, err)

	target, ok := r.Resolve("fast")
	require.True(t, ok)
	assert.Equal(t, "openai", target.Provider)
	assert.Equal(t, "gpt-4o-mini", target.Model)
}

func TestResolver_UnknownAliasReturnsFalse(t *testing.T) {
	path := writeAliasFile(t, t.TempDir(), "aliases: {}\n")
	r, err := NewResolver(path)
	require.NoError(t, err)

	_, ok := r.Resolve("nope")
	assert.False(t, ok)
}

func TestResolver_RejectsMissingFields(t *testing.T) {
	path := writeAliasFile(t, t.TempDir(), `
aliases:
  broken:
    provider: openai
`)
	_, err := NewResolver(path)
	assert.Error(t, err)
}

func TestResolver_ReloadPicksUpChanges(t *testing.T) {
	path := writeAliasFile(t, t.TempDir(), `
aliases:
  fast:
    provider: openai
    model: gpt-4o-mini
`)
	r, err := NewResolver(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`
aliases:
  fast:
    provider: anthropic
    model: claude-haiku
`), 0o644))
	require.NoError(t, r.Reload())

	target, ok := r.Resolve("fast")
	require.True(t, ok)
	assert.Equal(t, "anthropic", target.Provider)
}

func TestResolver_MalformedReloadKeepsPreviousTable(t *testing.T) {
	path := writeAliasFile(t, t.TempDir(), `
aliases:
  fast:
    provider: openai
    model: gpt-4o-mini
`)
	r, err := NewResolver(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`not: [valid yaml`), 0o644))
	assert.Error(t, r.Reload())

	target, ok := r.Resolve("fast")
	require.True(t, ok, "a failed reload must not clear the previously active table")
	assert.Equal(t, "openai", target.Provider)
}

func TestResolver_WatchTriggersReloadOnWrite(t *testing.T) {
	path := writeAliasFile(t, t.TempDir(), `
aliases:
  fast:
    provider: openai
    model: gpt-4o-mini
`)
	r, err := NewResolver(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Watch(ctx, 20*time.Millisecond, nil)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`
aliases:
  fast:
    provider: anthropic
    model: claude-haiku
`), 0o644))

	require.Eventually(t, func() bool {
		target, ok := r.Resolve("fast")
		return ok && target.Provider == "anthropic"
	}, 2*time.Second, 20*time.Millisecond)
}
