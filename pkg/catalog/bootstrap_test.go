package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureSeededIsIdempotent(t *testing.T) {
	t.Parallel()

	inner, err := NewFileBackend(filepath.Join(t.TempDir(), "filters.json"))
	require.NoError(t, err)
	backend := &countingBackend{Backend: inner}
	store := NewStore(backend, discardLogger())
	ctx := context.Background()

	builtins := Catalog{
		"welcome": NewDefinition("Welcome!", nil),
		"rules":   NewDefinition("1. Be respectful\n2. No spam", nil),
	}

	added, err := store.EnsureSeeded(ctx, builtins)
	require.NoError(t, err)
	require.Equal(t, []string{"rules", "welcome"}, added)
	require.Equal(t, 1, backend.Writes())
	first := store.LoadAll(ctx)

	added, err = store.EnsureSeeded(ctx, builtins)
	require.NoError(t, err)
	require.Empty(t, added)
	require.Equal(t, 1, backend.Writes(), "second seed must not write")
	require.Equal(t, first, store.LoadAll(ctx))
}

func TestEnsureSeededKeepsCustomizedEntries(t *testing.T) {
	t.Parallel()

	backend, err := NewBoltBackend(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	store := NewStore(backend, discardLogger())
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	custom := Definition{Content: "Our own welcome"}
	require.NoError(t, store.Upsert(ctx, "Welcome", custom))

	added, err := store.EnsureSeeded(ctx, Catalog{
		"welcome": NewDefinition("Builtin welcome", nil),
		"help":    NewDefinition("Builtin help", nil),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"help"}, added)

	cat := store.LoadAll(ctx)
	require.Equal(t, custom, cat["welcome"])
	require.Equal(t, "Builtin help", cat["help"].Content)
}

func TestEnsureSeededWithEmbeddedBuiltins(t *testing.T) {
	t.Parallel()

	builtins, err := Builtins()
	require.NoError(t, err)

	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "filters.json"))
	require.NoError(t, err)
	store := NewStore(backend, discardLogger())

	added, err := store.EnsureSeeded(context.Background(), builtins)
	require.NoError(t, err)
	require.Len(t, added, len(builtins))
	require.Len(t, store.LoadAll(context.Background()), len(builtins))
}

func TestParseYAMLPreservesLinkOrder(t *testing.T) {
	t.Parallel()

	cat, err := ParseYAML([]byte(`
"Solo Leveling":
  content: "Join our Solo Leveling channel!"
  button_links:
    "Hindi": "https://t.me/hindi"
    "English sub": "https://t.me/english"
"plain":
  content: "no buttons here"
`))
	require.NoError(t, err)

	solo := cat["solo leveling"]
	require.True(t, solo.UsesButtons)
	require.Equal(t, Links{{Label: "Hindi", URL: "https://t.me/hindi"}, {Label: "English sub", URL: "https://t.me/english"}}, solo.ButtonLinks)
	require.False(t, cat["plain"].UsesButtons)
}
