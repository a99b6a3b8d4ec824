package catalog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingBackend records how many updates actually wrote a document.
type countingBackend struct {
	Backend

	mu     sync.Mutex
	writes int
}

func (b *countingBackend) Update(ctx context.Context, fn func([]byte) ([]byte, error)) error {
	return b.Backend.Update(ctx, func(current []byte) ([]byte, error) {
		next, err := fn(current)
		if err == nil && next != nil {
			b.mu.Lock()
			b.writes++
			b.mu.Unlock()
		}
		return next, err
	})
}

func (b *countingBackend) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func backendsUnderTest(t *testing.T) map[string]func(t *testing.T) Backend {
	t.Helper()

	return map[string]func(t *testing.T) Backend{
		BackendFile: func(t *testing.T) Backend {
			backend, err := NewFileBackend(filepath.Join(t.TempDir(), "filters.json"))
			require.NoError(t, err)
			return backend
		},
		BackendBolt: func(t *testing.T) Backend {
			backend, err := NewBoltBackend(filepath.Join(t.TempDir(), "catalog.db"))
			require.NoError(t, err)
			return backend
		},
	}
}

func TestStoreUpsertThenLoadAll(t *testing.T) {
	for kind, open := range backendsUnderTest(t) {
		t.Run(kind, func(t *testing.T) {
			store := NewStore(open(t), discardLogger())
			t.Cleanup(func() { _ = store.Close() })
			ctx := context.Background()

			def := Definition{
				Content:     "Join...",
				UsesButtons: true,
				ButtonLinks: Links{{Label: "A", URL: "https://x"}},
			}
			require.NoError(t, store.Upsert(ctx, "  Attack On Titan ", def))

			cat := store.LoadAll(ctx)
			if diff := cmp.Diff(Catalog{"attack on titan": def}, cat); diff != "" {
				t.Fatalf("LoadAll mismatch (-want +got):\n%s", diff)
			}

			replacement := Definition{Content: "new text"}
			require.NoError(t, store.Upsert(ctx, "ATTACK ON TITAN", replacement))
			require.Equal(t, replacement, store.LoadAll(ctx)["attack on titan"])
		})
	}
}

func TestStoreRemove(t *testing.T) {
	for kind, open := range backendsUnderTest(t) {
		t.Run(kind, func(t *testing.T) {
			backend := &countingBackend{Backend: open(t)}
			store := NewStore(backend, discardLogger())
			t.Cleanup(func() { _ = store.Close() })
			ctx := context.Background()

			removed, err := store.Remove(ctx, "missing")
			require.NoError(t, err)
			require.False(t, removed)
			require.Equal(t, 0, backend.Writes())

			require.NoError(t, store.Upsert(ctx, "bleach", Definition{Content: "Join our Bleach channel!"}))
			removed, err = store.Remove(ctx, " BLEACH ")
			require.NoError(t, err)
			require.True(t, removed)
			require.Empty(t, store.LoadAll(ctx))
			require.Equal(t, 2, backend.Writes())
		})
	}
}

func TestStoreRejectsEmptyName(t *testing.T) {
	t.Parallel()

	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "filters.json"))
	require.NoError(t, err)
	store := NewStore(backend, discardLogger())

	err = store.Upsert(context.Background(), "   ", Definition{Content: "x"})
	require.Equal(t, ErrorInvalidName, CategoryFromError(err))
}

func TestStoreLoadAllFailsSoftOnCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "filters.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	backend, err := NewFileBackend(path)
	require.NoError(t, err)
	store := NewStore(backend, discardLogger())
	ctx := context.Background()

	require.Empty(t, store.LoadAll(ctx))

	_, err = store.Load(ctx)
	require.Equal(t, ErrorStorageUnavailable, CategoryFromError(err))

	err = store.Upsert(ctx, "bleach", Definition{Content: "x"})
	require.Error(t, err)
	require.Equal(t, ErrorStorageUnavailable, CategoryFromError(err))

	content, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	require.Equal(t, "{not json", string(content), "corrupt catalog must not be overwritten")
}

func TestStoreLoadAllMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "nested", "filters.json"))
	require.NoError(t, err)

	require.Empty(t, NewStore(backend, discardLogger()).LoadAll(context.Background()))
}

func TestStoreReadsOriginalFiltersFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "filters.json")
	legacy := `{"welcome": {"content": "Welcome!", "use_buttons": false}, "naruto shippuden": {"content": "Naruto Shippuden Hindi Official Channel", "use_buttons": true, "button_links": {"Join Naruto Shippuden Hindi Official Channel": "https://t.me/naruto_shippuden_hindi_by_itachi"}}, "rules": {"content": "1. Be respectful\n2. No spam", "use_buttons": true, "button_links": null}}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	backend, err := NewFileBackend(path)
	require.NoError(t, err)
	cat := NewStore(backend, discardLogger()).LoadAll(context.Background())

	require.Len(t, cat, 3)
	require.Equal(t, "https://t.me/naruto_shippuden_hindi_by_itachi", cat["naruto shippuden"].ButtonLinks[0].URL)
	require.Nil(t, cat["rules"].ButtonLinks)
}

func TestSaveAllLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	backend, err := NewFileBackend(filepath.Join(dir, "filters.json"))
	require.NoError(t, err)
	store := NewStore(backend, discardLogger())
	ctx := context.Background()

	want := Catalog{
		"one piece": NewDefinition("Join our One Piece channel!", Links{{Label: "Join our One Piece channel!", URL: "https://t.me/op"}}),
		"rules":     NewDefinition("1. Be respectful\n2. No spam", nil),
	}
	require.NoError(t, store.SaveAll(ctx, want))

	if diff := cmp.Diff(want, store.LoadAll(ctx)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	require.ElementsMatch(t, []string{"filters.json", "filters.json.lock"}, names)
}

func TestConcurrentUpsertsOnOneBackendAreSerialized(t *testing.T) {
	t.Parallel()

	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "filters.json"))
	require.NoError(t, err)
	store := NewStore(backend, discardLogger())
	ctx := context.Background()

	names := []string{"a1", "b2", "c3", "d4", "e5", "f6", "g7", "h8"}
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Upsert(ctx, name, Definition{Content: name}))
		}()
	}
	wg.Wait()

	require.Len(t, store.LoadAll(ctx), len(names))
}
