package presets

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCopiesSources(t *testing.T) {
	sources := map[string]string{"teaching": "display: {zebra: true}"}
	store := NewMemoryStore(sources)

	sources["teaching"] = "mutated"

	raw, ok := store.Lookup("teaching")
	require.True(t, ok)
	assert.Equal(t, "display: {zebra: true}", raw)
}

func TestMemoryStoreMutation(t *testing.T) {
	store := NewMemoryStore(nil)

	_, ok := store.Lookup("minimal")
	assert.False(t, ok)

	store.Set("minimal", "display: {lineNumbers: false}")
	raw, ok := store.Lookup("minimal")
	require.True(t, ok)
	assert.Equal(t, "display: {lineNumbers: false}", raw)

	store.Set("teaching", "prompt: '$ '")
	assert.Equal(t, []string{"minimal", "teaching"}, store.Names())

	store.Delete("minimal")
	_, ok = store.Lookup("minimal")
	assert.False(t, ok)
	store.Delete("minimal") // deleting twice is a no-op
}

func TestDirStoreLoadsPresetFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "teaching.yml"), []byte("display: {zebra: true}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "minimal.yaml"), []byte("display: {zebra: false}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a preset"), 0o644))

	store, err := NewDirStore(dir)
	require.NoError(t, err)

	raw, ok := store.Lookup("teaching")
	require.True(t, ok)
	assert.Equal(t, "display: {zebra: true}", raw)

	_, ok = store.Lookup("minimal")
	assert.True(t, ok)
	_, ok = store.Lookup("notes")
	assert.False(t, ok, "non-yaml files are not presets")
	assert.Len(t, store.Names(), 2)
}

func TestDirStoreMissingDirectory(t *testing.T) {
	_, err := NewDirStore(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestDirStoreWatchReloadsAndInvalidates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "teaching.yml"), []byte("v1"), 0o644))

	store, err := NewDirStore(dir)
	require.NoError(t, err)

	var mu sync.Mutex
	var seen []string
	store.OnInvalidate(func(kind, name string) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, kind+":"+name)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx) }()

	// Give the watcher a moment to register before touching files.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "teaching.yml"), []byte("v2"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.yml"), []byte("fresh"), 0o644))

	waitFor(t, func() bool {
		raw, _ := store.Lookup("teaching")
		_, ok := store.Lookup("extra")
		return raw == "v2" && ok
	})

	require.NoError(t, os.Remove(filepath.Join(dir, "extra.yml")))
	waitFor(t, func() bool {
		_, ok := store.Lookup("extra")
		return !ok
	})

	mu.Lock()
	assert.NotEmpty(t, seen, "callbacks must fire on watcher-driven changes")
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on context cancellation")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}
