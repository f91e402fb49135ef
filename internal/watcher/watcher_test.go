package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arrmate/arrmate/internal/testutil"
)

func TestWatcher_AddRemoveFile(t *testing.T) {
	w, err := New(DefaultConfig(), testutil.NopLogger())
	require.NoError(t, err)
	defer w.Stop()

	dir := t.TempDir()
	first := filepath.Join(dir, "a.yaml")
	second := filepath.Join(dir, "b.yaml")

	require.NoError(t, w.AddFile(first))
	require.NoError(t, w.AddFile(second))
	require.NoError(t, w.AddFile(first))
	assert.ElementsMatch(t, []string{first, second}, w.WatchedFiles())
	assert.Equal(t, 2, w.dirs[dir])

	require.NoError(t, w.RemoveFile(first))
	assert.Equal(t, []string{second}, w.WatchedFiles())
	assert.Equal(t, 1, w.dirs[dir])

	require.NoError(t, w.RemoveFile(second))
	require.NoError(t, w.RemoveFile(second))
	assert.Empty(t, w.WatchedFiles())
	assert.NotContains(t, w.dirs, dir)
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	w, err := New(Config{DebounceDelay: 50 * time.Millisecond}, testutil.NopLogger())
	require.NoError(t, err)
	defer w.Stop()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	other := filepath.Join(dir, "ignored.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o644))

	batches := make(chan []FileEvent, 4)
	w.SetHandler(func(events []FileEvent) { batches <- events })
	require.NoError(t, w.AddFile(path))
	w.Start()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("a: 2\n"), 0o644))
	}
	require.NoError(t, os.WriteFile(other, []byte("b: 1\n"), 0o644))

	select {
	case events := <-batches:
		require.Len(t, events, 1)
		assert.Equal(t, path, events[0].Path)
	case <-time.After(5 * time.Second):
		t.Fatal("no events delivered")
	}
}
