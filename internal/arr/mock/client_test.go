package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arrmate/arrmate/internal/arr/types"
)

func TestClient_DeleteEpisode(t *testing.T) {
	c := NewDemo()
	ctx := context.Background()

	require.NoError(t, c.DeleteEpisode(ctx, "1", 1, 1))
	assert.ErrorIs(t, c.DeleteEpisode(ctx, "1", 1, 1), types.ErrNoFile)
	assert.ErrorIs(t, c.DeleteEpisode(ctx, "1", 1, 3), types.ErrNoFile)
	assert.ErrorIs(t, c.DeleteEpisode(ctx, "1", 1, 9), types.ErrNotFound)

	calls := c.CallsTo("DeleteEpisode")
	require.Len(t, calls, 4)
	assert.Equal(t, "1:S01E01", calls[0].Target)
}

func TestClient_FailEpisode(t *testing.T) {
	boom := errors.New("disk busy")
	c := NewDemo().FailEpisode(1, 2, boom)

	require.NoError(t, c.DeleteEpisode(context.Background(), "1", 1, 1))
	assert.ErrorIs(t, c.DeleteEpisode(context.Background(), "1", 1, 2), boom)
}

func TestClient_AddAndDelete(t *testing.T) {
	c := NewDemo()
	ctx := context.Background()

	added, err := c.AddItem(ctx, "603", types.AddOptions{Monitored: true})
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", added.Title)

	_, err = c.AddItem(ctx, "603", types.AddOptions{})
	assert.ErrorIs(t, err, types.ErrAlreadyExists)

	found, err := c.Search(ctx, "matrix")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, added.ID, found[0].LibraryID)

	require.NoError(t, c.DeleteItem(ctx, added.ID, true))
	_, err = c.GetItem(ctx, added.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestClient_WithLibraryAddsCatalogEntry(t *testing.T) {
	c := New().WithLibrary(types.LibraryItem{ID: "7", ForeignID: "42", Title: "Firefly"})
	found, err := c.Search(context.Background(), "firefly")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "7", found[0].LibraryID)
}

func TestClient_DelayHonoursContext(t *testing.T) {
	c := New().WithDelay(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.ListLibrary(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSubtitles_RecordsCalls(t *testing.T) {
	s := NewSubtitles()
	require.NoError(t, s.DownloadEpisodeSubtitles(context.Background(), "1", "101", "en"))
	require.NoError(t, s.SyncLibrary(context.Background(), true))
	assert.Equal(t, []Call{
		{Op: "DownloadEpisodeSubtitles", Target: "1:101:en"},
		{Op: "SyncLibrary", Target: "movies"},
	}, s.Calls())
}
