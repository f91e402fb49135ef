package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arrmate/arrmate/internal/arr/mock"
	"github.com/arrmate/arrmate/internal/arr/types"
	"github.com/arrmate/arrmate/internal/intent"
	"github.com/arrmate/arrmate/internal/registry"
)

type fixture struct {
	exec     *Executor
	services *registry.Registry
	tv       *mock.Client
	movies   *mock.Client
	subs     *mock.Subtitles
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tv := mock.NewDemo().WithKind(types.KindSonarr)
	tv.WithLibrary(types.LibraryItem{ID: "4", ForeignID: "75760", Title: "Firefly", Year: 2002})
	tv.WithEpisodes("4", types.Episode{ID: "401", Season: 1, Number: 1, Title: "Serenity"})
	movies := mock.New().WithKind(types.KindRadarr).
		WithLibrary(types.LibraryItem{ID: "3", ForeignID: "78", Title: "Blade Runner", Year: 1982, HasFile: true, Status: "released"}).
		WithCatalog(
			types.CatalogItem{ForeignID: "438631", Title: "Dune", Year: 2021},
			types.CatalogItem{ForeignID: "841", Title: "Dune", Year: 1984},
		)
	subs := mock.NewSubtitles()

	reg, err := registry.New([]*registry.Service{
		{Name: "sonarr", Kind: types.KindSonarr, MediaTypes: []intent.MediaType{intent.MediaTypeTV}, Client: tv},
		{Name: "radarr", Kind: types.KindRadarr, MediaTypes: []intent.MediaType{intent.MediaTypeMovie}, Client: movies},
		{Name: "bazarr", Kind: types.KindBazarr, Subtitles: subs},
	}, zerolog.Nop())
	require.NoError(t, err)

	return &fixture{exec: New(zerolog.Nop()), services: reg, tv: tv, movies: movies, subs: subs}
}

func (f *fixture) run(r *intent.Resolved) intent.ExecutionResult {
	return f.exec.Execute(context.Background(), f.services, r)
}

func bind(t *testing.T, in intent.Intent, c intent.Candidate) *intent.Resolved {
	t.Helper()
	r, err := intent.Bind(in, c)
	require.NoError(t, err)
	return r
}

var (
	angel       = intent.Candidate{ID: "1", ForeignID: "71035", Title: "Angel", Year: 1999, Score: 1, InLibrary: true}
	firefly     = intent.Candidate{ID: "4", ForeignID: "75760", Title: "Firefly", Year: 2002, Score: 1, InLibrary: true}
	bladeRunner = intent.Candidate{ID: "3", ForeignID: "78", Title: "Blade Runner", Year: 1982, Score: 1, InLibrary: true}
)

func TestExecute_RemoveEpisodes(t *testing.T) {
	f := newFixture(t)

	res := f.run(bind(t, intent.Intent{
		Action: intent.ActionRemove, MediaType: intent.MediaTypeTV, Season: intent.IntPtr(1), Episodes: []int{1, 2},
	}, angel))

	assert.Equal(t, intent.StatusSuccess, res.Status)
	wantOps := []intent.Operation{
		{Step: "delete S01E01", Service: "sonarr", Success: true},
		{Step: "delete S01E02", Service: "sonarr", Success: true},
	}
	if diff := cmp.Diff(wantOps, res.Operations); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "removed 2 of 2 episode(s) from Angel (1999) season 1", res.Message)
	wantCalls := []mock.Call{
		{Op: "DeleteEpisode", Target: "1:S01E01"},
		{Op: "DeleteEpisode", Target: "1:S01E02"},
	}
	if diff := cmp.Diff(wantCalls, f.tv.Calls()); diff != "" {
		t.Errorf("backend calls mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_RemoveEpisodesPartial(t *testing.T) {
	f := newFixture(t)
	f.tv.FailEpisode(1, 2, errors.New("file locked"))

	res := f.run(bind(t, intent.Intent{
		Action: intent.ActionRemove, MediaType: intent.MediaTypeTV, Season: intent.IntPtr(1), Episodes: []int{1, 2},
	}, angel))

	assert.Equal(t, intent.StatusPartial, res.Status)
	assert.True(t, res.Operations[0].Success)
	assert.False(t, res.Operations[1].Success)
	assert.Contains(t, res.Operations[1].Error, "file locked")
	assert.Equal(t, "removed 1 of 2 episode(s) from Angel (1999) season 1", res.Message)

	var opErr *OperationError
	require.True(t, errors.As(FirstError(res), &opErr))
	assert.Equal(t, "delete S01E02", opErr.Step)
	assert.Equal(t, "sonarr", opErr.Service)
}

func TestExecute_RemoveSeason(t *testing.T) {
	f := newFixture(t)

	res := f.run(bind(t, intent.Intent{
		Action: intent.ActionDelete, MediaType: intent.MediaTypeTV, Season: intent.IntPtr(1),
	}, angel))

	// episode 3 has no file and is skipped
	assert.Equal(t, intent.StatusSuccess, res.Status)
	require.Len(t, res.Operations, 2)
	assert.Len(t, f.tv.CallsTo("DeleteEpisode"), 2)
	assert.Equal(t, "removed 2 of 2 episode(s) from Angel (1999) season 1", res.Message)
}

func TestExecute_RemoveSeasonFailures(t *testing.T) {
	tests := []struct {
		name    string
		target  intent.Candidate
		season  int
		message string
	}{
		{name: "unknown season", target: angel, season: 7, message: "season 7 of Angel (1999) not found"},
		{name: "no files", target: firefly, season: 1, message: "season 1 of Firefly (2002) has no episode files"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			res := f.run(bind(t, intent.Intent{
				Action: intent.ActionRemove, MediaType: intent.MediaTypeTV, Season: intent.IntPtr(tt.season),
			}, tt.target))

			assert.Equal(t, intent.StatusFailure, res.Status)
			assert.Len(t, res.Operations, 1)
			assert.Equal(t, tt.message, res.Message)
			assert.Empty(t, f.tv.CallsTo("DeleteEpisode"))
		})
	}
}

func TestExecute_CancelledStopsFurtherSteps(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.exec.Execute(ctx, f.services, bind(t, intent.Intent{
		Action: intent.ActionRemove, MediaType: intent.MediaTypeTV, Season: intent.IntPtr(1), Episodes: []int{1, 2},
	}, angel))

	assert.Equal(t, intent.StatusFailure, res.Status)
	require.Len(t, res.Operations, 2)
	assert.Contains(t, res.Operations[1].Error, "context canceled")
	assert.Empty(t, f.tv.Calls())
}

func TestExecute_RemoveMovie(t *testing.T) {
	f := newFixture(t)

	res := f.run(bind(t, intent.Intent{Action: intent.ActionRemove, MediaType: intent.MediaTypeMovie}, bladeRunner))
	assert.Equal(t, intent.StatusSuccess, res.Status)
	assert.Equal(t, "removed Blade Runner (1982) from library", res.Message)
	assert.Empty(t, f.movies.Library())
}

func TestExecute_NotConfigured(t *testing.T) {
	f := newFixture(t)

	res := f.run(intent.BindLibrary(intent.Intent{Action: intent.ActionList, MediaType: intent.MediaTypeMusic}))
	assert.Equal(t, intent.StatusFailure, res.Status)
	require.Len(t, res.Operations, 1)
	assert.Equal(t, "lookup", res.Operations[0].Step)
	assert.Contains(t, res.Message, "service not configured")
	assert.Empty(t, f.tv.Calls())
	assert.Empty(t, f.movies.Calls())
}

func TestExecute_SearchWithCriteria(t *testing.T) {
	f := newFixture(t)

	res := f.run(bind(t, intent.Intent{
		Action: intent.ActionSearch, MediaType: intent.MediaTypeMovie,
		Criteria: intent.Criteria{{Key: "quality", Value: "4K"}},
	}, bladeRunner))

	assert.Equal(t, intent.StatusSuccess, res.Status)
	require.Len(t, res.Operations, 1)
	assert.Equal(t, "trigger search", res.Operations[0].Step)
	assert.Equal(t, []mock.Call{{Op: "TriggerSearch", Target: "3"}}, f.movies.Calls())
	assert.Equal(t, "search triggered for Blade Runner (1982) (quality=4K)", res.Message)
}

func TestExecute_LibraryWideSearch(t *testing.T) {
	f := newFixture(t)

	res := f.run(intent.BindLibrary(intent.Intent{Action: intent.ActionSearch, MediaType: intent.MediaTypeTV}))
	assert.Equal(t, intent.StatusSuccess, res.Status)
	assert.Equal(t, []mock.Call{{Op: "TriggerSearch", Target: "*"}}, f.tv.Calls())
	assert.Equal(t, "search triggered for missing TV show(s)", res.Message)
}

func TestExecute_SearchCatalogOnly(t *testing.T) {
	f := newFixture(t)

	res := f.run(bind(t, intent.Intent{Action: intent.ActionSearch, MediaType: intent.MediaTypeMovie, Title: "Dune"},
		intent.Candidate{ForeignID: "438631", Title: "Dune", Year: 2021, Score: 1}))

	assert.Equal(t, intent.StatusSuccess, res.Status)
	found, ok := res.Data.([]types.CatalogItem)
	require.True(t, ok)
	assert.Len(t, found, 2)
	assert.Empty(t, f.movies.CallsTo("TriggerSearch"))
	assert.Empty(t, f.movies.CallsTo("AddItem"))
}

func TestExecute_Add(t *testing.T) {
	f := newFixture(t)

	res := f.run(bind(t, intent.Intent{Action: intent.ActionAdd, MediaType: intent.MediaTypeMovie, Title: "Dune"},
		intent.Candidate{ForeignID: "438631", Title: "Dune", Year: 2021, Score: 1}))

	assert.Equal(t, intent.StatusSuccess, res.Status)
	assert.Equal(t, "added Dune (2021) to library", res.Message)
	assert.Equal(t, []mock.Call{{Op: "AddItem", Target: "438631"}}, f.movies.Calls())
	added, ok := res.Data.(*types.LibraryItem)
	require.True(t, ok)
	assert.True(t, added.Monitored)
}

func TestExecute_AddFailure(t *testing.T) {
	f := newFixture(t)
	f.movies.FailOn("AddItem", types.ErrNoDefaults)

	res := f.run(bind(t, intent.Intent{Action: intent.ActionAdd, MediaType: intent.MediaTypeMovie, Title: "Dune"},
		intent.Candidate{ForeignID: "438631", Title: "Dune", Year: 2021, Score: 1}))
	assert.Equal(t, intent.StatusFailure, res.Status)
	assert.Contains(t, res.Operations[0].Error, "quality profile")
}

func TestExecute_List(t *testing.T) {
	f := newFixture(t)

	res := f.run(intent.BindLibrary(intent.Intent{Action: intent.ActionList, MediaType: intent.MediaTypeTV}))
	assert.Equal(t, intent.StatusSuccess, res.Status)
	assert.Equal(t, "found 4 TV show(s)", res.Message)
	items := res.Data.([]types.LibraryItem)
	assert.Equal(t, "Angel", items[0].Title)

	res = f.run(intent.BindLibrary(intent.Intent{Action: intent.ActionList, MediaType: intent.MediaTypeTV, Title: "breaking"}))
	assert.Equal(t, "found 1 TV show(s)", res.Message)
}

func TestExecute_Info(t *testing.T) {
	f := newFixture(t)

	res := f.run(bind(t, intent.Intent{Action: intent.ActionInfo, MediaType: intent.MediaTypeMovie}, bladeRunner))
	assert.Equal(t, intent.StatusSuccess, res.Status)
	assert.Equal(t, "Blade Runner (1982): on disk, released", res.Message)
}

func TestExecute_DownloadEpisodeSubtitles(t *testing.T) {
	f := newFixture(t)

	res := f.run(bind(t, intent.Intent{
		Action: intent.ActionDownloadSubtitle, MediaType: intent.MediaTypeTV, Season: intent.IntPtr(1),
		Criteria: intent.Criteria{{Key: "language", Value: "fr"}},
	}, angel))

	assert.Equal(t, intent.StatusSuccess, res.Status)
	assert.Equal(t, []mock.Call{
		{Op: "DownloadEpisodeSubtitles", Target: "1:101:fr"},
		{Op: "DownloadEpisodeSubtitles", Target: "1:102:fr"},
	}, f.subs.Calls())
	assert.Equal(t, "bazarr", res.Operations[0].Service)
}

func TestExecute_DownloadEpisodeSubtitlesUnknownEpisode(t *testing.T) {
	f := newFixture(t)

	res := f.run(bind(t, intent.Intent{
		Action: intent.ActionDownloadSubtitle, MediaType: intent.MediaTypeTV, Season: intent.IntPtr(1), Episodes: []int{1, 9},
	}, angel))

	assert.Equal(t, intent.StatusPartial, res.Status)
	assert.Equal(t, []mock.Call{{Op: "DownloadEpisodeSubtitles", Target: "1:101:en"}}, f.subs.Calls())
}

func TestExecute_DownloadEpisodeSubtitlesNoFiles(t *testing.T) {
	f := newFixture(t)

	res := f.run(bind(t, intent.Intent{
		Action: intent.ActionDownloadSubtitle, MediaType: intent.MediaTypeTV, Season: intent.IntPtr(1),
	}, firefly))

	assert.Equal(t, intent.StatusFailure, res.Status)
	assert.Equal(t, "season 1 of Firefly (2002) has no episode files", res.Message)
	require.Len(t, res.Operations, 1)
	assert.Equal(t, "sonarr", res.Operations[0].Service, "the failure comes from the library read")
	assert.Empty(t, f.subs.Calls())
}

func TestExecute_MovieSubtitlesAndSync(t *testing.T) {
	f := newFixture(t)

	res := f.run(bind(t, intent.Intent{Action: intent.ActionDownloadSubtitle, MediaType: intent.MediaTypeMovie}, bladeRunner))
	assert.Equal(t, intent.StatusSuccess, res.Status)

	f.subs.FailOn("SyncLibrary", errors.New("bazarr is busy"))
	res = f.run(intent.BindLibrary(intent.Intent{Action: intent.ActionSyncSubtitles, MediaType: intent.MediaTypeMovie}))
	assert.Equal(t, intent.StatusFailure, res.Status)

	assert.Equal(t, []mock.Call{
		{Op: "DownloadMovieSubtitles", Target: "3:en"},
		{Op: "SyncLibrary", Target: "movies"},
	}, f.subs.Calls())
}

func TestExecute_NoSubtitleService(t *testing.T) {
	reg, err := registry.New([]*registry.Service{
		{Name: "radarr", Kind: types.KindRadarr, MediaTypes: []intent.MediaType{intent.MediaTypeMovie}, Client: mock.New()},
	}, zerolog.Nop())
	require.NoError(t, err)

	res := New(zerolog.Nop()).Execute(context.Background(), reg,
		intent.BindLibrary(intent.Intent{Action: intent.ActionSyncSubtitles, MediaType: intent.MediaTypeTV}))
	assert.Equal(t, intent.StatusFailure, res.Status)
	assert.Contains(t, res.Message, "no subtitle service")
}
