package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/arrmate/arrmate/internal/arr/types"
)

// Subtitles implements types.SubtitleClient in memory.
type Subtitles struct {
	mu       sync.Mutex
	calls    []Call
	failures map[string]error
}

// Compile-time check that Subtitles implements types.SubtitleClient.
var _ types.SubtitleClient = (*Subtitles)(nil)

// NewSubtitles creates an in-memory subtitle companion.
func NewSubtitles() *Subtitles {
	return &Subtitles{failures: make(map[string]error)}
}

// FailOn makes every call of op return err.
func (s *Subtitles) FailOn(op string, err error) *Subtitles {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
	return s
}

// Calls returns a copy of the recorded calls.
func (s *Subtitles) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

func (s *Subtitles) record(ctx context.Context, op, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: op, Target: target})
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.failures[op]
}

// TestConnection reports a fixed status.
func (s *Subtitles) TestConnection(ctx context.Context) (*types.SystemStatus, error) {
	if err := s.record(ctx, "TestConnection", ""); err != nil {
		return nil, err
	}
	return &types.SystemStatus{AppName: "Mock Subtitles", Version: "1.0.0"}, nil
}

// DownloadEpisodeSubtitles records the request.
func (s *Subtitles) DownloadEpisodeSubtitles(ctx context.Context, seriesID, episodeID, language string) error {
	return s.record(ctx, "DownloadEpisodeSubtitles", seriesID+":"+episodeID+":"+language)
}

// DownloadMovieSubtitles records the request.
func (s *Subtitles) DownloadMovieSubtitles(ctx context.Context, movieID, language string) error {
	return s.record(ctx, "DownloadMovieSubtitles", movieID+":"+language)
}

// SyncLibrary records the request.
func (s *Subtitles) SyncLibrary(ctx context.Context, movies bool) error {
	target := "series"
	if movies {
		target = "movies"
	}
	return s.record(ctx, "SyncLibrary", target)
}
