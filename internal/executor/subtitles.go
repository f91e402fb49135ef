package executor

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/arrmate/arrmate/internal/arr/types"
	"github.com/arrmate/arrmate/internal/intent"
	"github.com/arrmate/arrmate/internal/registry"
)

// executeSubtitles runs the subtitle actions on the companion service. TV
// downloads also read the season from the library backend to map episode
// numbers to episode ids.
func (e *Executor) executeSubtitles(ctx context.Context, services registry.Finder, r *intent.Resolved, logger zerolog.Logger) intent.ExecutionResult {
	in := r.Intent()
	sub, err := services.Subtitles()
	if err != nil {
		logger.Warn().Err(err).Msg("No subtitle service")
		return intent.Failed("lookup", "", err, err.Error())
	}
	s := &step{ctx: ctx, service: sub.Name, logger: logger.With().Str("service", sub.Name).Logger()}

	if in.Action == intent.ActionSyncSubtitles {
		return syncSubtitles(s, sub.Subtitles, in.MediaType)
	}

	language := DefaultSubtitleLanguage
	if v, ok := in.Criteria.Get(intent.CriterionLanguage); ok && v != "" {
		language = v
	}
	if in.MediaType == intent.MediaTypeMovie {
		return downloadMovieSubtitles(s, sub.Subtitles, r, language)
	}

	library, err := services.Lookup(in.MediaType)
	if err != nil {
		logger.Warn().Err(err).Msg("No service for media type")
		return intent.Failed("lookup", "", err, err.Error())
	}
	return downloadEpisodeSubtitles(s, sub.Subtitles, library, r, language)
}

func syncSubtitles(s *step, client types.SubtitleClient, mt intent.MediaType) intent.ExecutionResult {
	if err := s.do("sync subtitles", func(ctx context.Context) error {
		return client.SyncLibrary(ctx, mt == intent.MediaTypeMovie)
	}); err != nil {
		return s.result("failed to sync subtitles for "+mt.Label(), nil)
	}
	return s.result("subtitle sync started for "+mt.Label(), nil)
}

func downloadMovieSubtitles(s *step, client types.SubtitleClient, r *intent.Resolved, language string) intent.ExecutionResult {
	if err := s.do("download subtitles", func(ctx context.Context) error {
		return client.DownloadMovieSubtitles(ctx, r.ID(), language)
	}); err != nil {
		return s.result(fmt.Sprintf("failed to download %s subtitles for %s", language, title(r)), nil)
	}
	return s.result(fmt.Sprintf("downloaded %s subtitles for %s", language, title(r)), nil)
}

// downloadEpisodeSubtitles requests subtitles for the listed episodes, or for
// every episode of the season that has a file.
func downloadEpisodeSubtitles(s *step, client types.SubtitleClient, library *registry.Service, r *intent.Resolved, language string) intent.ExecutionResult {
	in := r.Intent()
	season := *in.Season
	name := title(r)
	listStep := fmt.Sprintf("list season %d", season)

	listed, err := library.Client.ListEpisodes(s.ctx, r.ID(), season)
	if err != nil {
		s.service = library.Name
		s.record(listStep, err)
		return s.result(fmt.Sprintf("could not read season %d of %s", season, name), nil)
	}
	if len(listed) == 0 {
		s.service = library.Name
		s.record(listStep, fmt.Errorf("season %d: %w", season, types.ErrNotFound))
		return s.result(fmt.Sprintf("season %d of %s not found", season, name), nil)
	}

	byNumber := make(map[int]types.Episode, len(listed))
	for _, ep := range listed {
		byNumber[ep.Number] = ep
	}
	numbers := in.Episodes
	if len(numbers) == 0 {
		numbers = withFiles(listed)
	}
	if len(numbers) == 0 {
		s.service = library.Name
		s.record(listStep, fmt.Errorf("season %d: %w", season, types.ErrNoFile))
		return s.result(fmt.Sprintf("season %d of %s has no episode files", season, name), nil)
	}

	for _, n := range numbers {
		_ = s.do(episodeStep("download subtitles", season, n), func(ctx context.Context) error {
			ep, ok := byNumber[n]
			if !ok {
				return fmt.Errorf("episode %d: %w", n, types.ErrNotFound)
			}
			return client.DownloadEpisodeSubtitles(ctx, r.ID(), ep.ID, language)
		})
	}

	done := 0
	for _, op := range s.ops {
		if op.Success {
			done++
		}
	}
	return s.result(fmt.Sprintf("downloaded %s subtitles for %d of %d episode(s) of %s season %d", language, done, len(numbers), name, season), nil)
}
