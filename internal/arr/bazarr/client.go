// Package bazarr implements the subtitle companion against the Bazarr API.
// Bazarr addresses media by the ids of the Sonarr/Radarr instance it is
// synced with.
package bazarr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/arrmate/arrmate/internal/arr/api"
	"github.com/arrmate/arrmate/internal/arr/types"
)

const defaultLanguage = "en"

// Client is a Bazarr API client.
type Client struct {
	api *api.Client
}

// Compile-time check that Client implements types.SubtitleClient.
var _ types.SubtitleClient = (*Client)(nil)

// New creates a new Bazarr client.
func New(cfg types.ClientConfig) *Client {
	return &Client{
		api: api.New(cfg.URL, cfg.APIKey, cfg.Timeout, api.WithHeaderName("X-API-KEY")),
	}
}

// TestConnection fetches the system status.
func (c *Client) TestConnection(ctx context.Context) (*types.SystemStatus, error) {
	var resp struct {
		Data struct {
			BazarrVersion string `json:"bazarr_version"`
		} `json:"data"`
	}
	if err := c.api.Get(ctx, "/api/system/status", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to connect to bazarr: %w", err)
	}
	return &types.SystemStatus{AppName: "Bazarr", Version: resp.Data.BazarrVersion}, nil
}

// DownloadEpisodeSubtitles searches and downloads the best subtitle for one
// episode.
func (c *Client) DownloadEpisodeSubtitles(ctx context.Context, seriesID, episodeID, language string) error {
	query := url.Values{
		"seriesid":  {seriesID},
		"episodeid": {episodeID},
		"language":  {normalizeLanguage(language)},
		"forced":    {"false"},
		"hi":        {"false"},
	}
	if err := c.api.Do(ctx, http.MethodPatch, "/api/episodes/subtitles", query, nil, nil); err != nil {
		return fmt.Errorf("subtitle download for episode %s failed: %w", episodeID, err)
	}
	return nil
}

// DownloadMovieSubtitles searches and downloads the best subtitle for a movie.
func (c *Client) DownloadMovieSubtitles(ctx context.Context, movieID, language string) error {
	query := url.Values{
		"radarrid": {movieID},
		"language": {normalizeLanguage(language)},
		"forced":   {"false"},
		"hi":       {"false"},
	}
	if err := c.api.Do(ctx, http.MethodPatch, "/api/movies/subtitles", query, nil, nil); err != nil {
		return fmt.Errorf("subtitle download for movie %s failed: %w", movieID, err)
	}
	return nil
}

// SyncLibrary runs Bazarr's update_series or update_movies task, which
// re-reads the library from Sonarr or Radarr.
func (c *Client) SyncLibrary(ctx context.Context, movies bool) error {
	task := "update_series"
	if movies {
		task = "update_movies"
	}
	if err := c.api.Post(ctx, "/api/system/tasks", map[string]string{"taskid": task}, nil); err != nil {
		return fmt.Errorf("failed to run %s: %w", task, err)
	}
	return nil
}

var languageCodes = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"dutch":      "nl",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"swedish":    "sv",
	"norwegian":  "no",
	"danish":     "da",
	"finnish":    "fi",
	"polish":     "pl",
	"arabic":     "ar",
}

// normalizeLanguage maps language names to the two letter codes Bazarr
// expects. Unknown values pass through lowercased.
func normalizeLanguage(language string) string {
	l := strings.ToLower(strings.TrimSpace(language))
	if l == "" {
		return defaultLanguage
	}
	if code, ok := languageCodes[l]; ok {
		return code
	}
	return l
}
