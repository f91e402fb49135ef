// Package sonarr implements the TV backend against the Sonarr v3 API.
package sonarr

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/arrmate/arrmate/internal/arr/api"
	"github.com/arrmate/arrmate/internal/arr/types"
)

const apiVersion = "v3"

// Client is a Sonarr API client.
type Client struct {
	api    *api.Client
	config types.ClientConfig
}

// Compile-time check that Client implements types.Client.
var _ types.Client = (*Client)(nil)

// New creates a new Sonarr client.
func New(cfg types.ClientConfig) *Client {
	return &Client{
		api:    api.New(cfg.URL, cfg.APIKey, cfg.Timeout),
		config: cfg,
	}
}

// NewFromConfig creates a new Sonarr client from a ClientConfig.
func NewFromConfig(cfg *types.ClientConfig) *Client {
	return New(*cfg)
}

type series struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	TvdbID    int    `json:"tvdbId"`
	Monitored bool   `json:"monitored"`
	Path      string `json:"path"`
	Status    string `json:"status"`
	Overview  string `json:"overview"`
	Seasons   []struct {
		SeasonNumber int  `json:"seasonNumber"`
		Monitored    bool `json:"monitored"`
		Statistics   *struct {
			EpisodeCount     int `json:"episodeCount"`
			EpisodeFileCount int `json:"episodeFileCount"`
		} `json:"statistics"`
	} `json:"seasons"`
	Statistics *struct {
		EpisodeFileCount int   `json:"episodeFileCount"`
		SizeOnDisk       int64 `json:"sizeOnDisk"`
	} `json:"statistics"`
}

type episode struct {
	ID            int    `json:"id"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
	Title         string `json:"title"`
	HasFile       bool   `json:"hasFile"`
	EpisodeFileID int    `json:"episodeFileId"`
}

func (s series) toLibraryItem() types.LibraryItem {
	item := types.LibraryItem{
		ID:        api.FormatID(s.ID),
		ForeignID: api.FormatID(s.TvdbID),
		Title:     s.Title,
		Year:      s.Year,
		Monitored: s.Monitored,
		Path:      s.Path,
		Status:    s.Status,
		Overview:  s.Overview,
	}
	if s.Statistics != nil {
		item.SizeOnDisk = s.Statistics.SizeOnDisk
		item.HasFile = s.Statistics.EpisodeFileCount > 0
	}
	for _, season := range s.Seasons {
		info := types.SeasonInfo{Number: season.SeasonNumber, Monitored: season.Monitored}
		if season.Statistics != nil {
			info.EpisodeCount = season.Statistics.EpisodeCount
			info.EpisodeFileCount = season.Statistics.EpisodeFileCount
		}
		item.Seasons = append(item.Seasons, info)
	}
	return item
}

// Kind returns the backend kind.
func (c *Client) Kind() types.Kind {
	return types.KindSonarr
}

// TestConnection fetches the system status.
func (c *Client) TestConnection(ctx context.Context) (*types.SystemStatus, error) {
	var status types.SystemStatus
	if err := c.api.Get(ctx, "/api/v3/system/status", nil, &status); err != nil {
		return nil, fmt.Errorf("failed to connect to sonarr: %w", err)
	}
	return &status, nil
}

// Search looks series up in the external catalog (TVDB via Sonarr).
func (c *Client) Search(ctx context.Context, query string) ([]types.CatalogItem, error) {
	var results []series
	if err := c.api.Get(ctx, "/api/v3/series/lookup", url.Values{"term": {query}}, &results); err != nil {
		return nil, fmt.Errorf("series lookup failed: %w", err)
	}
	items := make([]types.CatalogItem, 0, len(results))
	for _, s := range results {
		items = append(items, types.CatalogItem{
			ForeignID: api.FormatID(s.TvdbID),
			Title:     s.Title,
			Year:      s.Year,
			Overview:  s.Overview,
			LibraryID: api.FormatID(s.ID),
		})
	}
	return items, nil
}

// ListLibrary returns every series in the library.
func (c *Client) ListLibrary(ctx context.Context) ([]types.LibraryItem, error) {
	var all []series
	if err := c.api.Get(ctx, "/api/v3/series", nil, &all); err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	items := make([]types.LibraryItem, 0, len(all))
	for _, s := range all {
		items = append(items, s.toLibraryItem())
	}
	return items, nil
}

// GetItem returns one series.
func (c *Client) GetItem(ctx context.Context, id string) (*types.LibraryItem, error) {
	seriesID, err := api.ParseID(id)
	if err != nil {
		return nil, err
	}
	var s series
	if err := c.api.Get(ctx, "/api/v3/series/"+strconv.Itoa(seriesID), nil, &s); err != nil {
		return nil, fmt.Errorf("failed to get series %d: %w", seriesID, err)
	}
	item := s.toLibraryItem()
	return &item, nil
}

// ListEpisodes returns the episodes of one season. A season the series does
// not have yields an empty list.
func (c *Client) ListEpisodes(ctx context.Context, seriesID string, season int) ([]types.Episode, error) {
	eps, err := c.episodes(ctx, seriesID, season)
	if err != nil {
		return nil, err
	}
	out := make([]types.Episode, 0, len(eps))
	for _, e := range eps {
		out = append(out, types.Episode{
			ID:      api.FormatID(e.ID),
			Season:  e.SeasonNumber,
			Number:  e.EpisodeNumber,
			Title:   e.Title,
			HasFile: e.HasFile && e.EpisodeFileID > 0,
			FileID:  api.FormatID(e.EpisodeFileID),
		})
	}
	return out, nil
}

func (c *Client) episodes(ctx context.Context, seriesID string, season int) ([]episode, error) {
	id, err := api.ParseID(seriesID)
	if err != nil {
		return nil, err
	}
	query := url.Values{
		"seriesId":     {strconv.Itoa(id)},
		"seasonNumber": {strconv.Itoa(season)},
	}
	var eps []episode
	if err := c.api.Get(ctx, "/api/v3/episode", query, &eps); err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	// older Sonarr builds ignore seasonNumber
	filtered := eps[:0]
	for _, e := range eps {
		if e.SeasonNumber == season {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// DeleteEpisode deletes the file of one episode.
func (c *Client) DeleteEpisode(ctx context.Context, seriesID string, season, number int) error {
	eps, err := c.episodes(ctx, seriesID, season)
	if err != nil {
		return err
	}
	for _, e := range eps {
		if e.EpisodeNumber != number {
			continue
		}
		if !e.HasFile || e.EpisodeFileID <= 0 {
			return fmt.Errorf("S%02dE%02d: %w", season, number, types.ErrNoFile)
		}
		if err := c.api.Delete(ctx, "/api/v3/episodefile/"+strconv.Itoa(e.EpisodeFileID), nil); err != nil {
			return fmt.Errorf("failed to delete file of S%02dE%02d: %w", season, number, err)
		}
		return nil
	}
	return fmt.Errorf("episode S%02dE%02d: %w", season, number, types.ErrNotFound)
}

// AddItem adds the series with the given TVDB id.
func (c *Client) AddItem(ctx context.Context, foreignID string, opts types.AddOptions) (*types.LibraryItem, error) {
	if _, err := api.ParseID(foreignID); err != nil {
		return nil, err
	}

	var lookup []map[string]any
	if err := c.api.Get(ctx, "/api/v3/series/lookup", url.Values{"term": {"tvdb:" + foreignID}}, &lookup); err != nil {
		return nil, fmt.Errorf("series lookup failed: %w", err)
	}
	if len(lookup) == 0 {
		return nil, fmt.Errorf("tvdb %s: %w", foreignID, types.ErrNotFound)
	}
	body := lookup[0]
	if id, ok := body["id"].(float64); ok && id > 0 {
		return nil, fmt.Errorf("series %v: %w", body["title"], types.ErrAlreadyExists)
	}

	defaults, err := api.ResolveAddDefaults(ctx, c.api, apiVersion, &c.config, opts)
	if err != nil {
		return nil, err
	}
	body["qualityProfileId"] = defaults.QualityProfileID
	body["rootFolderPath"] = defaults.RootFolderPath
	body["monitored"] = opts.Monitored
	body["seasonFolder"] = true
	body["addOptions"] = map[string]any{"searchForMissingEpisodes": opts.SearchOnAdd}

	var added series
	if err := c.api.Post(ctx, "/api/v3/series", body, &added); err != nil {
		return nil, fmt.Errorf("failed to add series: %w", err)
	}
	item := added.toLibraryItem()
	return &item, nil
}

// DeleteItem removes a series, optionally with its files.
func (c *Client) DeleteItem(ctx context.Context, id string, deleteFiles bool) error {
	seriesID, err := api.ParseID(id)
	if err != nil {
		return err
	}
	query := url.Values{"deleteFiles": {strconv.FormatBool(deleteFiles)}}
	if err := c.api.Delete(ctx, "/api/v3/series/"+strconv.Itoa(seriesID), query); err != nil {
		return fmt.Errorf("failed to delete series %d: %w", seriesID, err)
	}
	return nil
}

// TriggerSearch queues a Sonarr search command. The scope narrows from the
// whole library (missing episodes) to a series, a season or episodes.
func (c *Client) TriggerSearch(ctx context.Context, req types.SearchRequest) error {
	cmd, err := c.searchCommand(ctx, req)
	if err != nil {
		return err
	}
	if err := c.api.Post(ctx, "/api/v3/command", cmd, nil); err != nil {
		return fmt.Errorf("failed to queue %s: %w", cmd["name"], err)
	}
	return nil
}

func (c *Client) searchCommand(ctx context.Context, req types.SearchRequest) (map[string]any, error) {
	if req.ItemID == "" {
		return map[string]any{"name": "MissingEpisodeSearch"}, nil
	}
	seriesID, err := api.ParseID(req.ItemID)
	if err != nil {
		return nil, err
	}
	if req.Season == nil {
		return map[string]any{"name": "SeriesSearch", "seriesId": seriesID}, nil
	}
	if len(req.Episodes) == 0 {
		return map[string]any{"name": "SeasonSearch", "seriesId": seriesID, "seasonNumber": *req.Season}, nil
	}

	eps, err := c.episodes(ctx, req.ItemID, *req.Season)
	if err != nil {
		return nil, err
	}
	wanted := make(map[int]bool, len(req.Episodes))
	for _, n := range req.Episodes {
		wanted[n] = true
	}
	var ids []int
	for _, e := range eps {
		if wanted[e.EpisodeNumber] {
			ids = append(ids, e.ID)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no matching episodes in season %d: %w", *req.Season, types.ErrNotFound)
	}
	return map[string]any{"name": "EpisodeSearch", "episodeIds": ids}, nil
}
