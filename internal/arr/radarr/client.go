// Package radarr implements the movie backend against the Radarr v3 API.
// Whisparr speaks the same API and is served by the same client.
package radarr

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/arrmate/arrmate/internal/arr/api"
	"github.com/arrmate/arrmate/internal/arr/types"
)

const apiVersion = "v3"

// Client is a Radarr (or Whisparr) API client.
type Client struct {
	types.EpisodesNotSupported

	api    *api.Client
	config types.ClientConfig
	kind   types.Kind
}

// Compile-time check that Client implements types.Client.
var _ types.Client = (*Client)(nil)

// New creates a new Radarr client.
func New(cfg types.ClientConfig) *Client {
	return &Client{
		api:    api.New(cfg.URL, cfg.APIKey, cfg.Timeout),
		config: cfg,
		kind:   types.KindRadarr,
	}
}

// NewWhisparr creates a client for a Whisparr instance.
func NewWhisparr(cfg types.ClientConfig) *Client {
	c := New(cfg)
	c.kind = types.KindWhisparr
	return c
}

// NewFromConfig creates a new Radarr client from a ClientConfig.
func NewFromConfig(cfg *types.ClientConfig) *Client {
	return New(*cfg)
}

type movie struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Year       int    `json:"year"`
	TmdbID     int    `json:"tmdbId"`
	Monitored  bool   `json:"monitored"`
	HasFile    bool   `json:"hasFile"`
	Path       string `json:"path"`
	SizeOnDisk int64  `json:"sizeOnDisk"`
	Status     string `json:"status"`
	Overview   string `json:"overview"`
}

func (m movie) toLibraryItem() types.LibraryItem {
	return types.LibraryItem{
		ID:         api.FormatID(m.ID),
		ForeignID:  api.FormatID(m.TmdbID),
		Title:      m.Title,
		Year:       m.Year,
		Monitored:  m.Monitored,
		HasFile:    m.HasFile,
		Path:       m.Path,
		SizeOnDisk: m.SizeOnDisk,
		Status:     m.Status,
		Overview:   m.Overview,
	}
}

// Kind returns the backend kind.
func (c *Client) Kind() types.Kind {
	return c.kind
}

// TestConnection fetches the system status.
func (c *Client) TestConnection(ctx context.Context) (*types.SystemStatus, error) {
	var status types.SystemStatus
	if err := c.api.Get(ctx, "/api/v3/system/status", nil, &status); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.kind, err)
	}
	return &status, nil
}

// Search looks movies up in the external catalog (TMDb via Radarr).
func (c *Client) Search(ctx context.Context, query string) ([]types.CatalogItem, error) {
	var results []movie
	if err := c.api.Get(ctx, "/api/v3/movie/lookup", url.Values{"term": {query}}, &results); err != nil {
		return nil, fmt.Errorf("movie lookup failed: %w", err)
	}
	items := make([]types.CatalogItem, 0, len(results))
	for _, m := range results {
		items = append(items, types.CatalogItem{
			ForeignID: api.FormatID(m.TmdbID),
			Title:     m.Title,
			Year:      m.Year,
			Overview:  m.Overview,
			LibraryID: api.FormatID(m.ID),
		})
	}
	return items, nil
}

// ListLibrary returns every movie in the library.
func (c *Client) ListLibrary(ctx context.Context) ([]types.LibraryItem, error) {
	var all []movie
	if err := c.api.Get(ctx, "/api/v3/movie", nil, &all); err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	items := make([]types.LibraryItem, 0, len(all))
	for _, m := range all {
		items = append(items, m.toLibraryItem())
	}
	return items, nil
}

// GetItem returns one movie.
func (c *Client) GetItem(ctx context.Context, id string) (*types.LibraryItem, error) {
	movieID, err := api.ParseID(id)
	if err != nil {
		return nil, err
	}
	var m movie
	if err := c.api.Get(ctx, "/api/v3/movie/"+strconv.Itoa(movieID), nil, &m); err != nil {
		return nil, fmt.Errorf("failed to get movie %d: %w", movieID, err)
	}
	item := m.toLibraryItem()
	return &item, nil
}

// AddItem adds the movie with the given TMDb id.
func (c *Client) AddItem(ctx context.Context, foreignID string, opts types.AddOptions) (*types.LibraryItem, error) {
	tmdbID, err := api.ParseID(foreignID)
	if err != nil {
		return nil, err
	}

	var body map[string]any
	query := url.Values{"tmdbId": {strconv.Itoa(tmdbID)}}
	if err := c.api.Get(ctx, "/api/v3/movie/lookup/tmdb", query, &body); err != nil {
		return nil, fmt.Errorf("movie lookup failed: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("tmdb %d: %w", tmdbID, types.ErrNotFound)
	}
	if id, ok := body["id"].(float64); ok && id > 0 {
		return nil, fmt.Errorf("movie %v: %w", body["title"], types.ErrAlreadyExists)
	}

	defaults, err := api.ResolveAddDefaults(ctx, c.api, apiVersion, &c.config, opts)
	if err != nil {
		return nil, err
	}
	body["qualityProfileId"] = defaults.QualityProfileID
	body["rootFolderPath"] = defaults.RootFolderPath
	body["monitored"] = opts.Monitored
	body["minimumAvailability"] = "released"
	body["addOptions"] = map[string]any{"searchForMovie": opts.SearchOnAdd}

	var added movie
	if err := c.api.Post(ctx, "/api/v3/movie", body, &added); err != nil {
		return nil, fmt.Errorf("failed to add movie: %w", err)
	}
	item := added.toLibraryItem()
	return &item, nil
}

// DeleteItem removes a movie, optionally with its files.
func (c *Client) DeleteItem(ctx context.Context, id string, deleteFiles bool) error {
	movieID, err := api.ParseID(id)
	if err != nil {
		return err
	}
	query := url.Values{"deleteFiles": {strconv.FormatBool(deleteFiles)}}
	if err := c.api.Delete(ctx, "/api/v3/movie/"+strconv.Itoa(movieID), query); err != nil {
		return fmt.Errorf("failed to delete movie %d: %w", movieID, err)
	}
	return nil
}

// TriggerSearch queues MoviesSearch for one movie or MissingMoviesSearch for
// the whole library.
func (c *Client) TriggerSearch(ctx context.Context, req types.SearchRequest) error {
	cmd := map[string]any{"name": "MissingMoviesSearch"}
	if req.ItemID != "" {
		movieID, err := api.ParseID(req.ItemID)
		if err != nil {
			return err
		}
		cmd = map[string]any{"name": "MoviesSearch", "movieIds": []int{movieID}}
	}
	if err := c.api.Post(ctx, "/api/v3/command", cmd, nil); err != nil {
		return fmt.Errorf("failed to queue %s: %w", cmd["name"], err)
	}
	return nil
}
