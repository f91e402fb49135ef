// Package lidarr implements the music backend against the Lidarr v1 API.
// Library items are artists.
package lidarr

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/arrmate/arrmate/internal/arr/api"
	"github.com/arrmate/arrmate/internal/arr/types"
)

const apiVersion = "v1"

// Client is a Lidarr API client.
type Client struct {
	types.EpisodesNotSupported

	api    *api.Client
	config types.ClientConfig
}

// Compile-time check that Client implements types.Client.
var _ types.Client = (*Client)(nil)

// New creates a new Lidarr client.
func New(cfg types.ClientConfig) *Client {
	return &Client{
		api:    api.New(cfg.URL, cfg.APIKey, cfg.Timeout),
		config: cfg,
	}
}

type artist struct {
	ID              int    `json:"id"`
	ArtistName      string `json:"artistName"`
	ForeignArtistID string `json:"foreignArtistId"`
	Monitored       bool   `json:"monitored"`
	Path            string `json:"path"`
	Status          string `json:"status"`
	Overview        string `json:"overview"`
	Statistics      *struct {
		TrackFileCount int   `json:"trackFileCount"`
		SizeOnDisk     int64 `json:"sizeOnDisk"`
	} `json:"statistics"`
}

func (a artist) toLibraryItem() types.LibraryItem {
	item := types.LibraryItem{
		ID:        api.FormatID(a.ID),
		ForeignID: a.ForeignArtistID,
		Title:     a.ArtistName,
		Monitored: a.Monitored,
		Path:      a.Path,
		Status:    a.Status,
		Overview:  a.Overview,
	}
	if a.Statistics != nil {
		item.HasFile = a.Statistics.TrackFileCount > 0
		item.SizeOnDisk = a.Statistics.SizeOnDisk
	}
	return item
}

// Kind returns the backend kind.
func (c *Client) Kind() types.Kind {
	return types.KindLidarr
}

// TestConnection fetches the system status.
func (c *Client) TestConnection(ctx context.Context) (*types.SystemStatus, error) {
	var status types.SystemStatus
	if err := c.api.Get(ctx, "/api/v1/system/status", nil, &status); err != nil {
		return nil, fmt.Errorf("failed to connect to lidarr: %w", err)
	}
	return &status, nil
}

// Search looks artists up in MusicBrainz via Lidarr.
func (c *Client) Search(ctx context.Context, query string) ([]types.CatalogItem, error) {
	var results []artist
	if err := c.api.Get(ctx, "/api/v1/artist/lookup", url.Values{"term": {query}}, &results); err != nil {
		return nil, fmt.Errorf("artist lookup failed: %w", err)
	}
	items := make([]types.CatalogItem, 0, len(results))
	for _, a := range results {
		items = append(items, types.CatalogItem{
			ForeignID: a.ForeignArtistID,
			Title:     a.ArtistName,
			Overview:  a.Overview,
			LibraryID: api.FormatID(a.ID),
		})
	}
	return items, nil
}

// ListLibrary returns every artist in the library.
func (c *Client) ListLibrary(ctx context.Context) ([]types.LibraryItem, error) {
	var all []artist
	if err := c.api.Get(ctx, "/api/v1/artist", nil, &all); err != nil {
		return nil, fmt.Errorf("failed to list artists: %w", err)
	}
	items := make([]types.LibraryItem, 0, len(all))
	for _, a := range all {
		items = append(items, a.toLibraryItem())
	}
	return items, nil
}

// GetItem returns one artist.
func (c *Client) GetItem(ctx context.Context, id string) (*types.LibraryItem, error) {
	artistID, err := api.ParseID(id)
	if err != nil {
		return nil, err
	}
	var a artist
	if err := c.api.Get(ctx, "/api/v1/artist/"+strconv.Itoa(artistID), nil, &a); err != nil {
		return nil, fmt.Errorf("failed to get artist %d: %w", artistID, err)
	}
	item := a.toLibraryItem()
	return &item, nil
}

// AddItem adds the artist with the given MusicBrainz id.
func (c *Client) AddItem(ctx context.Context, foreignID string, opts types.AddOptions) (*types.LibraryItem, error) {
	if foreignID == "" {
		return nil, fmt.Errorf("empty musicbrainz id: %w", types.ErrNotFound)
	}

	var lookup []map[string]any
	if err := c.api.Get(ctx, "/api/v1/artist/lookup", url.Values{"term": {"lidarr:" + foreignID}}, &lookup); err != nil {
		return nil, fmt.Errorf("artist lookup failed: %w", err)
	}
	if len(lookup) == 0 {
		return nil, fmt.Errorf("musicbrainz %s: %w", foreignID, types.ErrNotFound)
	}
	body := lookup[0]
	if id, ok := body["id"].(float64); ok && id > 0 {
		return nil, fmt.Errorf("artist %v: %w", body["artistName"], types.ErrAlreadyExists)
	}

	defaults, err := api.ResolveAddDefaults(ctx, c.api, apiVersion, &c.config, opts)
	if err != nil {
		return nil, err
	}
	var metadataProfiles []api.QualityProfile
	if err := c.api.Get(ctx, "/api/v1/metadataprofile", nil, &metadataProfiles); err != nil {
		return nil, fmt.Errorf("failed to list metadata profiles: %w", err)
	}
	if len(metadataProfiles) == 0 {
		return nil, types.ErrNoDefaults
	}

	body["qualityProfileId"] = defaults.QualityProfileID
	body["metadataProfileId"] = metadataProfiles[0].ID
	body["rootFolderPath"] = defaults.RootFolderPath
	body["monitored"] = opts.Monitored
	body["addOptions"] = map[string]any{"searchForMissingAlbums": opts.SearchOnAdd}

	var added artist
	if err := c.api.Post(ctx, "/api/v1/artist", body, &added); err != nil {
		return nil, fmt.Errorf("failed to add artist: %w", err)
	}
	item := added.toLibraryItem()
	return &item, nil
}

// DeleteItem removes an artist, optionally with its files.
func (c *Client) DeleteItem(ctx context.Context, id string, deleteFiles bool) error {
	artistID, err := api.ParseID(id)
	if err != nil {
		return err
	}
	query := url.Values{"deleteFiles": {strconv.FormatBool(deleteFiles)}}
	if err := c.api.Delete(ctx, "/api/v1/artist/"+strconv.Itoa(artistID), query); err != nil {
		return fmt.Errorf("failed to delete artist %d: %w", artistID, err)
	}
	return nil
}

// TriggerSearch queues ArtistSearch or, for the whole library, MissingAlbumSearch.
func (c *Client) TriggerSearch(ctx context.Context, req types.SearchRequest) error {
	cmd := map[string]any{"name": "MissingAlbumSearch"}
	if req.ItemID != "" {
		artistID, err := api.ParseID(req.ItemID)
		if err != nil {
			return err
		}
		cmd = map[string]any{"name": "ArtistSearch", "artistId": artistID}
	}
	if err := c.api.Post(ctx, "/api/v1/command", cmd, nil); err != nil {
		return fmt.Errorf("failed to queue %s: %w", cmd["name"], err)
	}
	return nil
}
