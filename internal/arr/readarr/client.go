// Package readarr implements the book backend against the Readarr v1 API.
// Library items are authors.
package readarr

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/arrmate/arrmate/internal/arr/api"
	"github.com/arrmate/arrmate/internal/arr/types"
)

const apiVersion = "v1"

// Client is a Readarr API client.
type Client struct {
	types.EpisodesNotSupported

	api    *api.Client
	config types.ClientConfig
}

// Compile-time check that Client implements types.Client.
var _ types.Client = (*Client)(nil)

// New creates a new Readarr client.
func New(cfg types.ClientConfig) *Client {
	return &Client{
		api:    api.New(cfg.URL, cfg.APIKey, cfg.Timeout),
		config: cfg,
	}
}

type author struct {
	ID              int    `json:"id"`
	AuthorName      string `json:"authorName"`
	ForeignAuthorID string `json:"foreignAuthorId"`
	Monitored       bool   `json:"monitored"`
	Path            string `json:"path"`
	Status          string `json:"status"`
	Overview        string `json:"overview"`
	Statistics      *struct {
		BookFileCount int   `json:"bookFileCount"`
		SizeOnDisk    int64 `json:"sizeOnDisk"`
	} `json:"statistics"`
}

func (a author) toLibraryItem() types.LibraryItem {
	item := types.LibraryItem{
		ID:        api.FormatID(a.ID),
		ForeignID: a.ForeignAuthorID,
		Title:     a.AuthorName,
		Monitored: a.Monitored,
		Path:      a.Path,
		Status:    a.Status,
		Overview:  a.Overview,
	}
	if a.Statistics != nil {
		item.HasFile = a.Statistics.BookFileCount > 0
		item.SizeOnDisk = a.Statistics.SizeOnDisk
	}
	return item
}

// Kind returns the backend kind.
func (c *Client) Kind() types.Kind {
	return types.KindReadarr
}

// TestConnection fetches the system status.
func (c *Client) TestConnection(ctx context.Context) (*types.SystemStatus, error) {
	var status types.SystemStatus
	if err := c.api.Get(ctx, "/api/v1/system/status", nil, &status); err != nil {
		return nil, fmt.Errorf("failed to connect to readarr: %w", err)
	}
	return &status, nil
}

// Search looks authors up in the metadata catalog via Readarr.
func (c *Client) Search(ctx context.Context, query string) ([]types.CatalogItem, error) {
	var results []author
	if err := c.api.Get(ctx, "/api/v1/author/lookup", url.Values{"term": {query}}, &results); err != nil {
		return nil, fmt.Errorf("author lookup failed: %w", err)
	}
	items := make([]types.CatalogItem, 0, len(results))
	for _, a := range results {
		items = append(items, types.CatalogItem{
			ForeignID: a.ForeignAuthorID,
			Title:     a.AuthorName,
			Overview:  a.Overview,
			LibraryID: api.FormatID(a.ID),
		})
	}
	return items, nil
}

// ListLibrary returns every author in the library.
func (c *Client) ListLibrary(ctx context.Context) ([]types.LibraryItem, error) {
	var all []author
	if err := c.api.Get(ctx, "/api/v1/author", nil, &all); err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	items := make([]types.LibraryItem, 0, len(all))
	for _, a := range all {
		items = append(items, a.toLibraryItem())
	}
	return items, nil
}

// GetItem returns one author.
func (c *Client) GetItem(ctx context.Context, id string) (*types.LibraryItem, error) {
	authorID, err := api.ParseID(id)
	if err != nil {
		return nil, err
	}
	var a author
	if err := c.api.Get(ctx, "/api/v1/author/"+strconv.Itoa(authorID), nil, &a); err != nil {
		return nil, fmt.Errorf("failed to get author %d: %w", authorID, err)
	}
	item := a.toLibraryItem()
	return &item, nil
}

// AddItem adds the author with the given foreign id.
func (c *Client) AddItem(ctx context.Context, foreignID string, opts types.AddOptions) (*types.LibraryItem, error) {
	if foreignID == "" {
		return nil, fmt.Errorf("empty author id: %w", types.ErrNotFound)
	}

	var lookup []map[string]any
	if err := c.api.Get(ctx, "/api/v1/author/lookup", url.Values{"term": {"readarr:" + foreignID}}, &lookup); err != nil {
		return nil, fmt.Errorf("author lookup failed: %w", err)
	}
	if len(lookup) == 0 {
		return nil, fmt.Errorf("author %s: %w", foreignID, types.ErrNotFound)
	}
	body := lookup[0]
	if id, ok := body["id"].(float64); ok && id > 0 {
		return nil, fmt.Errorf("author %v: %w", body["authorName"], types.ErrAlreadyExists)
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
	body["addOptions"] = map[string]any{"searchForMissingBooks": opts.SearchOnAdd}

	var added author
	if err := c.api.Post(ctx, "/api/v1/author", body, &added); err != nil {
		return nil, fmt.Errorf("failed to add author: %w", err)
	}
	item := added.toLibraryItem()
	return &item, nil
}

// DeleteItem removes an author, optionally with its files.
func (c *Client) DeleteItem(ctx context.Context, id string, deleteFiles bool) error {
	authorID, err := api.ParseID(id)
	if err != nil {
		return err
	}
	query := url.Values{"deleteFiles": {strconv.FormatBool(deleteFiles)}}
	if err := c.api.Delete(ctx, "/api/v1/author/"+strconv.Itoa(authorID), query); err != nil {
		return fmt.Errorf("failed to delete author %d: %w", authorID, err)
	}
	return nil
}

// TriggerSearch queues AuthorSearch or, for the whole library, MissingBookSearch.
func (c *Client) TriggerSearch(ctx context.Context, req types.SearchRequest) error {
	cmd := map[string]any{"name": "MissingBookSearch"}
	if req.ItemID != "" {
		authorID, err := api.ParseID(req.ItemID)
		if err != nil {
			return err
		}
		cmd = map[string]any{"name": "AuthorSearch", "authorId": authorID}
	}
	if err := c.api.Post(ctx, "/api/v1/command", cmd, nil); err != nil {
		return fmt.Errorf("failed to queue %s: %w", cmd["name"], err)
	}
	return nil
}
