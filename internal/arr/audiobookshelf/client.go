// Package audiobookshelf implements the audiobook backend against the
// Audiobookshelf API. Audiobookshelf has no external catalog, so adds and
// per-item searches are not supported; a library-wide search rescans the
// book libraries.
package audiobookshelf

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/arrmate/arrmate/internal/arr/api"
	"github.com/arrmate/arrmate/internal/arr/types"
)

// Client is an Audiobookshelf API client.
type Client struct {
	types.EpisodesNotSupported

	api *api.Client
}

// Compile-time check that Client implements types.Client.
var _ types.Client = (*Client)(nil)

// New creates a new Audiobookshelf client. The api key is a user token.
func New(cfg types.ClientConfig) *Client {
	return &Client{
		api: api.New(cfg.URL, cfg.APIKey, cfg.Timeout, api.WithAuth(api.AuthBearer)),
	}
}

type library struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
}

type libraryItem struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	Media struct {
		NumAudioFiles int `json:"numAudioFiles"`
		Metadata      struct {
			Title         string `json:"title"`
			AuthorName    string `json:"authorName"`
			PublishedYear string `json:"publishedYear"`
			Description   string `json:"description"`
		} `json:"metadata"`
	} `json:"media"`
}

func (i libraryItem) toLibraryItem() types.LibraryItem {
	year, _ := strconv.Atoi(strings.TrimSpace(i.Media.Metadata.PublishedYear))
	return types.LibraryItem{
		ID:         i.ID,
		Title:      i.Media.Metadata.Title,
		Year:       year,
		Monitored:  true,
		HasFile:    i.Media.NumAudioFiles > 0 || i.Size > 0,
		Path:       i.Path,
		SizeOnDisk: i.Size,
		Overview:   i.Media.Metadata.Description,
	}
}

// Kind returns the backend kind.
func (c *Client) Kind() types.Kind {
	return types.KindAudiobookshelf
}

// TestConnection reads the server status and verifies the token.
func (c *Client) TestConnection(ctx context.Context) (*types.SystemStatus, error) {
	var status struct {
		App           string `json:"app"`
		ServerVersion string `json:"serverVersion"`
	}
	if err := c.api.Get(ctx, "/status", nil, &status); err != nil {
		return nil, fmt.Errorf("failed to connect to audiobookshelf: %w", err)
	}
	if _, err := c.bookLibraries(ctx); err != nil {
		return nil, err
	}
	return &types.SystemStatus{AppName: status.App, Version: status.ServerVersion}, nil
}

func (c *Client) bookLibraries(ctx context.Context) ([]library, error) {
	var resp struct {
		Libraries []library `json:"libraries"`
	}
	if err := c.api.Get(ctx, "/api/libraries", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list libraries: %w", err)
	}
	books := resp.Libraries[:0]
	for _, l := range resp.Libraries {
		if l.MediaType == "" || l.MediaType == "book" {
			books = append(books, l)
		}
	}
	return books, nil
}

// Search finds audiobooks in the book libraries. Results are always library
// items.
func (c *Client) Search(ctx context.Context, query string) ([]types.CatalogItem, error) {
	libs, err := c.bookLibraries(ctx)
	if err != nil {
		return nil, err
	}
	var items []types.CatalogItem
	for _, l := range libs {
		var resp struct {
			Book []struct {
				LibraryItem libraryItem `json:"libraryItem"`
			} `json:"book"`
		}
		path := "/api/libraries/" + url.PathEscape(l.ID) + "/search"
		if err := c.api.Get(ctx, path, url.Values{"q": {query}}, &resp); err != nil {
			return nil, fmt.Errorf("search in library %s failed: %w", l.Name, err)
		}
		for _, b := range resp.Book {
			item := b.LibraryItem.toLibraryItem()
			items = append(items, types.CatalogItem{
				ForeignID: item.ID,
				Title:     item.Title,
				Year:      item.Year,
				Overview:  item.Overview,
				LibraryID: item.ID,
			})
		}
	}
	return items, nil
}

// ListLibrary returns every item of every book library.
func (c *Client) ListLibrary(ctx context.Context) ([]types.LibraryItem, error) {
	libs, err := c.bookLibraries(ctx)
	if err != nil {
		return nil, err
	}
	var items []types.LibraryItem
	for _, l := range libs {
		var resp struct {
			Results []libraryItem `json:"results"`
		}
		path := "/api/libraries/" + url.PathEscape(l.ID) + "/items"
		if err := c.api.Get(ctx, path, url.Values{"limit": {"0"}}, &resp); err != nil {
			return nil, fmt.Errorf("failed to list items of %s: %w", l.Name, err)
		}
		for _, i := range resp.Results {
			items = append(items, i.toLibraryItem())
		}
	}
	return items, nil
}

// GetItem returns one audiobook.
func (c *Client) GetItem(ctx context.Context, id string) (*types.LibraryItem, error) {
	if id == "" {
		return nil, types.ErrNotFound
	}
	var i libraryItem
	if err := c.api.Get(ctx, "/api/items/"+url.PathEscape(id), nil, &i); err != nil {
		return nil, fmt.Errorf("failed to get item %s: %w", id, err)
	}
	item := i.toLibraryItem()
	return &item, nil
}

// AddItem is not supported: Audiobookshelf picks items up from disk.
func (c *Client) AddItem(context.Context, string, types.AddOptions) (*types.LibraryItem, error) {
	return nil, types.ErrNotSupported
}

// DeleteItem removes an item. With deleteFiles the files are removed too.
func (c *Client) DeleteItem(ctx context.Context, id string, deleteFiles bool) error {
	if id == "" {
		return types.ErrNotFound
	}
	var query url.Values
	if deleteFiles {
		query = url.Values{"hard": {"1"}}
	}
	if err := c.api.Delete(ctx, "/api/items/"+url.PathEscape(id), query); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	return nil
}

// TriggerSearch rescans all book libraries. Per-item searches are not
// supported.
func (c *Client) TriggerSearch(ctx context.Context, req types.SearchRequest) error {
	if req.ItemID != "" {
		return types.ErrNotSupported
	}
	libs, err := c.bookLibraries(ctx)
	if err != nil {
		return err
	}
	for _, l := range libs {
		if err := c.api.Post(ctx, "/api/libraries/"+url.PathEscape(l.ID)+"/scan", nil, nil); err != nil {
			return fmt.Errorf("failed to scan library %s: %w", l.Name, err)
		}
	}
	return nil
}
