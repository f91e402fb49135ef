// Package mock provides an in-memory backend for developer mode and tests.
// Every call is recorded so callers can assert on ordering.
package mock

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arrmate/arrmate/internal/arr/types"
)

// Call is one recorded invocation.
type Call struct {
	Op     string
	Target string
}

// Client implements types.Client in memory.
type Client struct {
	mu       sync.Mutex
	kind     types.Kind
	library  []types.LibraryItem
	catalog  []types.CatalogItem
	episodes map[string][]types.Episode
	failures map[string]error
	calls    []Call
	delay    time.Duration
	nextID   int
	status   types.SystemStatus
}

// Compile-time check that Client implements types.Client.
var _ types.Client = (*Client)(nil)

// New creates an empty mock backend.
func New() *Client {
	return &Client{
		kind:     types.KindMock,
		episodes: make(map[string][]types.Episode),
		failures: make(map[string]error),
		nextID:   1000,
		status:   types.SystemStatus{AppName: "Mock", Version: "1.0.0"},
	}
}

// NewFromConfig creates a mock backend seeded with demo data (config is ignored).
func NewFromConfig(_ *types.ClientConfig) *Client {
	return NewDemo()
}

// WithKind makes the mock report another kind.
func (c *Client) WithKind(kind types.Kind) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kind = kind
	return c
}

// WithLibrary adds items to the library. Items without a matching catalog
// entry get one, so lookups behave like a real backend.
func (c *Client) WithLibrary(items ...types.LibraryItem) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		c.library = append(c.library, item)
		if item.ForeignID != "" && c.catalogIndex(item.ForeignID) < 0 {
			c.catalog = append(c.catalog, types.CatalogItem{
				ForeignID: item.ForeignID,
				Title:     item.Title,
				Year:      item.Year,
				LibraryID: item.ID,
			})
		}
	}
	return c
}

// WithCatalog adds external catalog entries.
func (c *Client) WithCatalog(items ...types.CatalogItem) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalog = append(c.catalog, items...)
	return c
}

// WithEpisodes sets episodes for a series.
func (c *Client) WithEpisodes(seriesID string, eps ...types.Episode) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.episodes[seriesID] = append(c.episodes[seriesID], eps...)
	return c
}

// WithDelay makes every call wait d (or until the context is done).
func (c *Client) WithDelay(d time.Duration) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delay = d
	return c
}

// FailOn makes every call of op return err. op is a method name such as
// "Search" or "TriggerSearch".
func (c *Client) FailOn(op string, err error) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[op] = err
	return c
}

// FailEpisode makes DeleteEpisode of one episode return err.
func (c *Client) FailEpisode(season, episode int, err error) *Client {
	return c.FailOn("DeleteEpisode:"+episodeKey(season, episode), err)
}

// Calls returns a copy of the recorded calls.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.calls)
}

// CallsTo returns the recorded calls of one operation.
func (c *Client) CallsTo(op string) []Call {
	var out []Call
	for _, call := range c.Calls() {
		if call.Op == op {
			out = append(out, call)
		}
	}
	return out
}

// Library returns a copy of the library.
func (c *Client) Library() []types.LibraryItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.library)
}

func episodeKey(season, episode int) string {
	return fmt.Sprintf("S%02dE%02d", season, episode)
}

// begin records the call, applies the configured delay and returns the
// configured failure, if any. The lock is not held while waiting.
func (c *Client) begin(ctx context.Context, op, target string, failureKeys ...string) error {
	c.mu.Lock()
	c.calls = append(c.calls, Call{Op: op, Target: target})
	delay := c.delay
	var failure error
	for _, key := range append([]string{op}, failureKeys...) {
		if err, ok := c.failures[key]; ok {
			failure = err
		}
	}
	c.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}
	return failure
}

func (c *Client) libraryIndex(id string) int {
	for i, item := range c.library {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (c *Client) catalogIndex(foreignID string) int {
	for i, item := range c.catalog {
		if item.ForeignID == foreignID {
			return i
		}
	}
	return -1
}

// Kind returns the configured kind.
func (c *Client) Kind() types.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kind
}

// TestConnection reports a fixed status.
func (c *Client) TestConnection(ctx context.Context) (*types.SystemStatus, error) {
	if err := c.begin(ctx, "TestConnection", ""); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	status := c.status
	return &status, nil
}

// Search returns catalog entries sharing a word with the query.
func (c *Client) Search(ctx context.Context, query string) ([]types.CatalogItem, error) {
	if err := c.begin(ctx, "Search", query); err != nil {
		return nil, err
	}
	words := strings.Fields(strings.ToLower(query))

	c.mu.Lock()
	defer c.mu.Unlock()
	var out []types.CatalogItem
	for _, item := range c.catalog {
		title := strings.ToLower(item.Title)
		for _, w := range words {
			if strings.Contains(title, w) {
				out = append(out, item)
				break
			}
		}
	}
	return out, nil
}

// ListLibrary returns the library.
func (c *Client) ListLibrary(ctx context.Context) ([]types.LibraryItem, error) {
	if err := c.begin(ctx, "ListLibrary", ""); err != nil {
		return nil, err
	}
	return c.Library(), nil
}

// GetItem returns one library item.
func (c *Client) GetItem(ctx context.Context, id string) (*types.LibraryItem, error) {
	if err := c.begin(ctx, "GetItem", id); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.libraryIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("item %s: %w", id, types.ErrNotFound)
	}
	item := c.library[i]
	return &item, nil
}

// ListEpisodes returns the episodes of one season.
func (c *Client) ListEpisodes(ctx context.Context, seriesID string, season int) ([]types.Episode, error) {
	if err := c.begin(ctx, "ListEpisodes", fmt.Sprintf("%s:S%02d", seriesID, season)); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.libraryIndex(seriesID) < 0 {
		return nil, fmt.Errorf("series %s: %w", seriesID, types.ErrNotFound)
	}
	var out []types.Episode
	for _, e := range c.episodes[seriesID] {
		if e.Season == season {
			out = append(out, e)
		}
	}
	return out, nil
}

// DeleteEpisode deletes the file of one episode.
func (c *Client) DeleteEpisode(ctx context.Context, seriesID string, season, episode int) error {
	key := episodeKey(season, episode)
	if err := c.begin(ctx, "DeleteEpisode", seriesID+":"+key, "DeleteEpisode:"+key); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	eps := c.episodes[seriesID]
	for i := range eps {
		if eps[i].Season != season || eps[i].Number != episode {
			continue
		}
		if !eps[i].HasFile {
			return fmt.Errorf("%s: %w", key, types.ErrNoFile)
		}
		eps[i].HasFile = false
		eps[i].FileID = ""
		return nil
	}
	return fmt.Errorf("episode %s: %w", key, types.ErrNotFound)
}

// AddItem moves a catalog entry into the library.
func (c *Client) AddItem(ctx context.Context, foreignID string, opts types.AddOptions) (*types.LibraryItem, error) {
	if err := c.begin(ctx, "AddItem", foreignID); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.catalogIndex(foreignID)
	if i < 0 {
		return nil, fmt.Errorf("catalog id %s: %w", foreignID, types.ErrNotFound)
	}
	if c.catalog[i].LibraryID != "" {
		return nil, fmt.Errorf("%s: %w", c.catalog[i].Title, types.ErrAlreadyExists)
	}
	c.nextID++
	item := types.LibraryItem{
		ID:        strconv.Itoa(c.nextID),
		ForeignID: foreignID,
		Title:     c.catalog[i].Title,
		Year:      c.catalog[i].Year,
		Monitored: opts.Monitored,
	}
	c.catalog[i].LibraryID = item.ID
	c.library = append(c.library, item)
	return &item, nil
}

// DeleteItem removes a library item.
func (c *Client) DeleteItem(ctx context.Context, id string, _ bool) error {
	if err := c.begin(ctx, "DeleteItem", id); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.libraryIndex(id)
	if i < 0 {
		return fmt.Errorf("item %s: %w", id, types.ErrNotFound)
	}
	if j := c.catalogIndex(c.library[i].ForeignID); j >= 0 {
		c.catalog[j].LibraryID = ""
	}
	c.library = slices.Delete(c.library, i, i+1)
	delete(c.episodes, id)
	return nil
}

// TriggerSearch records the request.
func (c *Client) TriggerSearch(ctx context.Context, req types.SearchRequest) error {
	target := req.ItemID
	if target == "" {
		target = "*"
	}
	if err := c.begin(ctx, "TriggerSearch", target); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if req.ItemID != "" && c.libraryIndex(req.ItemID) < 0 {
		return fmt.Errorf("item %s: %w", req.ItemID, types.ErrNotFound)
	}
	return nil
}
