// Package types defines the capability interface shared by all media
// library backends and the types exchanged with them.
package types

import (
	"context"
	"errors"
	"time"
)

// Common errors for backend clients.
var (
	ErrNotFound      = errors.New("not found")
	ErrNoFile        = errors.New("no file on disk")
	ErrNotSupported  = errors.New("operation not supported by this service")
	ErrUnauthorized  = errors.New("unauthorized: check api key")
	ErrAlreadyExists = errors.New("already exists")
	ErrNoDefaults    = errors.New("service has no quality profile or root folder")
)

// Kind identifies a backend implementation.
type Kind string

const (
	KindSonarr         Kind = "sonarr"
	KindRadarr         Kind = "radarr"
	KindLidarr         Kind = "lidarr"
	KindReadarr        Kind = "readarr"
	KindWhisparr       Kind = "whisparr"
	KindAudiobookshelf Kind = "audiobookshelf"
	KindBazarr         Kind = "bazarr"
	KindMock           Kind = "mock" // In-memory backend for developer mode
)

// ClientConfig holds common configuration for all backend clients.
type ClientConfig struct {
	Name           string
	URL            string
	APIKey         string
	Timeout        time.Duration
	QualityProfile string // Preferred quality profile name for ADD
	RootFolder     string // Preferred root folder path for ADD
}

// SystemStatus is what a successful connection test reports.
type SystemStatus struct {
	AppName string `json:"appName"`
	Version string `json:"version"`
}

// Client is the capability set every library backend exposes. Operations a
// backend cannot perform return ErrNotSupported.
type Client interface {
	Kind() Kind

	// Connection
	TestConnection(ctx context.Context) (*SystemStatus, error)

	// Catalog and library reads
	Search(ctx context.Context, query string) ([]CatalogItem, error)
	ListLibrary(ctx context.Context) ([]LibraryItem, error)
	GetItem(ctx context.Context, id string) (*LibraryItem, error)
	ListEpisodes(ctx context.Context, seriesID string, season int) ([]Episode, error)

	// Writes
	AddItem(ctx context.Context, foreignID string, opts AddOptions) (*LibraryItem, error)
	DeleteItem(ctx context.Context, id string, deleteFiles bool) error
	DeleteEpisode(ctx context.Context, seriesID string, season, episode int) error
	TriggerSearch(ctx context.Context, req SearchRequest) error
}

// SubtitleClient is the capability set of a subtitle companion service.
// Ids are those of the library backend the companion is synced with.
type SubtitleClient interface {
	TestConnection(ctx context.Context) (*SystemStatus, error)
	DownloadEpisodeSubtitles(ctx context.Context, seriesID, episodeID, language string) error
	DownloadMovieSubtitles(ctx context.Context, movieID, language string) error
	SyncLibrary(ctx context.Context, movies bool) error
}

// CatalogItem is an external catalog search result.
type CatalogItem struct {
	ForeignID string `json:"foreignId"`
	Title     string `json:"title"`
	Year      int    `json:"year,omitempty"`
	Overview  string `json:"overview,omitempty"`
	LibraryID string `json:"libraryId,omitempty"` // Set when the item is already in the library
}

// LibraryItem is an item managed by the backend.
type LibraryItem struct {
	ID         string       `json:"id"`
	ForeignID  string       `json:"foreignId,omitempty"`
	Title      string       `json:"title"`
	Year       int          `json:"year,omitempty"`
	Monitored  bool         `json:"monitored"`
	HasFile    bool         `json:"hasFile"`
	Path       string       `json:"path,omitempty"`
	SizeOnDisk int64        `json:"sizeOnDisk,omitempty"`
	Status     string       `json:"status,omitempty"`
	Overview   string       `json:"overview,omitempty"`
	Seasons    []SeasonInfo `json:"seasons,omitempty"`
}

// SeasonInfo summarizes one season of a series.
type SeasonInfo struct {
	Number           int  `json:"seasonNumber"`
	Monitored        bool `json:"monitored"`
	EpisodeCount     int  `json:"episodeCount"`
	EpisodeFileCount int  `json:"episodeFileCount"`
}

// Episode is one episode of a series.
type Episode struct {
	ID      string `json:"id"`
	Season  int    `json:"seasonNumber"`
	Number  int    `json:"episodeNumber"`
	Title   string `json:"title,omitempty"`
	HasFile bool   `json:"hasFile"`
	FileID  string `json:"episodeFileId,omitempty"`
}

// AddOptions specifies how an item is added to the library.
type AddOptions struct {
	Title          string
	Year           int
	QualityProfile string // Profile name; falls back to the configured one, then the first
	RootFolder     string // Root folder path; falls back to the configured one, then the first
	Monitored      bool
	SearchOnAdd    bool
}

// SearchRequest scopes a backend search trigger. An empty ItemID means the
// whole library (missing items search).
type SearchRequest struct {
	ItemID   string
	Season   *int
	Episodes []int
	Criteria map[string]string
}

// EpisodesNotSupported can be embedded by backends without episodes.
type EpisodesNotSupported struct{}

// ListEpisodes always returns ErrNotSupported.
func (EpisodesNotSupported) ListEpisodes(context.Context, string, int) ([]Episode, error) {
	return nil, ErrNotSupported
}

// DeleteEpisode always returns ErrNotSupported.
func (EpisodesNotSupported) DeleteEpisode(context.Context, string, int, int) error {
	return ErrNotSupported
}
