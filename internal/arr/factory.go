// Package arr builds backend clients from configuration and knows which
// media types each backend kind serves.
package arr

import (
	"errors"
	"fmt"

	"github.com/arrmate/arrmate/internal/arr/audiobookshelf"
	"github.com/arrmate/arrmate/internal/arr/bazarr"
	"github.com/arrmate/arrmate/internal/arr/lidarr"
	"github.com/arrmate/arrmate/internal/arr/mock"
	"github.com/arrmate/arrmate/internal/arr/radarr"
	"github.com/arrmate/arrmate/internal/arr/readarr"
	"github.com/arrmate/arrmate/internal/arr/sonarr"
	"github.com/arrmate/arrmate/internal/arr/types"
	"github.com/arrmate/arrmate/internal/intent"
)

// ErrUnsupportedKind is returned for unknown service kinds.
var ErrUnsupportedKind = errors.New("unsupported service kind")

// Re-export types for convenience.
type (
	Client         = types.Client
	SubtitleClient = types.SubtitleClient
	ClientConfig   = types.ClientConfig
	Kind           = types.Kind
)

// NewClient creates a library backend client of the specified kind.
func NewClient(kind Kind, cfg *ClientConfig) (Client, error) {
	switch kind {
	case types.KindSonarr:
		return sonarr.NewFromConfig(cfg), nil
	case types.KindRadarr:
		return radarr.NewFromConfig(cfg), nil
	case types.KindWhisparr:
		return radarr.NewWhisparr(*cfg), nil
	case types.KindLidarr:
		return lidarr.New(*cfg), nil
	case types.KindReadarr:
		return readarr.New(*cfg), nil
	case types.KindAudiobookshelf:
		return audiobookshelf.New(*cfg), nil
	case types.KindMock:
		return mock.NewFromConfig(cfg), nil
	case types.KindBazarr:
		return nil, fmt.Errorf("%w: %s is a subtitle companion, not a library", ErrUnsupportedKind, kind)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
}

// NewSubtitleClient creates a subtitle companion client.
func NewSubtitleClient(kind Kind, cfg *ClientConfig) (SubtitleClient, error) {
	switch kind {
	case types.KindBazarr:
		return bazarr.New(*cfg), nil
	case types.KindMock:
		return mock.NewSubtitles(), nil
	default:
		return nil, fmt.Errorf("%w: %s is not a subtitle companion", ErrUnsupportedKind, kind)
	}
}

// DefaultMediaTypes returns the media types a kind serves unless configured
// otherwise. Companions and mocks serve none by default.
func DefaultMediaTypes(kind Kind) []intent.MediaType {
	switch kind {
	case types.KindSonarr:
		return []intent.MediaType{intent.MediaTypeTV}
	case types.KindRadarr:
		return []intent.MediaType{intent.MediaTypeMovie}
	case types.KindLidarr:
		return []intent.MediaType{intent.MediaTypeMusic}
	case types.KindReadarr:
		return []intent.MediaType{intent.MediaTypeBook}
	case types.KindAudiobookshelf:
		return []intent.MediaType{intent.MediaTypeAudiobook}
	case types.KindWhisparr:
		return []intent.MediaType{intent.MediaTypeAdult}
	default:
		return nil
	}
}

// IsCompanion reports whether a kind is a subtitle companion rather than a
// library backend.
func IsCompanion(kind Kind) bool {
	return kind == types.KindBazarr
}

// SupportedKinds returns every kind the factory can build.
func SupportedKinds() []Kind {
	return []Kind{
		types.KindSonarr,
		types.KindRadarr,
		types.KindLidarr,
		types.KindReadarr,
		types.KindWhisparr,
		types.KindAudiobookshelf,
		types.KindBazarr,
		types.KindMock,
	}
}

// IsKindSupported returns true if the kind is recognized.
func IsKindSupported(kind string) bool {
	for _, k := range SupportedKinds() {
		if string(k) == kind {
			return true
		}
	}
	return false
}
