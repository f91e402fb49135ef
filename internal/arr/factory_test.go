package arr

import (
	"errors"
	"testing"

	"github.com/arrmate/arrmate/internal/arr/types"
	"github.com/arrmate/arrmate/internal/intent"
)

func TestNewClient(t *testing.T) {
	cfg := &ClientConfig{URL: "http://localhost:8989", APIKey: "k"}

	for _, kind := range SupportedKinds() {
		t.Run(string(kind), func(t *testing.T) {
			client, err := NewClient(kind, cfg)
			if IsCompanion(kind) {
				if !errors.Is(err, ErrUnsupportedKind) {
					t.Errorf("NewClient(%s) error = %v, want ErrUnsupportedKind", kind, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewClient(%s) unexpected error: %v", kind, err)
			}
			if client.Kind() != kind {
				t.Errorf("Kind() = %s, want %s", client.Kind(), kind)
			}
		})
	}

	if _, err := NewClient("plex", cfg); !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("NewClient(plex) error = %v, want ErrUnsupportedKind", err)
	}
}

func TestNewSubtitleClient(t *testing.T) {
	if _, err := NewSubtitleClient(types.KindBazarr, &ClientConfig{}); err != nil {
		t.Errorf("NewSubtitleClient(bazarr) unexpected error: %v", err)
	}
	if _, err := NewSubtitleClient(types.KindSonarr, &ClientConfig{}); !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("NewSubtitleClient(sonarr) error = %v, want ErrUnsupportedKind", err)
	}
}

func TestDefaultMediaTypes(t *testing.T) {
	tests := []struct {
		kind Kind
		want intent.MediaType
	}{
		{types.KindSonarr, intent.MediaTypeTV},
		{types.KindRadarr, intent.MediaTypeMovie},
		{types.KindLidarr, intent.MediaTypeMusic},
		{types.KindReadarr, intent.MediaTypeBook},
		{types.KindAudiobookshelf, intent.MediaTypeAudiobook},
		{types.KindWhisparr, intent.MediaTypeAdult},
	}
	for _, tt := range tests {
		got := DefaultMediaTypes(tt.kind)
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("DefaultMediaTypes(%s) = %v, want [%s]", tt.kind, got, tt.want)
		}
	}
	if got := DefaultMediaTypes(types.KindBazarr); got != nil {
		t.Errorf("DefaultMediaTypes(bazarr) = %v, want nil", got)
	}
}

func TestIsKindSupported(t *testing.T) {
	if !IsKindSupported("sonarr") {
		t.Error("sonarr should be supported")
	}
	if IsKindSupported("huntarr") {
		t.Error("huntarr should not be supported")
	}
}
