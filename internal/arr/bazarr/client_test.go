package bazarr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arrmate/arrmate/internal/arr/types"
)

func TestClient_TestConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-API-KEY"))
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"bazarr_version": "1.4.3"}})
	}))
	defer server.Close()

	status, err := New(types.ClientConfig{URL: server.URL, APIKey: "key", Timeout: time.Second}).TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.4.3", status.Version)
}

func TestClient_DownloadEpisodeSubtitles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/episodes/subtitles", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "5", q.Get("seriesid"))
		assert.Equal(t, "101", q.Get("episodeid"))
		assert.Equal(t, "fr", q.Get("language"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(types.ClientConfig{URL: server.URL, APIKey: "key", Timeout: time.Second})
	require.NoError(t, client.DownloadEpisodeSubtitles(context.Background(), "5", "101", "French"))
}

func TestClient_DownloadMovieSubtitlesFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Movie not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(types.ClientConfig{URL: server.URL, APIKey: "key", Timeout: time.Second})
	err := client.DownloadMovieSubtitles(context.Background(), "8", "")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestClient_SyncLibrary(t *testing.T) {
	var task string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		task = body["taskid"]
	}))
	defer server.Close()

	client := New(types.ClientConfig{URL: server.URL, APIKey: "key", Timeout: time.Second})
	require.NoError(t, client.SyncLibrary(context.Background(), true))
	assert.Equal(t, "update_movies", task)
	require.NoError(t, client.SyncLibrary(context.Background(), false))
	assert.Equal(t, "update_series", task)
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		input, expected string
	}{
		{"English", "en"},
		{"", "en"},
		{" pt-BR ", "pt-br"},
		{"de", "de"},
	}
	for _, tt := range tests {
		if got := normalizeLanguage(tt.input); got != tt.expected {
			t.Errorf("normalizeLanguage(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
