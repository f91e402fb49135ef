package lidarr

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

func TestClient_SearchAndList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/artist/lookup":
			json.NewEncoder(w).Encode([]map[string]any{
				{"artistName": "Radiohead", "foreignArtistId": "a74b1b7f-71a5-4011-9441-d0b5e4122711"},
			})
		case "/api/v1/artist":
			json.NewEncoder(w).Encode([]map[string]any{
				{"id": 2, "artistName": "Portishead", "foreignArtistId": "8f6bd1e4", "statistics": map[string]any{"trackFileCount": 30}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(types.ClientConfig{URL: server.URL, APIKey: "k", Timeout: time.Second})

	found, err := client.Search(context.Background(), "radiohead")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Radiohead", found[0].Title)
	assert.Equal(t, "a74b1b7f-71a5-4011-9441-d0b5e4122711", found[0].ForeignID)

	library, err := client.ListLibrary(context.Background())
	require.NoError(t, err)
	require.Len(t, library, 1)
	assert.Equal(t, "2", library[0].ID)
	assert.True(t, library[0].HasFile)
}

func TestClient_AddItemUsesMetadataProfile(t *testing.T) {
	var posted map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/artist/lookup":
			assert.Equal(t, "lidarr:mbid-1", r.URL.Query().Get("term"))
			json.NewEncoder(w).Encode([]map[string]any{{"artistName": "Radiohead", "foreignArtistId": "mbid-1"}})
		case "/api/v1/qualityprofile":
			json.NewEncoder(w).Encode([]map[string]any{{"id": 1, "name": "Lossless"}})
		case "/api/v1/metadataprofile":
			json.NewEncoder(w).Encode([]map[string]any{{"id": 3, "name": "Standard"}})
		case "/api/v1/rootfolder":
			json.NewEncoder(w).Encode([]map[string]any{{"id": 1, "path": "/music"}})
		case "/api/v1/artist":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			posted["id"] = 11
			json.NewEncoder(w).Encode(posted)
		}
	}))
	defer server.Close()

	client := New(types.ClientConfig{URL: server.URL, APIKey: "k", Timeout: time.Second})
	item, err := client.AddItem(context.Background(), "mbid-1", types.AddOptions{Monitored: true})
	require.NoError(t, err)
	assert.Equal(t, "11", item.ID)
	assert.Equal(t, float64(3), posted["metadataProfileId"])
	assert.Equal(t, "/music", posted["rootFolderPath"])
}

func TestClient_TriggerSearch(t *testing.T) {
	var cmd map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/command", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&cmd)
	}))
	defer server.Close()

	client := New(types.ClientConfig{URL: server.URL, APIKey: "k", Timeout: time.Second})
	require.NoError(t, client.TriggerSearch(context.Background(), types.SearchRequest{ItemID: "2"}))
	assert.Equal(t, map[string]any{"name": "ArtistSearch", "artistId": float64(2)}, cmd)
}
