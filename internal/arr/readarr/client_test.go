package readarr

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

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/author/lookup", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("X-Api-Key"))
		json.NewEncoder(w).Encode([]map[string]any{
			{"authorName": "Ursula K. Le Guin", "foreignAuthorId": "874602"},
			{"id": 4, "authorName": "Terry Pratchett", "foreignAuthorId": "1654"},
		})
	}))
	defer server.Close()

	client := New(types.ClientConfig{URL: server.URL, APIKey: "k", Timeout: time.Second})
	items, err := client.Search(context.Background(), "le guin")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Empty(t, items[0].LibraryID)
	assert.Equal(t, "4", items[1].LibraryID)
}

func TestClient_DeleteItem(t *testing.T) {
	var path, deleteFiles string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		deleteFiles = r.URL.Query().Get("deleteFiles")
	}))
	defer server.Close()

	client := New(types.ClientConfig{URL: server.URL, APIKey: "k", Timeout: time.Second})
	require.NoError(t, client.DeleteItem(context.Background(), "4", true))
	assert.Equal(t, "/api/v1/author/4", path)
	assert.Equal(t, "true", deleteFiles)

	assert.ErrorIs(t, client.DeleteItem(context.Background(), "x", true), types.ErrNotFound)
}

func TestClient_TriggerLibrarySearch(t *testing.T) {
	var cmd map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&cmd)
	}))
	defer server.Close()

	client := New(types.ClientConfig{URL: server.URL, APIKey: "k", Timeout: time.Second})
	require.NoError(t, client.TriggerSearch(context.Background(), types.SearchRequest{}))
	assert.Equal(t, "MissingBookSearch", cmd["name"])
}
