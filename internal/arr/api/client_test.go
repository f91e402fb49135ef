package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arrmate/arrmate/internal/arr/types"
)

func TestClient_GetSendsAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/series/lookup", r.URL.Path)
		assert.Equal(t, "angel", r.URL.Query().Get("term"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		json.NewEncoder(w).Encode([]map[string]any{{"title": "Angel", "year": 1999}})
	}))
	defer server.Close()

	c := New(server.URL+"/", "secret", time.Second)

	var out []struct {
		Title string `json:"title"`
		Year  int    `json:"year"`
	}
	err := c.Get(context.Background(), "/api/v3/series/lookup", url.Values{"term": {"angel"}}, &out)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Angel", out[0].Title)
}

func TestClient_BearerAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("X-Api-Key"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL, "tok", time.Second, WithAuth(AuthBearer))
	require.NoError(t, c.Get(context.Background(), "/api/libraries", nil, nil))
}

func TestClient_PostEncodesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "SeriesSearch", body["name"])
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 7}`))
	}))
	defer server.Close()

	c := New(server.URL, "k", time.Second)
	var out struct {
		ID int `json:"id"`
	}
	require.NoError(t, c.Post(context.Background(), "/api/v3/command", map[string]any{"name": "SeriesSearch"}, &out))
	assert.Equal(t, 7, out.ID)
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
	}{
		{"not found", http.StatusNotFound, types.ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, types.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, types.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			err := New(server.URL, "k", time.Second).Delete(context.Background(), "/api/v3/series/1", nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "expected %v, got %v", tt.target, err)

			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.StatusCode)
		})
	}
}

func TestClient_ServerErrorIsNotSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database is locked", http.StatusInternalServerError)
	}))
	defer server.Close()

	err := New(server.URL, "k", time.Second).Get(context.Background(), "/api/v3/series", nil, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, types.ErrNotFound))
	assert.Contains(t, err.Error(), "database is locked")
}

func TestClient_ContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := New(server.URL, "k", 5*time.Second).Get(ctx, "/slow", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestParseID(t *testing.T) {
	n, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = ParseID("abc")
	assert.ErrorIs(t, err, types.ErrNotFound)

	assert.Equal(t, "", FormatID(0))
	assert.Equal(t, "9", FormatID(9))
}
