// Package testutil provides helpers shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/arrmate/arrmate/internal/arr/mock"
	"github.com/arrmate/arrmate/internal/arr/types"
	"github.com/arrmate/arrmate/internal/database"
	"github.com/arrmate/arrmate/internal/intent"
	"github.com/arrmate/arrmate/internal/registry"
)

// NewTestDB creates a migrated database manager in a temp directory. It is
// closed when the test ends.
func NewTestDB(t *testing.T) *database.Manager {
	t.Helper()

	manager, err := database.NewManager(filepath.Join(t.TempDir(), "test.db"), NewTestLogger(t))
	if err != nil {
		t.Fatalf("Failed to create database manager: %v", err)
	}
	t.Cleanup(func() { manager.Close() })

	if err := manager.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return manager
}

// NewTestLogger creates a test logger that outputs to t.Log.
func NewTestLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
}

// NopLogger returns a no-op logger for tests that don't need output.
func NopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// DemoServices is a TV (sonarr), movie (radarr) and subtitle (bazarr) setup
// backed by in-memory clients seeded with the demo library.
type DemoServices struct {
	Registry  *registry.Registry
	TV        *mock.Client
	Movies    *mock.Client
	Subtitles *mock.Subtitles
}

// NewDemoServices builds a registry over fresh demo clients.
func NewDemoServices(t *testing.T) *DemoServices {
	t.Helper()

	tv := mock.NewDemo().WithKind(types.KindSonarr)
	movies := mock.NewDemo().WithKind(types.KindRadarr)
	subs := mock.NewSubtitles()

	reg, err := registry.New([]*registry.Service{
		{Name: "sonarr", Kind: types.KindSonarr, URL: "http://sonarr", MediaTypes: []intent.MediaType{intent.MediaTypeTV}, Client: tv},
		{Name: "radarr", Kind: types.KindRadarr, URL: "http://radarr", MediaTypes: []intent.MediaType{intent.MediaTypeMovie}, Client: movies},
		{Name: "bazarr", Kind: types.KindBazarr, URL: "http://bazarr", Subtitles: subs},
	}, NopLogger())
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}
	return &DemoServices{Registry: reg, TV: tv, Movies: movies, Subtitles: subs}
}
