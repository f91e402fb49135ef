package database

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Manager owns the main database and a throwaway demo database used while
// serving mock backends, and switches between them at runtime.
type Manager struct {
	mainDB   *DB
	demoDB   *DB
	demoMode bool
	demoPath string
	mu       sync.RWMutex
	logger   zerolog.Logger
}

// DemoPath derives the demo database path from the main one
// ("data/arrmate.db" becomes "data/arrmate_demo.db").
func DemoPath(mainPath string) string {
	return strings.TrimSuffix(mainPath, ".db") + "_demo.db"
}

// NewManager opens the main database. The demo database is created when demo
// mode is first enabled.
func NewManager(path string, logger zerolog.Logger) (*Manager, error) {
	mainDB, err := New(path)
	if err != nil {
		return nil, err
	}

	return &Manager{
		mainDB:   mainDB,
		demoPath: DemoPath(path),
		logger:   logger.With().Str("component", "database").Logger(),
	}, nil
}

// Conn returns the active connection: the demo database in demo mode,
// otherwise the main one.
func (m *Manager) Conn() *sql.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.demoMode && m.demoDB != nil {
		return m.demoDB.Conn()
	}
	return m.mainDB.Conn()
}

// SetDemoMode switches between the main and demo databases. Enabling demo
// mode always starts from an empty, freshly migrated demo database.
func (m *Manager) SetDemoMode(ctx context.Context, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if enabled {
		if m.demoDB != nil {
			m.demoDB.Close()
			m.demoDB = nil
		}

		if err := os.Remove(m.demoPath); err != nil && !os.IsNotExist(err) {
			m.logger.Warn().Err(err).Str("path", m.demoPath).Msg("Failed to delete demo database file")
		}

		m.logger.Info().Str("path", m.demoPath).Msg("Creating demo database")

		demoDB, err := New(m.demoPath)
		if err != nil {
			return err
		}
		if err := demoDB.Migrate(ctx); err != nil {
			demoDB.Close()
			return err
		}
		m.demoDB = demoDB
	}

	m.demoMode = enabled
	m.logger.Info().Bool("demoMode", enabled).Msg("Demo mode changed")
	return nil
}

// IsDemoMode reports whether demo mode is active.
func (m *Manager) IsDemoMode() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.demoMode
}

// Migrate runs migrations on the main database.
func (m *Manager) Migrate(ctx context.Context) error {
	return m.mainDB.Migrate(ctx)
}

// Close closes both databases.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var mainErr, demoErr error
	if m.mainDB != nil {
		mainErr = m.mainDB.Close()
	}
	if m.demoDB != nil {
		demoErr = m.demoDB.Close()
	}

	if mainErr != nil {
		return mainErr
	}
	return demoErr
}
