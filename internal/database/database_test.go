package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	db, err := New(filepath.Join(t.TempDir(), "nested", "arrmate.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	// a second run is a no-op
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	version, err := db.Version(ctx)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version != 1 {
		t.Errorf("Version() = %d, want 1", version)
	}

	if _, err := db.Conn().ExecContext(ctx, `INSERT INTO commands (id, stage, status) VALUES ('a', 'executed', 'success')`); err != nil {
		t.Fatalf("insert into commands: %v", err)
	}

	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if _, err := db.Conn().ExecContext(ctx, `SELECT 1 FROM commands`); err == nil {
		t.Error("commands table still exists after MigrateDown")
	}
}

func TestManager_DemoMode(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "arrmate.db")
	m, err := NewManager(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Close()
	if err := m.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	main := m.Conn()
	if err := m.SetDemoMode(ctx, true); err != nil {
		t.Fatalf("SetDemoMode(true) error = %v", err)
	}
	if !m.IsDemoMode() {
		t.Error("IsDemoMode() = false after enabling")
	}
	if m.Conn() == main {
		t.Error("Conn() still returns the main database in demo mode")
	}
	if _, err := m.Conn().ExecContext(ctx, `SELECT count(*) FROM commands`); err != nil {
		t.Errorf("demo database is not migrated: %v", err)
	}

	if err := m.SetDemoMode(ctx, false); err != nil {
		t.Fatalf("SetDemoMode(false) error = %v", err)
	}
	if m.Conn() != main {
		t.Error("Conn() does not return the main database after leaving demo mode")
	}
}

func TestDemoPath(t *testing.T) {
	if got := DemoPath("data/arrmate.db"); got != "data/arrmate_demo.db" {
		t.Errorf("DemoPath() = %q", got)
	}
}
