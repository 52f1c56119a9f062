// Package testutil holds helpers shared by package tests.
package testutil

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"familycart/internal/database"
)

// NewTestDB opens a migrated SQLite database in a temporary directory.
// The database is closed when the test finishes.
func NewTestDB(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.Open(database.NewSQLiteDialect(), database.DialectConfig{
		Path: filepath.Join(t.TempDir(), "familycart_test.db"),
	}, 10)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// Clock is a settable time source for services under test
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts a clock at t
func NewClock(t time.Time) *Clock {
	return &Clock{current: t.UTC()}
}

// Now returns the clock's current time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}
