// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"elearning_backend/internal/config"
	"elearning_backend/pkg/database"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
)

// NewDB returns a migrated SQLite database stored in the test's temp dir.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}
	db, err := database.InitDB(cfg, false)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
