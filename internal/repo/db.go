// Package repo implements the data persistence layer for certificate records,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and the schema migration entry points.
package repo

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/atelierlumen/go-opinion-backend/internal/domain"
)

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates the bags table when absent.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Certificate{})
}

// EnsureAuthenticationDateColumn attempts the additive authentication_date
// column on every process start and swallows the "duplicate column" failure.
// Databases created before the column existed are upgraded in place; current
// ones are untouched. This idempotent ensure-column step is the sole
// migration mechanism for deployments that predate AutoMigrate.
func EnsureAuthenticationDateColumn(db *gorm.DB) error {
	err := db.Exec("ALTER TABLE bags ADD COLUMN authentication_date TEXT").Error
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
		return nil
	}
	return err
}
