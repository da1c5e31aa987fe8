package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/atelierlumen/go-opinion-backend/internal/domain"
)

func TestOpenSQLite_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bags.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	if !db.Migrator().HasTable("bags") {
		t.Fatal("bags table should exist after migration")
	}
}

func TestOpenSQLite_MissingParentDir(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "does", "not", "exist", "bags.db"))
	if err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}

func TestEnsureAuthenticationDateColumn_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bags.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	// Legacy schema without the column.
	if err := db.Exec(`CREATE TABLE bags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid TEXT UNIQUE NOT NULL,
		reference_number TEXT NOT NULL,
		recipient TEXT NOT NULL,
		model TEXT NOT NULL,
		year TEXT NOT NULL,
		additional_stamps TEXT,
		opinion_text TEXT,
		front_image_path TEXT,
		stamp_image_path TEXT,
		created_at DATETIME
	)`).Error; err != nil {
		t.Fatalf("create legacy table: %v", err)
	}

	// First run adds the column, second run must swallow the duplicate error.
	if err := EnsureAuthenticationDateColumn(db); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if err := EnsureAuthenticationDateColumn(db); err != nil {
		t.Fatalf("second ensure should be a no-op: %v", err)
	}

	// The upgraded schema accepts writes through the model.
	c := &domain.Certificate{
		PublicID:           "0123456789abcdef0123456789abcde",
		ReferenceNumber:    "REF-legacy",
		Recipient:          "R",
		Model:              "M",
		Year:               "2018",
		AuthenticationDate: "2024-02-21",
		CreatedAt:          time.Now().UTC(),
	}
	if err := CreateCertificate(context.Background(), db, c); err != nil {
		t.Fatalf("insert into upgraded schema: %v", err)
	}
	got, err := GetCertificateByPublicID(context.Background(), db, c.PublicID)
	if err != nil {
		t.Fatalf("load upgraded row: %v", err)
	}
	if got.AuthenticationDate != "2024-02-21" {
		t.Fatalf("authentication_date round-trip: %q", got.AuthenticationDate)
	}
}

func TestEnsureAuthenticationDateColumn_MissingTable(t *testing.T) {
	db := newCertRepoDB(t /* no migrations */)
	if err := EnsureAuthenticationDateColumn(db); err == nil {
		t.Fatal("expected error when the bags table does not exist")
	}
}
