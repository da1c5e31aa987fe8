package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/atelierlumen/go-opinion-backend/internal/domain"
)

func newCertRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("cert_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedCertificate(t *testing.T, db *gorm.DB, publicID string, createdAt time.Time) *domain.Certificate {
	t.Helper()
	c := &domain.Certificate{
		PublicID:        publicID,
		ReferenceNumber: "REF-" + publicID[:6],
		Recipient:       "Recipient",
		Model:           "Model",
		Year:            "2020",
		FrontImagePath:  "images/bags/" + publicID + "_front.jpg",
		StampImagePath:  "images/bags/" + publicID + "_stamp.jpg",
		CreatedAt:       createdAt,
	}
	if err := CreateCertificate(context.Background(), db, c); err != nil {
		t.Fatalf("seed certificate %s: %v", publicID, err)
	}
	return c
}

func testID(seed byte) string {
	return strings.Repeat(string([]byte{'a' + seed%6}), 31)
}

func TestCreateCertificate_Error_NoTable(t *testing.T) {
	db := newCertRepoDB(t /* no migrations */)
	err := CreateCertificate(context.Background(), db, &domain.Certificate{PublicID: testID(0)})
	if err == nil {
		t.Fatal("expected error creating without table")
	}
}

func TestCreateCertificate_SetsCreatedAt(t *testing.T) {
	db := newCertRepoDB(t, &domain.Certificate{})

	start := time.Now().UTC().Add(-time.Minute)
	c := seedCertificate(t, db, testID(0), time.Time{})
	if c.CreatedAt.Before(start) {
		t.Fatalf("CreatedAt seems unset: %v", c.CreatedAt)
	}

	var got domain.Certificate
	if err := db.First(&got, "uuid = ?", c.PublicID).Error; err != nil {
		t.Fatalf("load created row: %v", err)
	}
	if got.ReferenceNumber != c.ReferenceNumber {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestCreateCertificate_DuplicatePublicID(t *testing.T) {
	db := newCertRepoDB(t, &domain.Certificate{})

	seedCertificate(t, db, testID(1), time.Time{})
	err := CreateCertificate(context.Background(), db, &domain.Certificate{
		PublicID:        testID(1),
		ReferenceNumber: "REF-dup",
		Recipient:       "R",
		Model:           "M",
		Year:            "2021",
	})
	if err == nil {
		t.Fatal("expected unique constraint violation for duplicate public id")
	}
}

func TestGetCertificateByPublicID(t *testing.T) {
	db := newCertRepoDB(t, &domain.Certificate{})
	c := seedCertificate(t, db, testID(2), time.Time{})

	got, err := GetCertificateByPublicID(context.Background(), db, c.PublicID)
	if err != nil {
		t.Fatalf("GetCertificateByPublicID: %v", err)
	}
	if got.PublicID != c.PublicID || got.ReferenceNumber != c.ReferenceNumber {
		t.Fatalf("mismatch: %+v", got)
	}

	if _, err := GetCertificateByPublicID(context.Background(), db, testID(3)); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListCertificates_NewestFirst(t *testing.T) {
	db := newCertRepoDB(t, &domain.Certificate{})

	t1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	oldest := seedCertificate(t, db, testID(0), t1)
	middle := seedCertificate(t, db, testID(1), t1.Add(time.Hour))
	newest := seedCertificate(t, db, testID(2), t1.Add(2*time.Hour))

	got, err := ListCertificates(context.Background(), db)
	if err != nil {
		t.Fatalf("ListCertificates: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	if got[0].PublicID != newest.PublicID || got[1].PublicID != middle.PublicID || got[2].PublicID != oldest.PublicID {
		t.Fatalf("wrong order: %s, %s, %s", got[0].PublicID, got[1].PublicID, got[2].PublicID)
	}
}

func TestCountAndListCertificatesPage(t *testing.T) {
	db := newCertRepoDB(t, &domain.Certificate{})

	t1 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := byte(0); i < 5; i++ {
		seedCertificate(t, db, testID(i), t1.Add(time.Duration(i)*time.Minute))
	}

	total, err := CountCertificates(context.Background(), db)
	if err != nil || total != 5 {
		t.Fatalf("CountCertificates = %d, %v", total, err)
	}

	page, err := ListCertificatesPage(context.Background(), db, 2, 2)
	if err != nil {
		t.Fatalf("ListCertificatesPage: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(page))
	}
	// Offset 2 in descending order skips the two newest.
	if page[0].PublicID != testID(2) || page[1].PublicID != testID(1) {
		t.Fatalf("wrong page contents: %s, %s", page[0].PublicID, page[1].PublicID)
	}

	empty, err := ListCertificatesPage(context.Background(), db, 10, 2)
	if err != nil || len(empty) != 0 {
		t.Fatalf("past-the-end page: len=%d err=%v", len(empty), err)
	}
}
