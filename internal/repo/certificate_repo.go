// Package repo implements the data persistence layer for certificate records,
// backed by GORM. This file provides repository functions for the Certificate
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// insert-only writes, point lookups, and the listing query.
//
// Error semantics:
//   - When a certificate is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (unique constraint violations on the public identifier,
//     connectivity issues, etc.), the raw gorm error is propagated. A
//     duplicate public identifier is deliberately not retried.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/atelierlumen/go-opinion-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateCertificate inserts c as a new row. CreatedAt is set to UTC when the
// caller left it zero. The write is insert-only: certificates are never
// updated or deleted through the public interface.
func CreateCertificate(ctx context.Context, db *gorm.DB, c *domain.Certificate) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(c).Error
}

// GetCertificateByPublicID fetches a single certificate by its public
// identifier. If the record does not exist, it returns ErrNotFound. On other
// DB errors, the raw error is returned.
func GetCertificateByPublicID(ctx context.Context, db *gorm.DB, publicID string) (*domain.Certificate, error) {
	var c domain.Certificate
	err := db.WithContext(ctx).
		Where("uuid = ?", publicID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCertificates returns all certificates ordered by creation time
// descending (most recent first). It returns an empty slice when the table
// is empty. On DB error, it returns the error.
func ListCertificates(ctx context.Context, db *gorm.DB) ([]domain.Certificate, error) {
	var out []domain.Certificate
	err := db.WithContext(ctx).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountCertificates returns the total number of issued certificates.
func CountCertificates(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Certificate{}).
		Count(&total).Error
	return total, err
}

// ListCertificatesPage returns a paginated slice of certificates ordered by
// creation time descending. Use CountCertificates to obtain the total for
// pagination metadata.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListCertificatesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Certificate, error) {
	var out []domain.Certificate
	err := db.WithContext(ctx).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
