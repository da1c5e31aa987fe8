// Package domain defines the persistence model for authentication opinion
// certificates. The type is mapped with GORM onto the legacy "bags" table and
// forms the core data layer of the application.
package domain

import (
	"fmt"
	"time"
)

// Certificate represents one issued authentication opinion. A certificate is
// created exactly once and never updated or deleted through the public
// interface; all externally visible URLs reference it by PublicID.
//
// Fields:
//   - ID: auto-assigned surrogate key, storage-only.
//   - PublicID: opaque 31-character lowercase-hex token, globally unique and
//     immutable once assigned. Column name "uuid" is kept for compatibility
//     with databases written by earlier deployments.
//   - ReferenceNumber / Recipient / Model / Year: operator-supplied required
//     fields. Year is free text and deliberately not validated as numeric.
//   - AdditionalStamps / OpinionText: optional free text.
//   - FrontImagePath / StampImagePath: relative paths (under the static root)
//     of the stored original photos. The derived web copies and the QR
//     artifact are not stored; their paths are re-derived from PublicID.
//   - AuthenticationDate: operator-supplied ISO date (YYYY-MM-DD) or empty;
//     independent of CreatedAt.
//   - CreatedAt: set once at insertion.
type Certificate struct {
	ID                 uint      `json:"-"                   gorm:"primaryKey;autoIncrement"`
	PublicID           string    `json:"public_id"           gorm:"column:uuid;type:char(31);uniqueIndex;not null"`
	ReferenceNumber    string    `json:"reference_number"    gorm:"type:text;not null"`
	Recipient          string    `json:"recipient"           gorm:"type:text;not null"`
	Model              string    `json:"model"               gorm:"type:text;not null"`
	Year               string    `json:"year"                gorm:"type:text;not null"`
	AdditionalStamps   string    `json:"additional_stamps"   gorm:"type:text"`
	OpinionText        string    `json:"opinion_text"        gorm:"type:text"`
	FrontImagePath     string    `json:"front_image_path"    gorm:"type:text"`
	StampImagePath     string    `json:"stamp_image_path"    gorm:"type:text"`
	AuthenticationDate string    `json:"authentication_date" gorm:"type:text"`
	CreatedAt          time.Time `json:"created_at"`
}

// TableName returns the database table name for Certificate.
func (Certificate) TableName() string { return "bags" }

// FrontWebPath returns the relative path of the derived web copy of the
// front photo. Derived deterministically from PublicID, never persisted.
func (c *Certificate) FrontWebPath() string {
	return fmt.Sprintf("images/bags/%s_front_web.jpg", c.PublicID)
}

// StampWebPath returns the relative path of the derived web copy of the
// stamp photo.
func (c *Certificate) StampWebPath() string {
	return fmt.Sprintf("images/bags/%s_stamp_web.jpg", c.PublicID)
}

// QRPath returns the relative path of the QR artifact encoding the
// certificate's verification URL.
func (c *Certificate) QRPath() string {
	return fmt.Sprintf("images/qr/%s_qr.png", c.PublicID)
}

// VerificationPath returns the server-relative URL path of the public
// verification page for this certificate.
func (c *Certificate) VerificationPath() string {
	return "/opinion-long-code/" + c.PublicID
}
