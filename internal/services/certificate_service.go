// Package services – CertificateService
//
// This file implements the certificate issuance workflow and the verification
// read path. Issuance is a linear sequence with no retries: validate the
// submission, stage the uploaded originals, derive the web copies, render the
// QR artifact, insert the database row, then atomically commit the staged
// files into place. Any failure before the insert aborts the submission and
// leaves no partial writes behind. Document export runs after the commit,
// best-effort: its failures are logged and never surfaced to the operator.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/atelierlumen/go-opinion-backend/internal/domain"
	"github.com/atelierlumen/go-opinion-backend/internal/ident"
	"github.com/atelierlumen/go-opinion-backend/internal/imaging"
	"github.com/atelierlumen/go-opinion-backend/internal/qr"
)

// CertificateRepo defines the repository contract required by
// CertificateService. Implementations are responsible for persistence of
// certificate rows.
type CertificateRepo interface {
	// CreateCertificate inserts a new certificate row. A duplicate public
	// identifier must fail the insert via the unique constraint.
	CreateCertificate(ctx context.Context, db *gorm.DB, c *domain.Certificate) error

	// GetCertificateByPublicID fetches a certificate by its public identifier.
	GetCertificateByPublicID(ctx context.Context, db *gorm.DB, publicID string) (*domain.Certificate, error)

	// CountCertificates returns the total number of issued certificates.
	CountCertificates(ctx context.Context, db *gorm.DB) (int64, error)

	// ListCertificatesPage returns a page of certificates, newest first.
	ListCertificatesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Certificate, error)
}

// DocumentExporter converts a persisted certificate's verification page into
// a downloadable document. Implementations must be safe for concurrent use.
// The returned path is the produced artifact. Errors are advisory only; the
// caller logs them and the submission still succeeds.
type DocumentExporter interface {
	Export(ctx context.Context, cert *domain.Certificate, baseURL string) (string, error)
}

// Upload is one uploaded image file, decoupled from the HTTP transport so the
// workflow can be exercised directly in tests.
type Upload struct {
	// Filename is the client-supplied name; only its extension is examined.
	Filename string
	// Open returns a fresh reader over the uploaded bytes.
	Open func() (io.ReadCloser, error)
}

// Submission carries one operator form submission. Optional fields are plain
// strings that may be empty; required fields are validated explicitly before
// any side effect begins.
type Submission struct {
	ReferenceNumber    string
	Recipient          string
	Model              string
	Year               string
	AdditionalStamps   string
	OpinionText        string
	AuthenticationDate string

	FrontImage *Upload
	StampImage *Upload
}

// VerificationView is everything the verification page template needs:
// the record itself, the resolved display date, and the derived artifact
// paths (never read from the row).
type VerificationView struct {
	Certificate *domain.Certificate

	// DisplayDate is the human-readable date, empty when omitted.
	DisplayDate string
	// DateISO is the machine-readable form for <time datetime="…">.
	DateISO string

	FrontWebPath string
	StampWebPath string
	QRPath       string
}

// CertificateService orchestrates certificate issuance and verification.
// All configuration is passed in at construction time; there is no mutable
// package-level state.
type CertificateService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the certificate repository used by this service.
	Repo CertificateRepo

	// BagImageDir and QRImageDir are the flat-file directories backing the
	// image artifacts.
	BagImageDir string
	QRImageDir  string

	// PublicBaseURL, when set, overrides the request origin for QR payloads
	// so verification URLs stay stable behind proxies.
	PublicBaseURL string

	// Exporter renders the post-persist document export. Nil disables the
	// export stage entirely.
	Exporter DocumentExporter

	// NewID produces public identifiers; overridable in tests.
	NewID func() string

	// DisplayLocale is the negotiated verification page locale. Formatting is
	// English-only today; the field keeps the negotiation result explicit.
	DisplayLocale language.Tag
}

// NewCertificateService constructs a CertificateService with default
// identifier generation and locale.
func NewCertificateService(db *gorm.DB, r CertificateRepo, bagDir, qrDir, publicBaseURL string, exp DocumentExporter) *CertificateService {
	return &CertificateService{
		DB:            db,
		Repo:          r,
		BagImageDir:   bagDir,
		QRImageDir:    qrDir,
		PublicBaseURL: publicBaseURL,
		Exporter:      exp,
		NewID:         ident.New,
		DisplayLocale: language.AmericanEnglish,
	}
}

// stagedFile is one artifact written under a temporary name, renamed into
// place only after the database insert succeeds.
type stagedFile struct {
	tmp   string
	final string
}

// Issue runs the issuance workflow for one submission. requestBase is the
// origin of the incoming request ("scheme://host"), used for the QR payload
// only when no PublicBaseURL is configured.
//
// On success the persisted certificate is returned and all five artifact
// files (two originals, two web copies, one QR PNG) exist under their final
// names. On failure before persistence, no row and no files remain.
func (s *CertificateService) Issue(ctx context.Context, sub Submission, requestBase string) (*domain.Certificate, error) {
	if err := validate(sub); err != nil {
		return nil, err
	}

	newID := s.NewID
	if newID == nil {
		newID = ident.New
	}
	id := newID()

	cert := &domain.Certificate{
		PublicID:           id,
		ReferenceNumber:    sub.ReferenceNumber,
		Recipient:          sub.Recipient,
		Model:              sub.Model,
		Year:               sub.Year,
		AdditionalStamps:   sub.AdditionalStamps,
		OpinionText:        sub.OpinionText,
		AuthenticationDate: sub.AuthenticationDate,
		FrontImagePath:     fmt.Sprintf("images/bags/%s_front.jpg", id),
		StampImagePath:     fmt.Sprintf("images/bags/%s_stamp.jpg", id),
	}

	staged := make([]stagedFile, 0, 5)
	cleanup := func() {
		for _, f := range staged {
			os.Remove(f.tmp)
		}
	}

	stage := func(final string) string {
		tmp := final + ".staging"
		staged = append(staged, stagedFile{tmp: tmp, final: final})
		return tmp
	}

	// Originals are stored byte-for-byte under identifier-derived names.
	frontPath := filepath.Join(s.BagImageDir, id+"_front.jpg")
	stampPath := filepath.Join(s.BagImageDir, id+"_stamp.jpg")
	if err := saveUpload(sub.FrontImage, stage(frontPath)); err != nil {
		cleanup()
		return nil, fmt.Errorf("store front image: %w", err)
	}
	if err := saveUpload(sub.StampImage, stage(stampPath)); err != nil {
		cleanup()
		return nil, fmt.Errorf("store stamp image: %w", err)
	}

	// Derived web copies read from the staged originals. A derivation failure
	// aborts the whole submission: a record must never exist without its
	// display copies.
	frontTmp, stampTmp := staged[0].tmp, staged[1].tmp
	if err := imaging.MakeWebCopy(frontTmp, stage(filepath.Join(s.BagImageDir, id+"_front_web.jpg"))); err != nil {
		cleanup()
		return nil, fmt.Errorf("derive front web copy: %w", err)
	}
	if err := imaging.MakeWebCopy(stampTmp, stage(filepath.Join(s.BagImageDir, id+"_stamp_web.jpg"))); err != nil {
		cleanup()
		return nil, fmt.Errorf("derive stamp web copy: %w", err)
	}

	base := s.baseURL(requestBase)
	if err := qr.Generate(base+cert.VerificationPath(), stage(filepath.Join(s.QRImageDir, id+"_qr.png"))); err != nil {
		cleanup()
		return nil, fmt.Errorf("generate qr artifact: %w", err)
	}

	// Persist. A unique-constraint violation on the public identifier is a
	// fatal, non-retried error.
	if err := s.Repo.CreateCertificate(ctx, s.DB, cert); err != nil {
		cleanup()
		return nil, fmt.Errorf("persist certificate: %w", err)
	}

	// Commit: rename staged files into place. The row exists from here on,
	// so a rename failure is reported but nothing is rolled back.
	for _, f := range staged {
		if err := os.Rename(f.tmp, f.final); err != nil {
			log.Error().Err(err).Str("public_id", id).Str("file", f.final).
				Msg("commit staged artifact")
			return nil, fmt.Errorf("commit artifact %s: %w", filepath.Base(f.final), err)
		}
	}

	s.export(ctx, cert, base)
	return cert, nil
}

// export runs the best-effort document export stage. Failures are logged,
// never propagated: the certificate is considered successfully created even
// when its document export fails.
func (s *CertificateService) export(ctx context.Context, cert *domain.Certificate, baseURL string) {
	if s.Exporter == nil {
		return
	}
	path, err := s.Exporter.Export(ctx, cert, baseURL)
	if err != nil {
		log.Warn().Err(err).Str("public_id", cert.PublicID).
			Msg("document export failed")
		return
	}
	log.Info().Str("public_id", cert.PublicID).Str("document", path).
		Msg("document export complete")
}

// Verification looks up a certificate by public identifier and assembles the
// verification page view. Unknown identifiers (including syntactically
// malformed ones) yield ErrCertificateNotFound.
func (s *CertificateService) Verification(ctx context.Context, publicID string) (*VerificationView, error) {
	if !ident.Valid(publicID) {
		return nil, ErrCertificateNotFound
	}
	cert, err := s.Repo.GetCertificateByPublicID(ctx, s.DB, publicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificateNotFound
		}
		return nil, err
	}

	display, iso := FormatDisplayDate(cert.AuthenticationDate, cert.CreatedAt)
	return &VerificationView{
		Certificate:  cert,
		DisplayDate:  display,
		DateISO:      iso,
		FrontWebPath: cert.FrontWebPath(),
		StampWebPath: cert.StampWebPath(),
		QRPath:       cert.QRPath(),
	}, nil
}

// ListPage returns a page of certificates for the admin listing, ordered by
// creation time descending, together with the total count. It applies
// defaults for invalid page/pageSize values.
func (s *CertificateService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Certificate, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountCertificates(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Certificate{}, 0, nil
	}

	items, err := s.Repo.ListCertificatesPage(ctx, s.DB, offset, pageSize)
	return items, total, err
}

// baseURL prefers the operationally configured public base URL over the
// request's own origin, so QR payloads and export fetch-backs work from
// inside a server process that may not be reachable at its external hostname.
func (s *CertificateService) baseURL(requestBase string) string {
	if s.PublicBaseURL != "" {
		return s.PublicBaseURL
	}
	return requestBase
}

// validate checks the submission before any side effect begins. Required
// field absences are aggregated into a single ValidationError; a present
// upload with a disallowed extension is ErrUnsupportedImage.
func validate(sub Submission) error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"reference_number", sub.ReferenceNumber},
		{"recipient", sub.Recipient},
		{"model", sub.Model},
		{"year", sub.Year},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if sub.FrontImage == nil {
		missing = append(missing, "front_image")
	}
	if sub.StampImage == nil {
		missing = append(missing, "stamp_image")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}

	if !imaging.AllowedExtension(sub.FrontImage.Filename) || !imaging.AllowedExtension(sub.StampImage.Filename) {
		return ErrUnsupportedImage
	}
	return nil
}

// saveUpload copies one uploaded file to path.
func saveUpload(u *Upload, path string) error {
	r, err := u.Open()
	if err != nil {
		return err
	}
	defer r.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
