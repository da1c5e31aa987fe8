// Certificate HTTP handlers.
//
// This file exposes the public surface of the certificate application:
//   - GET  /                         (submission form)
//   - POST /submit                   (issue a certificate; redirect on success)
//   - GET  /opinion-long-code/{id}   (public verification page)
//   - GET  /admin                    (listing, newest first, ETag support)
//
// Handlers are transport-thin: they translate the multipart form into a
// typed submission, call the certificate service, and map results onto the
// preserved HTTP contract (302 redirect on success, plain-text 400/404/500
// otherwise).
package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/atelierlumen/go-opinion-backend/internal/domain"
	"github.com/atelierlumen/go-opinion-backend/internal/repo"
	"github.com/atelierlumen/go-opinion-backend/internal/services"
	"github.com/atelierlumen/go-opinion-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// CertificateService defines the certificate operations consumed by the HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type CertificateService interface {
	// Issue runs the issuance workflow for one submission. requestBase is
	// the origin of the incoming request, used when no public base URL is
	// configured.
	Issue(ctx context.Context, sub services.Submission, requestBase string) (*domain.Certificate, error)
	// Verification assembles the verification page view for a public
	// identifier.
	Verification(ctx context.Context, publicID string) (*services.VerificationView, error)
	// ListPage returns a page of certificates, newest first, and the total.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Certificate, int64, error)
}

// Handlers groups the HTTP endpoints for the certificate surface.
type Handlers struct {
	certSvc CertificateService
}

// New constructs a Handlers instance bound to the given service.
func New(certSvc CertificateService) *Handlers {
	return &Handlers{certSvc: certSvc}
}

//
// Helpers
//

// requestBase reconstructs the origin of the incoming request
// ("scheme://host"), honoring X-Forwarded-Proto behind a proxy. The service
// only uses it when no public base URL is configured.
func requestBase(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// formUpload adapts one multipart file header into the service's Upload
// shape. A missing file yields nil, which the service reports as a missing
// required field.
func formUpload(c *gin.Context, field string) *services.Upload {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil
	}
	return &services.Upload{
		Filename: fh.Filename,
		Open: func() (io.ReadCloser, error) {
			return openHeader(fh)
		},
	}
}

// openHeader exists so the closure above stays readable.
func openHeader(fh *multipart.FileHeader) (io.ReadCloser, error) {
	return fh.Open()
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 50
		maxPageSize     = 200
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// Index serves the operator submission form.
func (h *Handlers) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "admin_form.html", gin.H{})
}

// Submit handles one certificate submission.
//
// Contract (preserved for compatibility):
//   - 302 redirect to /opinion-long-code/<identifier> on success
//   - 400 plain text when a required field is missing or an uploaded file
//     fails the image extension allow-list; nothing is persisted
//   - 500 plain text on infrastructure failure
func (h *Handlers) Submit(c *gin.Context) {
	sub := services.Submission{
		ReferenceNumber:    c.PostForm("reference_number"),
		Recipient:          c.PostForm("recipient"),
		Model:              c.PostForm("model"),
		Year:               c.PostForm("year"),
		AdditionalStamps:   c.PostForm("additional_stamps"),
		OpinionText:        c.PostForm("opinion_text"),
		AuthenticationDate: c.PostForm("authentication_date"),
		FrontImage:         formUpload(c, "front_image"),
		StampImage:         formUpload(c, "stamp_image"),
	}

	cert, err := h.certSvc.Issue(c.Request.Context(), sub, requestBase(c))
	if err != nil {
		if services.IsInputError(err) {
			failText(c, http.StatusBadRequest, inputErrorMessage(err))
			return
		}
		failText(c, http.StatusInternalServerError, "Error processing request: "+err.Error())
		return
	}

	c.Redirect(http.StatusFound, cert.VerificationPath())
}

// inputErrorMessage maps service input errors onto the operator-facing
// plain-text bodies. The unsupported-image wording is part of the preserved
// contract and must not change.
func inputErrorMessage(err error) string {
	if err == services.ErrUnsupportedImage {
		return "Invalid file format. Please upload valid image files."
	}
	return err.Error()
}

// ViewOpinion renders the public verification page for a certificate.
// Unknown identifiers yield a plain-text 404.
func (h *Handlers) ViewOpinion(c *gin.Context) {
	view, err := h.certSvc.Verification(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == services.ErrCertificateNotFound {
			failText(c, http.StatusNotFound, "Bag not found")
			return
		}
		failText(c, http.StatusInternalServerError, "Error processing request: "+err.Error())
		return
	}

	locale := services.NegotiateLocale(c.GetHeader("Accept-Language"))
	c.HTML(http.StatusOK, "opinion.html", gin.H{
		"Cert":        view.Certificate,
		"DisplayDate": view.DisplayDate,
		"DateISO":     view.DateISO,
		"FrontWeb":    view.FrontWebPath,
		"StampWeb":    view.StampWebPath,
		"QR":          view.QRPath,
		"Lang":        locale.String(),
	})
}

// AdminList renders the certificate listing, newest first, with pagination
// and a weak ETag so refresh-heavy operators get cheap 304s.
func (h *Handlers) AdminList(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.certSvc.(*services.CertificateService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.CertificatesStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"bags:%d:%d:%d:%d"`, count, ts, page, pageSize)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.certSvc.ListPage(ctx, page, pageSize)
	if err != nil {
		failText(c, http.StatusInternalServerError, "Error processing request: "+err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	c.HTML(http.StatusOK, "admin_list.html", gin.H{
		"Certs":      items,
		"Page":       page,
		"PageSize":   pageSize,
		"Total":      total,
		"TotalPages": totalPages,
		"HasNext":    page < totalPages,
	})
}
