// Package httpapi wires the HTTP transport (Gin) to the certificate service,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - The legacy HTTP contract preserved exactly (routes, redirect, plain
//     text errors)
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/atelierlumen/go-opinion-backend/internal/config"
	"github.com/atelierlumen/go-opinion-backend/internal/domain"
	"github.com/atelierlumen/go-opinion-backend/internal/http/handlers"
	"github.com/atelierlumen/go-opinion-backend/internal/http/middleware"
	"github.com/atelierlumen/go-opinion-backend/internal/repo"
	"github.com/atelierlumen/go-opinion-backend/internal/services"
)

// certRepoShim adapts the repository free functions to the
// services.CertificateRepo interface expected by the CertificateService.
// This keeps services decoupled from the concrete repo package while reusing
// existing functions.
type certRepoShim struct{}

// CreateCertificate proxies repo.CreateCertificate.
func (certRepoShim) CreateCertificate(ctx context.Context, db *gorm.DB, c *domain.Certificate) error {
	return repo.CreateCertificate(ctx, db, c)
}

// GetCertificateByPublicID proxies repo.GetCertificateByPublicID.
func (certRepoShim) GetCertificateByPublicID(ctx context.Context, db *gorm.DB, publicID string) (*domain.Certificate, error) {
	return repo.GetCertificateByPublicID(ctx, db, publicID)
}

// CountCertificates proxies repo.CountCertificates.
func (certRepoShim) CountCertificates(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountCertificates(ctx, db)
}

// ListCertificatesPage proxies repo.ListCertificatesPage.
func (certRepoShim) ListCertificatesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Certificate, error) {
	return repo.ListCertificatesPage(ctx, db, offset, limit)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// CORS and security headers, health and metrics endpoints, the certificate
// routes, and the static artifact directories.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter (uploads: 16 MiB default)
//  6. Metrics
//  7. Rate limiter (per IP)
//  8. gzip, CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, exporter services.DocumentExporter, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to plain-text 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (multipart uploads included)
	r.Use(limitBody(cfg.MaxUploadBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.Use(rl.Handler())

	// 8) Compression for the rendered pages
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// CORS posture: the QR and image artifacts may be embedded from other
	// origins; default is allow-all for GETs when no allowlist is configured.
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.FailText(c, http.StatusNotFound, "Not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.FailText(c, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Embedded page templates
	r.SetHTMLTemplate(loadTemplates())

	// Dependency injection: service ← repo/db/exporter
	certSvc := services.NewCertificateService(
		db, certRepoShim{},
		cfg.Storage.BagImageDir, cfg.Storage.QRImageDir,
		cfg.PublicBaseURL, exporter,
	)
	h := handlers.New(certSvc)

	// Certificate surface (legacy routes, preserved verbatim)
	r.GET("/", h.Index)
	r.POST("/submit", h.Submit)
	r.GET("/opinion-long-code/:id", h.ViewOpinion)
	r.GET("/admin", h.AdminList)

	// Static artifact directories
	r.Static("/static/images/bags", cfg.Storage.BagImageDir)
	r.Static("/static/images/qr", cfg.Storage.QRImageDir)
	r.Static("/static/pdfs", cfg.Storage.PDFDir)
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
