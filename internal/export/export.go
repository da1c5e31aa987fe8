// Package export converts a certificate's verification page into a
// downloadable, print-formatted document.
//
// Two implementations of the Exporter capability exist: a full PDF renderer
// and an HTML snapshot fallback. The choice between them is made once at
// process startup (New), not re-checked per request; at runtime the PDF
// renderer additionally degrades to the snapshot on any failure. Export
// outcomes never reach the end user; the issuance workflow logs them and
// moves on.
package export

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/atelierlumen/go-opinion-backend/internal/domain"
)

// Exporter is the document-export capability used by the issuance workflow.
// Export produces a deterministically named artifact for cert in the shared
// export directory and returns its filesystem path.
type Exporter interface {
	Export(ctx context.Context, cert *domain.Certificate, baseURL string) (string, error)
}

// Config carries the startup-resolved export settings.
type Config struct {
	// OutputDir receives the exported documents ({id}.pdf or {id}.html).
	OutputDir string
	// BagImageDir holds the derived web copies embedded into PDFs.
	BagImageDir string
	// FetchTimeout bounds the verification page fetch-back.
	FetchTimeout time.Duration
	// PDFEnabled selects the full PDF renderer; when false only the HTML
	// snapshot fallback is used.
	PDFEnabled bool
}

// New resolves the Exporter capability once for the process lifetime.
func New(cfg Config) Exporter {
	snapshot := &HTMLSnapshotExporter{
		OutputDir: cfg.OutputDir,
		Client:    &http.Client{Timeout: cfg.FetchTimeout},
	}
	if !cfg.PDFEnabled {
		return snapshot
	}
	return &PDFExporter{
		OutputDir:   cfg.OutputDir,
		BagImageDir: cfg.BagImageDir,
		Client:      &http.Client{Timeout: cfg.FetchTimeout},
		Fallback:    snapshot,
	}
}

// printStylesheet is embedded into HTML snapshots and mirrored by the PDF
// layout: A4 pages, 1cm margins, interactive controls hidden, and the paired
// photos side by side.
const printStylesheet = `@page {
    size: A4;
    margin: 1cm;
}

body {
    font-family: Arial, sans-serif;
    line-height: 1.4;
    color: #333;
}

.container {
    max-width: 100%;
}

img {
    max-width: 100%;
    height: auto;
}

button, input, select, textarea {
    display: none !important;
}

.photo-pair {
    display: flex;
    gap: 1cm;
}

.photo-pair figure {
    width: 50%;
    margin: 0;
}
`

// fetchPage GETs the certificate's own verification page and returns the
// response body. The fetch runs against baseURL (the configured public base
// or the request origin) so it works from inside the server process.
func fetchPage(ctx context.Context, client *http.Client, cert *domain.Certificate, baseURL string) ([]byte, error) {
	url := baseURL + cert.VerificationPath()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch verification page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch verification page: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read verification page: %w", err)
	}
	return body, nil
}
