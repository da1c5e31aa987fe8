// Package export – HTML snapshot fallback.
package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/atelierlumen/go-opinion-backend/internal/domain"
	"github.com/atelierlumen/go-opinion-backend/internal/services"
)

// HTMLSnapshotExporter produces a plain HTML snapshot of the verification
// page with the print stylesheet embedded. It prefers the page's own HTML
// (fetched back over HTTP) and falls back to rendering a minimal standalone
// document from the record when the fetch fails, so a snapshot is produced
// even when the server cannot reach itself.
type HTMLSnapshotExporter struct {
	OutputDir string
	Client    *http.Client
}

// snapshotTemplate renders the standalone document used when the live page
// cannot be fetched. Image references are absolute so the snapshot stays
// usable when opened outside the static tree.
var snapshotTemplate = template.Must(template.New("snapshot").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Authentication Opinion {{.Cert.ReferenceNumber}}</title>
<style>
{{.Style}}
</style>
</head>
<body>
<div class="container">
  <h1>Authentication Opinion</h1>
  <dl>
    <dt>Reference number</dt><dd>{{.Cert.ReferenceNumber}}</dd>
    <dt>Recipient</dt><dd>{{.Cert.Recipient}}</dd>
    <dt>Model</dt><dd>{{.Cert.Model}}</dd>
    <dt>Year</dt><dd>{{.Cert.Year}}</dd>
    {{if .Cert.AdditionalStamps}}<dt>Additional stamps</dt><dd>{{.Cert.AdditionalStamps}}</dd>{{end}}
    {{if .DisplayDate}}<dt>Authentication date</dt><dd><time datetime="{{.DateISO}}">{{.DisplayDate}}</time></dd>{{end}}
  </dl>
  {{if .Cert.OpinionText}}<p>{{.Cert.OpinionText}}</p>{{end}}
  <div class="photo-pair">
    <figure><img src="{{.BaseURL}}/static/{{.Cert.FrontWebPath}}" alt="Front"></figure>
    <figure><img src="{{.BaseURL}}/static/{{.Cert.StampWebPath}}" alt="Stamp"></figure>
  </div>
  <img src="{{.BaseURL}}/static/{{.Cert.QRPath}}" alt="Verification QR" width="123" height="123">
</div>
</body>
</html>
`))

// Export writes {id}.html into OutputDir and returns its path.
func (e *HTMLSnapshotExporter) Export(ctx context.Context, cert *domain.Certificate, baseURL string) (string, error) {
	var body []byte

	if page, err := fetchPage(ctx, e.Client, cert, baseURL); err == nil {
		body = embedStylesheet(page)
	} else {
		rendered, rerr := e.render(cert, baseURL)
		if rerr != nil {
			return "", rerr
		}
		body = rendered
	}

	out := filepath.Join(e.OutputDir, cert.PublicID+".html")
	if err := os.WriteFile(out, body, 0o644); err != nil {
		return "", fmt.Errorf("write html snapshot: %w", err)
	}
	return out, nil
}

// render produces the standalone snapshot document from the record alone.
func (e *HTMLSnapshotExporter) render(cert *domain.Certificate, baseURL string) ([]byte, error) {
	display, iso := services.FormatDisplayDate(cert.AuthenticationDate, cert.CreatedAt)
	var buf bytes.Buffer
	err := snapshotTemplate.Execute(&buf, map[string]any{
		"Cert":        cert,
		"DisplayDate": display,
		"DateISO":     iso,
		"BaseURL":     baseURL,
		"Style":       template.CSS(printStylesheet),
	})
	if err != nil {
		return nil, fmt.Errorf("render html snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// embedStylesheet injects the print stylesheet into fetched page HTML, before
// </head> when present, otherwise prepended, so the snapshot prints with the
// same formatting the PDF renderer would have used.
func embedStylesheet(page []byte) []byte {
	style := "<style>\n" + printStylesheet + "</style>\n"
	html := string(page)
	if i := strings.Index(strings.ToLower(html), "</head>"); i >= 0 {
		return []byte(html[:i] + style + html[i:])
	}
	return []byte(style + html)
}
