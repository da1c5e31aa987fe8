// Package export – PDF rendering.
//
// The PDF layout mirrors the verification page under the print stylesheet:
// A4 portrait, 1cm margins, the certificate fields as a labelled block, the
// two photos in a two-column row, and the QR artifact in the corner.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"github.com/atelierlumen/go-opinion-backend/internal/domain"
	"github.com/atelierlumen/go-opinion-backend/internal/qr"
	"github.com/atelierlumen/go-opinion-backend/internal/services"
)

// PDFExporter renders the full paginated document. Any rendering failure,
// including a failed page fetch-back or a missing web copy, degrades to the
// Fallback snapshot rather than failing the export outright.
type PDFExporter struct {
	OutputDir   string
	BagImageDir string
	Client      *http.Client
	// Fallback produces the HTML snapshot when PDF rendering fails.
	Fallback Exporter
}

// Export writes {id}.pdf into OutputDir and returns its path. On failure it
// delegates to the snapshot fallback (when configured) and returns that
// artifact instead.
func (e *PDFExporter) Export(ctx context.Context, cert *domain.Certificate, baseURL string) (string, error) {
	path, err := e.renderPDF(ctx, cert, baseURL)
	if err == nil {
		return path, nil
	}
	if e.Fallback != nil {
		if snap, ferr := e.Fallback.Export(ctx, cert, baseURL); ferr == nil {
			return snap, nil
		}
	}
	return "", err
}

func (e *PDFExporter) renderPDF(ctx context.Context, cert *domain.Certificate, baseURL string) (string, error) {
	// The fetch-back confirms the verification page actually resolves before
	// a document is produced for it.
	if _, err := fetchPage(ctx, e.Client, cert, baseURL); err != nil {
		return "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10) // 1cm
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, "Authentication Opinion", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	display, _ := services.FormatDisplayDate(cert.AuthenticationDate, cert.CreatedAt)
	pdf.SetFont("Arial", "", 11)
	for _, row := range [][2]string{
		{"Reference number", cert.ReferenceNumber},
		{"Recipient", cert.Recipient},
		{"Model", cert.Model},
		{"Year", cert.Year},
		{"Additional stamps", cert.AdditionalStamps},
		{"Authentication date", display},
	} {
		if row[1] == "" {
			continue
		}
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(50, 7, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, 7, row[1], "", "L", false)
	}

	if cert.OpinionText != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 7, "Opinion", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, 6, cert.OpinionText, "", "L", false)
	}

	// Two-column layout for the paired photos, using the derived web copies.
	pdf.Ln(5)
	y := pdf.GetY()
	const colW = 90.0
	if err := e.placeImage(pdf, cert.PublicID+"_front_web.jpg", 10, y, colW); err != nil {
		return "", err
	}
	if err := e.placeImage(pdf, cert.PublicID+"_stamp_web.jpg", 10+colW+10, y, colW); err != nil {
		return "", err
	}

	// QR artifact, re-rendered from the identifier rather than read from disk
	// so the PDF never depends on the static tree.
	qrImg, err := qr.Render(baseURL + cert.VerificationPath())
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, qrImg); err != nil {
		return "", err
	}
	pdf.RegisterImageOptionsReader("qr", gofpdf.ImageOptions{ImageType: "PNG"}, &buf)
	pdf.ImageOptions("qr", 170, 262, 30, 30, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	out := filepath.Join(e.OutputDir, cert.PublicID+".pdf")
	if err := pdf.OutputFileAndClose(out); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return out, nil
}

// placeImage registers one stored web copy and draws it at (x, y) with a
// fixed width, height scaled proportionally.
func (e *PDFExporter) placeImage(pdf *gofpdf.Fpdf, name string, x, y, w float64) error {
	src := filepath.Join(e.BagImageDir, name)
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open web copy %s: %w", name, err)
	}
	defer f.Close()

	pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "JPG"}, f)
	if pdf.Err() {
		return fmt.Errorf("register web copy %s: %v", name, pdf.Error())
	}
	pdf.ImageOptions(name, x, y, w, 0, false, gofpdf.ImageOptions{ImageType: "JPG"}, 0, "")
	return nil
}
