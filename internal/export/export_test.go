package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/atelierlumen/go-opinion-backend/internal/domain"
)

const testPublicID = "0123456789abcdef0123456789abcde"

func testCertificate() *domain.Certificate {
	return &domain.Certificate{
		PublicID:           testPublicID,
		ReferenceNumber:    "REF-2002",
		Recipient:          "Morgan Reyes",
		Model:              "Speedy 30",
		Year:               "2017",
		AdditionalStamps:   "Date code SD1987",
		OpinionText:        "Hardware and stitching consistent with authentic manufacture.",
		AuthenticationDate: "2024-02-21",
		FrontImagePath:     "images/bags/" + testPublicID + "_front.jpg",
		StampImagePath:     "images/bags/" + testPublicID + "_stamp.jpg",
		CreatedAt:          time.Date(2024, 2, 21, 12, 0, 0, 0, time.UTC),
	}
}

// verificationServer serves a minimal verification page for the test record.
func verificationServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/opinion-long-code/"+testPublicID {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><head><title>Opinion</title></head><body><h1>Authentication Opinion</h1></body></html>"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeWebCopy(t *testing.T, dir, name string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 60, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, color.RGBA{R: 100, G: 100, B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode web copy: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write web copy: %v", err)
	}
}

func TestNew_CapabilitySelection(t *testing.T) {
	cfg := Config{OutputDir: t.TempDir(), BagImageDir: t.TempDir(), FetchTimeout: time.Second}

	cfg.PDFEnabled = true
	if _, ok := New(cfg).(*PDFExporter); !ok {
		t.Fatal("expected PDFExporter when PDF rendering is enabled")
	}

	cfg.PDFEnabled = false
	if _, ok := New(cfg).(*HTMLSnapshotExporter); !ok {
		t.Fatal("expected HTMLSnapshotExporter when PDF rendering is disabled")
	}
}

func TestHTMLSnapshot_FromFetchedPage(t *testing.T) {
	srv := verificationServer(t)
	exp := &HTMLSnapshotExporter{
		OutputDir: t.TempDir(),
		Client:    srv.Client(),
	}

	out, err := exp.Export(context.Background(), testCertificate(), srv.URL)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if filepath.Base(out) != testPublicID+".html" {
		t.Fatalf("unexpected artifact name %s", out)
	}

	body, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	html := string(body)
	if !strings.Contains(html, "Authentication Opinion") {
		t.Fatal("snapshot should carry the fetched page content")
	}
	// The print stylesheet must be injected before </head>.
	if !strings.Contains(html, "size: A4") || !strings.Contains(html, "margin: 1cm") {
		t.Fatal("snapshot should embed the print stylesheet")
	}
	if strings.Index(html, "size: A4") > strings.Index(html, "</head>") {
		t.Fatal("stylesheet should be injected inside the head")
	}
}

func TestHTMLSnapshot_RendersStandaloneWhenFetchFails(t *testing.T) {
	exp := &HTMLSnapshotExporter{
		OutputDir: t.TempDir(),
		Client:    &http.Client{Timeout: 200 * time.Millisecond},
	}

	// Unreachable base URL forces the standalone render path.
	out, err := exp.Export(context.Background(), testCertificate(), "http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	body, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	html := string(body)
	for _, want := range []string{
		"REF-2002",
		"Morgan Reyes",
		"Wednesday, February 21, 2024",
		"size: A4",
		testPublicID + "_front_web.jpg",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("standalone snapshot missing %q", want)
		}
	}
}

func TestPDFExport_ProducesPDF(t *testing.T) {
	srv := verificationServer(t)
	bagDir := t.TempDir()
	writeWebCopy(t, bagDir, testPublicID+"_front_web.jpg")
	writeWebCopy(t, bagDir, testPublicID+"_stamp_web.jpg")

	exp := &PDFExporter{
		OutputDir:   t.TempDir(),
		BagImageDir: bagDir,
		Client:      srv.Client(),
	}

	out, err := exp.Export(context.Background(), testCertificate(), srv.URL)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if filepath.Base(out) != testPublicID+".pdf" {
		t.Fatalf("unexpected artifact name %s", out)
	}

	body, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(body, []byte("%PDF-")) {
		t.Fatal("artifact does not start with a PDF header")
	}
}

func TestPDFExport_DegradesToSnapshotFallback(t *testing.T) {
	srv := verificationServer(t)
	outDir := t.TempDir()

	// No web copies on disk: PDF rendering fails, the snapshot must win.
	exp := &PDFExporter{
		OutputDir:   outDir,
		BagImageDir: t.TempDir(),
		Client:      srv.Client(),
		Fallback: &HTMLSnapshotExporter{
			OutputDir: outDir,
			Client:    srv.Client(),
		},
	}

	out, err := exp.Export(context.Background(), testCertificate(), srv.URL)
	if err != nil {
		t.Fatalf("Export should degrade, not fail: %v", err)
	}
	if filepath.Base(out) != testPublicID+".html" {
		t.Fatalf("expected snapshot artifact, got %s", out)
	}
}

func TestPDFExport_NoFallbackPropagatesError(t *testing.T) {
	exp := &PDFExporter{
		OutputDir:   t.TempDir(),
		BagImageDir: t.TempDir(),
		Client:      &http.Client{Timeout: 200 * time.Millisecond},
	}

	if _, err := exp.Export(context.Background(), testCertificate(), "http://127.0.0.1:1"); err == nil {
		t.Fatal("expected error when rendering fails and no fallback is configured")
	}
}

func TestFetchPage_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, err := fetchPage(context.Background(), srv.Client(), testCertificate(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "unexpected status") {
		t.Fatalf("expected status error, got %v", err)
	}
}
