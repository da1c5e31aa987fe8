package qr

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestRender_ExactArtifactSize(t *testing.T) {
	img, err := Render("https://example.com/opinion-long-code/0123456789abcdef0123456789abcde")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != ArtifactSize || b.Dy() != ArtifactSize {
		t.Fatalf("expected %dx%d artifact, got %dx%d", ArtifactSize, ArtifactSize, b.Dx(), b.Dy())
	}
}

func TestRender_TransparentBackgroundOpaqueModules(t *testing.T) {
	img, err := Render("https://example.com/opinion-long-code/abc")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	// The corner sits inside the quiet zone and must be fully transparent.
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Fatalf("quiet-zone pixel should be transparent, alpha=%d", a)
	}

	// At least one opaque black module pixel must exist.
	found := false
	for y := 0; y < ArtifactSize && !found; y++ {
		for x := 0; x < ArtifactSize; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			if a == 0xffff && r == 0 && g == 0 && b == 0 {
				found = true
				break
			}
		}
	}
	if !found {
		t.Fatal("no opaque black module pixel found")
	}
}

func TestGenerate_WritesDecodablePNG(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "artifact_qr.png")
	if err := Generate("https://example.com/opinion-long-code/xyz", dst); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode artifact png: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != ArtifactSize || b.Dy() != ArtifactSize {
		t.Fatalf("expected %dx%d png, got %dx%d", ArtifactSize, ArtifactSize, b.Dx(), b.Dy())
	}
}

func TestGenerate_EmptyPayload(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "artifact_qr.png")
	if err := Generate("", dst); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("no artifact should exist after an encode failure, stat err=%v", err)
	}
}
