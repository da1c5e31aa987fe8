// Package qr renders the QR artifact that encodes a certificate's public
// verification URL.
//
// The artifact parameters are fixed for compatibility with previously issued
// certificates: 10 pixels per module, a 1-module quiet zone, opaque black
// modules on a fully transparent background, and a final nearest-neighbor
// resize to exactly 123x123 pixels. Nearest-neighbor keeps module edges
// crisp; an interpolating resize would anti-alias them and hurt decoding.
package qr

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	qrcode "github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"
)

const (
	// ArtifactSize is the exact width and height of the emitted PNG.
	ArtifactSize = 123

	// moduleSize is the pre-resize pixel size of one QR module.
	moduleSize = 10

	// quietZone is the border width around the symbol, in modules.
	quietZone = 1
)

// Generate encodes url into a QR symbol and writes the finished artifact to
// dst as a transparent PNG. The symbol uses the minimum version and the
// library's default error-correction level able to hold the payload.
func Generate(url, dst string) error {
	img, err := Render(url)
	if err != nil {
		return err
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create qr artifact: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode qr artifact: %w", err)
	}
	return f.Close()
}

// Render returns the finished 123x123 artifact image for url without
// touching the filesystem. Exposed separately so the document exporter can
// embed the artifact directly.
func Render(url string) (*image.RGBA, error) {
	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr payload: %w", err)
	}
	// The bitmap carries the module matrix only; the quiet zone is drawn
	// below so its width can differ from the library default.
	q.DisableBorder = true
	bm := q.Bitmap()

	n := len(bm)
	if n == 0 {
		return nil, fmt.Errorf("empty qr bitmap for %q", url)
	}

	// Full-resolution raster: modules plus quiet zone, 10 px per module,
	// transparent background.
	side := (n + 2*quietZone) * moduleSize
	raster := image.NewRGBA(image.Rect(0, 0, side, side))
	black := color.RGBA{A: 0xff}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if !bm[y][x] {
				continue
			}
			x0 := (x + quietZone) * moduleSize
			y0 := (y + quietZone) * moduleSize
			for py := y0; py < y0+moduleSize; py++ {
				for px := x0; px < x0+moduleSize; px++ {
					raster.SetRGBA(px, py, black)
				}
			}
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, ArtifactSize, ArtifactSize))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), raster, raster.Bounds(), xdraw.Src, nil)
	return out, nil
}
