// Package imaging validates uploaded certificate photos and derives the
// bounded-dimension, compressed web copies used for page display.
//
// Uploads are accepted by file-extension allow-list only; there is no content
// sniffing. A mismatched extension is fine as long as one of the registered
// decoders can still parse the bytes, and a decode failure surfaces as an
// ordinary error to the caller.
package imaging

import (
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"
)

const (
	// MaxWebDimension bounds the longer side of a derived web copy in pixels.
	MaxWebDimension = 1200

	// webCopyQuality is the JPEG quality for derived web copies.
	webCopyQuality = 85
)

// allowedExtensions is the upload allow-list, matching the legacy behavior.
var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
}

// AllowedExtension reports whether filename carries an accepted image
// extension (png, jpg, jpeg, gif; case-insensitive). A name without any
// extension is rejected.
func AllowedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return false
	}
	_, ok := allowedExtensions[ext]
	return ok
}

// MakeWebCopy reads the original image at src and writes a web-display copy
// to dst: alpha discarded onto an opaque RGB canvas, uniformly scaled so that
// neither dimension exceeds MaxWebDimension (never upscaled), and re-encoded
// as a quality-85 JPEG.
func MakeWebCopy(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open original: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode original %s: %w", filepath.Base(src), err)
	}

	out := Flatten(scaleDown(img, MaxWebDimension))

	w, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create web copy: %w", err)
	}
	if err := jpeg.Encode(w, out, &jpeg.Options{Quality: webCopyQuality}); err != nil {
		w.Close()
		return fmt.Errorf("encode web copy: %w", err)
	}
	return w.Close()
}

// Flatten draws img onto an opaque RGBA canvas, discarding any alpha channel.
// Transparent regions come out black, matching the legacy RGB conversion.
func Flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	// Force full opacity.
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// scaleDown uniformly scales img so that neither dimension exceeds maxDim,
// preserving the aspect ratio. Images already within bounds are returned
// unchanged. Catmull-Rom is used as the high-quality downscale kernel.
func scaleDown(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	nw, nh := w, h
	if w >= h {
		nw = maxDim
		nh = h * maxDim / w
	} else {
		nh = maxDim
		nw = w * maxDim / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
