// Package thumbnail renders the first page of a PDF into a small JPEG.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"
)

var (
	// ErrEmptyDocument means the PDF parsed but contains no pages.
	ErrEmptyDocument = errors.New("pdf has no pages")
	// ErrCorruptInput means the bytes could not be parsed as a PDF.
	ErrCorruptInput = errors.New("pdf cannot be parsed")
)

// Quality selects the rendering resolution. Reduced exists purely to
// bound peak memory on large inputs: page-rendering memory scales with
// page area times DPI squared.
type Quality string

const (
	QualityStandard Quality = "standard" // 150 DPI
	QualityReduced  Quality = "reduced"  // 72 DPI
)

// Renderer rasterizes PDF first pages into fixed-width JPEG thumbnails.
type Renderer struct {
	width       int
	standardDPI float64
	reducedDPI  float64
}

// NewRenderer creates a renderer producing thumbnails of the given pixel
// width. Zero values fall back to 300 px / 150 DPI / 72 DPI.
func NewRenderer(width int, standardDPI, reducedDPI float64) *Renderer {
	if width <= 0 {
		width = 300
	}
	if standardDPI <= 0 {
		standardDPI = 150
	}
	if reducedDPI <= 0 {
		reducedDPI = 72
	}
	return &Renderer{width: width, standardDPI: standardDPI, reducedDPI: reducedDPI}
}

// Render rasterizes page 0 of the PDF at the tier's DPI, scales it to the
// target width preserving aspect ratio, and encodes it as JPEG.
func (r *Renderer) Render(pdf []byte, tier Quality) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptInput, err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, ErrEmptyDocument
	}

	dpi := r.standardDPI
	if tier == QualityReduced {
		dpi = r.reducedDPI
	}

	page, err := doc.ImageDPI(0, dpi)
	if err != nil {
		return nil, fmt.Errorf("%w: render page 0: %v", ErrCorruptInput, err)
	}

	thumb := resize(page, r.width)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// resize scales src to targetWidth preserving aspect ratio, using a
// bilinear filter. Nearest neighbor would alias badly on text-heavy
// pages.
func resize(src image.Image, targetWidth int) image.Image {
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW <= 0 || srcH <= 0 {
		return src
	}

	targetHeight := int(float64(srcH)*float64(targetWidth)/float64(srcW) + 0.5)
	if targetHeight < 1 {
		targetHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
