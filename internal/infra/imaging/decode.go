package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	domain "github.com/bryanwahyu/lungscan/internal/domain/imaging"
	"github.com/bryanwahyu/lungscan/internal/domain/scans"
)

// DefaultMaxPixels caps the decoded area of one upload (about 40 MP).
const DefaultMaxPixels = 40_000_000

// Decode turns raw upload bytes into a PixelGrid using DefaultMaxPixels.
func Decode(data []byte) (*domain.PixelGrid, error) {
	return DecodeLimit(data, DefaultMaxPixels)
}

// DecodeLimit is Decode with an explicit pixel ceiling; maxPixels <= 0 means DefaultMaxPixels.
// Every failure, including decoder panics on hostile input, maps to scans.ErrInvalidImage.
// The header is checked before any pixel buffer is allocated.
func DecodeLimit(data []byte, maxPixels int) (grid *domain.PixelGrid, err error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", scans.ErrInvalidImage)
	}
	defer func() {
		if r := recover(); r != nil {
			grid = nil
			err = fmt.Errorf("%w: decoder panic: %v", scans.ErrInvalidImage, r)
		}
	}()

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scans.ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %s image has zero size", scans.ErrInvalidImage, format)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, fmt.Errorf("%w: %s image %dx%d exceeds %d pixels",
			scans.ErrInvalidImage, format, cfg.Width, cfg.Height, maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scans.ErrInvalidImage, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %s image has zero size", scans.ErrInvalidImage, format)
	}
	return FromImage(img)
}

// FromImage copies any image.Image into an RGB grid.
func FromImage(img image.Image) (*domain.PixelGrid, error) {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Src)
	}

	w, h := b.Dx(), b.Dy()
	pix := make([]uint8, w*h*domain.Channels)
	for y := 0; y < h; y++ {
		src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		dst := pix[y*w*domain.Channels:]
		for x := 0; x < w; x++ {
			dst[x*3] = src[x*4]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+2]
		}
	}
	return domain.NewPixelGrid(w, h, pix)
}

// ToImage converts a grid into an opaque *image.RGBA.
func ToImage(g *domain.PixelGrid) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	for i, j := 0, 0; i < len(g.Pix); i, j = i+3, j+4 {
		img.Pix[j] = g.Pix[i]
		img.Pix[j+1] = g.Pix[i+1]
		img.Pix[j+2] = g.Pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// EncodePNG encodes the grid losslessly so stored overlays stay byte-stable.
func EncodePNG(g *domain.PixelGrid) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, ToImage(g)); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
