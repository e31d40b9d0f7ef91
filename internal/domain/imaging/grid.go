package imaging

import "fmt"

// Channels jumlah kanal per pixel (R, G, B)
const Channels = 3

// PixelGrid is a decoded H×W×3 raster, channel order R,G,B.
// Pix is laid out row-major; a grid is never written after construction.
type PixelGrid struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPixelGrid wraps pix as a grid, checking the buffer matches the dimensions.
func NewPixelGrid(width, height int, pix []uint8) (*PixelGrid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid grid dimensions %dx%d", width, height)
	}
	if len(pix) != width*height*Channels {
		return nil, fmt.Errorf("pixel buffer length %d does not match %dx%dx%d", len(pix), width, height, Channels)
	}
	return &PixelGrid{Width: width, Height: height, Pix: pix}, nil
}

// At returns the R,G,B values at (x, y).
func (g *PixelGrid) At(x, y int) (r, gr, b uint8) {
	i := (y*g.Width + x) * Channels
	return g.Pix[i], g.Pix[i+1], g.Pix[i+2]
}

// SameSize reports whether both grids share H×W.
func (g *PixelGrid) SameSize(o *PixelGrid) bool {
	return g.Width == o.Width && g.Height == o.Height
}
