package imaging

import (
	"fmt"
	"math"

	domain "github.com/bryanwahyu/lungscan/internal/domain/imaging"
	"github.com/bryanwahyu/lungscan/internal/domain/scans"
)

const (
	DefaultKernelSize = 21
	DefaultAlpha      = 0.6 // weight of the original image
	DefaultBeta       = 0.4 // weight of the colormapped heat
)

// Overlay renders a luminance heatmap blended over the source image.
// It is a pure function of the grid and its parameters.
type Overlay struct {
	KernelSize int
	Alpha      float64
	Beta       float64
}

// NewOverlay returns the canonical 21x21 overlay.
func NewOverlay() *Overlay {
	return &Overlay{KernelSize: DefaultKernelSize, Alpha: DefaultAlpha, Beta: DefaultBeta}
}

// Sigma derives the Gaussian standard deviation from the kernel size (OpenCV sigma=0 rule).
func Sigma(ksize int) float64 {
	return 0.3*((float64(ksize)-1)*0.5-1) + 0.8
}

func (o *Overlay) Overlay(grid *domain.PixelGrid) (*domain.PixelGrid, error) {
	if o.KernelSize < 3 || o.KernelSize%2 == 0 {
		return nil, fmt.Errorf("kernel size must be odd and >= 3, got %d", o.KernelSize)
	}

	gray := Luminance(grid)
	blur := GaussianBlur(gray, grid.Width, grid.Height, o.KernelSize)
	heat := ApplyJet(blur)

	n := grid.Width * grid.Height
	if len(gray) != n || len(blur) != n || len(heat) != n*domain.Channels || len(grid.Pix) != n*domain.Channels {
		return nil, fmt.Errorf("%w: grid %dx%d", scans.ErrDimensionMismatch, grid.Width, grid.Height)
	}

	out := make([]uint8, len(grid.Pix))
	for i := range out {
		out[i] = saturate(o.Alpha*float64(grid.Pix[i]) + o.Beta*float64(heat[i]))
	}
	return domain.NewPixelGrid(grid.Width, grid.Height, out)
}

// Luminance converts RGB to a single 8-bit plane with BT.601 weights.
func Luminance(grid *domain.PixelGrid) []uint8 {
	out := make([]uint8, grid.Width*grid.Height)
	for i := range out {
		p := grid.Pix[i*3 : i*3+3]
		out[i] = saturate(0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2]))
	}
	return out
}

// GaussianKernel returns the normalized 1-D kernel for ksize.
func GaussianKernel(ksize int) []float64 {
	sigma := Sigma(ksize)
	k := make([]float64, ksize)
	c := ksize / 2
	var sum float64
	for i := range k {
		d := float64(i - c)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// GaussianBlur applies a separable ksize x ksize blur with reflect-101 borders.
func GaussianBlur(plane []uint8, w, h, ksize int) []uint8 {
	k := GaussianKernel(ksize)
	r := ksize / 2

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := plane[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				acc += kv * float64(row[reflect101(x+i-r, w)])
			}
			tmp[y*w+x] = acc
		}
	}

	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				acc += kv * tmp[reflect101(y+i-r, h)*w+x]
			}
			out[y*w+x] = saturate(acc)
		}
	}
	return out
}

// reflect101 mirrors an out-of-range index without repeating the edge (gfedcb|abcdefgh|gfedcba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// ApplyJet maps each intensity through a blue→cyan→yellow→red ramp, returning RGB triples.
func ApplyJet(plane []uint8) []uint8 {
	var lut [256][3]uint8
	for v := 0; v < 256; v++ {
		lut[v] = jet(float64(v) / 255)
	}
	out := make([]uint8, len(plane)*domain.Channels)
	for i, v := range plane {
		c := lut[v]
		out[i*3], out[i*3+1], out[i*3+2] = c[0], c[1], c[2]
	}
	return out
}

func jet(v float64) [3]uint8 {
	ch := func(k float64) uint8 {
		f := 1.5 - math.Abs(4*v-k)
		return saturate(math.Max(0, math.Min(1, f)) * 255)
	}
	return [3]uint8{ch(3), ch(2), ch(1)}
}

func saturate(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
