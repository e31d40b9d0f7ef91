//go:build gocv
// +build gocv

package imaging

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	domain "github.com/bryanwahyu/lungscan/internal/domain/imaging"
	"github.com/bryanwahyu/lungscan/internal/domain/scans"
)

// GoCVOverlay runs the same overlay through OpenCV, byte-compatible with cv2.
type GoCVOverlay struct {
	KernelSize int
	Alpha      float64
	Beta       float64
}

// NewGoCVOverlay membuat overlay berbasis OpenCV.
func NewGoCVOverlay(ksize int) (*GoCVOverlay, error) {
	if ksize < 3 || ksize%2 == 0 {
		return nil, fmt.Errorf("kernel size must be odd and >= 3, got %d", ksize)
	}
	return &GoCVOverlay{KernelSize: ksize, Alpha: DefaultAlpha, Beta: DefaultBeta}, nil
}

func (o *GoCVOverlay) Overlay(grid *domain.PixelGrid) (*domain.PixelGrid, error) {
	// OpenCV expects BGR.
	bgr := swapRB(grid.Pix)
	mat, err := gocv.NewMatFromBytes(grid.Height, grid.Width, gocv.MatTypeCV8UC3, bgr)
	if err != nil {
		return nil, fmt.Errorf("gocv mat: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	blur := gocv.NewMat()
	defer blur.Close()
	gocv.GaussianBlur(gray, &blur, image.Pt(o.KernelSize, o.KernelSize), 0, 0, gocv.BorderDefault)

	heat := gocv.NewMat()
	defer heat.Close()
	gocv.ApplyColorMap(blur, &heat, gocv.ColormapJet)

	if heat.Rows() != mat.Rows() || heat.Cols() != mat.Cols() {
		return nil, fmt.Errorf("%w: heat %dx%d vs image %dx%d", scans.ErrDimensionMismatch, heat.Cols(), heat.Rows(), mat.Cols(), mat.Rows())
	}

	final := gocv.NewMat()
	defer final.Close()
	gocv.AddWeighted(mat, o.Alpha, heat, o.Beta, 0, &final)

	return domain.NewPixelGrid(grid.Width, grid.Height, swapRB(final.ToBytes()))
}

func swapRB(pix []uint8) []uint8 {
	out := make([]uint8, len(pix))
	for i := 0; i+2 < len(pix); i += 3 {
		out[i], out[i+1], out[i+2] = pix[i+2], pix[i+1], pix[i]
	}
	return out
}
