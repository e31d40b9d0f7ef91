//go:build !gocv
// +build !gocv

package imaging

import (
	"errors"

	domain "github.com/bryanwahyu/lungscan/internal/domain/imaging"
)

type GoCVOverlay struct {
	KernelSize int
	Alpha      float64
	Beta       float64
}

// NewGoCVOverlay returns an error when built without the gocv tag.
func NewGoCVOverlay(int) (*GoCVOverlay, error) {
	return nil, errors.New("gocv build tag is not enabled")
}

// Overlay returns an error when built without the gocv tag.
func (o *GoCVOverlay) Overlay(*domain.PixelGrid) (*domain.PixelGrid, error) {
	return nil, errors.New("gocv build tag is not enabled")
}
