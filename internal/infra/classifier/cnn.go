package classifier

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"golang.org/x/image/draw"

	domain "github.com/bryanwahyu/lungscan/internal/domain/imaging"
	"github.com/bryanwahyu/lungscan/internal/domain/scans"
	"github.com/bryanwahyu/lungscan/internal/infra/imaging"
)

// CNN classifies with the fixed two-block convolutional model.
// Weights are loaded once and read-only afterwards, so Classify is safe for concurrent use.
type CNN struct {
	model *Model
}

// NewCNN wraps an already loaded model.
func NewCNN(m *Model) (*CNN, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil model", scans.ErrModelUnavailable)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", scans.ErrModelUnavailable, err)
	}
	return &CNN{model: m}, nil
}

// NewCNNFromFile loads weights at path, synthesizing an untrained model when none exists.
func NewCNNFromFile(path string, seed int64, logger *slog.Logger) (*CNN, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m, created, err := LoadOrInit(path, seed)
	switch {
	case errors.Is(err, ErrModelNotPersisted):
		logger.Warn("using in-memory untrained model", "path", path, "error", err)
	case err != nil:
		return nil, err
	case created:
		logger.Warn("no model weights found, synthesized untrained model", "path", path)
	}
	return NewCNN(m)
}

func (c *CNN) Name() string { return "cnn" }

func (c *CNN) Classify(ctx context.Context, grid *domain.PixelGrid) (scans.Classification, error) {
	if err := ctx.Err(); err != nil {
		return scans.Classification{}, err
	}
	probs := c.Predict(Preprocess(grid))

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return scans.Classification{
		Label:      scans.Labels[best],
		Confidence: float64(probs[best]),
	}, nil
}

// Preprocess resizes to InputSize² with bilinear sampling and scales to [0,1], CHW layout.
func Preprocess(grid *domain.PixelGrid) []float32 {
	src := imaging.ToImage(grid)
	dst := image.NewRGBA(image.Rect(0, 0, InputSize, InputSize))
	draw.BiLinear.Scale(dst, dst.Rect, src, src.Bounds(), draw.Src, nil)

	plane := InputSize * InputSize
	out := make([]float32, 3*plane)
	for i := 0; i < plane; i++ {
		out[i] = float32(dst.Pix[i*4]) / 255
		out[plane+i] = float32(dst.Pix[i*4+1]) / 255
		out[2*plane+i] = float32(dst.Pix[i*4+2]) / 255
	}
	return out
}

// Predict runs the forward pass on a preprocessed CHW tensor and returns softmax probabilities.
func (c *CNN) Predict(x []float32) []float32 {
	m := c.model
	side := InputSize

	x = conv3x3(x, side, m.Conv1)
	relu(x)
	x, side = maxPool2(x, side, m.Conv1.Out)

	x = conv3x3(x, side, m.Conv2)
	relu(x)
	x, _ = maxPool2(x, side, m.Conv2.Out)

	logits := make([]float32, m.Dense.Out)
	for o := 0; o < m.Dense.Out; o++ {
		w := m.Dense.Weights[o*m.Dense.In : (o+1)*m.Dense.In]
		acc := m.Dense.Bias[o]
		for i, v := range x {
			acc += w[i] * v
		}
		logits[o] = acc
	}
	return softmax(logits)
}

func conv3x3(x []float32, side int, l ConvLayer) []float32 {
	plane := side * side
	out := make([]float32, l.Out*plane)
	for o := 0; o < l.Out; o++ {
		dst := out[o*plane : (o+1)*plane]
		for i := range dst {
			dst[i] = l.Bias[o]
		}
		for in := 0; in < l.In; in++ {
			src := x[in*plane : (in+1)*plane]
			w := l.Weights[(o*l.In+in)*9 : (o*l.In+in+1)*9]
			for y := 0; y < side; y++ {
				for xx := 0; xx < side; xx++ {
					var acc float32
					for ky := -1; ky <= 1; ky++ {
						sy := y + ky
						if sy < 0 || sy >= side {
							continue
						}
						for kx := -1; kx <= 1; kx++ {
							sx := xx + kx
							if sx < 0 || sx >= side {
								continue
							}
							acc += w[(ky+1)*3+kx+1] * src[sy*side+sx]
						}
					}
					dst[y*side+xx] += acc
				}
			}
		}
	}
	return out
}

func relu(x []float32) {
	for i, v := range x {
		if v < 0 {
			x[i] = 0
		}
	}
}

func maxPool2(x []float32, side, channels int) ([]float32, int) {
	half := side / 2
	out := make([]float32, channels*half*half)
	for c := 0; c < channels; c++ {
		src := x[c*side*side:]
		dst := out[c*half*half:]
		for y := 0; y < half; y++ {
			for xx := 0; xx < half; xx++ {
				i := 2*y*side + 2*xx
				m := src[i]
				for _, v := range [3]float32{src[i+1], src[i+side], src[i+side+1]} {
					if v > m {
						m = v
					}
				}
				dst[y*half+xx] = m
			}
		}
	}
	return out, half
}

func softmax(logits []float32) []float32 {
	maxv := logits[0]
	for _, v := range logits[1:] {
		if v > maxv {
			maxv = v
		}
	}
	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxv))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
