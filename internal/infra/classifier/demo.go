package classifier

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/bryanwahyu/lungscan/internal/domain/imaging"
	"github.com/bryanwahyu/lungscan/internal/domain/scans"
)

// Source is the randomness the demo draws from. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

type band struct {
	label  scans.Label
	weight float64
	lo, hi float64
}

// label weights and confidence bands of the demo heuristic
var bands = []band{
	{scans.LabelNormal, 0.5, 0.70, 0.95},
	{scans.LabelBenign, 0.3, 0.60, 0.85},
	{scans.LabelMalignant, 0.2, 0.75, 0.98},
}

// ConfidenceRange returns the closed interval the demo uses for label.
func ConfidenceRange(label scans.Label) (lo, hi float64, ok bool) {
	for _, b := range bands {
		if b.label == label {
			return b.lo, b.hi, true
		}
	}
	return 0, 0, false
}

// Demo is a placeholder classifier that draws a weighted random label.
// It does not look at the image and is NOT a medical inference.
type Demo struct {
	mu  sync.Mutex
	src Source
}

// NewDemo membuat classifier demo. nil src means a time-seeded source.
func NewDemo(src Source) *Demo {
	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Demo{src: src}
}

func (d *Demo) Name() string { return "demo" }

func (d *Demo) Classify(_ context.Context, _ *imaging.PixelGrid) (scans.Classification, error) {
	d.mu.Lock()
	u := d.src.Float64()
	v := d.src.Float64()
	d.mu.Unlock()

	b := pick(u)
	conf := math.Round((b.lo+v*(b.hi-b.lo))*100) / 100
	// both band ends have two decimals; clamp only guards float noise
	conf = math.Min(b.hi, math.Max(b.lo, conf))

	return scans.Classification{Label: b.label, Confidence: conf, Heuristic: true}, nil
}

func pick(u float64) band {
	var acc float64
	for _, b := range bands {
		acc += b.weight
		if u < acc {
			return b
		}
	}
	return bands[len(bands)-1]
}
