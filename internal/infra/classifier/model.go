package classifier

import (
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/bryanwahyu/lungscan/internal/domain/scans"
)

const (
	InputSize = 224
	conv1Out  = 8
	conv2Out  = 16
	kernel    = 3
	// two 2x2 max-pools
	featureSide = InputSize / 4
)

// ConvLayer is a 3x3 same-padded convolution. Weights are [out][in][3][3].
type ConvLayer struct {
	In      int
	Out     int
	Weights []float32
	Bias    []float32
}

// DenseLayer weights are [out][in].
type DenseLayer struct {
	In      int
	Out     int
	Weights []float32
	Bias    []float32
}

// Model is the fixed two-block CNN with a dense softmax head.
type Model struct {
	Version int
	Conv1   ConvLayer
	Conv2   ConvLayer
	Dense   DenseLayer
}

const modelVersion = 1

// NewUntrained synthesizes a model with seeded random weights.
// Its predictions carry no medical meaning.
func NewUntrained(seed int64) *Model {
	rnd := rand.New(rand.NewSource(seed))
	return &Model{
		Version: modelVersion,
		Conv1:   newConv(rnd, 3, conv1Out),
		Conv2:   newConv(rnd, conv1Out, conv2Out),
		Dense:   newDense(rnd, featureSide*featureSide*conv2Out, len(scans.Labels)),
	}
}

func newConv(rnd *rand.Rand, in, out int) ConvLayer {
	limit := math.Sqrt(6 / float64(in*kernel*kernel))
	return ConvLayer{
		In:      in,
		Out:     out,
		Weights: uniform(rnd, out*in*kernel*kernel, limit),
		Bias:    make([]float32, out),
	}
}

func newDense(rnd *rand.Rand, in, out int) DenseLayer {
	limit := math.Sqrt(6 / float64(in+out))
	return DenseLayer{
		In:      in,
		Out:     out,
		Weights: uniform(rnd, out*in, limit),
		Bias:    make([]float32, out),
	}
}

func uniform(rnd *rand.Rand, n int, limit float64) []float32 {
	w := make([]float32, n)
	for i := range w {
		w[i] = float32((rnd.Float64()*2 - 1) * limit)
	}
	return w
}

// Validate checks every layer has the shape the forward pass expects.
func (m *Model) Validate() error {
	if m.Version != modelVersion {
		return fmt.Errorf("unsupported model version %d", m.Version)
	}
	check := func(name string, got, want int) error {
		if got != want {
			return fmt.Errorf("%s: got %d values, want %d", name, got, want)
		}
		return nil
	}
	c1, c2, d := m.Conv1, m.Conv2, m.Dense
	for _, err := range []error{
		check("conv1.in", c1.In, 3),
		check("conv1.out", c1.Out, conv1Out),
		check("conv1.weights", len(c1.Weights), c1.Out*c1.In*kernel*kernel),
		check("conv1.bias", len(c1.Bias), c1.Out),
		check("conv2.in", c2.In, conv1Out),
		check("conv2.out", c2.Out, conv2Out),
		check("conv2.weights", len(c2.Weights), c2.Out*c2.In*kernel*kernel),
		check("conv2.bias", len(c2.Bias), c2.Out),
		check("dense.in", d.In, featureSide*featureSide*conv2Out),
		check("dense.out", d.Out, len(scans.Labels)),
		check("dense.weights", len(d.Weights), d.Out*d.In),
		check("dense.bias", len(d.Bias), d.Out),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Save writes the model as gob, creating parent directories.
func (m *Model) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("model dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		return fmt.Errorf("encode model: %w", err)
	}
	return f.Close()
}

// LoadModel reads and validates a model file. Any failure is ErrModelUnavailable.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scans.ErrModelUnavailable, err)
	}
	defer f.Close()

	var m Model
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", scans.ErrModelUnavailable, path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", scans.ErrModelUnavailable, path, err)
	}
	return &m, nil
}

// ErrModelNotPersisted accompanies a usable in-memory model that could not be written to disk.
var ErrModelNotPersisted = errors.New("synthesized model not persisted")

// LoadOrInit loads path, or synthesizes an untrained model, saves it there and
// loads it back when the file does not exist. created reports the latter.
// When saving fails the fresh model is still returned together with ErrModelNotPersisted.
func LoadOrInit(path string, seed int64) (m *Model, created bool, err error) {
	// anything that prevents a stat means there is no artifact to load
	if _, statErr := os.Stat(path); statErr != nil {
		fresh := NewUntrained(seed)
		if err := fresh.Save(path); err != nil {
			return fresh, true, fmt.Errorf("%w: %v", ErrModelNotPersisted, err)
		}
		created = true
	}
	m, err = LoadModel(path)
	if err != nil {
		return nil, created, err
	}
	return m, created, nil
}
