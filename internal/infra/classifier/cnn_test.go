package classifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/lungscan/internal/domain/imaging"
	"github.com/bryanwahyu/lungscan/internal/domain/scans"
)

func testGrid(t *testing.T, w, h int) *domain.PixelGrid {
	t.Helper()
	pix := make([]uint8, w*h*3)
	for i := range pix {
		pix[i] = uint8(i * 31 % 251)
	}
	g, err := domain.NewPixelGrid(w, h, pix)
	require.NoError(t, err)
	return g
}

func TestNewUntrained_Validates(t *testing.T) {
	require.NoError(t, NewUntrained(1).Validate())
}

func TestCNN_ClassifyReturnsArgmaxPosterior(t *testing.T) {
	c, err := NewCNN(NewUntrained(7))
	require.NoError(t, err)

	grid := testGrid(t, 40, 32)
	before := append([]uint8(nil), grid.Pix...)

	probs := c.Predict(Preprocess(grid))
	require.Len(t, probs, 3)
	var sum float32
	best := 0
	for i, p := range probs {
		require.True(t, p >= 0 && p <= 1)
		sum += p
		if p > probs[best] {
			best = i
		}
	}
	require.InDelta(t, 1.0, sum, 1e-5)

	res, err := c.Classify(context.Background(), grid)
	require.NoError(t, err)
	require.Equal(t, scans.Labels[best], res.Label)
	require.InDelta(t, float64(probs[best]), res.Confidence, 1e-7)
	require.False(t, res.Heuristic)
	require.Equal(t, before, grid.Pix)

	again, err := c.Classify(context.Background(), grid)
	require.NoError(t, err)
	require.Equal(t, res, again)
}

func TestCNN_CancelledContext(t *testing.T) {
	c, err := NewCNN(NewUntrained(7))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Classify(ctx, testGrid(t, 4, 4))
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadOrInit_CreatesThenLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "lung.gob")

	m1, created, err := LoadOrInit(path, 3)
	require.NoError(t, err)
	require.True(t, created)
	require.FileExists(t, path)

	m2, created, err := LoadOrInit(path, 999)
	require.NoError(t, err)
	require.False(t, created)
	if diff := cmp.Diff(m1, m2); diff != "" {
		t.Fatalf("reloaded model differs (-first +second):\n%s", diff)
	}
}

func TestLoadModel_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.gob")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	_, err := LoadModel(path)
	require.ErrorIs(t, err, scans.ErrModelUnavailable)

	_, err = NewCNNFromFile(path, 1, nil)
	require.ErrorIs(t, err, scans.ErrModelUnavailable)
}

func TestLoadModel_ShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.gob")
	m := NewUntrained(1)
	m.Dense.Weights = m.Dense.Weights[:10]
	require.NoError(t, m.Save(path))

	_, err := LoadModel(path)
	require.ErrorIs(t, err, scans.ErrModelUnavailable)
}

func TestLoadOrInit_UnwritablePathStillYieldsModel(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	m, created, err := LoadOrInit(filepath.Join(blocker, "lung.gob"), 1)
	require.ErrorIs(t, err, ErrModelNotPersisted)
	require.True(t, created)
	require.NotNil(t, m)

	c, err := NewCNNFromFile(filepath.Join(blocker, "lung.gob"), 1, nil)
	require.NoError(t, err)
	require.Equal(t, "cnn", c.Name())
}
