package imaging

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/lungscan/internal/domain/imaging"
	"github.com/bryanwahyu/lungscan/internal/domain/scans"
)

func pngBytes(t *testing.T, w, h int, fill func(x, y int) color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, fill(x, y))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func gradient(x, y int) color.RGBA {
	return color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: uint8((x + y) * 3), A: 255}
}

func TestDecode_RejectsEmptyAndGarbage(t *testing.T) {
	_, err := Decode(nil)
	require.ErrorIs(t, err, scans.ErrInvalidImage)

	_, err = Decode([]byte("definitely not an image"))
	require.ErrorIs(t, err, scans.ErrInvalidImage)

	// truncated PNG header
	data := pngBytes(t, 4, 4, gradient)
	_, err = Decode(data[:20])
	require.ErrorIs(t, err, scans.ErrInvalidImage)
}

// withIHDRSize rewrites the PNG header dimensions and fixes the chunk CRC.
func withIHDRSize(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	require.Equal(t, "IHDR", string(data[12:16]))
	out := append([]byte(nil), data...)
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestDecode_RejectsOversizedHeader(t *testing.T) {
	data := withIHDRSize(t, pngBytes(t, 4, 4, gradient), 30000, 30000)

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 30000, cfg.Width)

	grid, err := Decode(data)
	require.ErrorIs(t, err, scans.ErrInvalidImage)
	require.Nil(t, grid)
	require.Contains(t, err.Error(), "exceeds")
}

func TestDecodeLimit(t *testing.T) {
	data := pngBytes(t, 10, 6, gradient)

	_, err := DecodeLimit(data, 59)
	require.ErrorIs(t, err, scans.ErrInvalidImage)

	grid, err := DecodeLimit(data, 60)
	require.NoError(t, err)
	require.Equal(t, 10, grid.Width)

	grid, err = DecodeLimit(data, 0)
	require.NoError(t, err)
	require.Equal(t, 6, grid.Height)
}

func TestDecode_PNG(t *testing.T) {
	data := pngBytes(t, 10, 6, gradient)
	grid, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, 10, grid.Width)
	require.Equal(t, 6, grid.Height)

	r, g, b := grid.At(3, 2)
	require.Equal(t, uint8(21), r)
	require.Equal(t, uint8(10), g)
	require.Equal(t, uint8(15), b)
}

func TestEncodePNG_RoundTrip(t *testing.T) {
	grid, err := Decode(pngBytes(t, 8, 8, gradient))
	require.NoError(t, err)

	out, err := EncodePNG(grid)
	require.NoError(t, err)

	back, err := Decode(out)
	require.NoError(t, err)
	require.Equal(t, grid.Pix, back.Pix)
}

func TestSigmaAndKernel(t *testing.T) {
	require.InDelta(t, 3.5, Sigma(21), 1e-12)
	require.InDelta(t, 2.6, Sigma(15), 1e-12)

	k := GaussianKernel(21)
	require.Len(t, k, 21)
	var sum float64
	for _, v := range k {
		sum += v
	}
	require.InDelta(t, 1.0, sum, 1e-12)
	require.Equal(t, k[0], k[20])
	require.Greater(t, k[10], k[9])
}

func TestReflect101(t *testing.T) {
	require.Equal(t, 1, reflect101(-1, 5))
	require.Equal(t, 3, reflect101(5, 5))
	require.Equal(t, 0, reflect101(-7, 1))
	// radius larger than the image bounces more than once
	require.Equal(t, 2, reflect101(-10, 3))
	for i := -30; i < 30; i++ {
		v := reflect101(i, 4)
		require.True(t, v >= 0 && v < 4)
	}
}

func TestJetEndpoints(t *testing.T) {
	low := jet(0)
	require.Equal(t, uint8(0), low[0])
	require.Equal(t, uint8(0), low[1])
	require.Greater(t, low[2], uint8(100))

	high := jet(1)
	require.Greater(t, high[0], uint8(100))
	require.Equal(t, uint8(0), high[1])
	require.Equal(t, uint8(0), high[2])
}

func TestOverlay_UniformImage(t *testing.T) {
	pix := bytes.Repeat([]uint8{128}, 30*30*3)
	grid, err := domain.NewPixelGrid(30, 30, pix)
	require.NoError(t, err)

	out, err := NewOverlay().Overlay(grid)
	require.NoError(t, err)
	require.True(t, out.SameSize(grid))

	// blur of a flat plane stays 128, jet(128) has a saturated green channel
	_, g, _ := out.At(15, 15)
	require.Equal(t, uint8(179), g)
	require.Equal(t, pix, grid.Pix, "input grid must not be mutated")
}

func TestOverlay_Deterministic(t *testing.T) {
	data := pngBytes(t, 40, 25, gradient)

	run := func() []byte {
		grid, err := Decode(data)
		require.NoError(t, err)
		out, err := NewOverlay().Overlay(grid)
		require.NoError(t, err)
		enc, err := EncodePNG(out)
		require.NoError(t, err)
		return enc
	}
	require.Equal(t, run(), run())
}

func TestOverlay_TinyImageAndBadKernel(t *testing.T) {
	grid, err := domain.NewPixelGrid(1, 1, []uint8{10, 20, 30})
	require.NoError(t, err)

	out, err := NewOverlay().Overlay(grid)
	require.NoError(t, err)
	require.Equal(t, 1, out.Width)

	_, err = (&Overlay{KernelSize: 4, Alpha: 0.6, Beta: 0.4}).Overlay(grid)
	require.Error(t, err)
}
