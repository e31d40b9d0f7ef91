package imaging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPixelGrid_RejectsBadBuffer(t *testing.T) {
	_, err := NewPixelGrid(2, 2, make([]uint8, 5))
	require.Error(t, err)

	_, err = NewPixelGrid(0, 2, nil)
	require.Error(t, err)
}

func TestPixelGridAt(t *testing.T) {
	pix := []uint8{
		1, 2, 3, 4, 5, 6,
		7, 8, 9, 10, 11, 12,
	}
	g, err := NewPixelGrid(2, 2, pix)
	require.NoError(t, err)

	r, gr, b := g.At(1, 1)
	require.Equal(t, uint8(10), r)
	require.Equal(t, uint8(11), gr)
	require.Equal(t, uint8(12), b)
}
