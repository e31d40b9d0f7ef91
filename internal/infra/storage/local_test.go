package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutOpen(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ref, err := s.Put(ctx, "heatmaps/heat_a.png", []byte("png"), "image/png")
	require.NoError(t, err)
	require.Equal(t, "heatmaps/heat_a.png", ref)

	rc, err := s.Open(ctx, ref)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "png", string(b))
}

func TestLocalStore_RejectsTraversalAndMissing(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Put(ctx, "../escape", nil, "")
	require.Error(t, err)
	_, err = s.Open(ctx, "/etc/passwd")
	require.Error(t, err)

	_, err = s.Open(ctx, "heatmaps/missing.png")
	require.ErrorIs(t, err, ErrNotFound)
}
