package scans

import (
	"context"
	"io"

	"github.com/bryanwahyu/lungscan/internal/domain/imaging"
)

// Repository port (HistoryStore). Append-only: there is no update or delete.
type Repository interface {
	Append(ctx context.Context, r *PatientRecord) (*PatientRecord, error)
	QueryByName(ctx context.Context, name string) ([]HistoryEntry, error)
	ListAll(ctx context.Context) ([]*PatientRecord, error)
	Get(ctx context.Context, id RecordID) (*PatientRecord, error)
}

// Classifier port. Implementations must not mutate the grid.
type Classifier interface {
	Classify(ctx context.Context, grid *imaging.PixelGrid) (Classification, error)
	Name() string
}

// OverlayGenerator port (heatmap)
type OverlayGenerator interface {
	Overlay(grid *imaging.PixelGrid) (*imaging.PixelGrid, error)
}

// ArtifactStore port (interface untuk penyimpanan upload + heatmap)
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
