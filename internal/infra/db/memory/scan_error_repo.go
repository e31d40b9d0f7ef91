package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/bryanwahyu/lungscan/internal/domain/scanerrors"
)

type ScanErrorRepository struct {
	mu     sync.Mutex
	errors []domain.ScanError
}

func NewScanErrorRepository() *ScanErrorRepository { return &ScanErrorRepository{} }

func (r *ScanErrorRepository) Save(_ context.Context, e *domain.ScanError) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *e
	stored.ID = int64(len(r.errors) + 1)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.errors = append(r.errors, stored)
	return nil
}

// ListByPatient returns newest first, like the SQL implementations.
func (r *ScanErrorRepository) ListByPatient(_ context.Context, name string, limit int) ([]*domain.ScanError, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.ScanError
	for i := len(r.errors) - 1; i >= 0 && len(out) < limit; i-- {
		if r.errors[i].PatientName == name {
			e := r.errors[i]
			out = append(out, &e)
		}
	}
	return out, nil
}
