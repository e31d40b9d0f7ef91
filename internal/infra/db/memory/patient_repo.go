package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/bryanwahyu/lungscan/internal/domain/scans"
)

// PatientRepository in-memory HistoryStore. IDs are assigned under the write lock.
type PatientRepository struct {
	mu      sync.RWMutex
	records []domain.PatientRecord
	byName  map[string][]int
}

func NewPatientRepository() *PatientRepository {
	return &PatientRepository{byName: make(map[string][]int)}
}

func (r *PatientRepository) Append(ctx context.Context, rec *domain.PatientRecord) (*domain.PatientRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *rec
	stored.ID = domain.RecordID(len(r.records) + 1)
	stored.Timestamp = domain.StoredTime(stored.Timestamp)
	r.records = append(r.records, stored)
	r.byName[stored.Name] = append(r.byName[stored.Name], len(r.records)-1)

	out := stored
	return &out, nil
}

func (r *PatientRepository) QueryByName(_ context.Context, name string) ([]domain.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.byName[name]
	out := make([]domain.HistoryEntry, 0, len(idx))
	for _, i := range idx {
		out = append(out, domain.HistoryEntry{Timestamp: r.records[i].Timestamp, Label: r.records[i].Result})
	}
	return out, nil
}

func (r *PatientRepository) ListAll(_ context.Context) ([]*domain.PatientRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.PatientRecord, len(r.records))
	for i := range r.records {
		rec := r.records[i]
		out[i] = &rec
	}
	return out, nil
}

func (r *PatientRepository) Get(_ context.Context, id domain.RecordID) (*domain.PatientRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id < 1 || int(id) > len(r.records) {
		return nil, fmt.Errorf("%w: %d", domain.ErrNotFound, id)
	}
	rec := r.records[id-1]
	return &rec, nil
}
