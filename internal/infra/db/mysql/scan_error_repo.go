package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/lungscan/internal/domain/scanerrors"
)

type ScanErrorRepository struct {
	db *sql.DB
}

func NewScanErrorRepository(db *sql.DB) *ScanErrorRepository { return &ScanErrorRepository{db: db} }

func (r *ScanErrorRepository) Save(ctx context.Context, e *domain.ScanError) error {
	const q = `
INSERT INTO scan_failures
  (patient_name, filename, stage, message, details_json, created_at)
VALUES (?,?,?,?,?,?)
`
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		stringOrDash(e.PatientName), stringOrDash(e.Filename), stringOrDash(e.Stage),
		stringOrDash(e.Message), jsonOrWrapped(e.DetailsJSON), created.UTC(),
	)
	return err
}

func (r *ScanErrorRepository) ListByPatient(ctx context.Context, name string, limit int) ([]*domain.ScanError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, patient_name, filename, stage, message, details_json, created_at
FROM scan_failures
WHERE patient_name = ?
ORDER BY id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.ScanError
	for rows.Next() {
		var e domain.ScanError
		if err := rows.Scan(&e.ID, &e.PatientName, &e.Filename, &e.Stage, &e.Message, &e.DetailsJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
