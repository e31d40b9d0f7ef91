package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/bryanwahyu/lungscan/internal/domain/scans"
)

type PatientRepository struct{ db *sql.DB }

func NewPatientRepository(db *sql.DB) *PatientRepository { return &PatientRepository{db: db} }

// Append insert record; lib/pq has no LastInsertId so the id comes from RETURNING
func (r *PatientRepository) Append(ctx context.Context, rec *domain.PatientRecord) (*domain.PatientRecord, error) {
	const q = `
INSERT INTO patients (name, date, result, confidence, image, heatmap, report)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id;`
	ts := domain.StoredTime(rec.Timestamp)
	var id int64
	if err := r.db.QueryRowContext(ctx, q,
		rec.Name, ts, string(rec.Result), rec.Confidence,
		rec.ImageRef, rec.HeatmapRef, rec.ReportSummary,
	).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert patient: %w", err)
	}
	out := *rec
	out.ID = domain.RecordID(id)
	out.Timestamp = ts
	return &out, nil
}

func (r *PatientRepository) QueryByName(ctx context.Context, name string) ([]domain.HistoryEntry, error) {
	const q = `SELECT date, result FROM patients WHERE name=$1 ORDER BY id ASC;`
	rows, err := r.db.QueryContext(ctx, q, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.HistoryEntry{}
	for rows.Next() {
		var h domain.HistoryEntry
		if err := rows.Scan(&h.Timestamp, &h.Label); err != nil {
			return nil, err
		}
		h.Timestamp = h.Timestamp.UTC()
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *PatientRepository) ListAll(ctx context.Context) ([]*domain.PatientRecord, error) {
	const q = `
SELECT id, name, date, result, confidence, image, heatmap, report
FROM patients ORDER BY id ASC;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.PatientRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PatientRepository) Get(ctx context.Context, id domain.RecordID) (*domain.PatientRecord, error) {
	const q = `
SELECT id, name, date, result, confidence, image, heatmap, report
FROM patients WHERE id=$1 LIMIT 1;`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", domain.ErrNotFound, id)
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*domain.PatientRecord, error) {
	var rec domain.PatientRecord
	if err := s.Scan(&rec.ID, &rec.Name, &rec.Timestamp, &rec.Result, &rec.Confidence,
		&rec.ImageRef, &rec.HeatmapRef, &rec.ReportSummary); err != nil {
		return nil, err
	}
	rec.Timestamp = rec.Timestamp.UTC()
	return &rec, nil
}
