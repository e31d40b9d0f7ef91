package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/bryanwahyu/lungscan/internal/domain/scans"
)

type PatientRepository struct {
	db *sql.DB
	// single writer: SQLite serializes writes anyway, this avoids busy retries
	writeMu sync.Mutex
}

func NewPatientRepository(db *sql.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

// Append inserts a record and returns it with the assigned id.
func (r *PatientRepository) Append(ctx context.Context, rec *domain.PatientRecord) (*domain.PatientRecord, error) {
	const q = `
INSERT INTO patients (name, date, result, confidence, image, heatmap, report)
VALUES (?,?,?,?,?,?,?)`

	ts := domain.StoredTime(rec.Timestamp)

	r.writeMu.Lock()
	res, err := r.db.ExecContext(ctx, q,
		rec.Name, ts.Format(time.RFC3339Nano), string(rec.Result), rec.Confidence,
		rec.ImageRef, rec.HeatmapRef, rec.ReportSummary,
	)
	r.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("insert patient: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	out := *rec
	out.ID = domain.RecordID(id)
	out.Timestamp = ts
	return &out, nil
}

// QueryByName returns (date, result) pairs in insertion order.
func (r *PatientRepository) QueryByName(ctx context.Context, name string) ([]domain.HistoryEntry, error) {
	const q = `SELECT date, result FROM patients WHERE name = ? ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, q, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.HistoryEntry{}
	for rows.Next() {
		var date, result string
		if err := rows.Scan(&date, &result); err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339Nano, date)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", date, err)
		}
		out = append(out, domain.HistoryEntry{Timestamp: ts, Label: domain.Label(result)})
	}
	return out, rows.Err()
}

func (r *PatientRepository) ListAll(ctx context.Context) ([]*domain.PatientRecord, error) {
	const q = `
SELECT id, name, date, result, confidence, image, heatmap, report
FROM patients ORDER BY id ASC`
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
FROM patients WHERE id = ? LIMIT 1`
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
	var date string
	if err := s.Scan(&rec.ID, &rec.Name, &date, &rec.Result, &rec.Confidence,
		&rec.ImageRef, &rec.HeatmapRef, &rec.ReportSummary); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, date)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", date, err)
	}
	rec.Timestamp = ts
	return &rec, nil
}
