package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS patients (
  id         BIGSERIAL PRIMARY KEY,
  name       TEXT NOT NULL,
  date       TIMESTAMPTZ NOT NULL,
  result     TEXT NOT NULL,
  confidence DOUBLE PRECISION NOT NULL,
  image      TEXT NOT NULL,
  heatmap    TEXT NOT NULL DEFAULT '',
  report     TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_patients_name ON patients (name, id)`,
	`CREATE TABLE IF NOT EXISTS scan_failures (
  id           BIGSERIAL PRIMARY KEY,
  patient_name TEXT NOT NULL,
  filename     TEXT NOT NULL,
  stage        TEXT NOT NULL,
  message      TEXT NOT NULL,
  details_json JSONB NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_failures_patient ON scan_failures (patient_name, id)`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
