package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// pragmas applied to every pooled connection through the DSN
var pragmas = []string{
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"busy_timeout(10000)",
	"synchronous(NORMAL)",
}

// Connect opens (and creates) an SQLite database file with production pragmas.
// ":memory:" is supported and pinned to a single connection.
func Connect(ctx context.Context, path string) (*sql.DB, error) {
	memory := path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}

	params := make([]string, 0, len(pragmas))
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	dsn := "file:" + path + "?" + strings.Join(params, "&")

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS patients (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	date       TEXT NOT NULL,
	result     TEXT NOT NULL,
	confidence REAL NOT NULL,
	image      TEXT NOT NULL,
	heatmap    TEXT NOT NULL DEFAULT '',
	report     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_patients_name ON patients(name, id);

CREATE TABLE IF NOT EXISTS scan_failures (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	patient_name TEXT NOT NULL,
	filename     TEXT NOT NULL,
	stage        TEXT NOT NULL,
	message      TEXT NOT NULL,
	details_json TEXT NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_failures_patient ON scan_failures(patient_name, id);
`

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite migrate: %w", err)
	}
	return nil
}
