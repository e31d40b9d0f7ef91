package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Connect opens a pool from a DSN. parseTime and UTC location are forced so
// DATETIME columns round-trip as time.Time.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
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
  id         BIGINT AUTO_INCREMENT PRIMARY KEY,
  name       VARCHAR(255) NOT NULL,
  date       DATETIME NOT NULL,
  result     VARCHAR(32) NOT NULL,
  confidence DOUBLE NOT NULL,
  image      VARCHAR(512) NOT NULL,
  heatmap    VARCHAR(512) NOT NULL DEFAULT '',
  report     TEXT NOT NULL,
  INDEX idx_patients_name (name, id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS scan_failures (
  id           BIGINT AUTO_INCREMENT PRIMARY KEY,
  patient_name VARCHAR(255) NOT NULL,
  filename     VARCHAR(512) NOT NULL,
  stage        VARCHAR(32) NOT NULL,
  message      TEXT NOT NULL,
  details_json JSON NOT NULL,
  created_at   DATETIME(3) NOT NULL,
  INDEX idx_scan_failures_patient (patient_name, id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
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
