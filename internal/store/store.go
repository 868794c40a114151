package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Schema for the loglens record store. Timestamps are Unix milliseconds, UTC.
const schema = `
CREATE TABLE IF NOT EXISTS raw_logs (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp_ms        INTEGER NOT NULL,
    endpoint            TEXT NOT NULL,
    http_method         TEXT NOT NULL,
    status_code         INTEGER NOT NULL,
    response_time_ms    REAL NOT NULL DEFAULT 0,
    request_size_bytes  REAL NOT NULL DEFAULT 0,
    response_size_bytes REAL NOT NULL DEFAULT 0,
    service_name        TEXT NOT NULL DEFAULT '',
    client_ip           TEXT NOT NULL DEFAULT '',
    geo_location        TEXT NOT NULL DEFAULT '',
    region              TEXT NOT NULL DEFAULT '',
    user_agent          TEXT NOT NULL DEFAULT '',
    host_platform       TEXT NOT NULL DEFAULT '',
    message             TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_raw_logs_timestamp ON raw_logs(timestamp_ms);
CREATE INDEX IF NOT EXISTS idx_raw_logs_endpoint  ON raw_logs(endpoint, timestamp_ms);

CREATE TABLE IF NOT EXISTS derived_logs (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp_ms        INTEGER NOT NULL,
    status_code         INTEGER NOT NULL,
    hour_sin            REAL NOT NULL,
    hour_cos            REAL NOT NULL,
    dow_sin             REAL NOT NULL,
    dow_cos             REAL NOT NULL,
    endpoint_enc        INTEGER NOT NULL,
    http_method_enc     INTEGER NOT NULL,
    geo_location_enc    INTEGER NOT NULL,
    req_resp_ratio      REAL NOT NULL,
    normalized_latency  REAL NOT NULL,
    log_request_size    REAL NOT NULL,
    log_response_size   REAL NOT NULL,
    log_response_time   REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_derived_logs_timestamp ON derived_logs(timestamp_ms);

CREATE TABLE IF NOT EXISTS thresholds (
    name          TEXT PRIMARY KEY,
    value         REAL NOT NULL,
    updated_at_ms INTEGER NOT NULL
);
`

// Store is the SQLite-backed record store shared by the ingestion pipeline
// and the query API. Raw and derived records are append-only; thresholds are
// upserted in place.
type Store struct {
	db  *sql.DB
	now func() time.Time // injectable for deterministic tests
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping verifies the database is reachable, for health checks.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// toMillis converts a time to the stored Unix-millisecond representation.
func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

// fromMillis converts a stored Unix-millisecond value back to UTC time.
func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
