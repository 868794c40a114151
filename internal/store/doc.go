// Package store provides the SQLite-backed persistence for raw log records,
// derived feature records, and named thresholds. Raw and derived records are
// append-only; thresholds are single-row-per-name upserts. Timestamps are
// stored as Unix milliseconds in UTC, which lets the clock-relative window
// queries run as plain modular arithmetic in SQL.
package store
