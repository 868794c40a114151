package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/loglens/loglens/internal/window"
	"github.com/loglens/loglens/pkg/types"
)

const rawColumns = `id, timestamp_ms, endpoint, http_method, status_code,
	response_time_ms, request_size_bytes, response_size_bytes,
	service_name, client_ip, geo_location, region, user_agent, host_platform, message`

// InsertRaw appends one raw log record and returns its ID.
func (s *Store) InsertRaw(r *types.RawLogRecord) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO raw_logs (timestamp_ms, endpoint, http_method, status_code,
			response_time_ms, request_size_bytes, response_size_bytes,
			service_name, client_ip, geo_location, region, user_agent, host_platform, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		toMillis(r.Timestamp), r.Endpoint, r.HTTPMethod, r.StatusCode,
		r.ResponseTimeMs, r.RequestSizeBytes, r.ResponseSizeBytes,
		r.ServiceName, r.ClientIP, r.GeoLocation, r.Region, r.UserAgent, r.HostPlatform, r.Message,
	)
	if err != nil {
		return 0, fmt.Errorf("insert raw log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("raw log insert id: %w", err)
	}
	return id, nil
}

// ListRaw returns all raw records, newest first.
func (s *Store) ListRaw() ([]types.RawLogRecord, error) {
	return s.queryRaw(`SELECT `+rawColumns+` FROM raw_logs ORDER BY timestamp_ms DESC`, nil)
}

// ListRawByEndpoint returns the raw records for one endpoint, newest first.
func (s *Store) ListRawByEndpoint(endpoint string) ([]types.RawLogRecord, error) {
	return s.queryRaw(`SELECT `+rawColumns+` FROM raw_logs
		WHERE endpoint = ? ORDER BY timestamp_ms DESC`, []any{endpoint})
}

// ListRawByTimeRange returns raw records with start <= timestamp <= end,
// newest first. This is a true elapsed-time filter, unlike ListRawWindow.
func (s *Store) ListRawByTimeRange(start, end time.Time) ([]types.RawLogRecord, error) {
	return s.queryRaw(`SELECT `+rawColumns+` FROM raw_logs
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms DESC`, []any{toMillis(start), toMillis(end)})
}

// ListRawWindow returns raw records inside the clock-relative window ending
// at now, newest first. Calendar dates are ignored (see package window).
func (s *Store) ListRawWindow(now time.Time, windowMinutes int) ([]types.RawLogRecord, error) {
	q := `SELECT ` + rawColumns + ` FROM raw_logs
		WHERE ` + window.DiffSQL("timestamp_ms") + ` <= ?
		ORDER BY timestamp_ms DESC`
	return s.queryRaw(q, []any{window.MinuteOfDay(now), windowMinutes})
}

// RawStats holds the aggregate view over all raw records.
type RawStats struct {
	AvgResponseTime float64 `json:"avgResponseTime"`
	TotalRequests   int     `json:"totalRequests"`
	SuccessRate     float64 `json:"successRate"`
}

// RawStatsAll aggregates average response time, total count, and the share of
// records with status below 400.
func (s *Store) RawStatsAll() (RawStats, error) {
	var st RawStats
	err := s.db.QueryRow(`
		SELECT COALESCE(AVG(response_time_ms), 0),
		       COUNT(*),
		       COALESCE(AVG(CASE WHEN status_code < 400 THEN 1.0 ELSE 0.0 END), 0)
		FROM raw_logs`).Scan(&st.AvgResponseTime, &st.TotalRequests, &st.SuccessRate)
	if err != nil {
		return RawStats{}, fmt.Errorf("raw stats: %w", err)
	}
	return st, nil
}

func (s *Store) queryRaw(query string, args []any) ([]types.RawLogRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query raw logs: %w", err)
	}
	defer rows.Close()

	out := make([]types.RawLogRecord, 0)
	for rows.Next() {
		r, err := scanRaw(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw logs: %w", err)
	}
	return out, nil
}

func scanRaw(rows *sql.Rows) (types.RawLogRecord, error) {
	var r types.RawLogRecord
	var ms int64
	err := rows.Scan(&r.ID, &ms, &r.Endpoint, &r.HTTPMethod, &r.StatusCode,
		&r.ResponseTimeMs, &r.RequestSizeBytes, &r.ResponseSizeBytes,
		&r.ServiceName, &r.ClientIP, &r.GeoLocation, &r.Region, &r.UserAgent,
		&r.HostPlatform, &r.Message)
	if err != nil {
		return types.RawLogRecord{}, fmt.Errorf("scan raw log: %w", err)
	}
	r.Timestamp = fromMillis(ms)
	return r, nil
}
