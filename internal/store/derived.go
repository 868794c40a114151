package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/loglens/loglens/internal/window"
	"github.com/loglens/loglens/pkg/types"
)

const derivedColumns = `id, timestamp_ms, status_code,
	hour_sin, hour_cos, dow_sin, dow_cos,
	endpoint_enc, http_method_enc, geo_location_enc,
	req_resp_ratio, normalized_latency,
	log_request_size, log_response_size, log_response_time`

// InsertDerived appends one derived record and returns its ID. Derived
// records are written exactly once by the watcher and never updated.
func (s *Store) InsertDerived(d *types.DerivedRecord) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO derived_logs (timestamp_ms, status_code,
			hour_sin, hour_cos, dow_sin, dow_cos,
			endpoint_enc, http_method_enc, geo_location_enc,
			req_resp_ratio, normalized_latency,
			log_request_size, log_response_size, log_response_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		toMillis(d.Timestamp), d.StatusCode,
		d.HourSin, d.HourCos, d.DowSin, d.DowCos,
		d.EndpointEnc, d.HTTPMethodEnc, d.GeoLocationEnc,
		d.ReqRespRatio, d.NormalizedLatency,
		d.LogRequestSize, d.LogResponseSize, d.LogResponseTime,
	)
	if err != nil {
		return 0, fmt.Errorf("insert derived log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("derived log insert id: %w", err)
	}
	return id, nil
}

// ListDerived returns one page of derived records, newest first, along with
// the total number of records. Page numbering starts at 1.
func (s *Store) ListDerived(page, limit int) ([]types.DerivedRecord, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM derived_logs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count derived logs: %w", err)
	}

	recs, err := s.queryDerived(`SELECT `+derivedColumns+` FROM derived_logs
		ORDER BY timestamp_ms DESC LIMIT ? OFFSET ?`,
		[]any{limit, (page - 1) * limit})
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// ListDerivedByTimeRange returns derived records with start <= timestamp <= end,
// newest first.
func (s *Store) ListDerivedByTimeRange(start, end time.Time) ([]types.DerivedRecord, error) {
	return s.queryDerived(`SELECT `+derivedColumns+` FROM derived_logs
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms DESC`, []any{toMillis(start), toMillis(end)})
}

// ListDerivedWindow returns derived records inside the clock-relative window
// ending at now, newest first.
func (s *Store) ListDerivedWindow(now time.Time, windowMinutes int) ([]types.DerivedRecord, error) {
	q := `SELECT ` + derivedColumns + ` FROM derived_logs
		WHERE ` + window.DiffSQL("timestamp_ms") + ` <= ?
		ORDER BY timestamp_ms DESC`
	return s.queryDerived(q, []any{window.MinuteOfDay(now), windowMinutes})
}

// CountDerivedWindow counts the records inside the clock-relative window and,
// of those, the ones with status code >= 400. This backs the error-threshold
// alert.
func (s *Store) CountDerivedWindow(now time.Time, windowMinutes int) (total, errors int, err error) {
	q := `SELECT COUNT(*),
	             COALESCE(SUM(CASE WHEN status_code >= 400 THEN 1 ELSE 0 END), 0)
		FROM derived_logs
		WHERE ` + window.DiffSQL("timestamp_ms") + ` <= ?`
	if err := s.db.QueryRow(q, window.MinuteOfDay(now), windowMinutes).Scan(&total, &errors); err != nil {
		return 0, 0, fmt.Errorf("count derived window: %w", err)
	}
	return total, errors, nil
}

// DerivedStats holds the aggregate view over all derived records.
type DerivedStats struct {
	AvgLatency      float64 `json:"avgLatency"`
	AvgReqRespRatio float64 `json:"avgReqRespRatio"`
	AvgResponseTime float64 `json:"avgResponseTime"`
	TotalRequests   int     `json:"totalRequests"`
	SuccessRate     float64 `json:"successRate"`
}

// DerivedStatsAll aggregates averages of the derived features plus the total
// count and success rate.
func (s *Store) DerivedStatsAll() (DerivedStats, error) {
	var st DerivedStats
	err := s.db.QueryRow(`
		SELECT COALESCE(AVG(normalized_latency), 0),
		       COALESCE(AVG(req_resp_ratio), 0),
		       COALESCE(AVG(log_response_time), 0),
		       COUNT(*),
		       COALESCE(AVG(CASE WHEN status_code < 400 THEN 1.0 ELSE 0.0 END), 0)
		FROM derived_logs`).Scan(
		&st.AvgLatency, &st.AvgReqRespRatio, &st.AvgResponseTime,
		&st.TotalRequests, &st.SuccessRate)
	if err != nil {
		return DerivedStats{}, fmt.Errorf("derived stats: %w", err)
	}
	return st, nil
}

func (s *Store) queryDerived(query string, args []any) ([]types.DerivedRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query derived logs: %w", err)
	}
	defer rows.Close()

	out := make([]types.DerivedRecord, 0)
	for rows.Next() {
		d, err := scanDerived(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate derived logs: %w", err)
	}
	return out, nil
}

func scanDerived(rows *sql.Rows) (types.DerivedRecord, error) {
	var d types.DerivedRecord
	var ms int64
	err := rows.Scan(&d.ID, &ms, &d.StatusCode,
		&d.HourSin, &d.HourCos, &d.DowSin, &d.DowCos,
		&d.EndpointEnc, &d.HTTPMethodEnc, &d.GeoLocationEnc,
		&d.ReqRespRatio, &d.NormalizedLatency,
		&d.LogRequestSize, &d.LogResponseSize, &d.LogResponseTime)
	if err != nil {
		return types.DerivedRecord{}, fmt.Errorf("scan derived log: %w", err)
	}
	d.Timestamp = fromMillis(ms)
	return d, nil
}
