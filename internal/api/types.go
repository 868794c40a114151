package api

import (
	"time"

	"github.com/loglens/loglens/pkg/types"
)

// Every endpoint responds with a success flag plus either data or error,
// never both.

// errorResponse is the envelope for all error replies.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// dataResponse wraps a single object reply.
type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// listResponse wraps an unpaged collection reply.
type listResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Data    any  `json:"data"`
}

// pagedResponse wraps a paged collection reply.
type pagedResponse struct {
	Success     bool `json:"success"`
	Count       int  `json:"count"`
	Total       int  `json:"total"`
	Pages       int  `json:"pages"`
	CurrentPage int  `json:"currentPage"`
	Data        any  `json:"data"`
}

// windowResponse wraps a clock-window collection reply. NowUTC pins the
// reference minute the window was computed against.
type windowResponse struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	NowUTC  string `json:"nowUTC"`
	Data    any    `json:"data"`
}

// rawWindowRow is one raw record in a clock-window reply, annotated with a
// display timestamp.
type rawWindowRow struct {
	types.RawLogRecord
	TimestampUTC string `json:"timestampUTC"`
}

// derivedWindowRow is one derived record in a clock-window reply.
type derivedWindowRow struct {
	types.DerivedRecord
	TimestampUTC string `json:"timestampUTC"`
}

// thresholdValue renders a stored threshold, or value null when no row
// exists for the name.
type thresholdValue struct {
	Name      string     `json:"name"`
	Value     *float64   `json:"value"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// thresholdRequest is the POST /parsed-logs/threshold body. Value is a
// pointer so a missing field is distinguishable from zero.
type thresholdRequest struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
}

// errorThresholdResponse is the error-threshold evaluation reply.
type errorThresholdResponse struct {
	Success            bool    `json:"success"`
	WindowMinutes      int     `json:"windowMinutes"`
	Threshold          float64 `json:"threshold"`
	TotalCount         int     `json:"totalCount"`
	ErrorCount         int     `json:"errorCount"`
	ReportedErrorCount int     `json:"reportedErrorCount"`
}

// sqlInjectionResponse is the check-sql-injection reply.
type sqlInjectionResponse struct {
	Success         bool   `json:"success"`
	Input           string `json:"input"`
	HasSQLInjection bool   `json:"hasSqlInjection"`
	Message         string `json:"message"`
}

// healthResponse reports process and storage health.
type healthResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Watcher string `json:"watcher"`
}

// cartResponse is the traffic-simulator reply.
type cartResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	ResponseTime int    `json:"responseTime"`
	LogID        int64  `json:"logId"`
}

// formatUTC renders a timestamp the way window replies display it.
func formatUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05.000") + " UTC"
}
