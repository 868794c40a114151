package encode

import (
	"math"
	"time"

	"github.com/loglens/loglens/pkg/types"
)

// CodeUnknown is the sentinel for categories absent from the lookup tables.
// It never collides with a valid code: all table codes are >= 0.
const CodeUnknown = -1

// Sentinels substituted for missing categorical fields before lookup.
const (
	missingEndpoint = "N/A"
	missingMethod   = "N/A"
	missingGeo      = "nan"
)

// Closed, versioned lookup tables. New categories are appended with the next
// free code; existing codes must never be renumbered, since persisted records
// reference them.
var (
	// EndpointCodes, version 1.
	EndpointCodes = map[string]int{
		"/cart":     0,
		"/checkout": 1,
		"/order":    2,
		"/products": 3,
		"/search":   4,
	}

	// MethodCodes, version 1.
	MethodCodes = map[string]int{
		"GET":  0,
		"POST": 1,
	}

	// GeoCodes, version 1. "nan" is a real category here: records without a
	// geolocation encode to it rather than to CodeUnknown.
	GeoCodes = map[string]int{
		"DE":  0,
		"IN":  1,
		"US":  2,
		"nan": 3,
	}
)

// Encode derives the feature vector for one raw log record. It is total:
// missing numeric fields are treated as 0, missing categorical fields fall
// back to their sentinels, and a zero timestamp falls back to fallback
// (the watcher's observation time). It never fails and has no side effects.
//
// All time-of-day math is in UTC, the same zone the window matcher queries
// in. Day-of-week 0 is Sunday.
func Encode(raw types.RawLogRecord, fallback time.Time) types.DerivedRecord {
	ts := raw.Timestamp
	if ts.IsZero() {
		ts = fallback
	}
	ts = ts.UTC()

	hour := float64(ts.Hour())
	dow := float64(ts.Weekday())

	respTime := nonNegative(raw.ResponseTimeMs)
	reqSize := nonNegative(raw.RequestSizeBytes)
	respSize := nonNegative(raw.ResponseSizeBytes)

	return types.DerivedRecord{
		Timestamp:  ts,
		StatusCode: raw.StatusCode,

		HourSin: math.Sin(2 * math.Pi * hour / 24),
		HourCos: math.Cos(2 * math.Pi * hour / 24),
		DowSin:  math.Sin(2 * math.Pi * dow / 7),
		DowCos:  math.Cos(2 * math.Pi * dow / 7),

		EndpointEnc:    lookup(EndpointCodes, raw.Endpoint, missingEndpoint),
		HTTPMethodEnc:  lookup(MethodCodes, raw.HTTPMethod, missingMethod),
		GeoLocationEnc: lookup(GeoCodes, raw.GeoLocation, missingGeo),

		ReqRespRatio:      respSize / (reqSize + 1),
		NormalizedLatency: respTime / (respSize + 1),

		LogRequestSize:  math.Log1p(reqSize),
		LogResponseSize: math.Log1p(respSize),
		LogResponseTime: math.Log1p(respTime),
	}
}

// lookup resolves a category to its code, substituting the missing-value
// sentinel for empty input. Anything outside the table encodes to CodeUnknown.
func lookup(table map[string]int, value, missing string) int {
	if value == "" {
		value = missing
	}
	if code, ok := table[value]; ok {
		return code
	}
	return CodeUnknown
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
