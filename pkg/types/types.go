package types

import "time"

// RawLogRecord is one observation of a serviced request, as written by a
// log producer. Records are immutable once stored.
type RawLogRecord struct {
	ID                int64     `json:"id,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	Endpoint          string    `json:"endpoint"`
	HTTPMethod        string    `json:"http_method"`
	StatusCode        int       `json:"status_code"`
	ResponseTimeMs    float64   `json:"response_time_ms"`
	RequestSizeBytes  float64   `json:"request_size_bytes"`
	ResponseSizeBytes float64   `json:"response_size_bytes"`
	ServiceName       string    `json:"service_name,omitempty"`
	ClientIP          string    `json:"client_ip,omitempty"`
	GeoLocation       string    `json:"geo_location,omitempty"`
	Region            string    `json:"region,omitempty"`
	UserAgent         string    `json:"user_agent,omitempty"`
	HostPlatform      string    `json:"host_platform,omitempty"`
	Message           string    `json:"message,omitempty"`
}

// DerivedRecord is the fixed-width numeric feature vector computed from one
// RawLogRecord. It is created exactly once by the change watcher and never
// mutated afterwards. Every field is numeric and finite.
type DerivedRecord struct {
	ID        int64     `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	StatusCode int `json:"status_code"`

	// Cyclical encodings of hour-of-day (period 24) and day-of-week
	// (period 7, day 0 = Sunday), each in [-1, 1].
	HourSin float64 `json:"hour_sin"`
	HourCos float64 `json:"hour_cos"`
	DowSin  float64 `json:"dow_sin"`
	DowCos  float64 `json:"dow_cos"`

	// Integer category codes from the closed lookup tables in
	// internal/encode. Unknown categories encode to -1.
	EndpointEnc    int `json:"endpoint_enc"`
	HTTPMethodEnc  int `json:"http_method_enc"`
	GeoLocationEnc int `json:"geo_location_enc"`

	// Size/latency ratios. The +1 denominators keep both finite for all
	// non-negative inputs without branching.
	ReqRespRatio      float64 `json:"req_resp_ratio"`
	NormalizedLatency float64 `json:"normalized_latency"`

	// log(1+x) transforms of the raw magnitudes.
	LogRequestSize  float64 `json:"log_request_size"`
	LogResponseSize float64 `json:"log_response_size"`
	LogResponseTime float64 `json:"log_response_time"`
}

// Threshold is a named, persisted numeric cutoff. One row per name,
// upserted in place, never deleted.
type Threshold struct {
	Name      string    `json:"name"`
	Value     float64   `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Prediction is the anomaly judgment returned by the scoring endpoint.
type Prediction struct {
	ReconstructionError float64 `json:"reconstruction_error"`
	IsAnomaly           bool    `json:"is_anomaly"`
}
