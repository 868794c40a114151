package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/loglens/loglens/pkg/types"
)

// DefaultTimeout bounds one scoring call so a hung endpoint never blocks the
// watcher's event loop or piles up outbound connections.
const DefaultTimeout = 10 * time.Second

// Client calls the external anomaly-scoring endpoint.
type Client struct {
	predictURL string
	client     *http.Client
}

// New creates a Client for the scoring service at baseURL. A zero timeout
// falls back to DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		predictURL: strings.TrimSuffix(baseURL, "/") + "/predict",
		client:     &http.Client{Timeout: timeout},
	}
}

// featurePayload is the subset of a derived record sent for scoring: the 12
// derived floats plus the status code.
type featurePayload struct {
	HourSin           float64 `json:"hour_sin"`
	HourCos           float64 `json:"hour_cos"`
	DowSin            float64 `json:"dow_sin"`
	DowCos            float64 `json:"dow_cos"`
	EndpointEnc       int     `json:"endpoint_enc"`
	HTTPMethodEnc     int     `json:"http_method_enc"`
	GeoLocationEnc    int     `json:"geo_location_enc"`
	ReqRespRatio      float64 `json:"req_resp_ratio"`
	NormalizedLatency float64 `json:"normalized_latency"`
	LogRequestSize    float64 `json:"log_request_size"`
	LogResponseSize   float64 `json:"log_response_size"`
	LogResponseTime   float64 `json:"log_response_time"`
	StatusCode        int     `json:"status_code"`
}

// Score posts the record's feature vector to POST /predict and returns the
// endpoint's judgment. A non-2xx response or timeout is an error; callers
// treat any error as a forwarding failure, never as a pipeline fault.
func (c *Client) Score(ctx context.Context, rec types.DerivedRecord) (*types.Prediction, error) {
	body, err := json.Marshal(map[string]featurePayload{"data": {
		HourSin:           rec.HourSin,
		HourCos:           rec.HourCos,
		DowSin:            rec.DowSin,
		DowCos:            rec.DowCos,
		EndpointEnc:       rec.EndpointEnc,
		HTTPMethodEnc:     rec.HTTPMethodEnc,
		GeoLocationEnc:    rec.GeoLocationEnc,
		ReqRespRatio:      rec.ReqRespRatio,
		NormalizedLatency: rec.NormalizedLatency,
		LogRequestSize:    rec.LogRequestSize,
		LogResponseSize:   rec.LogResponseSize,
		LogResponseTime:   rec.LogResponseTime,
		StatusCode:        rec.StatusCode,
	}})
	if err != nil {
		return nil, fmt.Errorf("scoring: marshal features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.predictURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("scoring: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scoring: post %s: %w", c.predictURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("scoring: endpoint returned HTTP %d", resp.StatusCode)
	}

	var pred types.Prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, fmt.Errorf("scoring: decode response: %w", err)
	}
	return &pred, nil
}
