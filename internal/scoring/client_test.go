package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/loglens/loglens/pkg/types"
)

func testRecord() types.DerivedRecord {
	return types.DerivedRecord{
		Timestamp:         time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
		StatusCode:        200,
		HourSin:           0.5,
		HourCos:           -0.8,
		EndpointEnc:       0,
		HTTPMethodEnc:     1,
		GeoLocationEnc:    2,
		ReqRespRatio:      4.95,
		NormalizedLatency: 0.49,
		LogRequestSize:    4.6,
		LogResponseSize:   6.2,
		LogResponseTime:   5.5,
	}
}

func TestScore_SendsFeatureEnvelope(t *testing.T) {
	var gotPath string
	var gotBody map[string]map[string]float64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"reconstruction_error": 0.042,
			"is_anomaly":           true,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	pred, err := c.Score(context.Background(), testRecord())
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if gotPath != "/predict" {
		t.Errorf("path: got %q, want /predict", gotPath)
	}
	data, ok := gotBody["data"]
	if !ok {
		t.Fatalf("request body missing data envelope: %v", gotBody)
	}
	if len(data) != 13 {
		t.Errorf("feature count: got %d, want 13", len(data))
	}
	if data["http_method_enc"] != 1 {
		t.Errorf("http_method_enc: got %v, want 1", data["http_method_enc"])
	}
	if data["status_code"] != 200 {
		t.Errorf("status_code: got %v, want 200", data["status_code"])
	}

	if pred.ReconstructionError != 0.042 || !pred.IsAnomaly {
		t.Errorf("prediction: got %+v", pred)
	}
}

func TestScore_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model offline", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	if _, err := c.Score(context.Background(), testRecord()); err == nil {
		t.Fatal("Score against HTTP 500: expected error, got nil")
	}
}

func TestScore_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := New(srv.URL, 30*time.Millisecond)
	start := time.Now()
	if _, err := c.Score(context.Background(), testRecord()); err == nil {
		t.Fatal("Score against hung endpoint: expected error, got nil")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Score did not respect timeout: took %v", elapsed)
	}
}
