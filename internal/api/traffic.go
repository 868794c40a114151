package api

import (
	"math/rand"
	"net/http"
	"time"

	"github.com/loglens/loglens/pkg/types"
)

// trafficProfile describes one simulated cart service tier. Response times
// are drawn uniformly from [minDelayMs, maxDelayMs]; the payload sizes are
// fixed per tier so the derived features separate cleanly.
type trafficProfile struct {
	service       string
	message       string
	minDelayMs    int
	maxDelayMs    int
	requestBytes  float64
	responseBytes float64
}

var (
	profileNormal = trafficProfile{
		service:       "normal",
		message:       "Cart service processed successfully",
		minDelayMs:    200,
		maxDelayMs:    300,
		requestBytes:  10172,
		responseBytes: 25541,
	}
	profileSlow = trafficProfile{
		service:       "slow",
		message:       "Cart service processed (slow)",
		minDelayMs:    800,
		maxDelayMs:    1000,
		requestBytes:  700,
		responseBytes: 100,
	}
	profileFast = trafficProfile{
		service:       "fast",
		message:       "Cart service processed (fast)",
		minDelayMs:    0,
		maxDelayMs:    99,
		requestBytes:  256000,
		responseBytes: 512,
	}
)

var trafficGeos = []string{"US", "IN", "DE"}

// cartNormal handles POST /api/cart/normal.
func (h *Handler) cartNormal(w http.ResponseWriter, r *http.Request) {
	h.simulateCart(w, r, profileNormal)
}

// cartSlow handles POST /api/cart/slow.
func (h *Handler) cartSlow(w http.ResponseWriter, r *http.Request) {
	h.simulateCart(w, r, profileSlow)
}

// cartFast handles POST /api/cart/fast.
func (h *Handler) cartFast(w http.ResponseWriter, r *http.Request) {
	h.simulateCart(w, r, profileFast)
}

// simulateCart sleeps for the profile's drawn response time, records a raw
// log shaped like real cart traffic, and reports the drawn latency back.
func (h *Handler) simulateCart(w http.ResponseWriter, r *http.Request, p trafficProfile) {
	responseTime := p.minDelayMs
	if span := p.maxDelayMs - p.minDelayMs; span > 0 {
		responseTime += rand.Intn(span + 1)
	}
	time.Sleep(time.Duration(responseTime) * time.Millisecond)

	raw := types.RawLogRecord{
		Timestamp:         h.now().UTC(),
		Endpoint:          "/cart",
		HTTPMethod:        "POST",
		StatusCode:        200,
		ResponseTimeMs:    float64(responseTime),
		RequestSizeBytes:  p.requestBytes,
		ResponseSizeBytes: p.responseBytes,
		ServiceName:       p.service,
		ClientIP:          r.RemoteAddr,
		GeoLocation:       trafficGeos[rand.Intn(len(trafficGeos))],
	}

	stored, err := h.recorder.Record(r.Context(), raw)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, cartResponse{
		Success:      true,
		Message:      p.message,
		ResponseTime: responseTime,
		LogID:        stored.ID,
	})
}
