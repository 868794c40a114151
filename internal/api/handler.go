package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/loglens/loglens/internal/alerts"
	"github.com/loglens/loglens/internal/ingest"
	"github.com/loglens/loglens/internal/security"
	"github.com/loglens/loglens/internal/store"
	"github.com/loglens/loglens/pkg/types"
)

const (
	defaultPageLimit     = 100
	defaultWindowMinutes = 60
)

// ConnState reports the change watcher's connection state for the health
// endpoint. Satisfied by *watcher.Watcher.
type ConnState interface {
	State() string
}

// Handler is the HTTP handler for all /api/* endpoints.
type Handler struct {
	store    *store.Store
	recorder *ingest.Recorder
	eval     *alerts.Evaluator
	watch    ConnState // nil reports "disabled"
	router   *mux.Router
	now      func() time.Time
}

// New creates a Handler wired to the given collaborators and registers all
// routes under /api.
func New(st *store.Store, rec *ingest.Recorder, eval *alerts.Evaluator, watch ConnState) *Handler {
	h := &Handler{
		store:    st,
		recorder: rec,
		eval:     eval,
		watch:    watch,
		router:   mux.NewRouter(),
		now:      time.Now,
	}

	r := h.router.PathPrefix("/api").Subrouter()
	r.Use(Observe)

	r.HandleFunc("/logs", h.createLog).Methods(http.MethodPost)
	r.HandleFunc("/logs", h.listLogs).Methods(http.MethodGet)
	r.HandleFunc("/logs/endpoint/{endpoint}", h.listLogsByEndpoint).Methods(http.MethodGet)
	r.HandleFunc("/logs/daterange", h.listLogsByDateRange).Methods(http.MethodGet)
	r.HandleFunc("/logs/stats", h.logStats).Methods(http.MethodGet)
	r.HandleFunc("/logs/lasthour", h.logsLastHour).Methods(http.MethodGet)

	r.HandleFunc("/cart/normal", h.cartNormal).Methods(http.MethodPost)
	r.HandleFunc("/cart/slow", h.cartSlow).Methods(http.MethodPost)
	r.HandleFunc("/cart/fast", h.cartFast).Methods(http.MethodPost)

	r.HandleFunc("/parsed-logs", h.createParsedLog).Methods(http.MethodPost)
	r.HandleFunc("/parsed-logs", h.listParsedLogs).Methods(http.MethodGet)
	r.HandleFunc("/parsed-logs/stats", h.parsedLogStats).Methods(http.MethodGet)
	r.HandleFunc("/parsed-logs/timerange", h.parsedLogsByTimeRange).Methods(http.MethodGet)
	r.HandleFunc("/parsed-logs/lasthour", h.parsedLogsLastHour).Methods(http.MethodGet)
	r.HandleFunc("/parsed-logs/error-threshold", h.errorThreshold).Methods(http.MethodGet)
	r.HandleFunc("/parsed-logs/threshold", h.setThreshold).Methods(http.MethodPost)
	r.HandleFunc("/parsed-logs/threshold", h.getThreshold).Methods(http.MethodGet)
	r.HandleFunc("/parsed-logs/check-sql-injection", h.checkSQLInjection).Methods(http.MethodGet)

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- raw log handlers -------------------------------------------------------

// createLog handles POST /api/logs — accept one raw request-log record.
func (h *Handler) createLog(w http.ResponseWriter, r *http.Request) {
	var raw types.RawLogRecord
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	stored, err := h.recorder.Record(r.Context(), raw)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusCreated, dataResponse{Success: true, Data: stored})
}

// listLogs handles GET /api/logs — all raw records, newest first.
func (h *Handler) listLogs(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.ListRaw()
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, listResponse{Success: true, Count: len(recs), Data: recs})
}

// listLogsByEndpoint handles GET /api/logs/endpoint/{endpoint}.
func (h *Handler) listLogsByEndpoint(w http.ResponseWriter, r *http.Request) {
	endpoint := mux.Vars(r)["endpoint"]
	recs, err := h.store.ListRawByEndpoint(endpoint)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, listResponse{Success: true, Count: len(recs), Data: recs})
}

// listLogsByDateRange handles GET /api/logs/daterange?startDate=&endDate=.
func (h *Handler) listLogsByDateRange(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	recs, err := h.store.ListRawByTimeRange(start, end)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, listResponse{Success: true, Count: len(recs), Data: recs})
}

// logStats handles GET /api/logs/stats.
func (h *Handler) logStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.RawStatsAll()
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, dataResponse{Success: true, Data: st})
}

// logsLastHour handles GET /api/logs/lasthour?window= — clock-relative
// window over raw records, ignoring calendar dates.
func (h *Handler) logsLastHour(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	windowMinutes := intQuery(r, "window", defaultWindowMinutes)

	recs, err := h.store.ListRawWindow(now, windowMinutes)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	rows := make([]rawWindowRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, rawWindowRow{RawLogRecord: rec, TimestampUTC: formatUTC(rec.Timestamp)})
	}
	jsonResp(w, http.StatusOK, windowResponse{
		Success: true,
		Count:   len(rows),
		NowUTC:  formatUTC(now.UTC().Truncate(time.Minute)),
		Data:    rows,
	})
}

// --- derived log handlers ---------------------------------------------------

// createParsedLog handles POST /api/parsed-logs — store a derived record
// directly, bypassing the watcher pipeline.
func (h *Handler) createParsedLog(w http.ResponseWriter, r *http.Request) {
	var rec types.DerivedRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	id, err := h.store.InsertDerived(&rec)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	rec.ID = id
	jsonResp(w, http.StatusCreated, dataResponse{Success: true, Data: rec})
}

// listParsedLogs handles GET /api/parsed-logs?page=&limit=.
func (h *Handler) listParsedLogs(w http.ResponseWriter, r *http.Request) {
	page := intQuery(r, "page", 1)
	limit := intQuery(r, "limit", defaultPageLimit)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}

	recs, total, err := h.store.ListDerived(page, limit)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, pagedResponse{
		Success:     true,
		Count:       len(recs),
		Total:       total,
		Pages:       int(math.Ceil(float64(total) / float64(limit))),
		CurrentPage: page,
		Data:        recs,
	})
}

// parsedLogStats handles GET /api/parsed-logs/stats.
func (h *Handler) parsedLogStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.DerivedStatsAll()
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, dataResponse{Success: true, Data: st})
}

// parsedLogsByTimeRange handles GET /api/parsed-logs/timerange?startDate=&endDate=.
func (h *Handler) parsedLogsByTimeRange(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	recs, err := h.store.ListDerivedByTimeRange(start, end)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, listResponse{Success: true, Count: len(recs), Data: recs})
}

// parsedLogsLastHour handles GET /api/parsed-logs/lasthour?window=.
func (h *Handler) parsedLogsLastHour(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	windowMinutes := intQuery(r, "window", defaultWindowMinutes)

	recs, err := h.store.ListDerivedWindow(now, windowMinutes)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	rows := make([]derivedWindowRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, derivedWindowRow{DerivedRecord: rec, TimestampUTC: formatUTC(rec.Timestamp)})
	}
	jsonResp(w, http.StatusOK, windowResponse{
		Success: true,
		Count:   len(rows),
		NowUTC:  formatUTC(now.UTC().Truncate(time.Minute)),
		Data:    rows,
	})
}

// errorThreshold handles GET /api/parsed-logs/error-threshold?window=&threshold=.
// The error count is surfaced only when it strictly exceeds the active
// threshold; equality stays silent.
func (h *Handler) errorThreshold(w http.ResponseWriter, r *http.Request) {
	windowMinutes := intQuery(r, "window", defaultWindowMinutes)

	var explicit *float64
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			jsonErr(w, http.StatusBadRequest, "threshold must be a number")
			return
		}
		explicit = &v
	}

	rep, err := h.eval.Evaluate(windowMinutes, explicit)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, errorThresholdResponse{
		Success:            true,
		WindowMinutes:      rep.WindowMinutes,
		Threshold:          rep.Threshold,
		TotalCount:         rep.TotalCount,
		ErrorCount:         rep.ErrorCount,
		ReportedErrorCount: rep.ReportedErrorCount,
	})
}

// setThreshold handles POST /api/parsed-logs/threshold {name?, value}.
func (h *Handler) setThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == nil {
		jsonErr(w, http.StatusBadRequest, "value must be a number")
		return
	}
	if req.Name == "" {
		req.Name = alerts.DefaultName
	}

	t, err := h.store.SetThreshold(req.Name, *req.Value)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, dataResponse{Success: true, Data: t})
}

// getThreshold handles GET /api/parsed-logs/threshold?name=. A missing row
// answers with value null rather than 404.
func (h *Handler) getThreshold(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = alerts.DefaultName
	}

	t, found, err := h.store.GetThreshold(name)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if !found {
		jsonResp(w, http.StatusOK, dataResponse{Success: true, Data: thresholdValue{Name: name}})
		return
	}
	jsonResp(w, http.StatusOK, dataResponse{Success: true, Data: thresholdValue{
		Name:      t.Name,
		Value:     &t.Value,
		UpdatedAt: &t.UpdatedAt,
	}})
}

// checkSQLInjection handles GET /api/parsed-logs/check-sql-injection?query=.
func (h *Handler) checkSQLInjection(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		jsonErr(w, http.StatusBadRequest, "Query parameter is required")
		return
	}

	flagged := security.IsSQLInjection(query)
	msg := "No SQL injection detected"
	if flagged {
		msg = "SQL injection attempt detected"
	}
	jsonResp(w, http.StatusOK, sqlInjectionResponse{
		Success:         true,
		Input:           query,
		HasSQLInjection: flagged,
		Message:         msg,
	})
}

// health handles GET /api/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Success: true, Status: "ok", Storage: "ok", Watcher: "disabled"}
	if err := h.store.Ping(); err != nil {
		resp.Status = "degraded"
		resp.Storage = err.Error()
	}
	if h.watch != nil {
		resp.Watcher = h.watch.State()
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	jsonResp(w, code, resp)
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// intQuery reads an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func intQuery(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// parseDateRange reads startDate and endDate query parameters, accepting
// RFC3339 timestamps or bare dates (2006-01-02).
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	start, err := parseDate(r.URL.Query().Get("startDate"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate(r.URL.Query().Get("endDate"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}
