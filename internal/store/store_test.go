package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/loglens/loglens/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "loglens.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func rawAt(ts time.Time, endpoint string, status int) *types.RawLogRecord {
	return &types.RawLogRecord{
		Timestamp:         ts,
		Endpoint:          endpoint,
		HTTPMethod:        "POST",
		StatusCode:        status,
		ResponseTimeMs:    250,
		RequestSizeBytes:  100,
		ResponseSizeBytes: 500,
		ServiceName:       "normal",
	}
}

func derivedAt(ts time.Time, status int) *types.DerivedRecord {
	return &types.DerivedRecord{
		Timestamp:         ts,
		StatusCode:        status,
		HourSin:           0.5,
		HourCos:           0.8,
		DowSin:            0.1,
		DowCos:            0.9,
		EndpointEnc:       0,
		HTTPMethodEnc:     1,
		GeoLocationEnc:    2,
		ReqRespRatio:      4.95,
		NormalizedLatency: 0.5,
		LogRequestSize:    4.6,
		LogResponseSize:   6.2,
		LogResponseTime:   5.5,
	}
}

var base = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

// --- raw records ------------------------------------------------------------

func TestInsertAndListRaw(t *testing.T) {
	s := openTestStore(t)

	id1, err := s.InsertRaw(rawAt(base.Add(-2*time.Minute), "/cart", 200))
	if err != nil {
		t.Fatalf("InsertRaw: %v", err)
	}
	id2, err := s.InsertRaw(rawAt(base.Add(-1*time.Minute), "/search", 500))
	if err != nil {
		t.Fatalf("InsertRaw: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("insert ids not unique: %d", id1)
	}

	recs, err := s.ListRaw()
	if err != nil {
		t.Fatalf("ListRaw: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("ListRaw: got %d records, want 2", len(recs))
	}
	// Newest first.
	if recs[0].Endpoint != "/search" || recs[1].Endpoint != "/cart" {
		t.Errorf("ListRaw order: got %q, %q", recs[0].Endpoint, recs[1].Endpoint)
	}
	if !recs[1].Timestamp.Equal(base.Add(-2 * time.Minute)) {
		t.Errorf("round-tripped timestamp: got %v", recs[1].Timestamp)
	}
}

func TestListRawByEndpoint(t *testing.T) {
	s := openTestStore(t)
	s.InsertRaw(rawAt(base, "/cart", 200))
	s.InsertRaw(rawAt(base, "/search", 200))
	s.InsertRaw(rawAt(base, "/cart", 404))

	recs, err := s.ListRawByEndpoint("/cart")
	if err != nil {
		t.Fatalf("ListRawByEndpoint: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("got %d records, want 2", len(recs))
	}
}

func TestListRawByTimeRange(t *testing.T) {
	s := openTestStore(t)
	s.InsertRaw(rawAt(base.Add(-2*time.Hour), "/cart", 200))
	s.InsertRaw(rawAt(base.Add(-30*time.Minute), "/cart", 200))
	s.InsertRaw(rawAt(base, "/cart", 200))

	recs, err := s.ListRawByTimeRange(base.Add(-time.Hour), base.Add(-time.Minute))
	if err != nil {
		t.Fatalf("ListRawByTimeRange: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
}

func TestRawStats(t *testing.T) {
	s := openTestStore(t)

	empty, err := s.RawStatsAll()
	if err != nil {
		t.Fatalf("RawStatsAll on empty store: %v", err)
	}
	if empty.TotalRequests != 0 || empty.SuccessRate != 0 {
		t.Errorf("empty stats: got %+v", empty)
	}

	s.InsertRaw(rawAt(base, "/cart", 200))
	s.InsertRaw(rawAt(base, "/cart", 200))
	s.InsertRaw(rawAt(base, "/cart", 500))
	s.InsertRaw(rawAt(base, "/cart", 404))

	st, err := s.RawStatsAll()
	if err != nil {
		t.Fatalf("RawStatsAll: %v", err)
	}
	if st.TotalRequests != 4 {
		t.Errorf("TotalRequests: got %d, want 4", st.TotalRequests)
	}
	if st.SuccessRate != 0.5 {
		t.Errorf("SuccessRate: got %v, want 0.5", st.SuccessRate)
	}
	if st.AvgResponseTime != 250 {
		t.Errorf("AvgResponseTime: got %v, want 250", st.AvgResponseTime)
	}
}

// --- derived records --------------------------------------------------------

func TestInsertDerived_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	in := derivedAt(base, 200)
	if _, err := s.InsertDerived(in); err != nil {
		t.Fatalf("InsertDerived: %v", err)
	}

	recs, total, err := s.ListDerived(1, 10)
	if err != nil {
		t.Fatalf("ListDerived: %v", err)
	}
	if total != 1 || len(recs) != 1 {
		t.Fatalf("got %d records (total %d), want 1", len(recs), total)
	}
	got := recs[0]
	if got.ReqRespRatio != in.ReqRespRatio || got.HTTPMethodEnc != in.HTTPMethodEnc {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if !got.Timestamp.Equal(base) {
		t.Errorf("timestamp: got %v, want %v", got.Timestamp, base)
	}
}

func TestListDerived_Pagination(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		s.InsertDerived(derivedAt(base.Add(time.Duration(i)*time.Minute), 200))
	}

	page2, total, err := s.ListDerived(2, 2)
	if err != nil {
		t.Fatalf("ListDerived: %v", err)
	}
	if total != 5 {
		t.Errorf("total: got %d, want 5", total)
	}
	if len(page2) != 2 {
		t.Fatalf("page size: got %d, want 2", len(page2))
	}
	// Newest first: page 2 of size 2 holds the 3rd and 4th newest.
	if !page2[0].Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("page 2 first record: got %v", page2[0].Timestamp)
	}
}

func TestDerivedStats(t *testing.T) {
	s := openTestStore(t)
	s.InsertDerived(derivedAt(base, 200))
	s.InsertDerived(derivedAt(base, 503))

	st, err := s.DerivedStatsAll()
	if err != nil {
		t.Fatalf("DerivedStatsAll: %v", err)
	}
	if st.TotalRequests != 2 || st.SuccessRate != 0.5 {
		t.Errorf("stats: got %+v", st)
	}
	if st.AvgReqRespRatio != 4.95 {
		t.Errorf("AvgReqRespRatio: got %v, want 4.95", st.AvgReqRespRatio)
	}
}

func TestDerivedWindow_ClockRelative(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2024, 5, 10, 0, 10, 0, 0, time.UTC)

	s.InsertDerived(derivedAt(now.Add(-5*time.Minute), 200))                 // 00:05, in window
	s.InsertDerived(derivedAt(now.Add(-20*time.Minute), 500))                // 23:50 prev day, wrap match
	s.InsertDerived(derivedAt(now.Add(-2*time.Hour), 200))                   // 22:10, out
	s.InsertDerived(derivedAt(now.AddDate(0, 0, -1).Add(-3*time.Minute), 404)) // 00:07 yesterday — date ignored

	recs, err := s.ListDerivedWindow(now, 20)
	if err != nil {
		t.Fatalf("ListDerivedWindow: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("window records: got %d, want 3", len(recs))
	}

	total, errCount, err := s.CountDerivedWindow(now, 20)
	if err != nil {
		t.Fatalf("CountDerivedWindow: %v", err)
	}
	if total != 3 || errCount != 2 {
		t.Errorf("counts: got total=%d errors=%d, want 3 and 2", total, errCount)
	}
}

// --- thresholds -------------------------------------------------------------

func TestThreshold_Upsert(t *testing.T) {
	s := openTestStore(t)
	s.now = fixedClock(base)

	if _, ok, err := s.GetThreshold("error_threshold"); err != nil || ok {
		t.Fatalf("GetThreshold on empty store: ok=%v err=%v, want absent", ok, err)
	}

	set, err := s.SetThreshold("error_threshold", 150)
	if err != nil {
		t.Fatalf("SetThreshold: %v", err)
	}
	if set.Value != 150 || !set.UpdatedAt.Equal(base) {
		t.Errorf("SetThreshold result: got %+v", set)
	}

	s.now = fixedClock(base.Add(time.Hour))
	if _, err := s.SetThreshold("error_threshold", 75); err != nil {
		t.Fatalf("SetThreshold update: %v", err)
	}

	got, ok, err := s.GetThreshold("error_threshold")
	if err != nil || !ok {
		t.Fatalf("GetThreshold: ok=%v err=%v", ok, err)
	}
	if got.Value != 75 {
		t.Errorf("Value after upsert: got %v, want 75", got.Value)
	}
	if !got.UpdatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("UpdatedAt after upsert: got %v", got.UpdatedAt)
	}
}
