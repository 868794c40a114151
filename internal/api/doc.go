// Package api serves the REST surface under /api.
//
// Raw request logs:
//   - POST /api/logs — ingest one record (missing timestamps are stamped)
//   - GET  /api/logs, /logs/endpoint/{endpoint}, /logs/daterange, /logs/stats
//   - GET  /api/logs/lasthour?window= — clock-relative window, dates ignored
//   - POST /api/cart/{normal,slow,fast} — traffic simulators that generate
//     realistic cart records through the ingest path
//
// Derived records:
//   - POST/GET /api/parsed-logs (paged), /parsed-logs/stats,
//     /parsed-logs/timerange, /parsed-logs/lasthour
//   - GET  /api/parsed-logs/error-threshold — windowed error count, gated by
//     the active threshold (strictly-greater, equality stays silent)
//   - POST/GET /api/parsed-logs/threshold — threshold upsert and lookup; a
//     missing row answers value null, not 404
//   - GET  /api/parsed-logs/check-sql-injection?query=
//
// Every reply carries a success flag plus data or error. Failures map to
// HTTP 400 with the error message, matching clients that key off the flag.
// The Observe middleware logs each request and feeds the Prometheus
// counters, labelled by route template.
package api
