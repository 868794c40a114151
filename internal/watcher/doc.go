// Package watcher implements the continuous ingestion loop: subscribe to
// insert events on the raw-record store, encode each record into its feature
// vector, persist the derived record, and forward it for anomaly scoring.
//
// The watcher is a three-state machine (disconnected, watching, closed). Feed
// errors trigger a full teardown and a fixed-backoff reconnect from scratch —
// there is no position resumption, so events inside an outage window are
// lost. That gap is documented delivery behavior, not something to repair
// here. Only Close stops the watcher for good.
package watcher
