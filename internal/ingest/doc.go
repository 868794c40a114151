// Package ingest accepts raw request-log records at the API boundary.
//
// Recorder.Record stamps missing timestamps with the current UTC time,
// persists the record, and publishes an insert event on the change channel.
// The insert is the source of truth: a failed publish is logged and the
// record stands, it just will not reach the derived pipeline until
// re-announced.
package ingest
