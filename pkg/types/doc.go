// Package types defines the shared record types used across the ingestion
// pipeline and the query API. These are the canonical in-memory
// representations of raw and derived log data, separate from any storage or
// wire format.
package types
