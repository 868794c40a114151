// Package scoring wraps the outbound HTTP call to the external
// anomaly-scoring endpoint. Every call carries a bounded timeout; scoring is
// best-effort and a failure here never propagates into the ingestion
// pipeline's state.
package scoring
