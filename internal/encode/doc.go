// Package encode turns raw log records into fixed-width numeric feature
// vectors: cyclical hour/day-of-week encodings, closed-table category codes,
// size/latency ratios and log(1+x) transforms.
//
// Encode is a pure function — no I/O, no state, and it never fails. Missing
// inputs default before transformation, so every produced field is finite.
package encode
