// Package security holds request-payload heuristics.
//
// IsSQLInjection flags strings that look like SQL-injection attempts:
// tautologies (or 1=1), union/select extraction, stacked queries, comment
// tokens, exec-style function calls, hex/url-encoded payloads, destructive
// keywords, metadata-table probes, over-long payloads, and inputs combining
// three or more SQL keywords. It is a heuristic detector, not a defense.
package security
