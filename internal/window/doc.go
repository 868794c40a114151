// Package window implements the clock-relative time window: a filter that
// compares only hour-and-minute-of-day in UTC, wrapping at 24h and ignoring
// the calendar date. It backs the "last N minutes" queries and the
// error-threshold alert window, both as a pure predicate and as the SQL
// fragment the store queries with.
package window
