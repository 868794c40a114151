package window

import (
	"fmt"
	"time"
)

// MinutesPerDay is the wrap-around period of the clock-relative window.
const MinutesPerDay = 24 * 60

// MinuteOfDay returns the minute-of-day for t in UTC, in [0, 1440).
func MinuteOfDay(t time.Time) int {
	t = t.UTC()
	return t.Hour()*60 + t.Minute()
}

// Diff returns the clock distance in minutes from t back to now, wrapping at
// midnight: ((now - t) + 1440) mod 1440. It is always in [0, 1440).
func Diff(now, t time.Time) int {
	return ((MinuteOfDay(now) - MinuteOfDay(t)) + MinutesPerDay) % MinutesPerDay
}

// Match reports whether t falls within the clock-relative window of the given
// size in minutes, ending at now. Only hour and minute of day are compared;
// the calendar date is ignored, so a record at the same time-of-day yesterday
// matches too. That wrap-around semantics is deliberate and load-bearing —
// "last N minutes" here means clock distance, not elapsed time.
func Match(now, t time.Time, windowMinutes int) bool {
	return Diff(now, t) <= windowMinutes
}

// DiffSQL returns the SQL expression computing Diff against a column holding
// Unix-millisecond UTC timestamps. The expression takes one bind parameter:
// MinuteOfDay(now). Pair it with "<= ?" and the window size to filter.
func DiffSQL(column string) string {
	return fmt.Sprintf("((? - (%s / 60000) %% 1440) + 1440) %% 1440", column)
}
