// Package alerts evaluates the error-threshold alert and delivers webhook
// notifications.
//
// Evaluator counts derived records in a clock-relative window (total and
// status >= 400 errors), resolves the active threshold — explicit request
// value, then the persisted "error_threshold" row, then DefaultThreshold —
// and gates the report: the error count is surfaced only when it strictly
// exceeds the threshold. Equality does not fire.
//
// Notifier posts fired alerts to configured webhook targets (slack | http)
// with a cooldown so bursts do not flood the targets. Delivery is
// asynchronous and best-effort: failures are logged and never affect the
// evaluation result.
package alerts
