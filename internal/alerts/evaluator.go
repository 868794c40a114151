package alerts

import (
	"fmt"
	"time"

	"github.com/loglens/loglens/internal/metrics"
	"github.com/loglens/loglens/pkg/types"
)

// DefaultThreshold applies when no explicit threshold is given and none is
// persisted.
const DefaultThreshold = 100.0

// DefaultName is the threshold row the error-count alert reads.
const DefaultName = "error_threshold"

// ThresholdStore reads the persisted threshold. Satisfied by *store.Store.
type ThresholdStore interface {
	GetThreshold(name string) (types.Threshold, bool, error)
}

// WindowCounter counts records in the clock-relative window. Satisfied by
// *store.Store.
type WindowCounter interface {
	CountDerivedWindow(now time.Time, windowMinutes int) (total, errors int, err error)
}

// Report is the result of one error-threshold evaluation. The raw counts are
// always populated; ReportedErrorCount is non-zero only when the gate opened.
type Report struct {
	WindowMinutes      int     `json:"windowMinutes"`
	Threshold          float64 `json:"threshold"`
	TotalCount         int     `json:"totalCount"`
	ErrorCount         int     `json:"errorCount"`
	ReportedErrorCount int     `json:"reportedErrorCount"`
}

// Evaluator computes the error-threshold alert over the clock-relative
// window. It is stateless apart from the optional notifier and safe for
// concurrent use.
type Evaluator struct {
	thresholds ThresholdStore
	counts     WindowCounter
	name       string
	notifier   *Notifier        // nil disables webhook delivery
	now        func() time.Time // injectable for deterministic tests
}

// NewEvaluator creates an Evaluator reading the threshold row name from
// thresholds and counting via counts. An empty name falls back to
// DefaultName.
func NewEvaluator(thresholds ThresholdStore, counts WindowCounter, name string, notifier *Notifier) *Evaluator {
	if name == "" {
		name = DefaultName
	}
	return &Evaluator{
		thresholds: thresholds,
		counts:     counts,
		name:       name,
		notifier:   notifier,
		now:        time.Now,
	}
}

// Resolve returns the active threshold: the explicit value when given, else
// the persisted value, else DefaultThreshold.
func (e *Evaluator) Resolve(explicit *float64) (float64, error) {
	if explicit != nil {
		return *explicit, nil
	}
	t, ok, err := e.thresholds.GetThreshold(e.name)
	if err != nil {
		return 0, fmt.Errorf("alerts: resolve threshold: %w", err)
	}
	if !ok {
		return DefaultThreshold, nil
	}
	return t.Value, nil
}

// Evaluate counts total and error (status >= 400) records in the window,
// resolves the active threshold, and gates the alert: the error count is
// reported only when it strictly exceeds the threshold. When the gate opens
// and a notifier is configured, delivery happens asynchronously and never
// affects the returned report.
func (e *Evaluator) Evaluate(windowMinutes int, explicit *float64) (Report, error) {
	threshold, err := e.Resolve(explicit)
	if err != nil {
		return Report{}, err
	}

	total, errCount, err := e.counts.CountDerivedWindow(e.now(), windowMinutes)
	if err != nil {
		return Report{}, fmt.Errorf("alerts: count window: %w", err)
	}

	rep := Report{
		WindowMinutes: windowMinutes,
		Threshold:     threshold,
		TotalCount:    total,
		ErrorCount:    errCount,
	}
	if float64(errCount) > threshold {
		rep.ReportedErrorCount = errCount
		metrics.AlertsFired.Inc()
		if e.notifier != nil {
			go e.notifier.Notify(rep)
		}
	}
	return rep, nil
}
