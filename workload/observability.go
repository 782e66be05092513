/*
observability.go - Logging and metrics hooks for the engine

PURPOSE:
  The engine logs and records metrics through two small interfaces so it
  carries no logging or metrics dependency of its own. Both default to
  no-op implementations; New installs them unless WithLogger or
  WithRecorder supply real ones.

SEE ALSO:
  - logging/slog.go: Logger backed by log/slog
  - metrics/prometheus.go: Recorder backed by Prometheus
*/
package workload

import "time"

// Logger defines methods for structured logging with key-value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Trigger names the public operation, used as a metrics label.
type Trigger string

const (
	TriggerDeactivation Trigger = "deactivation"
	TriggerReactivation Trigger = "reactivation"
	TriggerOnboarding   Trigger = "onboarding"
	TriggerImport       Trigger = "import"
	TriggerRebalance    Trigger = "rebalance"
)

// Recorder receives operational metrics from the engine.
type Recorder interface {
	RecordOperation(trigger Trigger, err error, elapsed time.Duration)
	RecordItemsMoved(trigger Trigger, n int)
	RecordHistoryFailure(action HistoryAction)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(Trigger, error, time.Duration) {}
func (nopRecorder) RecordItemsMoved(Trigger, int)                 {}
func (nopRecorder) RecordHistoryFailure(HistoryAction)            {}
