package dispatch

import "time"

// Dispatch outcomes reported to a MetricsCollector
const (
	OutcomeCompleted   = "completed"
	OutcomeTerminated  = "terminated"
	OutcomeFailed      = "failed"
	OutcomeConfigError = "config_error"
)

// MetricsCollector defines the interface for collecting dispatch metrics
type MetricsCollector interface {
	IncrementDispatchCount(domain, targetKind, outcome string)
	RecordDispatchTime(domain, targetKind string, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) IncrementDispatchCount(domain, targetKind, outcome string) {}

func (noopMetrics) RecordDispatchTime(domain, targetKind string, duration time.Duration) {}
