package wizard

import "time"

// MetricsRecorder receives engine measurements. Names are short snake_case
// identifiers such as "scan", "resolve" or "submit".
type MetricsRecorder interface {
	RecordDuration(name string, duration time.Duration)
	RecordError(name string)
	RecordSuccess(name string)
}

// NopMetrics drops every measurement.
type NopMetrics struct{}

func (NopMetrics) RecordDuration(string, time.Duration) {}
func (NopMetrics) RecordError(string)                   {}
func (NopMetrics) RecordSuccess(string)                 {}
