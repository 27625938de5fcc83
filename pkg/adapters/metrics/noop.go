package metrics

import "time"

// Noop is a MetricsCollector that discards everything. Used in tests and
// when metrics are disabled.
type Noop struct{}

// NewNoop creates a no-op metrics collector
func NewNoop() *Noop {
	return &Noop{}
}

func (Noop) RecordGenerationSubmitted(string)                      {}
func (Noop) RecordGenerationCompleted(string, time.Duration)       {}
func (Noop) RecordStageDuration(string, time.Duration)             {}
func (Noop) RecordLLMCall(string, string, time.Duration, int, int) {}
func (Noop) RecordRenderAttempt(bool, time.Duration)               {}
func (Noop) RecordWorkerPoolStatus(int, int, int)                  {}
func (Noop) SetActiveGenerations(int)                              {}
