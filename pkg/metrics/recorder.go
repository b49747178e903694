// Package metrics records generation, dispatch and retrieval metrics.
package metrics

import "time"

// Status labels shared by the recorders.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Recorder defines the interface for recording planbuilder metrics.
type Recorder interface {
	// ObserveRequest records a completed generation request.
	ObserveRequest(model string, promptTokens, completionTokens int, success bool, errorType string, duration time.Duration)

	// ObserveToolCall records one envelope call outcome (success, error or skipped).
	ObserveToolCall(tool, status string)

	// ObserveScrape records one HTTP exchange made by a retrieval worker.
	ObserveScrape(stage string, statusCode int, duration time.Duration)

	// ObserveLookup records the final outcome kind of one lookup.
	ObserveLookup(kind string)

	// ObserveGenerationAttempt records one attempt of a generation retry loop.
	ObserveGenerationAttempt(label string, success bool)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) ObserveRequest(_ string, _, _ int, _ bool, _ string, _ time.Duration) {}

func (n *NoopRecorder) ObserveToolCall(_, _ string) {}

func (n *NoopRecorder) ObserveScrape(_ string, _ int, _ time.Duration) {}

func (n *NoopRecorder) ObserveLookup(_ string) {}

func (n *NoopRecorder) ObserveGenerationAttempt(_ string, _ bool) {}
