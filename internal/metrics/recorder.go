// Package metrics records upstream REST traffic and tool call outcomes.
package metrics

import "time"

// Outcome labels a finished tool call.
type Outcome string

const (
	OutcomeOK    Outcome = "ok"
	OutcomeError Outcome = "error"
)

// Recorder is the observability hook the server and the connection builder
// report to. It satisfies azdo.RequestObserver.
type Recorder interface {
	ObserveRequest(method string, status int, d time.Duration)
	ObserveToolCall(tool string, outcome Outcome, d time.Duration)
}

// NoopRecorder is the Recorder used when metrics are disabled.
type NoopRecorder struct{}

func (NoopRecorder) ObserveRequest(string, int, time.Duration)       {}
func (NoopRecorder) ObserveToolCall(string, Outcome, time.Duration) {}
