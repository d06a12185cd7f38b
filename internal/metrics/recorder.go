// Package metrics exposes build and serving counters. Recorders are
// optional: callers hold a Recorder and default to NoopRecorder.
package metrics

import "time"

// Result labels a processed document.
type Result string

const (
	ResultOK        Result = "ok"
	ResultMalformed Result = "malformed"
	ResultError     Result = "error"
	ResultSkipped   Result = "skipped"
)

// Recorder receives pipeline and server observations.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	IncDocument(result Result)
	SetRegistrySize(slugs, linkOwners int)
	IncIndexSync(changed, removed int)
	IncHTTPRequest(route string, status int)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration) {}
func (NoopRecorder) IncDocument(Result)                 {}
func (NoopRecorder) SetRegistrySize(int, int)           {}
func (NoopRecorder) IncIndexSync(int, int)              {}
func (NoopRecorder) IncHTTPRequest(string, int)         {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
