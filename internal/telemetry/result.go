package telemetry

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout marks a provider call that exceeded its time bound
	ErrTimeout = errors.New("provider timed out")
	// ErrProviderPanic marks a provider that panicked inside Collect
	ErrProviderPanic = errors.New("provider panicked")
	// ErrEmptyResult marks a nominal success that carried no metrics
	ErrEmptyResult = errors.New("provider returned no metrics")
)

// Status is the outcome tag of a provider invocation
type Status uint8

const (
	StatusSuccess Status = iota
	StatusUnavailable
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusUnavailable:
		return "unavailable"
	case StatusFailed:
		return "failed"
	}
	return "invalid"
}

// Result is the outcome of one provider invocation
type Result struct {
	Status  Status
	Metrics *Metrics
	Err     error
}

// Success wraps collected metrics
func Success(m *Metrics) Result {
	return Result{Status: StatusSuccess, Metrics: m}
}

// Unavailable means the source is not present on this host. It is not an error.
func Unavailable() Result {
	return Result{Status: StatusUnavailable}
}

// Failed records a query error
func Failed(err error) Result {
	if err == nil {
		err = errors.New("unspecified failure")
	}
	return Result{Status: StatusFailed, Err: err}
}

// Failedf formats a failure cause
func Failedf(format string, args ...interface{}) Result {
	return Failed(fmt.Errorf(format, args...))
}

// Usable reports whether the result can take part in a merge
func (r Result) Usable() bool {
	return r.Status == StatusSuccess && !r.Metrics.Empty()
}
