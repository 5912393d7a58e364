package health

import (
	"context"
	"net/http"
	"time"
)

// Status is the outcome of a check, ordered by severity.
type Status int

const (
	StatusHealthy Status = iota
	// StatusDegraded means the server still answers, with reduced
	// capability (the cache is down and every call goes to Dolibarr).
	StatusDegraded
	StatusUnhealthy
)

var statusNames = [...]string{"healthy", "degraded", "unhealthy"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// MarshalText encodes s by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// HTTPCode is the readiness response code for s. Only an unhealthy
// component takes the server out of rotation.
func (s Status) HTTPCode() int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Worse returns the more severe of s and o.
func (s Status) Worse(o Status) Status {
	return max(s, o)
}

// Result is what one check reports.
type Result struct {
	Status  Status
	Message string
	Details map[string]any
	Error   error

	// Set by the Aggregator.
	Duration  time.Duration
	Timestamp time.Time
}

func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message}
}

func Degraded(message string, err error) Result {
	return Result{Status: StatusDegraded, Message: message, Error: err}
}

func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err}
}

// WithDetails returns r with details attached.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker checks one dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

type funcChecker struct {
	name  string
	check func(context.Context) Result
}

func (f funcChecker) Name() string                     { return f.name }
func (f funcChecker) Check(ctx context.Context) Result { return f.check(ctx) }

// NewCheckerFunc returns a Checker named name that runs check.
func NewCheckerFunc(name string, check func(context.Context) Result) Checker {
	return funcChecker{name: name, check: check}
}
