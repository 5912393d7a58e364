package failure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Kind is the classification tag of a failure.
type Kind int

const (
	// Unclassified wraps anything that matches no other kind. Never retried.
	Unclassified Kind = iota
	// Validation is a malformed request: missing or invalid fields.
	Validation
	// Auth is a rejected credential (401) or a forbidden action (403).
	Auth
	// NotFound is a missing record or an unknown operation.
	NotFound
	// Conflict is a duplicate or state conflict.
	Conflict
	// RateLimited is an upstream 429.
	RateLimited
	// TransientServer is a bad gateway, unavailable or gateway timeout response.
	TransientServer
	// Connection is a network-level failure to reach the upstream.
	Connection
	// Timeout is an attempt that exceeded its deadline.
	Timeout
)

type kindInfo struct {
	name      string
	code      string
	status    int
	retriable bool
	local     bool
}

var kinds = map[Kind]kindInfo{
	Unclassified:    {"UnclassifiedFatal", "SERVER_ERROR", http.StatusInternalServerError, false, false},
	Validation:      {"ValidationFailure", "VALIDATION_ERROR", http.StatusBadRequest, false, false},
	Auth:            {"AuthFailure", "UNAUTHORIZED", http.StatusUnauthorized, false, false},
	NotFound:        {"NotFound", "NOT_FOUND", http.StatusNotFound, false, false},
	Conflict:        {"Conflict", "CONFLICT", http.StatusConflict, false, false},
	RateLimited:     {"RateLimited", "RATE_LIMITED", http.StatusTooManyRequests, true, false},
	TransientServer: {"TransientServerError", "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, true, true},
	Connection:      {"ConnectionFailure", "CONNECTION_ERROR", http.StatusServiceUnavailable, true, true},
	Timeout:         {"Timeout", "TIMEOUT", http.StatusGatewayTimeout, true, true},
}

// String returns the tag name, e.g. "TransientServerError".
func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return "Unknown"
}

// Code returns the default machine-readable code.
func (k Kind) Code() string {
	return kinds[k].code
}

// Status returns the default HTTP-equivalent status.
func (k Kind) Status() int {
	if info, ok := kinds[k]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// Retriable reports whether a caller may retry the whole dispatch later.
func (k Kind) Retriable() bool {
	return kinds[k].retriable
}

// RetryLocally reports whether the upstream client retries this kind itself.
func (k Kind) RetryLocally() bool {
	return kinds[k].local
}

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Failure is a classified failure. It implements error.
type Failure struct {
	Kind          Kind
	Code          string
	Message       string
	Status        int
	Retriable     bool
	CorrelationID string
	Endpoint      string
	MissingFields []string
	InvalidFields []FieldError
	Details       map[string]any

	cause error
}

// New creates a Failure with the defaults of kind.
func New(kind Kind, message string) *Failure {
	return &Failure{
		Kind:      kind,
		Code:      kind.Code(),
		Message:   message,
		Status:    kind.Status(),
		Retriable: kind.Retriable(),
	}
}

// Newf creates a Failure with a formatted message.
func Newf(kind Kind, format string, args ...any) *Failure {
	return New(kind, fmt.Sprintf(format, args...))
}

// Error implements error.
func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Code)
	b.WriteString(": ")
	b.WriteString(f.Message)
	if f.Endpoint != "" {
		b.WriteString(" (endpoint ")
		b.WriteString(f.Endpoint)
		b.WriteString(")")
	}
	if f.CorrelationID != "" {
		b.WriteString(" [correlation_id=")
		b.WriteString(f.CorrelationID)
		b.WriteString("]")
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (f *Failure) Unwrap() error {
	return f.cause
}

// Is matches another *Failure by Kind, so errors.Is(err, failure.New(failure.Timeout, ""))
// works as a kind test.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Kind == f.Kind
}

// WithCause records the underlying error.
func (f *Failure) WithCause(err error) *Failure {
	f.cause = err
	return f
}

// WithCode overrides the default code.
func (f *Failure) WithCode(code string) *Failure {
	f.Code = code
	return f
}

// WithStatus overrides the default status.
func (f *Failure) WithStatus(status int) *Failure {
	f.Status = status
	return f
}

// WithEndpoint records the upstream endpoint.
func (f *Failure) WithEndpoint(endpoint string) *Failure {
	f.Endpoint = endpoint
	return f
}

// WithDetail adds one detail entry.
func (f *Failure) WithDetail(key string, value any) *Failure {
	if f.Details == nil {
		f.Details = make(map[string]any)
	}
	f.Details[key] = value
	return f
}

// WithCorrelation assigns a fresh correlation identifier if none is set.
func (f *Failure) WithCorrelation() *Failure {
	if f.CorrelationID == "" {
		f.CorrelationID = NewCorrelationID()
	}
	return f
}

// NewCorrelationID returns a random identifier for operator-side correlation.
func NewCorrelationID() string {
	return uuid.NewString()
}

// ValidationError builds a Validation failure listing missing and invalid fields.
func ValidationError(endpoint string, missing []string, invalid []FieldError) *Failure {
	parts := make([]string, 0, 2)
	if len(missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		names := make([]string, len(invalid))
		for i, fe := range invalid {
			names[i] = fe.Field
		}
		parts = append(parts, "invalid fields: "+strings.Join(names, ", "))
	}
	msg := "validation failed"
	if len(parts) > 0 {
		msg = "validation failed: " + strings.Join(parts, "; ")
	}
	f := New(Validation, msg).WithEndpoint(endpoint)
	f.MissingFields = missing
	f.InvalidFields = invalid
	return f
}

// FromStatus classifies an upstream non-2xx status.
// Server-side kinds get a correlation identifier.
func FromStatus(status int, message string) *Failure {
	var f *Failure
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		f = New(Validation, message)
	case status == http.StatusUnauthorized:
		f = New(Auth, message)
	case status == http.StatusForbidden:
		f = New(Auth, message).WithCode("FORBIDDEN")
	case status == http.StatusNotFound:
		f = New(NotFound, message)
	case status == http.StatusConflict:
		f = New(Conflict, message)
	case status == http.StatusRequestTimeout:
		f = New(Timeout, message)
	case status == http.StatusTooManyRequests:
		f = New(RateLimited, message)
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		f = New(TransientServer, message)
	case status >= 500:
		f = New(Unclassified, message)
	case status >= 400:
		f = New(Validation, message)
	default:
		f = New(Unclassified, message)
	}
	f.Status = status
	if status >= 500 {
		f.WithCorrelation()
	}
	return f
}

// From returns err as a *Failure. Context errors map to Timeout (deadline)
// or an unretriable cancellation; anything else becomes Unclassified with a
// correlation identifier.
func From(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return New(Timeout, "request timed out").WithCause(err)
	case errors.Is(err, context.Canceled):
		return New(Unclassified, "request cancelled").WithCode("REQUEST_CANCELLED").WithCause(err)
	}
	return New(Unclassified, err.Error()).WithCause(err).WithCorrelation()
}

// As extracts a *Failure from err.
func As(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsKind reports whether err is a *Failure of kind.
func IsKind(err error, kind Kind) bool {
	f, ok := As(err)
	return ok && f.Kind == kind
}

// Payload renders the failure as the error object of a response envelope.
func (f *Failure) Payload() map[string]any {
	details := make(map[string]any, len(f.Details)+4)
	for k, v := range f.Details {
		details[k] = v
	}
	if len(f.MissingFields) > 0 {
		details["missing_fields"] = f.MissingFields
	}
	if len(f.InvalidFields) > 0 {
		details["invalid_fields"] = f.InvalidFields
	}
	if f.Endpoint != "" {
		details["endpoint"] = f.Endpoint
	}
	if f.CorrelationID != "" {
		details["correlation_id"] = f.CorrelationID
	}
	return map[string]any{
		"code":      f.Code,
		"message":   f.Message,
		"status":    f.Status,
		"retriable": f.Retriable,
		"details":   details,
	}
}
