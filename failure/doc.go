// Package failure defines the classification every dispatch failure is
// surfaced with.
//
// A Failure carries a Kind, a machine-readable code, a human-readable
// message, the HTTP-equivalent status, a retriable flag and, for server-side
// failures, a correlation identifier that ties the failure to log lines.
//
// Two retry notions are kept apart:
//
//   - Kind.Retriable reports whether a caller may retry the whole dispatch later.
//   - Kind.RetryLocally reports whether the upstream client retries the call
//     itself before surfacing it (transient server errors, connection failures
//     and timeouts only).
package failure
