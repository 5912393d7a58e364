// Package upstream is the resilient client for the Dolibarr REST API.
//
// Client.Execute turns a catalog call target and its arguments into one
// HTTP exchange (or several, when retried) and classifies the outcome.
// Transient server responses, connection failures and attempt timeouts are
// retried with exponential backoff; every other failure is returned at
// once. Each attempt has its own deadline, so a call can take up to
// Timeout*(MaxRetries+1) plus the backoff waits.
//
// Request bodies are checked against the target's payload rules before
// anything is sent. The status target falls back to the setup/modules and
// users endpoints when the status endpoint itself fails.
package upstream
