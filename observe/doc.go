// Package observe provides the logging, tracing and metrics used across the
// server.
//
// Library packages log through the Logger interface only. NewLogger builds
// it on zap by default or on logrus, writes to stderr unless told otherwise,
// and redacts credential-bearing keys. The Middleware wraps each dispatch in
// a span named dispatch.<operation>, records dolibarr.dispatch.* metrics with
// a cached/fresh/failed outcome, and logs one entry per call.
package observe
