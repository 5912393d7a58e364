// Package mcpserver exposes the operation catalog as MCP tools.
//
// Every catalog descriptor becomes one tool whose input schema is built
// from the descriptor parameters. A tool call goes through the Dispatcher
// and the outcome is rendered as a JSON envelope:
//
//	{"success": true, "data": ..., "metadata": {"cached": false, "operation": "get_customers", "elapsed_ms": 12.5}}
//	{"success": false, "error": {"code": "NOT_FOUND", "message": "...", "status": 404, "retriable": false, "details": {...}}}
//
// Failures are tool results with IsError set, never protocol errors, so the
// calling model always sees the code and message.
//
// The server runs over stdio or over MCP streamable HTTP. The HTTP handler
// also serves health, metrics and auth statistics.
package mcpserver
