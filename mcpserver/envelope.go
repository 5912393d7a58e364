package mcpserver

import (
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/marioser/dolibarr-mcp/dispatch"
	"github.com/marioser/dolibarr-mcp/failure"
)

// Metadata describes how a successful result was produced.
type Metadata struct {
	Cached    bool    `json:"cached"`
	Operation string  `json:"operation"`
	ElapsedMS float64 `json:"elapsed_ms"`
}

// Envelope is the JSON body of every tool result.
type Envelope struct {
	Success  bool           `json:"success"`
	Data     any            `json:"data,omitempty"`
	Metadata *Metadata      `json:"metadata,omitempty"`
	Error    map[string]any `json:"error,omitempty"`
}

// SuccessEnvelope wraps a dispatch result.
func SuccessEnvelope(res dispatch.Result) Envelope {
	return Envelope{
		Success: true,
		Data:    res.Data,
		Metadata: &Metadata{
			Cached:    res.FromCache,
			Operation: res.Operation,
			ElapsedMS: millis(res.Elapsed),
		},
	}
}

// FailureEnvelope wraps err, classifying it when it is not already a
// *failure.Failure.
func FailureEnvelope(err error) Envelope {
	return Envelope{Success: false, Error: failure.From(err).Payload()}
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// toolResult renders env as a structured tool result with the same JSON
// as its text fallback.
func toolResult(env Envelope) *mcp.CallToolResult {
	text, err := json.Marshal(env)
	if err != nil {
		// Data that cannot be encoded is reported as a failure.
		env = FailureEnvelope(failure.New(failure.Unclassified, "result is not JSON encodable: "+err.Error()))
		text, _ = json.Marshal(env)
	}
	res := mcp.NewToolResultStructured(env, string(text))
	res.IsError = !env.Success
	return res
}
