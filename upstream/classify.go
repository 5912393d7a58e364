package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/marioser/dolibarr-mcp/failure"
)

// classifyStatus maps a non-2xx response to a failure. Messages come from
// the body when it has one: a "message" string, an "error" string, or
// Dolibarr's {"error": {"code", "message"}} object.
func classifyStatus(status int, data any, endpoint string) *failure.Failure {
	body, _ := data.(map[string]any)
	msg := bodyMessage(body)

	if status == http.StatusBadRequest {
		missing := stringList(body["missing_fields"])
		invalid := fieldErrors(body["invalid_fields"])
		if len(missing) == 0 && strings.Contains(strings.ToLower(msg), "ref") {
			missing = []string{"ref"}
		}
		f := failure.ValidationError(endpoint, missing, invalid)
		if msg != "" {
			f.WithDetail("upstream_message", msg)
		}
		return f
	}

	if msg == "" {
		if status >= 500 {
			msg = "An unexpected error occurred while processing " + endpoint
		} else {
			msg = fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
		}
	}
	return failure.FromStatus(status, msg).WithEndpoint(endpoint)
}

func bodyMessage(body map[string]any) string {
	if body == nil {
		return ""
	}
	if s, ok := body["message"].(string); ok && s != "" {
		return s
	}
	switch e := body["error"].(type) {
	case string:
		return e
	case map[string]any:
		if s, ok := e["message"].(string); ok {
			return s
		}
	}
	return ""
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// fieldErrors accepts [{"field": ..., "message": ...}] or a list of names.
func fieldErrors(v any) []failure.FieldError {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]failure.FieldError, 0, len(items))
	for _, it := range items {
		switch x := it.(type) {
		case string:
			out = append(out, failure.FieldError{Field: x, Message: "invalid value"})
		case map[string]any:
			field, _ := x["field"].(string)
			if field == "" {
				continue
			}
			message, _ := x["message"].(string)
			out = append(out, failure.FieldError{Field: field, Message: message})
		}
	}
	return out
}

// classifyTransport maps an error from the HTTP exchange itself. Context
// errors are returned unchanged so the attempt timeout can tell its own
// deadline from the caller's.
func classifyTransport(ctx context.Context, err error, endpoint string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failure.Newf(failure.Timeout, "request to %s timed out", endpoint).
			WithEndpoint(endpoint).WithCause(err)
	}
	return failure.Newf(failure.Connection, "cannot reach Dolibarr: %v", rootCause(err)).
		WithEndpoint(endpoint).WithCause(err)
}

// rootCause strips the *url.Error wrapper, whose text repeats the full URL.
func rootCause(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
