package upstream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/marioser/dolibarr-mcp/catalog"
	"github.com/marioser/dolibarr-mcp/failure"
	"github.com/marioser/dolibarr-mcp/observe"
)

// StatusEndpoint is served from the API root without the index.php entry point.
const StatusEndpoint = "status"

type statusProbe struct {
	endpoint string
	query    url.Values
	version  string
	accept   func(any) bool
}

// statusProbes are tried in order, once each, when the status endpoint
// fails. A setup/modules answer must be non-empty; any users answer counts.
var statusProbes = []statusProbe{
	{
		endpoint: "setup/modules",
		version:  "Connected",
		accept:   nonEmpty,
	},
	{
		endpoint: "users",
		query:    url.Values{"limit": {"1"}},
		version:  "API Working",
		accept:   func(v any) bool { return v != nil },
	},
}

// Status calls the status endpoint with the normal retry budget. When that
// fails it probes lighter endpoints, one attempt each, and synthesizes a
// status document from the first that answers. If every probe fails the
// result is a Connection failure.
func (c *Client) Status(ctx context.Context) (any, error) {
	req := catalog.Request{Method: http.MethodGet, Endpoint: StatusEndpoint, Status: true}
	res, err := c.call(ctx, req, c.statusURL, true)
	if err == nil {
		return res, nil
	}
	c.logger.Warn(ctx, "status endpoint failed, probing fallbacks", observe.Err(err))

	for _, p := range statusProbes {
		if ctx.Err() != nil {
			break
		}
		probe := catalog.Request{Method: http.MethodGet, Endpoint: p.endpoint, Query: p.query}
		res, perr := c.call(ctx, probe, c.baseURL, false)
		if perr != nil || !p.accept(res) {
			c.logger.Debug(ctx, "status probe failed", observe.F("probe", p.endpoint), observe.Err(perr))
			continue
		}
		doc := map[string]any{
			"success":          1,
			"dolibarr_version": p.version,
			"api_version":      "1.0",
			"probe":            p.endpoint,
		}
		if p.endpoint == "setup/modules" {
			doc["modules_available"] = true
		}
		return doc, nil
	}

	if f, ok := failure.As(err); ok && f.Kind == failure.Auth {
		return nil, f
	}
	return nil, failure.New(failure.Connection, "Cannot connect to Dolibarr API. Please check your configuration.").
		WithEndpoint(StatusEndpoint).
		WithCause(err).
		WithDetail("status_error", err.Error()).
		WithCorrelation()
}

func nonEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}
