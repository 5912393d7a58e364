package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marioser/dolibarr-mcp/catalog"
	"github.com/marioser/dolibarr-mcp/failure"
	"github.com/marioser/dolibarr-mcp/observe"
	"github.com/marioser/dolibarr-mcp/resilience"
)

// Defaults applied by New.
const (
	DefaultMaxRetries    = 2
	DefaultRetryBackoff  = 500 * time.Millisecond
	DefaultTimeout       = 30 * time.Second
	DefaultMaxConcurrent = 16
	DefaultRefPrefix     = "AUTO"

	// APIKeyHeader carries the Dolibarr API key.
	APIKeyHeader = "DOLAPIKEY"

	maxResponseBytes = 32 << 20
)

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. https://erp.example.com/api/index.php.
	BaseURL string
	APIKey  string

	// MaxRetries bounds local retries; a call makes at most MaxRetries+1
	// attempts. Negative means zero.
	MaxRetries int
	// RetryBackoff is the base of the exponential backoff.
	RetryBackoff time.Duration
	// MaxBackoff caps a single backoff wait. Zero means no cap.
	MaxBackoff time.Duration
	// Timeout bounds each attempt, not the whole call.
	Timeout time.Duration

	// MaxConcurrent caps in-flight upstream requests.
	MaxConcurrent int
	// CircuitMaxFailures opens a circuit breaker after that many
	// consecutive exhausted calls. Zero disables the breaker.
	CircuitMaxFailures int
	CircuitReset       time.Duration

	// AllowRefAutogen fills a missing "ref" on targets that permit it.
	AllowRefAutogen bool
	RefPrefix       string

	UserAgent  string
	HTTPClient *http.Client
	Logger     observe.Logger
	Metrics    observe.Metrics
}

// Client is the Resilient Upstream Client: it sends catalog requests to the
// Dolibarr REST API and classifies every outcome as a result or a
// *failure.Failure.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: honors cancellation during requests and backoff waits.
//   - Errors: every returned error is a *failure.Failure.
type Client struct {
	cfg        Config
	baseURL    string
	statusURL  string
	httpClient *http.Client
	bulkhead   *resilience.Bulkhead
	breaker    *resilience.CircuitBreaker
	logger     observe.Logger
	metrics    observe.Metrics
	now        func() time.Time
}

// New validates cfg and creates a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrMissingBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.RefPrefix == "" {
		cfg.RefPrefix = DefaultRefPrefix
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "dolibarr-mcp"
	}
	if cfg.HTTPClient == nil {
		// Attempts are bounded by the per-attempt context, not by the client.
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.NopMetrics()
	}

	c := &Client{
		cfg:        cfg,
		baseURL:    base,
		statusURL:  strings.TrimSuffix(base, "/index.php"),
		httpClient: cfg.HTTPClient,
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: cfg.MaxConcurrent,
			MaxWait:       cfg.Timeout,
		}),
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		now:     time.Now,
	}
	if cfg.CircuitMaxFailures > 0 {
		c.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  cfg.CircuitMaxFailures,
			ResetTimeout: cfg.CircuitReset,
			IsFailure:    retryLocally,
			OnStateChange: func(from, to resilience.State) {
				c.logger.Warn(context.Background(), "upstream circuit state changed",
					observe.F("from", from.String()), observe.F("to", to.String()))
			},
		})
	}
	return c, nil
}

// Execute builds the request for target from args, validates its body and
// performs the call. Status targets fall back to probe endpoints.
func (c *Client) Execute(ctx context.Context, target catalog.CallTarget, args map[string]any) (any, error) {
	req, err := target.Build(args)
	if err != nil {
		return nil, failure.From(err)
	}

	if target.Rules.AutoRef && c.cfg.AllowRefAutogen && req.Body != nil && isBlank(req.Body["ref"]) {
		req.Body["ref"] = generateRef(c.cfg.RefPrefix, c.now())
	}
	if !target.Rules.Empty() {
		if err := validatePayload(req.Endpoint, req.Body, target.Rules); err != nil {
			return nil, err
		}
	}

	if req.Status {
		return c.Status(ctx)
	}
	return c.Do(ctx, req)
}

// Do sends req with the full retry budget.
func (c *Client) Do(ctx context.Context, req catalog.Request) (any, error) {
	return c.call(ctx, req, c.baseURL, true)
}

func (c *Client) call(ctx context.Context, req catalog.Request, root string, retry bool) (any, error) {
	target, err := buildURL(root, req.Endpoint, req.Query)
	if err != nil {
		return nil, failure.ValidationError(req.Endpoint, nil, []failure.FieldError{
			{Field: "endpoint", Message: err.Error()},
		})
	}

	var result any
	attempt := 0
	op := func(ctx context.Context) error {
		attempt++
		c.logger.Debug(ctx, "upstream request",
			observe.F("method", req.Method),
			observe.F("endpoint", req.Endpoint),
			observe.F("attempt", attempt),
		)
		res, err := c.send(ctx, req.Method, target, req.Endpoint, req.Body)
		if err != nil {
			return err
		}
		result = res
		return nil
	}

	exec := c.executor(req.Endpoint, retry)
	if retry {
		err = exec.Execute(ctx, op)
	} else {
		err = exec.Once(ctx, op)
	}
	if err != nil {
		return nil, c.finalize(ctx, err, req.Endpoint, attempt)
	}
	return result, nil
}

// executor composes the shared bulkhead and breaker with a per-call retry
// whose hooks know the endpoint. Unguarded calls skip the breaker: their
// failures neither trip it nor are refused by it.
func (c *Client) executor(endpoint string, guarded bool) *resilience.Executor {
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxRetries: c.cfg.MaxRetries,
		BaseDelay:  c.cfg.RetryBackoff,
		MaxDelay:   c.cfg.MaxBackoff,
		RetryIf:    retryLocally,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			c.metrics.RecordRetry(context.Background(), endpoint, err)
			c.logger.Warn(context.Background(), "retrying upstream call",
				observe.F("endpoint", endpoint),
				observe.F("attempt", attempt+1),
				observe.F("max_attempts", c.cfg.MaxRetries+1),
				observe.F("backoff_ms", delay.Milliseconds()),
				observe.Err(err),
			)
		},
	})
	opts := []resilience.ExecutorOption{
		resilience.WithBulkhead(c.bulkhead),
		resilience.WithRetry(retry),
		resilience.WithTimeout(c.cfg.Timeout),
	}
	if guarded && c.breaker != nil {
		opts = append(opts, resilience.WithCircuitBreaker(c.breaker))
	}
	return resilience.NewExecutor(opts...)
}

// retryLocally reports whether err is worth another attempt. A 4xx
// answer is final whatever its kind.
func retryLocally(err error) bool {
	if errors.Is(err, resilience.ErrTimeout) {
		return true
	}
	f, ok := failure.As(err)
	if !ok || (f.Status >= 400 && f.Status < 500) {
		return false
	}
	return f.Kind.RetryLocally()
}

// send performs one HTTP exchange.
func (c *Client) send(ctx context.Context, method, target, endpoint string, body map[string]any) (any, error) {
	var reader io.Reader
	if body != nil && (method == http.MethodPost || method == http.MethodPut) {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, failure.New(failure.Validation, "request body is not JSON-encodable").
				WithEndpoint(endpoint).WithCause(err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, failure.New(failure.Unclassified, "cannot build request").
			WithEndpoint(endpoint).WithCause(err).WithCorrelation()
	}
	httpReq.Header.Set(APIKeyHeader, c.cfg.APIKey)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(ctx, err, endpoint)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransport(ctx, err, endpoint)
	}
	data := decodeBody(raw)

	if resp.StatusCode >= 400 {
		f := classifyStatus(resp.StatusCode, data, endpoint)
		fields := []observe.Field{
			observe.F("status", resp.StatusCode),
			observe.F("endpoint", endpoint),
			observe.F("code", f.Code),
		}
		if f.CorrelationID != "" {
			fields = append(fields, observe.F("correlation_id", f.CorrelationID), observe.F("body", truncate(string(raw), 500)))
		}
		if resp.StatusCode >= 500 {
			c.logger.Error(ctx, "upstream server error", fields...)
		} else {
			c.logger.Debug(ctx, "upstream client error", fields...)
		}
		return nil, f
	}
	return data, nil
}

// finalize turns the executor's error into the surfaced failure.
func (c *Client) finalize(ctx context.Context, err error, endpoint string, attempts int) *failure.Failure {
	var f *failure.Failure
	switch {
	case errors.Is(err, resilience.ErrTimeout):
		f = failure.Newf(failure.Timeout, "request to %s timed out after %s", endpoint, c.cfg.Timeout).WithCause(err)
	case errors.Is(err, resilience.ErrCircuitOpen):
		f = failure.New(failure.TransientServer, "upstream temporarily disabled after repeated failures").WithCause(err)
	case errors.Is(err, resilience.ErrBulkheadFull):
		f = failure.New(failure.TransientServer, "too many concurrent upstream requests").WithCause(err)
	default:
		f = failure.From(err)
	}
	if f.Endpoint == "" {
		f.WithEndpoint(endpoint)
	}
	if f.Kind.RetryLocally() {
		f.WithCorrelation()
		if attempts > 1 {
			f.WithDetail("attempts", attempts)
		}
		c.logger.Error(ctx, "upstream call failed",
			observe.F("endpoint", endpoint),
			observe.F("attempts", attempts),
			observe.F("code", f.Code),
			observe.F("correlation_id", f.CorrelationID),
			observe.Err(err),
		)
	}
	return f
}

func buildURL(root, endpoint string, query url.Values) (string, error) {
	path, rawQuery, _ := strings.Cut(strings.TrimLeft(endpoint, "/"), "?")
	if path == "" {
		return "", errors.New("endpoint is empty")
	}
	u, err := url.Parse(root + "/" + path)
	if err != nil {
		return "", err
	}
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", err
	}
	for k, vs := range query {
		q[k] = append(q[k], vs...)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// decodeBody parses a response body. An empty body is an empty object and
// a non-JSON body is kept as {"raw_response": text}.
func decodeBody(raw []byte) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return map[string]any{"raw_response": string(raw)}
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
