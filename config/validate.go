package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"

	"github.com/marioser/dolibarr-mcp/observe"
)

// Validation errors.
var (
	ErrMissingURL       = errors.New("config: DOLIBARR_URL is required")
	ErrMissingAPIKey    = errors.New("config: DOLIBARR_API_KEY is required")
	ErrInvalidURL       = errors.New("config: DOLIBARR_URL must be an http:// or https:// URL")
	ErrInvalidTimeout   = errors.New("config: timeouts must be positive")
	ErrInvalidRetries   = errors.New("config: DOLIBARR_MAX_RETRIES must not be negative")
	ErrInvalidBackend   = errors.New("config: unknown cache backend")
	ErrInvalidCodec     = errors.New("config: unknown cache codec")
	ErrInvalidTransport = errors.New("config: unknown transport")
	ErrInvalidPort      = errors.New("config: port out of range")
)

// Cache backends.
const (
	BackendRedis  = "redis"
	BackendValkey = "valkey"
	BackendMemory = "memory"
)

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

var (
	validBackends   = []string{BackendRedis, BackendValkey, BackendMemory}
	validCodecs     = []string{"json", "msgpack"}
	validTransports = []string{TransportStdio, TransportHTTP}
)

// Validate joins every problem with c into one error.
func (c *Config) Validate() error {
	var errs []error

	switch {
	case c.Dolibarr.URL == "":
		errs = append(errs, ErrMissingURL)
	default:
		u, err := url.Parse(c.Dolibarr.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidURL, c.Dolibarr.URL))
		}
	}
	if c.Dolibarr.APIKey == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	if c.Dolibarr.Timeout <= 0 || c.Dolibarr.RetryBackoff <= 0 {
		errs = append(errs, ErrInvalidTimeout)
	}
	if c.Dolibarr.MaxRetries < 0 {
		errs = append(errs, ErrInvalidRetries)
	}

	if !slices.Contains(validBackends, c.Cache.Backend) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidBackend, c.Cache.Backend))
	}
	if !slices.Contains(validCodecs, c.Cache.Codec) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidCodec, c.Cache.Codec))
	}
	if c.Cache.Enabled && c.Cache.Backend != BackendMemory && !validPort(c.Cache.Port) {
		errs = append(errs, fmt.Errorf("%w: cache port %d", ErrInvalidPort, c.Cache.Port))
	}

	if !slices.Contains(validTransports, c.Server.Transport) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidTransport, c.Server.Transport))
	}
	if c.Server.Transport == TransportHTTP && !validPort(c.Server.Port) {
		errs = append(errs, fmt.Errorf("%w: http port %d", ErrInvalidPort, c.Server.Port))
	}

	obs := c.Observe("dolibarr-mcp", "dev")
	if err := obs.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func validPort(p int) bool { return p > 0 && p <= 65535 }

// tracing and metrics are off when the exporter is "none" or empty.
func exporterEnabled(name string) bool { return name != "" && name != "none" }

// Observe returns the observer configuration.
func (c *Config) Observe(service, version string) observe.Config {
	return observe.Config{
		ServiceName: service,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   exporterEnabled(c.Telemetry.TracingExporter),
			Exporter:  c.Telemetry.TracingExporter,
			SamplePct: c.Telemetry.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  exporterEnabled(c.Telemetry.MetricsExporter),
			Exporter: c.Telemetry.MetricsExporter,
		},
		Logging: c.Log,
	}
}
