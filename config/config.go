package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/marioser/dolibarr-mcp/auth"
	"github.com/marioser/dolibarr-mcp/observe"
	"github.com/marioser/dolibarr-mcp/secret"
	"github.com/marioser/dolibarr-mcp/upstream"
)

// Config is the complete server configuration.
type Config struct {
	Dolibarr  DolibarrConfig
	Cache     CacheConfig
	Server    ServerConfig
	Auth      AuthConfig
	Log       observe.LogConfig
	Telemetry TelemetryConfig
}

// DolibarrConfig configures the upstream client.
type DolibarrConfig struct {
	URL                string
	APIKey             string
	MaxRetries         int
	RetryBackoff       time.Duration
	Timeout            time.Duration
	MaxConcurrent      int
	CircuitMaxFailures int
	AllowRefAutogen    bool
	RefPrefix          string
}

// CacheConfig configures the cache store.
type CacheConfig struct {
	Enabled      bool
	Backend      string // redis|valkey|memory
	Host         string
	Port         int
	Password     string
	DB           int
	Namespace    string
	Codec        string // json|msgpack
	SingleFlight bool
	MaxTTL       time.Duration
}

// Addr is host:port of the cache server.
func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ServerConfig configures the MCP transport.
type ServerConfig struct {
	Transport string // stdio|http
	Host      string
	Port      int
}

// Addr is the HTTP listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig configures HTTP authentication.
type AuthConfig struct {
	APIKeys     []string
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	RateLimit   float64
	RateBurst   int
}

// TelemetryConfig selects the otel exporters.
type TelemetryConfig struct {
	TracingExporter string
	MetricsExporter string
	SamplePct       float64
}

// Options controls where Load reads from.
type Options struct {
	// ConfigFile is an explicit config file. When empty, config.yaml or
	// config.toml is searched in ConfigPaths.
	ConfigFile  string
	ConfigPaths []string

	// EnvFile is the dotenv file. Default ".env"; a missing default file is
	// not an error, a missing explicit one is.
	EnvFile string

	// Resolver resolves secret values. Default: secret.NewDefaultResolver(true).
	Resolver *secret.Resolver
}

// binding maps a viper key to its environment variable and default.
type binding struct {
	key string
	env string
	def any
}

var bindings = []binding{
	{"dolibarr.url", "DOLIBARR_URL", ""},
	{"dolibarr.api_key", "DOLIBARR_API_KEY", ""},
	{"dolibarr.max_retries", "DOLIBARR_MAX_RETRIES", 2},
	{"dolibarr.retry_backoff", "DOLIBARR_RETRY_BACKOFF", 500 * time.Millisecond},
	{"dolibarr.timeout", "DOLIBARR_TIMEOUT", 30 * time.Second},
	{"dolibarr.max_concurrent", "DOLIBARR_MAX_CONCURRENT", 16},
	{"dolibarr.circuit_max_failures", "DOLIBARR_CIRCUIT_MAX_FAILURES", 0},
	{"dolibarr.ref_autogen", "DOLIBARR_REF_AUTOGEN", false},
	{"dolibarr.ref_prefix", "DOLIBARR_REF_PREFIX", "AUTO"},

	{"cache.enabled", "CACHE_ENABLED", true},
	{"cache.backend", "CACHE_BACKEND", "redis"},
	{"cache.host", "DRAGONFLY_HOST", "localhost"},
	{"cache.port", "DRAGONFLY_PORT", 6379},
	{"cache.password", "DRAGONFLY_PASSWORD", ""},
	{"cache.db", "DRAGONFLY_DB", 0},
	{"cache.namespace", "CACHE_NAMESPACE", "dolibarr:tool"},
	{"cache.codec", "CACHE_CODEC", "json"},
	{"cache.single_flight", "CACHE_SINGLE_FLIGHT", false},
	{"cache.max_ttl", "CACHE_MAX_TTL", time.Hour},

	{"server.transport", "MCP_TRANSPORT", "stdio"},
	{"server.host", "MCP_HTTP_HOST", "0.0.0.0"},
	{"server.port", "MCP_HTTP_PORT", 8080},

	{"auth.api_keys", "MCP_API_KEYS", ""},
	{"auth.api_key", "MCP_API_KEY", ""},
	{"auth.jwt_secret", "MCP_JWT_SECRET", ""},
	{"auth.jwt_issuer", "MCP_JWT_ISSUER", ""},
	{"auth.jwt_audience", "MCP_JWT_AUDIENCE", ""},
	{"auth.rate_limit", "MCP_RATE_LIMIT", 0.0},
	{"auth.rate_burst", "MCP_RATE_BURST", 0},

	{"log.level", "LOG_LEVEL", "info"},
	{"log.format", "LOG_FORMAT", "json"},
	{"log.output", "LOG_OUTPUT", "stderr"},
	{"log.backend", "LOG_BACKEND", observe.BackendZap},

	{"telemetry.tracing_exporter", "OTEL_TRACING_EXPORTER", "none"},
	{"telemetry.metrics_exporter", "OTEL_METRICS_EXPORTER", "none"},
	{"telemetry.sample_pct", "OTEL_SAMPLE_PCT", 1.0},
}

// Load reads, resolves, normalises and validates the configuration.
func Load(ctx context.Context, opts Options) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	for _, b := range bindings {
		v.SetDefault(b.key, b.def)
		_ = v.BindEnv(b.key, b.env)
	}
	if err := readConfigFile(v, opts); err != nil {
		return nil, err
	}

	cfg := &Config{
		Dolibarr: DolibarrConfig{
			URL:                v.GetString("dolibarr.url"),
			APIKey:             v.GetString("dolibarr.api_key"),
			MaxRetries:         v.GetInt("dolibarr.max_retries"),
			RetryBackoff:       v.GetDuration("dolibarr.retry_backoff"),
			Timeout:            v.GetDuration("dolibarr.timeout"),
			MaxConcurrent:      v.GetInt("dolibarr.max_concurrent"),
			CircuitMaxFailures: v.GetInt("dolibarr.circuit_max_failures"),
			AllowRefAutogen:    v.GetBool("dolibarr.ref_autogen"),
			RefPrefix:          v.GetString("dolibarr.ref_prefix"),
		},
		Cache: CacheConfig{
			Enabled:      v.GetBool("cache.enabled"),
			Backend:      strings.ToLower(v.GetString("cache.backend")),
			Host:         v.GetString("cache.host"),
			Port:         v.GetInt("cache.port"),
			Password:     v.GetString("cache.password"),
			DB:           v.GetInt("cache.db"),
			Namespace:    v.GetString("cache.namespace"),
			Codec:        strings.ToLower(v.GetString("cache.codec")),
			SingleFlight: v.GetBool("cache.single_flight"),
			MaxTTL:       v.GetDuration("cache.max_ttl"),
		},
		Server: ServerConfig{
			Transport: strings.ToLower(v.GetString("server.transport")),
			Host:      v.GetString("server.host"),
			Port:      v.GetInt("server.port"),
		},
		Auth: AuthConfig{
			APIKeys:     apiKeys(v),
			JWTSecret:   v.GetString("auth.jwt_secret"),
			JWTIssuer:   v.GetString("auth.jwt_issuer"),
			JWTAudience: v.GetString("auth.jwt_audience"),
			RateLimit:   v.GetFloat64("auth.rate_limit"),
			RateBurst:   v.GetInt("auth.rate_burst"),
		},
		Log: observe.LogConfig{
			Level:   strings.ToLower(v.GetString("log.level")),
			Format:  strings.ToLower(v.GetString("log.format")),
			Output:  v.GetString("log.output"),
			Backend: strings.ToLower(v.GetString("log.backend")),
		},
		Telemetry: TelemetryConfig{
			TracingExporter: strings.ToLower(v.GetString("telemetry.tracing_exporter")),
			MetricsExporter: strings.ToLower(v.GetString("telemetry.metrics_exporter")),
			SamplePct:       v.GetFloat64("telemetry.sample_pct"),
		},
	}

	resolver := opts.Resolver
	if resolver == nil {
		resolver = secret.NewDefaultResolver(true)
	}
	if err := cfg.resolveSecrets(ctx, resolver); err != nil {
		return nil, err
	}

	cfg.Dolibarr.URL = NormalizeURL(cfg.Dolibarr.URL)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("config: load %s: %w", path, err)
}

func readConfigFile(v *viper.Viper, opts Options) error {
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", opts.ConfigFile, err)
		}
		return nil
	}

	v.SetConfigName("config")
	paths := opts.ConfigPaths
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("config: read config file: %w", err)
		}
	}
	return nil
}

// apiKeys reads MCP_API_KEYS as a comma-separated list, falling back to
// the single MCP_API_KEY. A config file may also give a list.
func apiKeys(v *viper.Viper) []string {
	var keys []string
	switch raw := v.Get("auth.api_keys").(type) {
	case string:
		keys = auth.ParseKeys(raw)
	case []any:
		for _, k := range raw {
			if s, ok := k.(string); ok {
				keys = append(keys, auth.ParseKeys(s)...)
			}
		}
	}
	if len(keys) == 0 {
		keys = auth.ParseKeys(v.GetString("auth.api_key"))
	}
	return keys
}

func (c *Config) resolveSecrets(ctx context.Context, r *secret.Resolver) error {
	err := r.ResolveAll(ctx, map[string]*string{
		"DOLIBARR_API_KEY":   &c.Dolibarr.APIKey,
		"DRAGONFLY_PASSWORD": &c.Cache.Password,
		"MCP_JWT_SECRET":     &c.Auth.JWTSecret,
	})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	keys, err := r.ResolveSlice(ctx, c.Auth.APIKeys)
	if err != nil {
		return fmt.Errorf("config: resolve MCP_API_KEYS: %w", err)
	}
	c.Auth.APIKeys = keys
	return nil
}

// NormalizeURL strips trailing slashes and completes the API entry point:
// a URL whose path lacks /api gets /api/index.php, one with /api gets
// /index.php.
func NormalizeURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	if u == "" || strings.HasSuffix(u, "/index.php") {
		return u
	}
	path := u
	if parsed, err := url.Parse(u); err == nil && parsed.Host != "" {
		path = parsed.Path
	}
	if !strings.Contains(path, "/api") {
		return u + "/api/index.php"
	}
	return u + "/index.php"
}

// Upstream returns the upstream client configuration. The caller adds the
// logger and metrics.
func (c *Config) Upstream() upstream.Config {
	return upstream.Config{
		BaseURL:            c.Dolibarr.URL,
		APIKey:             c.Dolibarr.APIKey,
		MaxRetries:         c.Dolibarr.MaxRetries,
		RetryBackoff:       c.Dolibarr.RetryBackoff,
		Timeout:            c.Dolibarr.Timeout,
		MaxConcurrent:      c.Dolibarr.MaxConcurrent,
		CircuitMaxFailures: c.Dolibarr.CircuitMaxFailures,
		AllowRefAutogen:    c.Dolibarr.AllowRefAutogen,
		RefPrefix:          c.Dolibarr.RefPrefix,
	}
}

// AuthMiddleware returns the HTTP authentication configuration.
func (c *Config) AuthMiddleware() auth.Config {
	return auth.Config{
		APIKeys:   c.Auth.APIKeys,
		JWTSecret: c.Auth.JWTSecret,
		JWT: auth.JWTConfig{
			Issuer:   c.Auth.JWTIssuer,
			Audience: c.Auth.JWTAudience,
		},
		RateLimit: c.Auth.RateLimit,
		RateBurst: c.Auth.RateBurst,
	}
}
