package sdk

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"sigs.k8s.io/yaml"
)

// TransportMode selects a Transport variant.
type TransportMode string

const (
	// TransportDirect blocks the calling goroutine for each request.
	TransportDirect TransportMode = "direct"
	// TransportPooled runs each request on its own goroutine with retries.
	TransportPooled TransportMode = "pooled"
	// TransportReactor multiplexes requests over one fasthttp client.
	TransportReactor TransportMode = "reactor"
)

// Wire headers.
const (
	HeaderAPIKey    = "X-Roost-ApiKey"
	HeaderAgent     = "X-Roost-Agent"
	HeaderSession   = "X-Roost-SessionToken"
	HeaderDeviceID  = "X-Roost-DeviceId"
	HeaderTiming    = "X-Roost-UT"
	HeaderRequestID = "X-Request-Id"
)

const (
	// DefaultAgent identifies this SDK to the backend.
	DefaultAgent = "roost-go-sdk/1.0.0"

	// DefaultMaxAttempts bounds the pooled transport, first try included.
	DefaultMaxAttempts = 4
)

// Config holds the configuration for a Roost Service.
// Host, AppID and APIKey are required; everything else has a default.
//
// Configuration can be built using the fluent builder pattern:
//
//	config := sdk.DefaultConfig().
//	    WithHost("https://api.roost.example").
//	    WithApp("my-app", "secret-key").
//	    WithTransportMode(sdk.TransportPooled).
//	    WithCircuitBreaker(sdk.DefaultCircuitBreakerConfig())
//
//	svc, err := sdk.NewService(config)
type Config struct {
	// Host is the scheme and authority of the backend, e.g.
	// "https://api.roost.example".
	Host string

	// AppID names the application; it is part of every URL.
	AppID string

	// APIKey is sent with every request.
	APIKey string

	// Agent is sent as X-Roost-Agent.
	// Default: DefaultAgent
	Agent string

	// Timeout bounds a single HTTP exchange.
	// Default: 30s
	Timeout time.Duration

	// TransportMode selects the transport variant.
	// Default: TransportDirect
	TransportMode TransportMode

	// RetryConfig configures the pooled transport's retries.
	RetryConfig RetryConfig

	// TransportConfig holds connection pool settings.
	TransportConfig TransportConfig

	// RateLimit throttles requests client-side. Zero means unlimited.
	RateLimit RateLimitConfig

	// CircuitBreakerConfig guards the pooled transport. Nil disables it.
	CircuitBreakerConfig *CircuitBreakerConfig

	// SessionCacheSize bounds the number of cached user-scoped services.
	// Default: 1024
	SessionCacheSize int

	// SessionCacheTTL evicts cached user-scoped services this long after
	// they were created.
	// Default: 30m
	SessionCacheTTL time.Duration

	// Headers are added to every request.
	Headers map[string]string

	// RetryStrategy computes backoff delays. If nil, exponential backoff
	// built from RetryConfig is used.
	RetryStrategy RetryStrategy

	// RetryPredicate decides whether a pooled attempt is retried.
	// If nil, DefaultRetryPredicate is used.
	RetryPredicate RetryPredicate

	// Observer receives request, retry, breaker and session cache events.
	// If nil, NoopObserver is used.
	Observer Observer

	// Logger overrides the process logger.
	Logger *logrus.Logger

	// Types converts objects to and from application types.
	Types *TypeRegistry

	// DeviceStore persists the device identifier. If nil no device header
	// is sent.
	DeviceStore DeviceStore

	// HTTPClient replaces the net/http client of the direct and pooled
	// transports.
	HTTPClient *http.Client
}

// RetryConfig holds retry-related configuration for the pooled transport.
//
// Example:
//
//	config.RetryConfig = sdk.RetryConfig{
//	    MaxAttempts:     6,
//	    InitialInterval: 50 * time.Millisecond,
//	    MaxInterval:     10 * time.Second,
//	    Multiplier:      1.5,
//	}
type RetryConfig struct {
	// MaxAttempts counts the first try.
	// Default: 4
	MaxAttempts int

	// InitialInterval is the first backoff delay.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval caps the backoff delay.
	// Default: 5s
	MaxInterval time.Duration

	// Multiplier grows the delay between attempts.
	// Default: 2.0
	Multiplier float64
}

// TransportConfig holds HTTP connection pool settings.
type TransportConfig struct {
	// Default: 100
	MaxIdleConns int

	// Default: 10
	MaxConnsPerHost int

	// Default: 90s
	IdleConnTimeout time.Duration
}

// RateLimitConfig configures the client-side token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns a Config with defaults for everything except the
// application credentials.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithHost("https://api.roost.example").
//	    WithApp("my-app", "secret-key")
func DefaultConfig() *Config {
	return &Config{
		Agent:         DefaultAgent,
		Timeout:       30 * time.Second,
		TransportMode: TransportDirect,
		RetryConfig: RetryConfig{
			MaxAttempts:     DefaultMaxAttempts,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2.0,
		},
		TransportConfig: TransportConfig{
			MaxIdleConns:    100,
			MaxConnsPerHost: 10,
			IdleConnTimeout: 90 * time.Second,
		},
		SessionCacheSize: 1024,
		SessionCacheTTL:  30 * time.Minute,
		Headers:          make(map[string]string),
		Observer:         &NoopObserver{},
	}
}

// WithHost sets the backend host. A trailing slash is ignored.
func (c *Config) WithHost(host string) *Config {
	c.Host = host
	return c
}

// WithApp sets the application id and API key.
func (c *Config) WithApp(appID, apiKey string) *Config {
	c.AppID = appID
	c.APIKey = apiKey
	return c
}

// WithAgent overrides the agent header.
func (c *Config) WithAgent(agent string) *Config {
	c.Agent = agent
	return c
}

// WithTimeout sets the per-exchange timeout.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithTransportMode selects the transport variant.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithTransportMode(sdk.TransportReactor)
func (c *Config) WithTransportMode(mode TransportMode) *Config {
	c.TransportMode = mode
	return c
}

// WithMaxAttempts bounds the pooled transport's attempts per request.
func (c *Config) WithMaxAttempts(n int) *Config {
	c.RetryConfig.MaxAttempts = n
	return c
}

// WithRateLimit throttles outgoing requests.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithRateLimit(20, 5) // 20 req/s, bursts of 5
func (c *Config) WithRateLimit(perSecond float64, burst int) *Config {
	c.RateLimit = RateLimitConfig{RequestsPerSecond: perSecond, Burst: burst}
	return c
}

// WithHeader adds a header to every request.
func (c *Config) WithHeader(key, value string) *Config {
	if c.Headers == nil {
		c.Headers = make(map[string]string)
	}
	c.Headers[key] = value
	return c
}

// WithCircuitBreaker enables the circuit breaker on the pooled transport.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithCircuitBreaker(sdk.CircuitBreakerConfig{
//	        FailureThreshold: 5,
//	        SuccessThreshold: 2,
//	        Timeout:          30 * time.Second,
//	    })
func (c *Config) WithCircuitBreaker(config CircuitBreakerConfig) *Config {
	c.CircuitBreakerConfig = &config
	return c
}

// WithRetryStrategy sets the backoff strategy of the pooled transport.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithRetryStrategy(sdk.RetryStrategyFunc(func(attempt int) time.Duration {
//	        return time.Duration(attempt) * 200 * time.Millisecond
//	    }))
func (c *Config) WithRetryStrategy(strategy RetryStrategy) *Config {
	c.RetryStrategy = strategy
	return c
}

// WithRetryPredicate sets the decision function of the pooled transport.
func (c *Config) WithRetryPredicate(p RetryPredicate) *Config {
	c.RetryPredicate = p
	return c
}

// WithObserver sets the observer.
func (c *Config) WithObserver(observer Observer) *Config {
	c.Observer = observer
	return c
}

// WithLogger overrides the logger.
func (c *Config) WithLogger(l *logrus.Logger) *Config {
	c.Logger = l
	return c
}

// WithTypes installs the registry used by LoadResponse.Decode and Typed.
func (c *Config) WithTypes(r *TypeRegistry) *Config {
	c.Types = r
	return c
}

// WithDeviceStore enables the device identifier header.
func (c *Config) WithDeviceStore(s DeviceStore) *Config {
	c.DeviceStore = s
	return c
}

// WithSessionCache sizes the cache of user-scoped services.
func (c *Config) WithSessionCache(size int, ttl time.Duration) *Config {
	c.SessionCacheSize = size
	c.SessionCacheTTL = ttl
	return c
}

// WithHTTPClient replaces the net/http client.
func (c *Config) WithHTTPClient(client *http.Client) *Config {
	c.HTTPClient = client
	return c
}

// Validate checks required fields and fills defaults for missing values.
// It is called by NewService.
func (c *Config) Validate() error {
	c.Host = strings.TrimRight(strings.TrimSpace(c.Host), "/")
	if c.Host == "" {
		return validationError(ErrMissingBaseURL, "host is required")
	}
	u, err := url.Parse(c.Host)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return validationError(ErrInvalidConfig, "host %q must be an absolute URL", c.Host)
	}
	if c.AppID == "" {
		return validationError(ErrInvalidConfig, "app id is required")
	}
	if c.APIKey == "" {
		return validationError(ErrInvalidConfig, "api key is required")
	}

	switch c.TransportMode {
	case "":
		c.TransportMode = TransportDirect
	case TransportDirect, TransportPooled, TransportReactor:
	default:
		return validationError(ErrInvalidConfig, "unknown transport mode %q", c.TransportMode)
	}

	if c.Agent == "" {
		c.Agent = DefaultAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RetryConfig.MaxAttempts <= 0 {
		c.RetryConfig.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryConfig.InitialInterval <= 0 {
		c.RetryConfig.InitialInterval = 100 * time.Millisecond
	}
	if c.RetryConfig.MaxInterval <= 0 {
		c.RetryConfig.MaxInterval = 5 * time.Second
	}
	if c.RetryConfig.Multiplier <= 1 {
		c.RetryConfig.Multiplier = 2.0
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return validationError(ErrInvalidConfig, "rate limit must not be negative")
	}
	if c.SessionCacheSize <= 0 {
		c.SessionCacheSize = 1024
	}
	if c.SessionCacheTTL <= 0 {
		c.SessionCacheTTL = 30 * time.Minute
	}
	if c.Observer == nil {
		c.Observer = &NoopObserver{}
	}
	if c.CircuitBreakerConfig != nil {
		if c.CircuitBreakerConfig.FailureThreshold <= 0 {
			c.CircuitBreakerConfig.FailureThreshold = 5
		}
		if c.CircuitBreakerConfig.SuccessThreshold <= 0 {
			c.CircuitBreakerConfig.SuccessThreshold = 2
		}
		if c.CircuitBreakerConfig.Timeout <= 0 {
			c.CircuitBreakerConfig.Timeout = 30 * time.Second
		}
		if c.CircuitBreakerConfig.HalfOpenRequests <= 0 {
			c.CircuitBreakerConfig.HalfOpenRequests = 3
		}
	}
	return nil
}

// Environment variables read by LoadConfigFromEnv.
const (
	EnvHost        = "ROOST_HOST"
	EnvAppID       = "ROOST_APP_ID"
	EnvAPIKey      = "ROOST_API_KEY"
	EnvTimeout     = "ROOST_TIMEOUT"
	EnvTransport   = "ROOST_TRANSPORT"
	EnvMaxAttempts = "ROOST_MAX_ATTEMPTS"
	EnvRateLimit   = "ROOST_RATE_LIMIT"
)

// LoadConfigFromEnv returns DefaultConfig overridden by ROOST_* variables.
// Each file in envFiles is loaded first with godotenv; variables already
// set in the process win. Missing files are ignored.
//
// Example:
//
//	config, err := sdk.LoadConfigFromEnv(".env")
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, validationError(ErrInvalidConfig, "failed to load %s: %v", f, err)
		}
	}

	c := DefaultConfig()
	if v := os.Getenv(EnvHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvAppID); v != "" {
		c.AppID = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvTransport); v != "" {
		c.TransportMode = TransportMode(strings.ToLower(v))
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, validationError(ErrInvalidConfig, "%s: %v", EnvTimeout, err)
		}
		c.Timeout = d
	}
	if v := os.Getenv(EnvMaxAttempts); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, validationError(ErrInvalidConfig, "%s: %v", EnvMaxAttempts, err)
		}
		c.RetryConfig.MaxAttempts = n
	}
	if v := os.Getenv(EnvRateLimit); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, validationError(ErrInvalidConfig, "%s: %v", EnvRateLimit, err)
		}
		c.RateLimit.RequestsPerSecond = rps
	}
	return c, nil
}

// fileConfig mirrors the YAML layout; durations are strings.
type fileConfig struct {
	Host           string                `json:"host"`
	AppID          string                `json:"appId"`
	APIKey         string                `json:"apiKey"`
	Agent          string                `json:"agent"`
	Timeout        string                `json:"timeout"`
	Transport      TransportMode         `json:"transport"`
	MaxAttempts    int                   `json:"maxAttempts"`
	RateLimit      RateLimitConfig       `json:"rateLimit"`
	CircuitBreaker *fileCircuitBreaker   `json:"circuitBreaker"`
	Headers        map[string]string     `json:"headers"`
	SessionCache   *fileSessionCache     `json:"sessionCache"`
	Connections    *fileTransportSection `json:"connections"`
}

type fileCircuitBreaker struct {
	FailureThreshold int    `json:"failureThreshold"`
	SuccessThreshold int    `json:"successThreshold"`
	Timeout          string `json:"timeout"`
	HalfOpenRequests int    `json:"halfOpenRequests"`
}

type fileSessionCache struct {
	Size int    `json:"size"`
	TTL  string `json:"ttl"`
}

type fileTransportSection struct {
	MaxIdleConns    int    `json:"maxIdleConns"`
	MaxConnsPerHost int    `json:"maxConnsPerHost"`
	IdleConnTimeout string `json:"idleConnTimeout"`
}

// LoadConfigFile reads a YAML (or JSON) configuration file on top of
// DefaultConfig.
//
// Example file:
//
//	host: https://api.roost.example
//	appId: my-app
//	apiKey: secret-key
//	transport: pooled
//	timeout: 10s
//	circuitBreaker:
//	  failureThreshold: 5
//	  timeout: 30s
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, validationError(ErrInvalidConfig, "failed to read %s: %v", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML configuration bytes on top of DefaultConfig.
func ParseConfig(data []byte) (*Config, error) {
	var fc fileConfig
	err := yaml.Unmarshal(data, &fc)
	if err != nil {
		return nil, validationError(ErrInvalidConfig, "invalid configuration: %v", err)
	}

	c := DefaultConfig()
	c.Host = fc.Host
	c.AppID = fc.AppID
	c.APIKey = fc.APIKey
	if fc.Agent != "" {
		c.Agent = fc.Agent
	}
	if fc.Transport != "" {
		c.TransportMode = fc.Transport
	}
	if fc.MaxAttempts > 0 {
		c.RetryConfig.MaxAttempts = fc.MaxAttempts
	}
	c.RateLimit = fc.RateLimit
	for k, v := range fc.Headers {
		c.Headers[k] = v
	}
	if c.Timeout, err = parseDurationOr(fc.Timeout, c.Timeout); err != nil {
		return nil, err
	}
	if cb := fc.CircuitBreaker; cb != nil {
		timeout, err := parseDurationOr(cb.Timeout, 0)
		if err != nil {
			return nil, err
		}
		c.CircuitBreakerConfig = &CircuitBreakerConfig{
			FailureThreshold: cb.FailureThreshold,
			SuccessThreshold: cb.SuccessThreshold,
			Timeout:          timeout,
			HalfOpenRequests: cb.HalfOpenRequests,
		}
	}
	if sc := fc.SessionCache; sc != nil {
		if sc.Size > 0 {
			c.SessionCacheSize = sc.Size
		}
		if c.SessionCacheTTL, err = parseDurationOr(sc.TTL, c.SessionCacheTTL); err != nil {
			return nil, err
		}
	}
	if tc := fc.Connections; tc != nil {
		if tc.MaxIdleConns > 0 {
			c.TransportConfig.MaxIdleConns = tc.MaxIdleConns
		}
		if tc.MaxConnsPerHost > 0 {
			c.TransportConfig.MaxConnsPerHost = tc.MaxConnsPerHost
		}
		if c.TransportConfig.IdleConnTimeout, err = parseDurationOr(tc.IdleConnTimeout, c.TransportConfig.IdleConnTimeout); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func parseDurationOr(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, validationError(ErrInvalidConfig, "invalid duration %q: %v", s, err)
	}
	return d, nil
}

// baseURL returns {host}/v1/app/{appId}.
func (c *Config) baseURL() string {
	return fmt.Sprintf("%s/v1/app/%s", c.Host, url.PathEscape(c.AppID))
}
