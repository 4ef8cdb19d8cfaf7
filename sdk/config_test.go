package sdk

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultAgent, cfg.Agent)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, TransportDirect, cfg.TransportMode)
	assert.Equal(t, DefaultMaxAttempts, cfg.RetryConfig.MaxAttempts)
	assert.Equal(t, 1024, cfg.SessionCacheSize)
	assert.Nil(t, cfg.CircuitBreakerConfig)
	assert.IsType(t, &NoopObserver{}, cfg.Observer)
}

func TestConfig_Builder(t *testing.T) {
	cfg := DefaultConfig().
		WithHost("https://api.roost.example/").
		WithApp("my app", "secret").
		WithAgent("tests/1.0").
		WithTimeout(5*time.Second).
		WithTransportMode(TransportPooled).
		WithMaxAttempts(6).
		WithRateLimit(10, 2).
		WithHeader("X-Trace", "1").
		WithCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3}).
		WithSessionCache(8, time.Minute)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://api.roost.example", cfg.Host)
	assert.Equal(t, "https://api.roost.example/v1/app/my%20app", cfg.baseURL())
	assert.Equal(t, "tests/1.0", cfg.Agent)
	assert.Equal(t, 6, cfg.RetryConfig.MaxAttempts)
	assert.Equal(t, RateLimitConfig{RequestsPerSecond: 10, Burst: 2}, cfg.RateLimit)
	assert.Equal(t, "1", cfg.Headers["X-Trace"])
	assert.Equal(t, 8, cfg.SessionCacheSize)

	require.NotNil(t, cfg.CircuitBreakerConfig)
	assert.Equal(t, 3, cfg.CircuitBreakerConfig.FailureThreshold)
	assert.Equal(t, 2, cfg.CircuitBreakerConfig.SuccessThreshold, "defaulted")
	assert.Equal(t, 30*time.Second, cfg.CircuitBreakerConfig.Timeout, "defaulted")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"missing host", func(c *Config) { c.Host = " " }, ErrMissingBaseURL},
		{"relative host", func(c *Config) { c.Host = "api.roost.example" }, ErrInvalidConfig},
		{"missing app", func(c *Config) { c.AppID = "" }, ErrInvalidConfig},
		{"missing key", func(c *Config) { c.APIKey = "" }, ErrInvalidConfig},
		{"unknown transport", func(c *Config) { c.TransportMode = "smoke" }, ErrInvalidConfig},
		{"negative rate", func(c *Config) { c.RateLimit.RequestsPerSecond = -1 }, ErrInvalidConfig},
		{"valid", func(c *Config) {}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig().WithHost("https://h").WithApp("a", "k")
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestConfig_ValidateFillsZeroValues(t *testing.T) {
	cfg := &Config{Host: "https://h", AppID: "a", APIKey: "k"}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, TransportDirect, cfg.TransportMode)
	assert.Equal(t, DefaultAgent, cfg.Agent)
	assert.Equal(t, 100*time.Millisecond, cfg.RetryConfig.InitialInterval)
	assert.Equal(t, 2.0, cfg.RetryConfig.Multiplier)
	assert.Equal(t, 30*time.Minute, cfg.SessionCacheTTL)
	assert.NotNil(t, cfg.Observer)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv(EnvHost, "https://env.roost.example")
	t.Setenv(EnvAppID, "env-app")
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvTransport, "REACTOR")
	t.Setenv(EnvTimeout, "7s")
	t.Setenv(EnvMaxAttempts, "2")
	t.Setenv(EnvRateLimit, "12.5")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://env.roost.example", cfg.Host)
	assert.Equal(t, "env-app", cfg.AppID)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, TransportReactor, cfg.TransportMode)
	assert.Equal(t, 7*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.RetryConfig.MaxAttempts)
	assert.Equal(t, 12.5, cfg.RateLimit.RequestsPerSecond)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv_DotEnvFile(t *testing.T) {
	t.Setenv(EnvHost, "https://process.wins")
	t.Setenv(EnvAppID, "")
	t.Setenv(EnvAPIKey, "")

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ROOST_HOST=https://file.loses\nROOST_API_KEY=file-key\n"), 0o600))

	cfg, err := LoadConfigFromEnv(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "https://process.wins", cfg.Host)
	assert.Equal(t, "", cfg.APIKey, "empty but set variables are not overridden by the file")
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	t.Setenv(EnvTimeout, "soon")
	_, err := LoadConfigFromEnv()
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestParseConfig(t *testing.T) {
	data := []byte(`
host: https://yaml.roost.example
appId: yaml-app
apiKey: yaml-key
transport: pooled
timeout: 10s
maxAttempts: 3
rateLimit:
  requestsPerSecond: 5
  burst: 2
headers:
  X-Env: staging
circuitBreaker:
  failureThreshold: 4
  timeout: 1m
sessionCache:
  size: 16
  ttl: 5m
connections:
  maxConnsPerHost: 20
  idleConnTimeout: 30s
`)
	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, "https://yaml.roost.example", cfg.Host)
	assert.Equal(t, TransportPooled, cfg.TransportMode)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.RetryConfig.MaxAttempts)
	assert.Equal(t, RateLimitConfig{RequestsPerSecond: 5, Burst: 2}, cfg.RateLimit)
	assert.Equal(t, "staging", cfg.Headers["X-Env"])
	require.NotNil(t, cfg.CircuitBreakerConfig)
	assert.Equal(t, 4, cfg.CircuitBreakerConfig.FailureThreshold)
	assert.Equal(t, time.Minute, cfg.CircuitBreakerConfig.Timeout)
	assert.Equal(t, 16, cfg.SessionCacheSize)
	assert.Equal(t, 5*time.Minute, cfg.SessionCacheTTL)
	assert.Equal(t, 20, cfg.TransportConfig.MaxConnsPerHost)
	assert.Equal(t, 100, cfg.TransportConfig.MaxIdleConns, "default kept")
	assert.Equal(t, 30*time.Second, cfg.TransportConfig.IdleConnTimeout)
	require.NoError(t, cfg.Validate())
}

func TestParseConfig_Errors(t *testing.T) {
	_, err := ParseConfig([]byte("timeout: [1, 2"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = ParseConfig([]byte("timeout: often"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = ParseConfig([]byte("sessionCache:\n  ttl: forever\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = ParseConfig([]byte("connections:\n  idleConnTimeout: soon\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roost.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: https://h\nappId: a\napiKey: k\n"), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://h/v1/app/a", cfg.baseURL())
}
