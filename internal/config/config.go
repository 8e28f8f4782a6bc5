// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the client configuration from a YAML file and
// VIDEOINDEXER_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tombee/videoindexer/internal/log"
	"github.com/tombee/videoindexer/internal/redact"
	"github.com/tombee/videoindexer/internal/tracing"
	"github.com/tombee/videoindexer/internal/transport"
	vierrors "github.com/tombee/videoindexer/pkg/errors"
)

// DefaultEndpoint is the public service root.
const DefaultEndpoint = "https://api.videoindexer.ai"

// Config is the complete client configuration.
type Config struct {
	// Endpoint is the service root URL.
	Endpoint string `yaml:"endpoint"`

	// Location is the account region, e.g. "trial" or "westus".
	Location string `yaml:"location"`

	// AccountID is the account GUID.
	AccountID string `yaml:"account_id"`

	Token   TokenConfig   `yaml:"token"`
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
	Tracing TracingConfig `yaml:"tracing"`
}

// TokenConfig says where the access token comes from and how it travels.
type TokenConfig struct {
	// Placement is "query" (accessToken parameter) or "bearer".
	Placement string `yaml:"placement"`

	// Secret is the secret key the token is stored under. Never the token itself.
	Secret string `yaml:"secret"`

	// RefreshSkew is how long before expiry a JWT token is refetched.
	RefreshSkew time.Duration `yaml:"refresh_skew"`

	// ClientCredentials, when set, obtains tokens with the OAuth2
	// client credentials flow instead of reading Secret.
	ClientCredentials *ClientCredentialsConfig `yaml:"client_credentials,omitempty"`
}

// ClientCredentialsConfig configures the OAuth2 client credentials flow.
type ClientCredentialsConfig struct {
	ClientID string `yaml:"client_id"`

	// ClientSecret is the secret key holding the client secret.
	ClientSecret string   `yaml:"client_secret"`
	TokenURL     string   `yaml:"token_url"`
	Scopes       []string `yaml:"scopes,omitempty"`
}

// HTTPConfig configures the shared transport.
type HTTPConfig struct {
	// Timeout bounds a whole call including retries. Zero means no bound.
	Timeout time.Duration `yaml:"timeout"`

	// AttemptTimeout bounds a single attempt.
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	UserAgent        string          `yaml:"user_agent"`
	MaxResponseBytes int64           `yaml:"max_response_bytes"`
	Retry            RetryConfig     `yaml:"retry"`
	RateLimit        RateLimitConfig `yaml:"rate_limit"`
}

// RetryConfig mirrors transport.RetryConfig in file form.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	BackoffFactor  float64       `yaml:"backoff_factor"`
	Jitter         time.Duration `yaml:"jitter"`
}

// RateLimitConfig limits outgoing requests. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string `yaml:"level"`

	// Format sets the output format (json, text).
	Format string `yaml:"format"`

	// AddSource adds source file and line information to logs.
	AddSource bool `yaml:"add_source"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Exporter   string            `yaml:"exporter"`
	Endpoint   string            `yaml:"endpoint"`
	Insecure   bool              `yaml:"insecure"`
	Headers    map[string]string `yaml:"headers,omitempty"`
	SampleRate float64           `yaml:"sample_rate"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	retry := transport.DefaultRetryConfig()
	httpDefaults := transport.DefaultHTTPConfig()
	return &Config{
		Endpoint: DefaultEndpoint,
		Location: "trial",
		Token: TokenConfig{
			Placement:   redact.PlacementQuery.String(),
			Secret:      "access_token",
			RefreshSkew: 2 * time.Minute,
		},
		HTTP: HTTPConfig{
			AttemptTimeout:   httpDefaults.AttemptTimeout,
			UserAgent:        httpDefaults.UserAgent,
			MaxResponseBytes: httpDefaults.MaxResponseBytes,
			Retry: RetryConfig{
				MaxAttempts:    retry.MaxAttempts,
				InitialBackoff: retry.InitialBackoff,
				MaxBackoff:     retry.MaxBackoff,
				BackoffFactor:  retry.BackoffFactor,
				Jitter:         retry.Jitter,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: string(log.FormatJSON),
		},
		Tracing: TracingConfig{
			Exporter:   tracing.ExporterNone,
			SampleRate: 1.0,
		},
	}
}

// Load loads configuration from environment variables and optionally from a YAML file.
// Environment variables take precedence over file-based configuration.
// If configPath is empty, only environment variables are used.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &vierrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	cfg.applyDefaults()

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in zero values left by a minimal config file.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Endpoint == "" {
		c.Endpoint = defaults.Endpoint
	}
	if c.Location == "" {
		c.Location = defaults.Location
	}
	if c.Token.Placement == "" {
		c.Token.Placement = defaults.Token.Placement
	}
	if c.Token.Secret == "" {
		c.Token.Secret = defaults.Token.Secret
	}
	if c.Token.RefreshSkew == 0 {
		c.Token.RefreshSkew = defaults.Token.RefreshSkew
	}

	if c.HTTP.AttemptTimeout == 0 {
		c.HTTP.AttemptTimeout = defaults.HTTP.AttemptTimeout
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = defaults.HTTP.UserAgent
	}
	if c.HTTP.MaxResponseBytes == 0 {
		c.HTTP.MaxResponseBytes = defaults.HTTP.MaxResponseBytes
	}
	r, d := &c.HTTP.Retry, defaults.HTTP.Retry
	if r.MaxAttempts == 0 {
		r.MaxAttempts = d.MaxAttempts
	}
	if r.InitialBackoff == 0 {
		r.InitialBackoff = d.InitialBackoff
	}
	if r.MaxBackoff == 0 {
		r.MaxBackoff = d.MaxBackoff
	}
	if r.BackoffFactor == 0 {
		r.BackoffFactor = d.BackoffFactor
	}

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = defaults.Tracing.Exporter
	}
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// loadFromEnv applies VIDEOINDEXER_* overrides. Malformed numbers and
// durations are reported rather than ignored.
func (c *Config) loadFromEnv() error {
	setString := func(name string, dst *string) {
		if val := os.Getenv(name); val != "" {
			*dst = val
		}
	}

	setString("VIDEOINDEXER_ENDPOINT", &c.Endpoint)
	setString("VIDEOINDEXER_LOCATION", &c.Location)
	setString("VIDEOINDEXER_ACCOUNT_ID", &c.AccountID)
	setString("VIDEOINDEXER_TOKEN_PLACEMENT", &c.Token.Placement)
	setString("VIDEOINDEXER_TOKEN_SECRET", &c.Token.Secret)
	setString("VIDEOINDEXER_USER_AGENT", &c.HTTP.UserAgent)
	setString("VIDEOINDEXER_TRACE_EXPORTER", &c.Tracing.Exporter)
	setString("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Tracing.Endpoint)

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("VIDEOINDEXER_LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_SOURCE"); val != "" {
		c.Log.AddSource = val == "1" || strings.ToLower(val) == "true"
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"VIDEOINDEXER_TIMEOUT", &c.HTTP.Timeout},
		{"VIDEOINDEXER_ATTEMPT_TIMEOUT", &c.HTTP.AttemptTimeout},
	}
	for _, d := range durations {
		val := os.Getenv(d.name)
		if val == "" {
			continue
		}
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return &vierrors.ConfigError{Key: d.name, Reason: "invalid duration", Cause: err}
		}
		*d.dst = parsed
	}

	if val := os.Getenv("VIDEOINDEXER_MAX_ATTEMPTS"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return &vierrors.ConfigError{Key: "VIDEOINDEXER_MAX_ATTEMPTS", Reason: "invalid integer", Cause: err}
		}
		c.HTTP.Retry.MaxAttempts = n
	}
	if val := os.Getenv("VIDEOINDEXER_RATE_LIMIT_RPS"); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return &vierrors.ConfigError{Key: "VIDEOINDEXER_RATE_LIMIT_RPS", Reason: "invalid number", Cause: err}
		}
		c.HTTP.RateLimit.RPS = f
	}
	if val := os.Getenv("VIDEOINDEXER_RATE_LIMIT_BURST"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return &vierrors.ConfigError{Key: "VIDEOINDEXER_RATE_LIMIT_BURST", Reason: "invalid integer", Cause: err}
		}
		c.HTTP.RateLimit.Burst = n
	}
	return nil
}

// Validate checks the configuration and returns the first problem as a
// *errors.ConfigError.
func (c *Config) Validate() error {
	if c.AccountID == "" {
		return &vierrors.ConfigError{Key: "account_id", Reason: "is required (set account_id or VIDEOINDEXER_ACCOUNT_ID)"}
	}
	if strings.TrimSpace(c.Location) == "" {
		return &vierrors.ConfigError{Key: "location", Reason: "is required"}
	}
	if !strings.HasPrefix(c.Endpoint, "https://") && !strings.HasPrefix(c.Endpoint, "http://") {
		return &vierrors.ConfigError{Key: "endpoint", Reason: "must start with http:// or https://"}
	}
	if _, err := redact.ParsePlacement(c.Token.Placement); err != nil {
		return &vierrors.ConfigError{Key: "token.placement", Reason: "invalid value", Cause: err}
	}
	if c.Token.ClientCredentials == nil && c.Token.Secret == "" {
		return &vierrors.ConfigError{Key: "token.secret", Reason: "is required"}
	}
	if cc := c.Token.ClientCredentials; cc != nil && (cc.ClientID == "" || cc.ClientSecret == "" || cc.TokenURL == "") {
		return &vierrors.ConfigError{Key: "token.client_credentials", Reason: "client_id, client_secret and token_url are required"}
	}
	if c.HTTP.Timeout < 0 {
		return &vierrors.ConfigError{Key: "http.timeout", Reason: "cannot be negative"}
	}
	if c.HTTP.RateLimit.RPS < 0 {
		return &vierrors.ConfigError{Key: "http.rate_limit.rps", Reason: "cannot be negative"}
	}

	httpCfg := c.TransportConfig()
	if err := httpCfg.Validate(); err != nil {
		return &vierrors.ConfigError{Key: "http", Reason: "invalid transport settings", Cause: err}
	}
	tracingCfg := c.TracingConfig("")
	if err := tracingCfg.Validate(); err != nil {
		return &vierrors.ConfigError{Key: "tracing", Reason: "invalid tracing settings", Cause: err}
	}
	switch log.Format(c.Log.Format) {
	case log.FormatJSON, log.FormatText:
	default:
		return &vierrors.ConfigError{Key: "log.format", Reason: fmt.Sprintf("unknown format %q (must be json or text)", c.Log.Format)}
	}
	return nil
}

// Placement returns the parsed token placement.
func (c *Config) Placement() redact.Placement {
	p, _ := redact.ParsePlacement(c.Token.Placement)
	return p
}

// TransportConfig converts the HTTP section to a transport configuration.
func (c *Config) TransportConfig() transport.HTTPConfig {
	cfg := transport.DefaultHTTPConfig()
	cfg.AttemptTimeout = c.HTTP.AttemptTimeout
	cfg.UserAgent = c.HTTP.UserAgent
	cfg.MaxResponseBytes = c.HTTP.MaxResponseBytes
	cfg.Retry.MaxAttempts = c.HTTP.Retry.MaxAttempts
	cfg.Retry.InitialBackoff = c.HTTP.Retry.InitialBackoff
	cfg.Retry.MaxBackoff = c.HTTP.Retry.MaxBackoff
	cfg.Retry.BackoffFactor = c.HTTP.Retry.BackoffFactor
	cfg.Retry.Jitter = c.HTTP.Retry.Jitter
	return cfg
}

// TracingConfig converts the tracing section. version is recorded as the
// service version.
func (c *Config) TracingConfig(version string) tracing.Config {
	cfg := tracing.DefaultConfig()
	cfg.Exporter = c.Tracing.Exporter
	cfg.Endpoint = c.Tracing.Endpoint
	cfg.Insecure = c.Tracing.Insecure
	cfg.Headers = c.Tracing.Headers
	cfg.ServiceVersion = version
	if c.Tracing.SampleRate > 0 {
		cfg.SampleRate = c.Tracing.SampleRate
	}
	return cfg
}

// LogConfig converts the log section.
func (c *Config) LogConfig() *log.Config {
	cfg := log.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Format = log.Format(c.Log.Format)
	cfg.AddSource = c.Log.AddSource
	return cfg
}
