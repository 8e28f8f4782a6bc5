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

package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/videoindexer/internal/log"
	"github.com/tombee/videoindexer/internal/tracing"
)

const tracerName = "github.com/tombee/videoindexer/internal/transport"

// Doer is the subset of *http.Client used by HTTPTransport.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	// AttemptTimeout bounds a single send, including reading the body.
	// Zero means only the caller's context applies.
	AttemptTimeout time.Duration

	// Retry configures retry behavior (optional, uses defaults if nil)
	Retry *RetryConfig

	// UserAgent is set on requests that do not carry one
	UserAgent string

	// MaxIdleConns and MaxIdleConnsPerHost size the connection pool
	MaxIdleConns        int
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle pooled connection is kept
	IdleConnTimeout time.Duration

	// DisableKeepAlives turns connection reuse off
	DisableKeepAlives bool

	// MaxResponseBytes bounds the body read per response (default: 32 MiB)
	MaxResponseBytes int64
}

// DefaultHTTPConfig returns the configuration of the shared, pooled transport.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		AttemptTimeout:      30 * time.Second,
		Retry:               DefaultRetryConfig(),
		UserAgent:           "videoindexer-go/1.0",
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		MaxResponseBytes:    32 << 20,
	}
}

// Validate checks if the configuration is valid.
func (c *HTTPConfig) Validate() error {
	if c.AttemptTimeout < 0 {
		return fmt.Errorf("attempt_timeout must be non-negative, got %v", c.AttemptTimeout)
	}
	if c.MaxResponseBytes < 0 {
		return fmt.Errorf("max_response_bytes must be non-negative, got %d", c.MaxResponseBytes)
	}
	if c.Retry != nil {
		if err := c.Retry.Validate(); err != nil {
			return fmt.Errorf("invalid retry configuration: %w", err)
		}
	}
	return nil
}

// HTTPTransport implements Transport over net/http.
//
// The underlying client is shared across goroutines. Per-request headers are
// set on each *http.Request and never on the client.
type HTTPTransport struct {
	name        string
	config      HTTPConfig
	client      Doer
	rateLimiter RateLimiter
	logger      *slog.Logger
	tracer      trace.Tracer
}

// Option configures an HTTPTransport.
type Option func(*HTTPTransport)

// WithDoer replaces the HTTP client. Tests use it to inject fakes.
func WithDoer(d Doer) Option {
	return func(t *HTTPTransport) {
		t.client = d
	}
}

// WithRateLimiter throttles sends. Each attempt waits for a token.
func WithRateLimiter(l RateLimiter) Option {
	return func(t *HTTPTransport) {
		t.rateLimiter = l
	}
}

// WithLogger sets the logger for retry and defect messages.
func WithLogger(l *slog.Logger) Option {
	return func(t *HTTPTransport) {
		t.logger = l
	}
}

// WithTracerProvider sets the tracer provider used for client spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(t *HTTPTransport) {
		t.tracer = tp.Tracer(tracerName)
	}
}

// WithName overrides the transport name reported by Name.
func WithName(name string) Option {
	return func(t *HTTPTransport) {
		t.name = name
	}
}

// NewHTTPTransport creates an HTTP transport with the given configuration.
func NewHTTPTransport(config HTTPConfig, opts ...Option) (*HTTPTransport, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Retry == nil {
		config.Retry = DefaultRetryConfig()
	}
	if config.MaxResponseBytes == 0 {
		config.MaxResponseBytes = 32 << 20
	}

	t := &HTTPTransport{
		name:   "http",
		config: config,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.client == nil {
		t.client = newHTTPClient(config)
	}
	t.logger = log.WithComponent(t.logger, "transport")
	return t, nil
}

func newHTTPClient(config HTTPConfig) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        config.MaxIdleConns,
			MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
			IdleConnTimeout:     config.IdleConnTimeout,
			DisableKeepAlives:   config.DisableKeepAlives,

			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ForceAttemptHTTP2:     !config.DisableKeepAlives,
		},
	}
}

// Name returns the transport identifier.
func (t *HTTPTransport) Name() string {
	return t.name
}

// Send executes req with retry.
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return nil, &TransportError{
			Type:      ErrorTypeInvalidReq,
			Message:   fmt.Sprintf("invalid request: %s", err.Error()),
			Retryable: false,
			Cause:     err,
		}
	}

	ctx, span := t.tracer.Start(ctx, "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.LogURL),
			attribute.String("transport.name", t.name),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := Retry(ctx, t.config.Retry, req.LogURL,
		func(ctx context.Context, attempt int) (*Response, error) {
			return t.sendOnce(ctx, req, attempt)
		},
		func(attempt int, reason string, delay time.Duration) {
			t.logger.DebugContext(ctx, "retrying request",
				slog.String(log.MethodKey, req.Method),
				slog.String(log.URLKey, req.LogURL),
				slog.Int(log.AttemptKey, attempt),
				slog.String("reason", reason),
				slog.Duration("backoff", delay),
			)
		},
	)
	recordRequest(req.Method, statusClass(resp, err), time.Since(start))

	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			span.SetAttributes(
				attribute.String("error.type", string(te.Type)),
				attribute.Int("http.request.resend_count", te.Attempts-1),
			)
			if te.Type == ErrorTypeNullResponse {
				t.logger.ErrorContext(ctx, "transport returned no response",
					slog.String(log.MethodKey, req.Method),
					slog.String(log.URLKey, req.LogURL),
					slog.Int(log.AttemptKey, te.Attempts),
				)
			}
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("http.response.status_code", resp.StatusCode),
		attribute.Int("http.request.resend_count", resp.Attempts()-1),
	)
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}
	return resp, nil
}

// sendOnce executes a single HTTP request without retry logic.
func (t *HTTPTransport) sendOnce(ctx context.Context, req *Request, attempt int) (*Response, error) {
	if t.rateLimiter != nil {
		if err := t.rateLimiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, contextError(ctx, req.LogURL, 0)
			}
			return nil, &TransportError{
				Type:      ErrorTypeRateLimitWait,
				Message:   fmt.Sprintf("rate limit wait for %s failed", req.LogURL),
				Retryable: false,
				Cause:     err,
			}
		}
	}

	attemptCtx := ctx
	cancel := func() {}
	if t.config.AttemptTimeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, t.config.AttemptTimeout)
	}
	defer cancel()

	httpReq, err := t.buildHTTPRequest(attemptCtx, req)
	if err != nil {
		return nil, &TransportError{
			Type:      ErrorTypeInvalidReq,
			Message:   fmt.Sprintf("failed to build request for %s", req.LogURL),
			Retryable: false,
			Cause:     scrubURLError(err, req.LogURL),
		}
	}

	log.Trace(ctx, t.logger, "sending request",
		slog.String(log.MethodKey, req.Method),
		slog.String(log.URLKey, req.LogURL),
		slog.Int(log.AttemptKey, attempt),
	)

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classifyDoError(ctx, attemptCtx, scrubURLError(err, req.LogURL), req.LogURL)
	}
	if httpResp == nil {
		return nil, &TransportError{
			Type:      ErrorTypeNullResponse,
			Message:   fmt.Sprintf("http client returned no response for %s", req.LogURL),
			Retryable: false,
		}
	}

	var body []byte
	if httpResp.Body != nil {
		defer httpResp.Body.Close()
		limit := t.config.MaxResponseBytes
		body, err = io.ReadAll(io.LimitReader(httpResp.Body, limit+1))
		if err != nil {
			return nil, classifyDoError(ctx, attemptCtx, scrubURLError(err, req.LogURL), req.LogURL)
		}
		if int64(len(body)) > limit {
			return nil, &TransportError{
				Type:      ErrorTypeResponseTooLarge,
				Message:   fmt.Sprintf("response body from %s exceeds %d bytes (status %d)", req.LogURL, limit, httpResp.StatusCode),
				Retryable: false,
			}
		}
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
		Metadata:   make(map[string]interface{}),
	}
	if requestID := httpResp.Header.Get("x-ms-request-id"); requestID != "" {
		resp.Metadata[MetadataRequestID] = requestID
	}
	return resp, nil
}

// buildHTTPRequest constructs a fresh *http.Request for one attempt.
func (t *HTTPTransport) buildHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, err
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if httpReq.Header.Get("User-Agent") == "" && t.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", t.config.UserAgent)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	tracing.InjectHTTPHeaders(ctx, httpReq)

	return httpReq, nil
}

var validMethods = map[string]bool{
	http.MethodGet: true, http.MethodPost: true, http.MethodPut: true,
	http.MethodDelete: true, http.MethodPatch: true, http.MethodHead: true,
}

func validateRequest(req *Request) error {
	if req == nil {
		return fmt.Errorf("request is nil")
	}
	if !validMethods[strings.ToUpper(req.Method)] {
		return fmt.Errorf("invalid HTTP method: %q", req.Method)
	}
	if req.URL == "" {
		return fmt.Errorf("URL is required")
	}
	if req.LogURL == "" {
		return fmt.Errorf("log URL is required")
	}
	return nil
}

// scrubURLError replaces the URL inside a *url.Error with the masked one so
// the real URL never reaches an error message.
func scrubURLError(err error, logURL string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = logURL
	}
	return err
}
