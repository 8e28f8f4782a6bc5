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
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// RetryConfig configures retry behavior for transport operations.
type RetryConfig struct {
	// MaxAttempts is the total number of sends, including the first (default: 3)
	MaxAttempts int

	// InitialBackoff is the initial backoff duration (default: 500ms)
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration, also the cap for Retry-After (default: 30s)
	MaxBackoff time.Duration

	// BackoffFactor is the exponential backoff multiplier (default: 2.0)
	BackoffFactor float64

	// Jitter is the upper bound of the random delay added to each backoff (default: 100ms)
	Jitter time.Duration

	// RetryableStatusCodes lists HTTP status codes that should be retried
	// Default: [408, 429, 500, 502, 503, 504]
	RetryableStatusCodes []int
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:          3,
		InitialBackoff:       500 * time.Millisecond,
		MaxBackoff:           30 * time.Second,
		BackoffFactor:        2.0,
		Jitter:               100 * time.Millisecond,
		RetryableStatusCodes: []int{408, 429, 500, 502, 503, 504},
	}
}

// NoRetryConfig returns a configuration that sends exactly once.
func NoRetryConfig() *RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = 1
	return cfg
}

// Validate checks if the retry configuration is valid.
func (c *RetryConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.InitialBackoff < 0 {
		return fmt.Errorf("initial_backoff must be non-negative, got %v", c.InitialBackoff)
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff (%v) must be >= initial_backoff (%v)", c.MaxBackoff, c.InitialBackoff)
	}
	if c.BackoffFactor < 1.0 {
		return fmt.Errorf("backoff_factor must be >= 1.0, got %f", c.BackoffFactor)
	}
	if c.Jitter < 0 {
		return fmt.Errorf("jitter must be non-negative, got %v", c.Jitter)
	}
	return nil
}

// IsRetryable returns true if the given status code should be retried.
func (c *RetryConfig) IsRetryable(statusCode int) bool {
	for _, code := range c.RetryableStatusCodes {
		if code == statusCode {
			return true
		}
	}
	return false
}

// AttemptFunc performs a single send. attempt starts at 1.
type AttemptFunc func(ctx context.Context, attempt int) (*Response, error)

// RetryObserver is called before each backoff sleep.
type RetryObserver func(attempt int, reason string, delay time.Duration)

// Retry runs fn until it produces a final outcome.
//
// A call moves Pending -> Sending -> (Retry -> Sending)* -> Completed | Exhausted.
// Retryable TransportErrors and responses with a retryable status are retried
// with exponential backoff and jitter, honoring Retry-After. When attempts run
// out on an error the TransportError is returned with Attempts set; when they
// run out on a response, that last response is returned. A nil response with
// a nil error becomes a null_response error and is never retried.
func Retry(ctx context.Context, config *RetryConfig, logURL string, fn AttemptFunc, observe RetryObserver) (*Response, error) {
	if config == nil {
		config = DefaultRetryConfig()
	}
	maxAttempts := config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		resp, err := fn(ctx, attempt)

		var reason string
		var retryAfter time.Duration

		switch {
		case err != nil:
			te := asTransportError(err, logURL)
			te.Attempts = attempt
			if !te.Retryable || attempt >= maxAttempts || ctx.Err() != nil {
				return nil, te
			}
			reason = string(te.Type)

		case resp == nil:
			return nil, &TransportError{
				Type:      ErrorTypeNullResponse,
				Message:   fmt.Sprintf("no response object for %s", logURL),
				Retryable: false,
				Attempts:  attempt,
			}

		default:
			if resp.Metadata == nil {
				resp.Metadata = make(map[string]interface{})
			}
			resp.Metadata[MetadataAttempts] = attempt
			if !config.IsRetryable(resp.StatusCode) || attempt >= maxAttempts {
				return resp, nil
			}
			reason = strconv.Itoa(resp.StatusCode)
			retryAfter = parseRetryAfter(resp.Headers.Get("Retry-After"))
		}

		delay := calculateBackoff(config, attempt, retryAfter)
		recordRetry(reason)
		if observe != nil {
			observe(attempt, reason, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, contextError(ctx, logURL, attempt)
		}
	}
}

func asTransportError(err error, logURL string) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	return &TransportError{
		Type:      ErrorTypeConnection,
		Message:   fmt.Sprintf("request to %s failed", logURL),
		Retryable: false,
		Cause:     err,
	}
}

// calculateBackoff returns
// min(InitialBackoff * BackoffFactor^(attempt-1), MaxBackoff), raised to
// Retry-After when that is longer (still capped at MaxBackoff), plus jitter.
func calculateBackoff(config *RetryConfig, attempt int, retryAfter time.Duration) time.Duration {
	baseDelay := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt-1))
	if baseDelay > float64(config.MaxBackoff) {
		baseDelay = float64(config.MaxBackoff)
	}
	delay := time.Duration(baseDelay)

	if retryAfter > delay {
		delay = retryAfter
	}
	if delay > config.MaxBackoff {
		delay = config.MaxBackoff
	}

	if config.Jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(config.Jitter) + 1))
	}
	return delay
}

// parseRetryAfter accepts delta-seconds or an HTTP-date. Anything else,
// or a date in the past, yields zero.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if seconds, err := strconv.ParseInt(v, 10, 64); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	retryTime, err := http.ParseTime(v)
	if err != nil {
		return 0
	}
	if delay := time.Until(retryTime); delay > 0 {
		return delay
	}
	return 0
}
