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
	"net"
)

// ErrorType classifies transport errors for retry decisions.
type ErrorType string

const (
	// ErrorTypeConnection indicates network or DNS errors
	ErrorTypeConnection ErrorType = "connection"

	// ErrorTypeTimeout indicates an attempt or call deadline expired
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeCancelled indicates the caller cancelled the context
	ErrorTypeCancelled ErrorType = "cancelled"

	// ErrorTypeInvalidReq indicates request validation error (invalid method, URL, etc.)
	ErrorTypeInvalidReq ErrorType = "invalid_request"

	// ErrorTypeNullResponse indicates the HTTP client returned neither a
	// response nor an error
	ErrorTypeNullResponse ErrorType = "null_response"

	// ErrorTypeRateLimitWait indicates the local rate limiter gave up
	ErrorTypeRateLimitWait ErrorType = "rate_limit_wait"

	// ErrorTypeResponseTooLarge indicates the body exceeded MaxResponseBytes
	ErrorTypeResponseTooLarge ErrorType = "response_too_large"
)

// TransportError represents a structured error from transport execution.
// All transport implementations return TransportError for failures.
type TransportError struct {
	// Type classifies the error for routing and retry decisions
	Type ErrorType

	// Message is safe to log; it only ever names the masked URL
	Message string

	// Retryable indicates whether the error is retryable
	Retryable bool

	// Attempts is the number of sends made before this error was returned
	Attempts int

	// Cause is the underlying error with any URL replaced by the masked one
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s error after %d attempts: %s", e.Type, e.Attempts, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if the error should be retried.
func (e *TransportError) IsRetryable() bool {
	return e.Retryable
}

// IsType returns true if the error is of the given type.
func (e *TransportError) IsType(t ErrorType) bool {
	return e.Type == t
}

// contextError classifies a finished context. A deadline is a timeout and
// may be retried by an outer caller; an explicit cancel never is.
func contextError(ctx context.Context, logURL string, attempts int) *TransportError {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{
			Type:      ErrorTypeTimeout,
			Message:   fmt.Sprintf("deadline exceeded for %s", logURL),
			Retryable: true,
			Attempts:  attempts,
			Cause:     err,
		}
	}
	return &TransportError{
		Type:      ErrorTypeCancelled,
		Message:   fmt.Sprintf("request to %s cancelled", logURL),
		Retryable: false,
		Attempts:  attempts,
		Cause:     err,
	}
}

// classifyDoError turns an http.Client error into a TransportError.
// parent is the caller's context and attempt the per-attempt one.
func classifyDoError(parent, attempt context.Context, err error, logURL string) *TransportError {
	if parent.Err() != nil {
		te := contextError(parent, logURL, 0)
		te.Cause = err
		return te
	}

	var netErr net.Error
	if errors.Is(attempt.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &TransportError{
			Type:      ErrorTypeTimeout,
			Message:   fmt.Sprintf("request to %s timed out", logURL),
			Retryable: true,
			Cause:     err,
		}
	}

	if errors.Is(err, context.Canceled) {
		return &TransportError{
			Type:      ErrorTypeCancelled,
			Message:   fmt.Sprintf("request to %s cancelled", logURL),
			Retryable: false,
			Cause:     err,
		}
	}

	return &TransportError{
		Type:      ErrorTypeConnection,
		Message:   fmt.Sprintf("connection error for %s", logURL),
		Retryable: true,
		Cause:     err,
	}
}
