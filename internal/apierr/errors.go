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

// Package apierr defines the single error type returned by every failure path
// of the request pipeline. An Error carries exactly one Kind so callers can
// branch on what went wrong without matching on message text.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	vierrors "github.com/tombee/videoindexer/pkg/errors"
)

// Kind is the tag of the error union.
type Kind string

const (
	// KindTransport covers DNS, connect and timeout failures and requests
	// that could not be built.
	KindTransport Kind = "transport"

	// KindStatus means the service answered with a non-2xx status.
	KindStatus Kind = "status"

	// KindParse means a 2xx body could not be turned into the expected value.
	KindParse Kind = "parse"

	// KindNullResponse means the transport produced neither a response nor
	// an error. It indicates a defect and is never retried.
	KindNullResponse Kind = "null_response"
)

// Sub-reasons carried in Error.Reason.
const (
	ReasonConnection       = "connection"
	ReasonTimeout          = "timeout"
	ReasonCancelled        = "cancelled"
	ReasonInvalidRequest   = "invalid_request"
	ReasonRateLimitWait    = "rate_limit_wait"
	ReasonResponseTooLarge = "response_too_large"

	ReasonEmptyBody    = "empty_body"
	ReasonMalformed    = "malformed"
	ReasonEmptyValue   = "empty_value"
	ReasonInvalidValue = "invalid_value"
)

// Error is the classified failure of one logical call.
type Error struct {
	// Kind is the error tag
	Kind Kind

	// Reason refines Kind (e.g. "timeout" for KindTransport, "malformed" for KindParse)
	Reason string

	// StatusCode is the HTTP status for KindStatus, zero otherwise
	StatusCode int

	// Body is the redacted, truncated response body for KindStatus
	Body string

	// Code is the service's ErrorType field when the body carried one
	Code string

	// Message is a log-safe description
	Message string

	// RequestID is the x-ms-client-request-id sent with the call
	RequestID string

	// Attempts is how many sends the transport made before giving up
	Attempts int

	// Cause is the underlying error. Its text never holds the real URI.
	Cause error
}

var (
	_ vierrors.UserVisibleError = (*Error)(nil)
	_ vierrors.ErrorClassifier  = (*Error)(nil)
)

// Transport creates a KindTransport error.
func Transport(reason, message string, attempts int, cause error) *Error {
	return &Error{
		Kind:     KindTransport,
		Reason:   reason,
		Message:  message,
		Attempts: attempts,
		Cause:    cause,
	}
}

// Status creates a KindStatus error. body must already be redacted.
func Status(statusCode int, body, code, message string) *Error {
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &Error{
		Kind:       KindStatus,
		StatusCode: statusCode,
		Body:       body,
		Code:       code,
		Message:    message,
	}
}

// Parse creates a KindParse error.
func Parse(reason, message string, cause error) *Error {
	return &Error{
		Kind:    KindParse,
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

// NullResponse creates a KindNullResponse error.
func NullResponse(message string) *Error {
	return &Error{
		Kind:    KindNullResponse,
		Reason:  string(KindNullResponse),
		Message: message,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Kind)

	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s [HTTP %d]", msg, e.StatusCode)
	} else if e.Reason != "" && e.Reason != string(e.Kind) {
		msg = fmt.Sprintf("%s (%s)", msg, e.Reason)
	}

	if e.Code != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Code)
	}

	msg = fmt.Sprintf("%s: %s", msg, e.Message)

	if e.Attempts > 1 {
		msg = fmt.Sprintf("%s (after %d attempts)", msg, e.Attempts)
	}

	if e.RequestID != "" {
		msg = fmt.Sprintf("%s (request-id: %s)", msg, e.RequestID)
	}

	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorType implements pkg/errors.ErrorClassifier.
func (e *Error) ErrorType() string {
	return string(e.Kind)
}

// IsRetryable reports whether a fresh attempt could succeed. Timeouts and
// connection failures are retryable; cancellation and malformed requests are
// not. Status errors are retryable only for throttling and server faults.
func (e *Error) IsRetryable() bool {
	switch e.Kind {
	case KindTransport:
		switch e.Reason {
		case ReasonCancelled, ReasonInvalidRequest, ReasonResponseTooLarge:
			return false
		default:
			return true
		}
	case KindStatus:
		return IsRetryableStatus(e.StatusCode)
	default:
		return false
	}
}

// IsUserVisible implements pkg/errors.UserVisibleError.
func (e *Error) IsUserVisible() bool {
	return true
}

// UserMessage implements pkg/errors.UserVisibleError.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindStatus:
		if e.Code != "" {
			return fmt.Sprintf("The service rejected the request (HTTP %d, %s): %s", e.StatusCode, e.Code, e.Message)
		}
		return fmt.Sprintf("The service rejected the request (HTTP %d): %s", e.StatusCode, e.Message)
	case KindTransport:
		if e.Reason == ReasonTimeout {
			return "The request timed out before the service answered"
		}
		if e.Reason == ReasonCancelled {
			return "The request was cancelled"
		}
		return fmt.Sprintf("Could not reach the service: %s", e.Message)
	case KindParse:
		return fmt.Sprintf("The service response could not be understood: %s", e.Message)
	case KindNullResponse:
		return "The HTTP transport returned no response"
	default:
		return e.Message
	}
}

// Suggestion implements pkg/errors.UserVisibleError.
func (e *Error) Suggestion() string {
	switch e.Kind {
	case KindStatus:
		switch {
		case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
			return "Check the access token and that it was issued for this account and location"
		case e.StatusCode == http.StatusNotFound:
			return "Verify the location, account id and resource id"
		case e.StatusCode == http.StatusTooManyRequests:
			return "Wait for the throttling window or lower http.rate_limit.rps"
		case e.StatusCode >= 500:
			return "Retry later or contact the service provider"
		default:
			return "Check the request parameters"
		}
	case KindTransport:
		switch e.Reason {
		case ReasonTimeout:
			return "Increase http.timeout or check network connectivity"
		case ReasonInvalidRequest:
			return "Check the endpoint, location and identifiers in the configuration"
		case ReasonCancelled:
			return ""
		case ReasonResponseTooLarge:
			return "Raise http.max_response_bytes or narrow the request"
		default:
			return "Check network connectivity and the configured endpoint"
		}
	case KindParse:
		return "The service may have changed its response format; retry with --log-level=trace to inspect the body"
	case KindNullResponse:
		return "This is a bug in the HTTP transport; please report it"
	default:
		return ""
	}
}

// IsRetryableStatus reports whether an HTTP status is worth another attempt.
func IsRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	if apiErr, ok := As(err); ok {
		return apiErr.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsStatus reports whether err is a KindStatus error with the given code.
func IsStatus(err error, statusCode int) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Kind == KindStatus && apiErr.StatusCode == statusCode
}

// IsRetryable reports whether err carries a retryable *Error.
func IsRetryable(err error) bool {
	apiErr, ok := As(err)
	return ok && apiErr.IsRetryable()
}
