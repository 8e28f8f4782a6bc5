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

// Package transport sends fully built requests to the service.
//
// A Transport is shared by every accessor in the process and is safe for
// concurrent use. Retries, backoff, rate limiting and connection reuse live
// here so that callers only ever observe the final outcome of a call.
package transport

import (
	"context"
	"net/http"
)

// Transport sends one logical request, retrying internally as configured.
//
// Send returns a Response for any status code the service answered with,
// including non-2xx codes once retries are exhausted. It returns a
// *TransportError when no usable response was obtained.
type Transport interface {
	// Send executes req. The context controls cancellation and deadlines.
	Send(ctx context.Context, req *Request) (*Response, error)

	// Name returns the transport identifier (e.g., "http", "fallback").
	Name() string
}

// Request is a transport-agnostic request.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, PATCH, DELETE)
	Method string

	// URL is the real URL sent on the wire. It may carry an access token
	// and must never be logged.
	URL string

	// LogURL is the masked URL. Every log line, span attribute and error
	// message produced by a transport uses it instead of URL.
	LogURL string

	// Headers are per-request headers. They are copied onto the outgoing
	// request and never onto shared client state.
	Headers map[string]string

	// Body is the request body
	// Optional, may be nil or empty slice
	Body []byte
}

// Response is a transport-agnostic response.
type Response struct {
	// StatusCode is the HTTP status code
	StatusCode int

	// Headers contains response headers
	Headers http.Header

	// Body is the fully read response body
	Body []byte

	// Metadata contains transport-specific data (e.g., attempt count)
	Metadata map[string]interface{}
}

// Success reports whether the status code is 2xx.
func (r *Response) Success() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Attempts returns the number of sends recorded in Metadata, or 1.
func (r *Response) Attempts() int {
	if r == nil || r.Metadata == nil {
		return 1
	}
	if n, ok := r.Metadata[MetadataAttempts].(int); ok && n > 0 {
		return n
	}
	return 1
}

// Standard metadata keys
const (
	// MetadataAttempts is the number of sends made for this request
	MetadataAttempts = "attempts"

	// MetadataRequestID is the service's x-ms-request-id header value
	MetadataRequestID = "request_id"
)

// RateLimiter provides rate limiting for transport requests.
// Implementations should block until a request is allowed.
type RateLimiter interface {
	// Wait blocks until a request is allowed under the rate limit.
	// Returns an error if the context is cancelled before the request can proceed.
	Wait(ctx context.Context) error
}
