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

package log

import (
	"context"
	"log/slog"
)

// HTTPRequest describes an outbound call for logging purposes.
// SafeURL must already be masked; nothing in this package redacts it.
type HTTPRequest struct {
	Method          string
	SafeURL         string
	ClientRequestID string
}

// ErrorKindNullResponse is the ErrorKind of a call that produced no response.
const ErrorKindNullResponse = "null_response"

// HTTPResponse describes the outcome of an outbound call.
type HTTPResponse struct {
	// StatusCode is zero when no response was received.
	StatusCode int

	// DurationMs is the wall time of the whole call, retries included.
	DurationMs int64

	// Error is a log-safe error description.
	Error string

	// ErrorKind is the classified failure kind, if any.
	ErrorKind string
}

// LogRequestStarted logs the start of an outbound call at info level.
func LogRequestStarted(ctx context.Context, logger *slog.Logger, req *HTTPRequest) {
	logger.InfoContext(ctx, "request started",
		MethodKey, req.Method,
		URLKey, req.SafeURL,
		ClientRequestIDKey, req.ClientRequestID,
	)
}

// LogRequestCompleted logs the outcome of an outbound call.
// Successful calls log at info, classified failures at warn. A call that got
// no response object at all logs at error since it means a transport defect.
func LogRequestCompleted(ctx context.Context, logger *slog.Logger, req *HTTPRequest, resp *HTTPResponse) {
	attrs := []any{
		MethodKey, req.Method,
		URLKey, req.SafeURL,
		ClientRequestIDKey, req.ClientRequestID,
		DurationKey, resp.DurationMs,
	}
	if resp.StatusCode != 0 {
		attrs = append(attrs, StatusKey, resp.StatusCode)
	}

	if resp.Error == "" {
		logger.InfoContext(ctx, "request completed", attrs...)
		return
	}

	attrs = append(attrs, "error", resp.Error)
	if resp.ErrorKind != "" {
		attrs = append(attrs, "error_kind", resp.ErrorKind)
	}
	level := slog.LevelWarn
	if resp.ErrorKind == ErrorKindNullResponse {
		level = slog.LevelError
	}
	logger.Log(ctx, level, "request failed", attrs...)
}
