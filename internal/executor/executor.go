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

// Package executor is the single path every accessor uses to talk to the
// service. It builds and masks the URI, logs only the masked form, attaches
// per-request headers, sends through the shared transport and classifies the
// outcome into an *apierr.Error.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/tombee/videoindexer/internal/apierr"
	"github.com/tombee/videoindexer/internal/log"
	"github.com/tombee/videoindexer/internal/redact"
	"github.com/tombee/videoindexer/internal/response"
	"github.com/tombee/videoindexer/internal/transport"
	"github.com/tombee/videoindexer/internal/uri"
)

// DefaultMaxErrorBody bounds the body kept on a status error.
const DefaultMaxErrorBody = 2048

// Executor sends RequestSpecs. It is safe for concurrent use.
type Executor struct {
	provider     *transport.Provider
	parser       *response.Parser
	redactor     *redact.Redactor
	logger       *slog.Logger
	maxErrorBody int
	newRequestID func() string
}

// Option configures an Executor.
type Option func(*Executor)

// WithParser sets the response parser.
func WithParser(p *response.Parser) Option {
	return func(e *Executor) {
		e.parser = p
	}
}

// WithRedactor sets the redactor applied to error bodies and messages.
func WithRedactor(r *redact.Redactor) Option {
	return func(e *Executor) {
		e.redactor = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithMaxErrorBody sets how many bytes of an error body are kept.
func WithMaxErrorBody(n int) Option {
	return func(e *Executor) {
		e.maxErrorBody = n
	}
}

// WithRequestIDFunc replaces the x-ms-client-request-id generator.
func WithRequestIDFunc(fn func() string) Option {
	return func(e *Executor) {
		e.newRequestID = fn
	}
}

// New creates an executor that resolves its transport from provider.
func New(provider *transport.Provider, opts ...Option) *Executor {
	e := &Executor{
		provider:     provider,
		parser:       response.Default(),
		redactor:     redact.NewRedactor(redact.ModeStandard),
		logger:       slog.Default(),
		maxErrorBody: DefaultMaxErrorBody,
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = log.WithComponent(e.logger, "executor")
	return e
}

// Parser returns the parser used by Do.
func (e *Executor) Parser() *response.Parser {
	return e.parser
}

// Execute sends spec and returns the body of a 2xx response.
//
// Every failure is an *apierr.Error: KindTransport when no response was
// obtained (including an unbuildable URI), KindNullResponse when the
// transport returned nothing, and KindStatus for non-2xx responses.
func (e *Executor) Execute(ctx context.Context, spec RequestSpec) ([]byte, error) {
	body, _, err := e.execute(ctx, spec)
	return body, err
}

func (e *Executor) execute(ctx context.Context, spec RequestSpec) ([]byte, string, error) {
	requestID := e.newRequestID()
	method := strings.ToUpper(spec.Method)
	if method == "" {
		method = http.MethodGet
	}

	tr, err := e.provider.Transport()
	if err != nil {
		apiErr := apierr.Transport(apierr.ReasonInvalidRequest, "no transport available", 0, err)
		apiErr.RequestID = requestID
		return nil, requestID, apiErr
	}

	raw, err := uri.Build(spec.BaseEndpoint, spec.PathSegments, spec.Query)
	if err != nil {
		apiErr := apierr.Transport(apierr.ReasonInvalidRequest,
			e.redactor.RedactString(err.Error(), spec.Secret), 0, err)
		apiErr.RequestID = requestID
		e.logger.WarnContext(ctx, "request not sent",
			log.MethodKey, method,
			log.ClientRequestIDKey, requestID,
			"error", apiErr.Message,
		)
		return nil, requestID, apiErr
	}

	masked := redact.Mask(raw, spec.Secret, spec.Placement)
	logReq := &log.HTTPRequest{Method: method, SafeURL: masked.LogSafeURI, ClientRequestID: requestID}
	log.LogRequestStarted(ctx, e.logger, logReq)

	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := tr.Send(ctx, &transport.Request{
		Method:  method,
		URL:     masked.RealURI,
		LogURL:  masked.LogSafeURI,
		Headers: e.requestHeaders(spec, requestID),
		Body:    spec.Body,
	})
	logResp := &log.HTTPResponse{DurationMs: time.Since(start).Milliseconds()}

	var apiErr *apierr.Error
	switch {
	case err != nil:
		apiErr = e.fromSendError(err, spec.Secret)
	case resp == nil:
		apiErr = apierr.NullResponse(fmt.Sprintf("%s returned no response for %s", tr.Name(), masked.LogSafeURI))
	case resp.Success():
		logResp.StatusCode = resp.StatusCode
		log.LogRequestCompleted(ctx, e.logger, logReq, logResp)
		log.Trace(ctx, log.WithRequestID(e.logger, requestID), "response body",
			slog.String("body", redact.Truncate(e.redactor.RedactString(string(resp.Body), spec.Secret), e.maxErrorBody)))
		return resp.Body, requestID, nil
	default:
		logResp.StatusCode = resp.StatusCode
		apiErr = e.statusError(resp, spec.Secret)
	}

	apiErr.RequestID = requestID
	logResp.Error = apiErr.Message
	logResp.ErrorKind = string(apiErr.Kind)
	log.LogRequestCompleted(ctx, e.logger, logReq, logResp)
	return nil, requestID, apiErr
}

// requestHeaders builds a fresh header map for one request.
func (e *Executor) requestHeaders(spec RequestSpec, requestID string) map[string]string {
	headers := make(map[string]string, len(spec.Headers)+2)
	for k, v := range spec.Headers {
		headers[k] = v
	}
	headers[HeaderClientRequestID] = requestID
	if spec.Placement == redact.PlacementBearer && strings.TrimSpace(spec.Secret) != "" {
		headers[HeaderAuthorization] = "Bearer " + spec.Secret
	}
	return headers
}

// fromSendError classifies an error returned by Transport.Send.
func (e *Executor) fromSendError(err error, secret string) *apierr.Error {
	var te *transport.TransportError
	if errors.As(err, &te) {
		msg := e.redactor.RedactString(te.Message, secret)
		if te.Type == transport.ErrorTypeNullResponse {
			apiErr := apierr.NullResponse(msg)
			apiErr.Attempts = te.Attempts
			return apiErr
		}
		return apierr.Transport(string(te.Type), msg, te.Attempts, te)
	}

	reason := apierr.ReasonConnection
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = apierr.ReasonTimeout
	case errors.Is(err, context.Canceled):
		reason = apierr.ReasonCancelled
	}
	return apierr.Transport(reason, e.redactor.RedactString(err.Error(), secret), 1, err)
}

// statusError builds a KindStatus error from a non-2xx response.
func (e *Executor) statusError(resp *transport.Response, secret string) *apierr.Error {
	code, message := errorDetail(resp.Body)
	body := redact.Truncate(e.redactor.RedactString(string(resp.Body), secret), e.maxErrorBody)

	apiErr := apierr.Status(resp.StatusCode, body,
		e.redactor.RedactString(code, secret),
		e.redactor.RedactString(message, secret),
	)
	apiErr.Attempts = resp.Attempts()
	return apiErr
}

var (
	errorCodePaths    = []string{"ErrorType", "errorType", "code", "error.code"}
	errorMessagePaths = []string{"Message", "message", "error.message"}
)

// errorDetail pulls the service's error code and message out of a JSON
// error body. Non-JSON bodies yield empty strings.
func errorDetail(body []byte) (code, message string) {
	if !gjson.ValidBytes(body) {
		return "", ""
	}
	results := gjson.GetManyBytes(body, append(errorCodePaths, errorMessagePaths...)...)
	for _, r := range results[:len(errorCodePaths)] {
		if r.Type == gjson.String && r.Str != "" {
			code = r.Str
			break
		}
	}
	for _, r := range results[len(errorCodePaths):] {
		if r.Type == gjson.String && r.Str != "" {
			message = r.Str
			break
		}
	}
	return code, message
}
