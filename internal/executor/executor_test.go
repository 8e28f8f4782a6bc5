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

package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/videoindexer/internal/apierr"
	"github.com/tombee/videoindexer/internal/log"
	"github.com/tombee/videoindexer/internal/redact"
	"github.com/tombee/videoindexer/internal/transport"
	"github.com/tombee/videoindexer/internal/uri"
)

type video struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// stubTransport returns a fixed result and records the last request.
type stubTransport struct {
	resp *transport.Response
	err  error
	last *transport.Request
}

func (s *stubTransport) Send(_ context.Context, req *transport.Request) (*transport.Response, error) {
	s.last = req
	return s.resp, s.err
}

func (s *stubTransport) Name() string { return "stub" }

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func fastHTTPConfig(attempts int) transport.HTTPConfig {
	cfg := transport.DefaultHTTPConfig()
	cfg.Retry.MaxAttempts = attempts
	cfg.Retry.InitialBackoff = time.Millisecond
	cfg.Retry.MaxBackoff = 2 * time.Millisecond
	cfg.Retry.Jitter = 0
	return cfg
}

func newExecutor(t *testing.T, tr transport.Transport, buf *bytes.Buffer) *Executor {
	t.Helper()
	logger := log.New(&log.Config{Level: "debug", Output: buf})
	return New(transport.NewProvider(tr, logger),
		WithLogger(logger),
		WithRequestIDFunc(func() string { return "req-1" }),
	)
}

func videoSpec(base string) RequestSpec {
	return RequestSpec{
		Method:       http.MethodGet,
		BaseEndpoint: base,
		PathSegments: uri.AccountPath("westus", "abc-123", "Videos", "vid-1"),
		Secret:       "SECRET",
		Placement:    redact.PlacementQuery,
	}
}

func TestDo_MaskedLogRealWire(t *testing.T) {
	var gotToken, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.URL.Query().Get("accessToken")
		gotRequestID = r.Header.Get(HeaderClientRequestID)
		assert.Equal(t, "/westus/Accounts/abc-123/Videos/vid-1", r.URL.Path)
		_, _ = io.WriteString(w, `{"Id":"vid-1","Name":"demo","State":"Processed"}`)
	}))
	defer server.Close()

	tr, err := transport.NewHTTPTransport(fastHTTPConfig(3), transport.WithLogger(log.Discard()))
	require.NoError(t, err)

	var buf bytes.Buffer
	e := newExecutor(t, tr, &buf)

	v, err := Do[video](context.Background(), e, videoSpec(server.URL))
	require.NoError(t, err)
	assert.Equal(t, video{ID: "vid-1", Name: "demo", State: "Processed"}, v)

	assert.Equal(t, "SECRET", gotToken)
	assert.Equal(t, "req-1", gotRequestID)

	logs := buf.String()
	assert.Contains(t, logs, "/westus/Accounts/abc-123/Videos/vid-1?accessToken=***")
	assert.NotContains(t, logs, "SECRET")
	assert.Contains(t, logs, "request started")
	assert.Contains(t, logs, "request completed")
}

func TestDo_StatusAndParseAreDistinct(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   apierr.Kind
		wantStatus int
		wantReason string
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"ErrorType":"VIDEO_NOT_FOUND","Message":"Video not found"}`, wantKind: apierr.KindStatus, wantStatus: 404},
		{name: "malformed", status: http.StatusOK, body: `{"id": `, wantKind: apierr.KindParse, wantReason: apierr.ReasonMalformed},
		{name: "empty", status: http.StatusOK, body: "  ", wantKind: apierr.KindParse, wantReason: apierr.ReasonEmptyBody},
		{name: "missing required field", status: http.StatusOK, body: `{"name":"x"}`, wantKind: apierr.KindParse, wantReason: apierr.ReasonInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubTransport{resp: &transport.Response{StatusCode: tt.status, Body: []byte(tt.body)}}
			var buf bytes.Buffer
			e := newExecutor(t, stub, &buf)

			_, err := Do[video](context.Background(), e, videoSpec("https://api.videoindexer.ai"))
			require.Error(t, err)

			apiErr, ok := apierr.As(err)
			require.True(t, ok, "expected *apierr.Error, got %T", err)
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, "req-1", apiErr.RequestID)
			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			}
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, apiErr.Reason)
			}
		})
	}
}

func TestExecute_StatusErrorDetail(t *testing.T) {
	body := `{"ErrorType":"USER_NOT_ALLOWED","Message":"token SECRET is not valid"}`
	stub := &stubTransport{resp: &transport.Response{
		StatusCode: http.StatusUnauthorized,
		Body:       []byte(body),
		Metadata:   map[string]interface{}{transport.MetadataAttempts: 1},
	}}
	var buf bytes.Buffer
	e := newExecutor(t, stub, &buf)

	_, err := e.Execute(context.Background(), videoSpec("https://api.videoindexer.ai"))
	apiErr, ok := apierr.As(err)
	require.True(t, ok)

	assert.Equal(t, apierr.KindStatus, apiErr.Kind)
	assert.Equal(t, 401, apiErr.StatusCode)
	assert.Equal(t, "USER_NOT_ALLOWED", apiErr.Code)
	assert.Equal(t, "token *** is not valid", apiErr.Message)
	assert.NotContains(t, apiErr.Body, "SECRET")
	assert.NotContains(t, err.Error(), "SECRET")
	assert.NotContains(t, buf.String(), "SECRET")
	assert.Contains(t, buf.String(), "request failed")
}

func TestExecute_ErrorBodyTruncated(t *testing.T) {
	stub := &stubTransport{resp: &transport.Response{
		StatusCode: http.StatusInternalServerError,
		Body:       []byte(strings.Repeat("x", 100)),
	}}
	logger := log.Discard()
	e := New(transport.NewProvider(stub, logger), WithLogger(logger), WithMaxErrorBody(10))

	_, err := e.Execute(context.Background(), videoSpec("https://api.videoindexer.ai"))
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, "xxxxxxxxxx...(truncated)", apiErr.Body)
	assert.Equal(t, http.StatusText(500), apiErr.Message)
}

func TestExecute_TimeoutExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	doer := doerFunc(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		<-req.Context().Done()
		return nil, req.Context().Err()
	})
	cfg := fastHTTPConfig(3)
	cfg.AttemptTimeout = 20 * time.Millisecond
	tr, err := transport.NewHTTPTransport(cfg, transport.WithDoer(doer), transport.WithLogger(log.Discard()))
	require.NoError(t, err)

	var buf bytes.Buffer
	e := newExecutor(t, tr, &buf)

	_, err = e.Execute(context.Background(), videoSpec("https://api.videoindexer.ai"))
	apiErr, ok := apierr.As(err)
	require.True(t, ok)

	assert.Equal(t, apierr.KindTransport, apiErr.Kind)
	assert.Equal(t, apierr.ReasonTimeout, apiErr.Reason)
	assert.Equal(t, 3, apiErr.Attempts)
	assert.Equal(t, int32(3), calls.Load())
	assert.NotContains(t, err.Error(), "SECRET")
	assert.NotContains(t, buf.String(), "SECRET")
}

func TestExecute_CancelledContext(t *testing.T) {
	stub := &stubTransport{err: context.Canceled}
	var buf bytes.Buffer
	e := newExecutor(t, stub, &buf)

	_, err := e.Execute(context.Background(), videoSpec("https://api.videoindexer.ai"))
	assert.True(t, apierr.IsKind(err, apierr.KindTransport))
	apiErr, _ := apierr.As(err)
	assert.Equal(t, apierr.ReasonCancelled, apiErr.Reason)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecute_NullResponse(t *testing.T) {
	stub := &stubTransport{}
	var buf bytes.Buffer
	e := newExecutor(t, stub, &buf)

	_, err := e.Execute(context.Background(), videoSpec("https://api.videoindexer.ai"))
	require.True(t, apierr.IsKind(err, apierr.KindNullResponse))

	var entry map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "request failed" {
			break
		}
	}
	assert.Equal(t, "request failed", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "null_response", entry["error_kind"])
}

func TestExecute_BearerPlacement(t *testing.T) {
	stub := &stubTransport{resp: &transport.Response{StatusCode: http.StatusOK, Body: []byte("{}")}}
	var buf bytes.Buffer
	e := newExecutor(t, stub, &buf)

	spec := videoSpec("https://api.videoindexer.ai")
	spec.Placement = redact.PlacementBearer
	spec.Headers = map[string]string{"X-Custom": "1"}

	_, err := e.Execute(context.Background(), spec)
	require.NoError(t, err)

	require.NotNil(t, stub.last)
	assert.Equal(t, "Bearer SECRET", stub.last.Headers[HeaderAuthorization])
	assert.Equal(t, "1", stub.last.Headers["X-Custom"])
	assert.Equal(t, "req-1", stub.last.Headers[HeaderClientRequestID])
	assert.NotContains(t, stub.last.URL, "SECRET")
	assert.Equal(t, stub.last.URL, stub.last.LogURL)
	assert.Len(t, spec.Headers, 1, "caller headers must not be mutated")
}

func TestExecute_InvalidURI(t *testing.T) {
	stub := &stubTransport{}
	var buf bytes.Buffer
	e := newExecutor(t, stub, &buf)

	spec := videoSpec("https://api.videoindexer.ai")
	spec.PathSegments = []string{"westus", "Accounts", "a/b"}

	_, err := e.Execute(context.Background(), spec)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindTransport, apiErr.Kind)
	assert.Equal(t, apierr.ReasonInvalidRequest, apiErr.Reason)
	assert.ErrorIs(t, err, uri.ErrInvalidURI)
	assert.Nil(t, stub.last, "nothing should be sent")
}

func TestExecute_Timeout(t *testing.T) {
	doer := doerFunc(func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})
	tr, err := transport.NewHTTPTransport(fastHTTPConfig(5), transport.WithDoer(doer), transport.WithLogger(log.Discard()))
	require.NoError(t, err)

	e := New(transport.NewProvider(tr, log.Discard()), WithLogger(log.Discard()))
	spec := videoSpec("https://api.videoindexer.ai")
	spec.Timeout = 30 * time.Millisecond

	start := time.Now()
	_, err = e.Execute(context.Background(), spec)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, apierr.IsKind(err, apierr.KindTransport))
	apiErr, _ := apierr.As(err)
	assert.Equal(t, apierr.ReasonTimeout, apiErr.Reason)
}

func TestWithJSONBody(t *testing.T) {
	var spec RequestSpec
	require.NoError(t, spec.WithJSONBody(map[string]string{"name": "<new>"}))
	assert.Equal(t, `{"name":"<new>"}`, string(spec.Body))
	assert.Equal(t, "application/json", spec.Headers[HeaderContentType])
}

func TestDoNoContent(t *testing.T) {
	stub := &stubTransport{resp: &transport.Response{StatusCode: http.StatusNoContent}}
	e := New(transport.NewProvider(stub, log.Discard()), WithLogger(log.Discard()))

	spec := videoSpec("https://api.videoindexer.ai")
	spec.Method = http.MethodDelete
	require.NoError(t, e.DoNoContent(context.Background(), spec))
	assert.Equal(t, http.MethodDelete, stub.last.Method)
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		body        string
		wantCode    string
		wantMessage string
	}{
		{`{"ErrorType":"A","Message":"m"}`, "A", "m"},
		{`{"error":{"code":"B","message":"n"}}`, "B", "n"},
		{`{"code":"C"}`, "C", ""},
		{"<html>oops</html>", "", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		code, msg := errorDetail([]byte(tt.body))
		if code != tt.wantCode || msg != tt.wantMessage {
			t.Errorf("errorDetail(%q) = (%q, %q), want (%q, %q)", tt.body, code, msg, tt.wantCode, tt.wantMessage)
		}
	}
}

func TestDo_OversizedBodyIsNotAParseError(t *testing.T) {
	doer := doerFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader(`{"id":"` + strings.Repeat("x", 100) + `"}`)),
		}, nil
	})
	cfg := fastHTTPConfig(3)
	cfg.MaxResponseBytes = 32
	tr, err := transport.NewHTTPTransport(cfg, transport.WithDoer(doer), transport.WithLogger(log.Discard()))
	require.NoError(t, err)

	var buf bytes.Buffer
	e := newExecutor(t, tr, &buf)

	_, err = Do[map[string]any](context.Background(), e, videoSpec("https://api.videoindexer.ai"))
	apiErr, ok := apierr.As(err)
	require.True(t, ok)

	assert.Equal(t, apierr.KindTransport, apiErr.Kind)
	assert.Equal(t, apierr.ReasonResponseTooLarge, apiErr.Reason)
	assert.False(t, apiErr.IsRetryable())
	assert.NotContains(t, err.Error(), "SECRET")
}
