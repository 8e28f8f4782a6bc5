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
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tombee/videoindexer/internal/log"
	"github.com/tombee/videoindexer/internal/tracing"
)

const (
	realURL = "https://api.videoindexer.ai/westus/Accounts/abc-123/Videos/vid-1?accessToken=SECRET"
	safeURL = "https://api.videoindexer.ai/westus/Accounts/abc-123/Videos/vid-1?accessToken=***"
)

// fakeDoer counts calls and delegates to fn.
type fakeDoer struct {
	calls atomic.Int32
	fn    func(req *http.Request, call int) (*http.Response, error)
}

func (d *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	n := int(d.calls.Add(1))
	return d.fn(req, n)
}

func textResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func fastRetry(attempts int) *RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = attempts
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	cfg.Jitter = 0
	return cfg
}

func newTestTransport(t *testing.T, doer Doer, cfg HTTPConfig) *HTTPTransport {
	t.Helper()
	tr, err := NewHTTPTransport(cfg, WithDoer(doer), WithLogger(log.Discard()))
	require.NoError(t, err)
	return tr
}

func testConfig(attempts int) HTTPConfig {
	cfg := DefaultHTTPConfig()
	cfg.Retry = fastRetry(attempts)
	return cfg
}

func getRequest() *Request {
	return &Request{Method: http.MethodGet, URL: realURL, LogURL: safeURL}
}

func TestHTTPConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  HTTPConfig
		wantErr bool
	}{
		{name: "default", config: DefaultHTTPConfig()},
		{name: "fallback", config: FallbackHTTPConfig()},
		{name: "negative attempt timeout", config: HTTPConfig{AttemptTimeout: -time.Second}, wantErr: true},
		{name: "bad retry", config: HTTPConfig{Retry: &RetryConfig{MaxAttempts: 0}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHTTPTransport_SendAgainstServer(t *testing.T) {
	var gotQuery, gotUA, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("accessToken")
		gotUA = r.Header.Get("User-Agent")
		gotRequestID = r.Header.Get("x-ms-client-request-id")
		w.Header().Set("x-ms-request-id", "svc-1")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"vid-1"}`))
	}))
	defer server.Close()

	tr, err := NewHTTPTransport(testConfig(3), WithLogger(log.Discard()))
	require.NoError(t, err)

	resp, err := tr.Send(context.Background(), &Request{
		Method:  http.MethodGet,
		URL:     server.URL + "/trial/Accounts/a?accessToken=SECRET",
		LogURL:  server.URL + "/trial/Accounts/a?accessToken=***",
		Headers: map[string]string{"x-ms-client-request-id": "req-1"},
	})
	require.NoError(t, err)

	assert.True(t, resp.Success())
	assert.Equal(t, `{"id":"vid-1"}`, string(resp.Body))
	assert.Equal(t, 1, resp.Attempts())
	assert.Equal(t, "svc-1", resp.Metadata[MetadataRequestID])
	assert.Equal(t, "SECRET", gotQuery)
	assert.Equal(t, "videoindexer-go/1.0", gotUA)
	assert.Equal(t, "req-1", gotRequestID)
}

func TestHTTPTransport_RetriesRetryableStatus(t *testing.T) {
	doer := &fakeDoer{fn: func(_ *http.Request, call int) (*http.Response, error) {
		if call < 3 {
			return textResponse(http.StatusServiceUnavailable, "busy"), nil
		}
		return textResponse(http.StatusOK, `{}`), nil
	}}

	resp, err := newTestTransport(t, doer, testConfig(3)).Send(context.Background(), getRequest())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, resp.Attempts())
	assert.Equal(t, int32(3), doer.calls.Load())
}

func TestHTTPTransport_ExhaustedStatusReturnsLastResponse(t *testing.T) {
	doer := &fakeDoer{fn: func(_ *http.Request, call int) (*http.Response, error) {
		return textResponse(http.StatusTooManyRequests, fmt.Sprintf("throttled %d", call)), nil
	}}

	resp, err := newTestTransport(t, doer, testConfig(4)).Send(context.Background(), getRequest())
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "throttled 4", string(resp.Body))
	assert.Equal(t, 4, resp.Attempts())
	assert.Equal(t, int32(4), doer.calls.Load())
}

func TestHTTPTransport_NonRetryableStatusSentOnce(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound} {
		doer := &fakeDoer{fn: func(_ *http.Request, _ int) (*http.Response, error) {
			return textResponse(status, "no"), nil
		}}
		resp, err := newTestTransport(t, doer, testConfig(3)).Send(context.Background(), getRequest())
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode)
		assert.Equal(t, int32(1), doer.calls.Load(), "status %d", status)
	}
}

func TestHTTPTransport_TimeoutExhaustsRetries(t *testing.T) {
	doer := &fakeDoer{fn: func(req *http.Request, _ int) (*http.Response, error) {
		<-req.Context().Done()
		return nil, &url.Error{Op: "Get", URL: req.URL.String(), Err: req.Context().Err()}
	}}
	cfg := testConfig(3)
	cfg.AttemptTimeout = 10 * time.Millisecond

	_, err := newTestTransport(t, doer, cfg).Send(context.Background(), getRequest())
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, ErrorTypeTimeout, te.Type)
	assert.True(t, te.Retryable)
	assert.Equal(t, 3, te.Attempts)
	assert.Equal(t, int32(3), doer.calls.Load())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPTransport_CancellationNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	doer := &fakeDoer{fn: func(req *http.Request, _ int) (*http.Response, error) {
		cancel()
		return nil, &url.Error{Op: "Get", URL: req.URL.String(), Err: context.Canceled}
	}}

	_, err := newTestTransport(t, doer, testConfig(5)).Send(ctx, getRequest())
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, ErrorTypeCancelled, te.Type)
	assert.False(t, te.Retryable)
	assert.Equal(t, int32(1), doer.calls.Load())
}

func TestHTTPTransport_ConnectionErrorRetriedAndScrubbed(t *testing.T) {
	doer := &fakeDoer{fn: func(req *http.Request, _ int) (*http.Response, error) {
		return nil, &url.Error{Op: "Get", URL: req.URL.String(), Err: errors.New("connection refused")}
	}}

	_, err := newTestTransport(t, doer, testConfig(2)).Send(context.Background(), getRequest())
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, ErrorTypeConnection, te.Type)
	assert.Equal(t, 2, te.Attempts)

	assert.NotContains(t, err.Error(), "SECRET")
	require.NotNil(t, te.Cause)
	assert.NotContains(t, te.Cause.Error(), "SECRET")
	assert.Contains(t, te.Cause.Error(), "accessToken=***")
}

func TestHTTPTransport_NullResponse(t *testing.T) {
	doer := &fakeDoer{fn: func(*http.Request, int) (*http.Response, error) {
		return nil, nil
	}}

	resp, err := newTestTransport(t, doer, testConfig(3)).Send(context.Background(), getRequest())
	assert.Nil(t, resp)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, ErrorTypeNullResponse, te.Type)
	assert.False(t, te.Retryable)
	assert.Equal(t, int32(1), doer.calls.Load())
}

func TestHTTPTransport_InvalidRequest(t *testing.T) {
	doer := &fakeDoer{fn: func(*http.Request, int) (*http.Response, error) {
		t.Fatal("doer must not be called")
		return nil, nil
	}}
	tr := newTestTransport(t, doer, testConfig(3))

	for _, req := range []*Request{
		{Method: "FETCH", URL: realURL, LogURL: safeURL},
		{Method: http.MethodGet, LogURL: safeURL},
		{Method: http.MethodGet, URL: realURL},
		{Method: http.MethodGet, URL: "https://api.videoindexer.ai/%zz?accessToken=SECRET", LogURL: "https://api.videoindexer.ai/%zz?accessToken=***"},
	} {
		_, err := tr.Send(context.Background(), req)
		var te *TransportError
		require.True(t, errors.As(err, &te), "request %+v", req)
		assert.Equal(t, ErrorTypeInvalidReq, te.Type)
		assert.NotContains(t, err.Error(), "SECRET")
		if te.Cause != nil {
			assert.NotContains(t, te.Cause.Error(), "SECRET")
		}
	}
}

func TestHTTPTransport_ConcurrentTokensDoNotCross(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Echo both credentials so the caller can check they match.
		_, _ = fmt.Fprintf(w, "%s|%s", r.Header.Get("Authorization"), r.URL.Query().Get("accessToken"))
	}))
	defer server.Close()

	tr, err := NewHTTPTransport(testConfig(1), WithLogger(log.Discard()))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 100; i++ {
		token := fmt.Sprintf("token-%d", i%2)
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := tr.Send(context.Background(), &Request{
				Method:  http.MethodGet,
				URL:     server.URL + "/x?accessToken=" + token,
				LogURL:  server.URL + "/x?accessToken=***",
				Headers: map[string]string{"Authorization": "Bearer " + token},
			})
			if err != nil {
				errs <- err
				return
			}
			if want := "Bearer " + token + "|" + token; string(resp.Body) != want {
				errs <- fmt.Errorf("got %q, want %q", resp.Body, want)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestHTTPTransport_RateLimiterCancelled(t *testing.T) {
	doer := &fakeDoer{fn: func(*http.Request, int) (*http.Response, error) {
		return textResponse(http.StatusOK, "{}"), nil
	}}
	tr, err := NewHTTPTransport(testConfig(3), WithDoer(doer), WithLogger(log.Discard()), WithRateLimiter(NewRateLimiter(1, 1)))
	require.NoError(t, err)

	_, err = tr.Send(context.Background(), getRequest())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Send(ctx, getRequest())

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, ErrorTypeCancelled, te.Type)
	assert.Equal(t, int32(1), doer.calls.Load())
}

func TestNewRateLimiter(t *testing.T) {
	assert.Nil(t, NewRateLimiter(0, 10))
	assert.Nil(t, NewRateLimiter(-1, 10))
	require.NotNil(t, NewRateLimiter(2.5, 0))
	assert.NoError(t, NewRateLimiter(100, 1).Wait(context.Background()))
}

func TestHTTPTransport_SpanUsesMaskedURL(t *testing.T) {
	otel.SetTextMapPropagator(tracing.W3CPropagator())
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	var traceparent string
	doer := &fakeDoer{fn: func(req *http.Request, _ int) (*http.Response, error) {
		traceparent = req.Header.Get("traceparent")
		return textResponse(http.StatusOK, "{}"), nil
	}}
	tr, err := NewHTTPTransport(testConfig(1), WithDoer(doer), WithLogger(log.Discard()), WithTracerProvider(tp))
	require.NoError(t, err)

	_, err = tr.Send(context.Background(), getRequest())
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP GET", spans[0].Name)
	assert.Contains(t, traceparent, spans[0].SpanContext.TraceID().String())
	for _, kv := range spans[0].Attributes {
		assert.NotContains(t, kv.Value.Emit(), "SECRET")
		if kv.Key == "url.full" {
			assert.Equal(t, safeURL, kv.Value.AsString())
		}
	}
}

func TestHTTPTransport_BodyOverLimitIsClassified(t *testing.T) {
	body := `{"id":"` + strings.Repeat("x", 100) + `"}`
	doer := &fakeDoer{fn: func(_ *http.Request, _ int) (*http.Response, error) {
		return textResponse(http.StatusOK, body), nil
	}}
	cfg := testConfig(3)
	cfg.MaxResponseBytes = 32

	resp, err := newTestTransport(t, doer, cfg).Send(context.Background(), getRequest())
	require.Error(t, err)
	assert.Nil(t, resp)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ErrorTypeResponseTooLarge, te.Type)
	assert.False(t, te.Retryable)
	assert.NotContains(t, err.Error(), "SECRET")
	assert.Equal(t, int32(1), doer.calls.Load())
}

func TestHTTPTransport_BodyAtLimitIsKept(t *testing.T) {
	body := `{"id":"abc"}`
	doer := &fakeDoer{fn: func(_ *http.Request, _ int) (*http.Response, error) {
		return textResponse(http.StatusOK, body), nil
	}}
	cfg := testConfig(1)
	cfg.MaxResponseBytes = int64(len(body))

	resp, err := newTestTransport(t, doer, cfg).Send(context.Background(), getRequest())
	require.NoError(t, err)
	assert.Equal(t, body, string(resp.Body))
}

func TestHTTPTransport_MetricsRecordRetriesAndOutcome(t *testing.T) {
	requests := requestsTotal.WithLabelValues(http.MethodPatch, "2xx")
	retries := retriesTotal.WithLabelValues("503")
	requestsBefore := testutil.ToFloat64(requests)
	retriesBefore := testutil.ToFloat64(retries)

	doer := &fakeDoer{fn: func(_ *http.Request, call int) (*http.Response, error) {
		if call == 1 {
			return textResponse(http.StatusServiceUnavailable, "busy"), nil
		}
		return textResponse(http.StatusOK, `{}`), nil
	}}
	req := getRequest()
	req.Method = http.MethodPatch

	_, err := newTestTransport(t, doer, testConfig(3)).Send(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, requestsBefore+1, testutil.ToFloat64(requests))
	assert.Equal(t, retriesBefore+1, testutil.ToFloat64(retries))
}

func TestCollectors_RegisterOnCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	for _, c := range Collectors() {
		require.NoError(t, reg.Register(c))
	}
	recordRequest(http.MethodGet, "2xx", time.Millisecond)

	n, err := testutil.GatherAndCount(reg, "videoindexer_transport_requests_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
}
