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
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered on prometheus.DefaultRegisterer when the package
// is loaded, so a process serving promhttp.Handler() exposes them as is.
var (
	// requestsTotal counts logical requests by final outcome
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videoindexer_transport_requests_total",
			Help: "Total logical requests by method and final status class",
		},
		[]string{"method", "status_class"},
	)

	// retriesTotal counts backoff sleeps by what triggered them
	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videoindexer_transport_retries_total",
			Help: "Total retries by reason (error type or status code)",
		},
		[]string{"reason"},
	)

	// requestDuration tracks the time spent in Send, retries included
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videoindexer_transport_request_duration_seconds",
			Help:    "Duration of logical requests including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// Collectors returns the transport metrics for registration on a
// registry other than the default one.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{requestsTotal, retriesTotal, requestDuration}
}

func recordRequest(method, class string, d time.Duration) {
	requestsTotal.WithLabelValues(method, class).Inc()
	requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

func recordRetry(reason string) {
	retriesTotal.WithLabelValues(reason).Inc()
}

// statusClass maps an outcome to "2xx".."5xx" or the transport error type.
func statusClass(resp *Response, err error) string {
	if err != nil {
		if te, ok := err.(*TransportError); ok {
			return string(te.Type)
		}
		return "error"
	}
	if resp == nil {
		return string(ErrorTypeNullResponse)
	}
	return strconv.Itoa(resp.StatusCode/100) + "xx"
}
