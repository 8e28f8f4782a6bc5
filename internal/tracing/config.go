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

// Package tracing configures OpenTelemetry for the client: a tracer provider
// with a pluggable exporter and W3C trace-context propagation on outgoing
// requests.
package tracing

import (
	"fmt"
	"io"
)

// Exporter types.
const (
	ExporterNone     = "none"
	ExporterConsole  = "console"
	ExporterOTLP     = "otlp"
	ExporterOTLPHTTP = "otlp_http"
)

// Config holds tracing configuration.
type Config struct {
	// Exporter selects where spans go: none, console, otlp or otlp_http.
	Exporter string

	// Endpoint is the collector address for the OTLP exporters (host:port).
	Endpoint string

	// Insecure disables TLS for the OTLP exporters.
	Insecure bool

	// Headers are sent with every OTLP export request.
	Headers map[string]string

	// ServiceName identifies this client in traces.
	ServiceName string

	// ServiceVersion is the application version.
	ServiceVersion string

	// SampleRate is the fraction of root traces recorded (0.0 - 1.0).
	SampleRate float64

	// Writer receives console output. Defaults to stderr.
	Writer io.Writer
}

// DefaultConfig returns a configuration with tracing disabled.
func DefaultConfig() Config {
	return Config{
		Exporter:    ExporterNone,
		ServiceName: "videoindexer",
		SampleRate:  1.0,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Exporter {
	case "", ExporterNone, ExporterConsole:
	case ExporterOTLP, ExporterOTLPHTTP:
		if c.Endpoint == "" {
			return fmt.Errorf("endpoint is required for exporter %q", c.Exporter)
		}
	default:
		return fmt.Errorf("unknown exporter type: %s", c.Exporter)
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample_rate must be between 0 and 1, got %v", c.SampleRate)
	}
	return nil
}
