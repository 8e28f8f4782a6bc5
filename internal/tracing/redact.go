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

package tracing

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tombee/videoindexer/internal/redact"
)

// RedactingProcessor scrubs span attributes as spans start, so no exporter
// ever sees an access token even if an instrumented library records a raw URL.
type RedactingProcessor struct {
	redactor *redact.Redactor
}

// NewRedactingProcessor creates a processor that applies r to span attributes.
func NewRedactingProcessor(r *redact.Redactor) *RedactingProcessor {
	return &RedactingProcessor{redactor: r}
}

// OnStart rewrites the span's start attributes.
func (p *RedactingProcessor) OnStart(_ context.Context, s sdktrace.ReadWriteSpan) {
	attrs := s.Attributes()
	if len(attrs) == 0 {
		return
	}
	s.SetAttributes(p.redactor.RedactAttributes(attrs)...)
}

// OnEnd is a no-op; ended spans are read-only.
func (p *RedactingProcessor) OnEnd(sdktrace.ReadOnlySpan) {}

// Shutdown is a no-op.
func (p *RedactingProcessor) Shutdown(context.Context) error { return nil }

// ForceFlush is a no-op.
func (p *RedactingProcessor) ForceFlush(context.Context) error { return nil }

var _ sdktrace.SpanProcessor = (*RedactingProcessor)(nil)
