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
	"fmt"
	"time"

	"github.com/tombee/videoindexer/internal/redact"
	"github.com/tombee/videoindexer/internal/response"
	"github.com/tombee/videoindexer/internal/uri"
)

// Header names set by the executor.
const (
	HeaderClientRequestID = "x-ms-client-request-id"
	HeaderAuthorization   = "Authorization"
	HeaderContentType     = "Content-Type"
)

// RequestSpec describes one call before its URI is built.
//
// Secret is carried as data. It is only ever combined with the URI by
// redact.Mask, which also produces the log-safe form.
type RequestSpec struct {
	// Method is the HTTP verb
	Method string

	// BaseEndpoint is the service root, e.g. https://api.videoindexer.ai
	BaseEndpoint string

	// PathSegments are joined with "/" after the base. Callers escape them.
	PathSegments []string

	// Query holds the optional parameters in insertion order
	Query *uri.Query

	// Secret is the access token, if any
	Secret string

	// Placement says where Secret travels
	Placement redact.Placement

	// Body is the already encoded request body
	Body []byte

	// Headers are extra per-request headers
	Headers map[string]string

	// Timeout bounds the whole call including retries. Zero means the
	// caller's context alone applies.
	Timeout time.Duration
}

// WithJSONBody encodes v with the shared JSON configuration, stores it as
// the body and sets the JSON content type.
func (s *RequestSpec) WithJSONBody(v any) error {
	body, err := response.Default().Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}
	s.Body = body
	if s.Headers == nil {
		s.Headers = make(map[string]string)
	}
	s.Headers[HeaderContentType] = "application/json"
	return nil
}
