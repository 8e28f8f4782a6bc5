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

// Package uri assembles request URIs for the video indexing service.
//
// A URI is a base endpoint, a list of path segments and an ordered query:
//
//	q := uri.NewQuery().Set("language", "en-US").SetBool("reTranslate", &yes)
//	u, err := uri.Build("https://api.videoindexer.ai",
//	    uri.AccountPath("westus", accountID, "Videos", uri.Segment(videoID), "Index"), q)
//
// Path segments are inserted literally. Callers escape values that may contain
// reserved characters with Segment; a segment that would corrupt the URI is a
// construction error, never silently repaired.
package uri

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURI is wrapped by every construction error returned from Build.
var ErrInvalidURI = errors.New("invalid request uri")

// Build joins baseEndpoint, segments and q into a URI.
// The result is deterministic: identical inputs give byte-identical output.
func Build(baseEndpoint string, segments []string, q *Query) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(baseEndpoint), "/")
	if base == "" {
		return "", fmt.Errorf("%w: base endpoint is required", ErrInvalidURI)
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: base endpoint: %v", ErrInvalidURI, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: base endpoint must use http or https, got %q", ErrInvalidURI, parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: base endpoint must include a host", ErrInvalidURI)
	}
	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return "", fmt.Errorf("%w: base endpoint must not carry a query or fragment", ErrInvalidURI)
	}

	var b strings.Builder
	b.WriteString(base)
	for i, seg := range segments {
		if seg == "" {
			return "", fmt.Errorf("%w: path segment %d is empty", ErrInvalidURI, i)
		}
		if strings.ContainsAny(seg, "/?#") {
			return "", fmt.Errorf("%w: path segment %d contains a reserved character, escape it with uri.Segment", ErrInvalidURI, i)
		}
		b.WriteByte('/')
		b.WriteString(seg)
	}

	if encoded := q.Encode(); encoded != "" {
		b.WriteByte('?')
		b.WriteString(encoded)
	}

	out := b.String()
	if _, err := url.Parse(out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	return out, nil
}

// Segment percent-encodes a single path segment (ids, names).
func Segment(value string) string {
	return url.PathEscape(value)
}

// AccountPath returns the segments {location}/Accounts/{accountID}/{resource...}
// used by every account-scoped endpoint.
func AccountPath(location, accountID string, resource ...string) []string {
	segments := make([]string, 0, 3+len(resource))
	segments = append(segments, location, "Accounts", accountID)
	return append(segments, resource...)
}
