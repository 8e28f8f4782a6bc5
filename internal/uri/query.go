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

package uri

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Query is an ordered set of query parameters.
// Parameters are emitted in the order they were first set, so built URIs are
// deterministic. Absent and blank values are never emitted.
// The zero value is ready to use; a nil *Query encodes to "".
type Query struct {
	names  []string
	values map[string]string
}

// NewQuery returns an empty Query.
func NewQuery() *Query {
	return &Query{}
}

// Set records name=value if value is non-blank after trimming.
// Setting an existing name replaces its value but keeps its position;
// setting it to a blank value removes it.
func (q *Query) Set(name, value string) *Query {
	if strings.TrimSpace(value) == "" {
		q.Del(name)
		return q
	}
	if q.values == nil {
		q.values = make(map[string]string)
	}
	if _, exists := q.values[name]; !exists {
		q.names = append(q.names, name)
	}
	q.values[name] = value
	return q
}

// SetString records a pointer-typed optional string; nil is absent.
func (q *Query) SetString(name string, value *string) *Query {
	if value == nil {
		return q
	}
	return q.Set(name, *value)
}

// SetBool records an optional boolean as lowercase "true"/"false".
func (q *Query) SetBool(name string, value *bool) *Query {
	if value == nil {
		return q
	}
	return q.Set(name, strconv.FormatBool(*value))
}

// SetInt records an optional integer.
func (q *Query) SetInt(name string, value *int) *Query {
	if value == nil {
		return q
	}
	return q.Set(name, strconv.Itoa(*value))
}

// SetList records a list as a comma-joined string. Blank items are dropped;
// an empty result is absent.
func (q *Query) SetList(name string, values []string) *Query {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			kept = append(kept, v)
		}
	}
	return q.Set(name, strings.Join(kept, ","))
}

// SetTime records an optional timestamp in RFC 3339 (UTC).
func (q *Query) SetTime(name string, value *time.Time) *Query {
	if value == nil || value.IsZero() {
		return q
	}
	return q.Set(name, value.UTC().Format(time.RFC3339))
}

// Del removes name from the query.
func (q *Query) Del(name string) {
	if _, exists := q.values[name]; !exists {
		return
	}
	delete(q.values, name)
	for i, n := range q.names {
		if n == name {
			q.names = append(q.names[:i], q.names[i+1:]...)
			break
		}
	}
}

// Get returns the recorded value for name.
func (q *Query) Get(name string) (string, bool) {
	if q == nil {
		return "", false
	}
	v, ok := q.values[name]
	return v, ok
}

// Len returns the number of emitted parameters.
func (q *Query) Len() int {
	if q == nil {
		return 0
	}
	return len(q.names)
}

// Encode renders the query as name=value pairs joined by '&', in insertion order.
// Names and values are query-escaped.
func (q *Query) Encode() string {
	if q.Len() == 0 {
		return ""
	}
	var b strings.Builder
	for i, name := range q.names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(q.values[name]))
	}
	return b.String()
}
