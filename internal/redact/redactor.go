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

package redact

import (
	"net/http"
	"regexp"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// RedactionMode determines how aggressively free text is scrubbed.
type RedactionMode string

const (
	// ModeNone disables pattern redaction. Literal secrets are still removed.
	ModeNone RedactionMode = "none"

	// ModeStandard applies pattern-based redaction for common secrets.
	ModeStandard RedactionMode = "standard"

	// ModeStrict replaces every value with the placeholder.
	ModeStrict RedactionMode = "strict"
)

const placeholder = "[REDACTED]"

// Pattern defines a redaction pattern with a name and regular expression.
type Pattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// StandardPatterns returns the default set of redaction patterns.
func StandardPatterns() []Pattern {
	return []Pattern{
		{
			Name:        "access_token_param",
			Regex:       regexp.MustCompile(`(?i)(access_?token=)([^&\s"']+)`),
			Replacement: "${1}" + MaskToken,
		},
		{
			Name:        "bearer_token",
			Regex:       regexp.MustCompile(`(?i)(bearer\s+)([a-zA-Z0-9_\-\.=+/]{8,})`),
			Replacement: "${1}" + placeholder,
		},
		{
			Name:        "jwt",
			Regex:       regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),
			Replacement: "[REDACTED-JWT]",
		},
		{
			Name:        "api_key",
			Regex:       regexp.MustCompile(`(?i)(api[_-]?key|apikey|subscription[_-]?key)(["\s:=]+)([a-zA-Z0-9_\-]{16,})`),
			Replacement: "${1}${2}" + placeholder,
		},
		{
			Name:        "generic_secret",
			Regex:       regexp.MustCompile(`(?i)("?(?:secret|token)"?\s*[:=]\s*"?)([a-zA-Z0-9_\-\.]{16,})`),
			Replacement: "${1}" + placeholder,
		},
	}
}

// Redactor scrubs secrets from free text and span attributes.
// It holds no per-call state and is safe for concurrent use.
type Redactor struct {
	mode     RedactionMode
	patterns []Pattern
}

// NewRedactor creates a new redactor with the specified mode.
func NewRedactor(mode RedactionMode) *Redactor {
	if mode == "" {
		mode = ModeStandard
	}
	return &Redactor{
		mode:     mode,
		patterns: StandardPatterns(),
	}
}

// NewRedactorWithPatterns creates a redactor with custom patterns.
func NewRedactorWithPatterns(mode RedactionMode, patterns []Pattern) *Redactor {
	return &Redactor{
		mode:     mode,
		patterns: patterns,
	}
}

// RedactString removes every literal in literals from s, then applies the
// mode's patterns. Literals are the secrets of the call at hand (its access
// token) and are removed in every mode.
func (r *Redactor) RedactString(s string, literals ...string) string {
	if r.mode == ModeStrict {
		return placeholder
	}

	result := replaceLiterals(s, literals)
	if r.mode == ModeNone {
		return result
	}

	for _, pattern := range r.patterns {
		result = pattern.Regex.ReplaceAllString(result, pattern.Replacement)
	}
	return result
}

// replaceLiterals masks the longest secrets first so a secret that is a
// prefix of another never leaves a tail behind.
func replaceLiterals(s string, literals []string) string {
	if len(literals) == 0 {
		return s
	}
	sorted := make([]string, 0, len(literals))
	for _, l := range literals {
		if strings.TrimSpace(l) != "" {
			sorted = append(sorted, l)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	for _, l := range sorted {
		s = strings.ReplaceAll(s, l, MaskToken)
	}
	return s
}

// RedactAttributes applies redaction to span attributes.
func (r *Redactor) RedactAttributes(attrs []attribute.KeyValue) []attribute.KeyValue {
	if r.mode == ModeNone {
		return attrs
	}

	redacted := make([]attribute.KeyValue, len(attrs))
	for i, attr := range attrs {
		key := string(attr.Key)

		if IsSensitiveKey(key) {
			redacted[i] = attribute.String(key, placeholder)
			continue
		}

		switch {
		case attr.Value.Type() == attribute.STRING:
			redacted[i] = attribute.String(key, r.RedactString(attr.Value.AsString()))
		case r.mode == ModeStrict:
			redacted[i] = attribute.String(key, placeholder)
		default:
			redacted[i] = attr
		}
	}
	return redacted
}

// Headers returns a log-safe copy of h. Sensitive header values become ***.
func Headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if IsSensitiveKey(name) {
			out[name] = MaskToken
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token",
	"api_key", "apikey", "api-key",
	"subscription-key", "subscription_key",
	"private_key", "private",
	"authorization", "auth",
	"cookie", "session",
}

// IsSensitiveKey reports whether a header, attribute or field name names a secret.
func IsSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// Truncate shortens s to at most n bytes, marking the cut.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
