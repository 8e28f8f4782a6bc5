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

// Package redact keeps access tokens and other secrets out of log sinks,
// span attributes and error messages.
package redact

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// MaskToken replaces a secret value in log-safe output.
	MaskToken = "***"

	// AccessTokenParam is the query parameter that carries the access token.
	AccessTokenParam = "accessToken"
)

// Placement says where an access token travels on the wire.
type Placement int

const (
	// PlacementQuery appends the token as the accessToken query parameter.
	PlacementQuery Placement = iota
	// PlacementBearer sends the token in an Authorization: Bearer header.
	PlacementBearer
)

// String returns the config spelling of the placement.
func (p Placement) String() string {
	switch p {
	case PlacementQuery:
		return "query"
	case PlacementBearer:
		return "bearer"
	default:
		return fmt.Sprintf("placement(%d)", int(p))
	}
}

// ParsePlacement parses "query" or "bearer". Empty means query.
func ParsePlacement(s string) (Placement, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "query", "query_param":
		return PlacementQuery, nil
	case "bearer", "header":
		return PlacementBearer, nil
	default:
		return PlacementQuery, fmt.Errorf("invalid token placement %q (must be query or bearer)", s)
	}
}

// MaskedRequest pairs the URI that goes on the wire with the one that may be logged.
type MaskedRequest struct {
	RealURI    string
	LogSafeURI string
}

// Mask derives the wire URI and the log-safe URI for uri and secret.
//
// With PlacementQuery the real URI gets accessToken=<secret> and the log-safe
// URI gets accessToken=*** at the same position; every other byte is shared.
// With PlacementBearer the secret never enters the URI and both are equal.
// An empty secret makes Mask a no-op: both URIs equal uri.
func Mask(uri, secret string, placement Placement) MaskedRequest {
	if strings.TrimSpace(secret) == "" || placement == PlacementBearer {
		return MaskedRequest{RealURI: uri, LogSafeURI: uri}
	}

	prefix := uri + querySeparator(uri) + AccessTokenParam + "="
	return MaskedRequest{
		RealURI:    prefix + url.QueryEscape(secret),
		LogSafeURI: prefix + MaskToken,
	}
}

func querySeparator(uri string) string {
	switch {
	case strings.HasSuffix(uri, "?"), strings.HasSuffix(uri, "&"):
		return ""
	case strings.Contains(uri, "?"):
		return "&"
	default:
		return "?"
	}
}
