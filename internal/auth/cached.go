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

package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tombee/videoindexer/internal/memo"
)

const (
	// DefaultSkew is subtracted from a token's expiry before it is replaced.
	DefaultSkew = 2 * time.Minute

	// DefaultOpaqueTTL is how long a token without a readable expiry is kept.
	DefaultOpaqueTTL = 30 * time.Minute
)

type cachedToken struct {
	value   string
	expires time.Time
}

// CachedProvider remembers the token of another provider until shortly
// before it expires.
type CachedProvider struct {
	source TokenProvider
	cell   *memo.Cell[cachedToken]
	now    func() time.Time
}

// CachedOption configures a CachedProvider.
type CachedOption func(*cachedOptions)

type cachedOptions struct {
	skew      time.Duration
	opaqueTTL time.Duration
	now       func() time.Time
}

// WithSkew sets how long before expiry a token is refreshed.
func WithSkew(d time.Duration) CachedOption {
	return func(o *cachedOptions) { o.skew = d }
}

// WithOpaqueTTL sets the lifetime of tokens that carry no exp claim.
func WithOpaqueTTL(d time.Duration) CachedOption {
	return func(o *cachedOptions) { o.opaqueTTL = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CachedOption {
	return func(o *cachedOptions) { o.now = now }
}

// Cached wraps source so its token is fetched once and reused.
func Cached(source TokenProvider, opts ...CachedOption) *CachedProvider {
	o := cachedOptions{skew: DefaultSkew, opaqueTTL: DefaultOpaqueTTL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	ttl := func(t cachedToken) time.Duration {
		if t.expires.IsZero() {
			return o.opaqueTTL
		}
		d := t.expires.Sub(o.now()) - o.skew
		if d <= 0 {
			// Already inside the skew window: usable for this call only.
			return time.Nanosecond
		}
		return d
	}

	return &CachedProvider{
		source: source,
		cell:   memo.New(memo.WithTTLFunc(ttl), memo.WithClock[cachedToken](o.now)),
		now:    o.now,
	}
}

// Token returns the cached token or fetches a new one.
func (c *CachedProvider) Token(ctx context.Context) (string, error) {
	t, err := c.cell.Get(ctx, func(ctx context.Context) (cachedToken, error) {
		value, err := c.source.Token(ctx)
		if err != nil {
			return cachedToken{}, err
		}
		exp, _ := ExpiresAt(value)
		return cachedToken{value: value, expires: exp}, nil
	})
	return t.value, err
}

// Invalidate forces the next Token call to fetch. Call it after the
// service rejects the token.
func (c *CachedProvider) Invalidate() {
	c.cell.Invalidate()
}

// ExpiresAt reads the exp claim of a JWT without verifying its signature.
// The token is opaque to this client; the service validates it. ok is
// false for non-JWT tokens or tokens without exp.
func ExpiresAt(token string) (exp time.Time, ok bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
