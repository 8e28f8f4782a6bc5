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
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultAccountCacheSize bounds how many per-account providers are kept.
const DefaultAccountCacheSize = 64

// AccountTokens hands out one cached provider per account id. Providers
// are built by factory on first use and evicted least-recently-used.
type AccountTokens struct {
	factory func(accountID string) TokenProvider
	opts    []CachedOption
	cache   *lru.Cache[string, *CachedProvider]
}

// NewAccountTokens creates an account token cache of the given size.
func NewAccountTokens(size int, factory func(accountID string) TokenProvider, opts ...CachedOption) (*AccountTokens, error) {
	if size <= 0 {
		size = DefaultAccountCacheSize
	}
	cache, err := lru.New[string, *CachedProvider](size)
	if err != nil {
		return nil, fmt.Errorf("creating account token cache: %w", err)
	}
	return &AccountTokens{factory: factory, opts: opts, cache: cache}, nil
}

// For returns the provider for accountID.
func (a *AccountTokens) For(accountID string) *CachedProvider {
	if p, ok := a.cache.Get(accountID); ok {
		return p
	}
	p := Cached(a.factory(accountID), a.opts...)
	// A concurrent caller may have added one first; keep theirs.
	if prev, ok, _ := a.cache.PeekOrAdd(accountID, p); ok {
		return prev
	}
	return p
}

// Token returns the token for accountID.
func (a *AccountTokens) Token(ctx context.Context, accountID string) (string, error) {
	return a.For(accountID).Token(ctx)
}

// Invalidate drops the cached token of accountID.
func (a *AccountTokens) Invalidate(accountID string) {
	if p, ok := a.cache.Peek(accountID); ok {
		p.Invalidate()
	}
}

// Len reports how many accounts have a provider.
func (a *AccountTokens) Len() int {
	return a.cache.Len()
}
