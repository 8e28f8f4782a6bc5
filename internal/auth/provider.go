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

// Package auth supplies access tokens to the client.
//
// Token issuance belongs to the caller. This package only adapts common
// sources (a literal, a secret store, an OAuth2 token source) to the
// TokenProvider interface and caches their results until the token expires.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrNoToken is returned when a provider yields an empty token.
var ErrNoToken = errors.New("no access token")

// TokenProvider returns the access token for the next call.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Static returns a provider that always yields token.
func Static(token string) TokenProvider {
	return TokenFunc(func(context.Context) (string, error) {
		if strings.TrimSpace(token) == "" {
			return "", ErrNoToken
		}
		return token, nil
	})
}

// SecretGetter looks up a secret by key. *secrets.Resolver implements it.
type SecretGetter interface {
	Get(ctx context.Context, key string) (string, error)
}

// FromSecret reads the token from a secret store under key on every call.
func FromSecret(store SecretGetter, key string) TokenProvider {
	return TokenFunc(func(ctx context.Context) (string, error) {
		token, err := store.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("resolving access token %q: %w", key, err)
		}
		if strings.TrimSpace(token) == "" {
			return "", fmt.Errorf("%w: secret %q is empty", ErrNoToken, key)
		}
		return token, nil
	})
}

// FromOAuth2 adapts an oauth2.TokenSource. The source does its own refresh.
func FromOAuth2(ts oauth2.TokenSource) TokenProvider {
	return TokenFunc(func(context.Context) (string, error) {
		tok, err := ts.Token()
		if err != nil {
			return "", fmt.Errorf("acquiring oauth2 token: %w", err)
		}
		if tok == nil || tok.AccessToken == "" {
			return "", ErrNoToken
		}
		return tok.AccessToken, nil
	})
}

// ClientCredentialsConfig configures the OAuth2 client credentials flow.
type ClientCredentialsConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// Validate checks the required fields.
func (c *ClientCredentialsConfig) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required for client credentials")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client_secret is required for client credentials")
	}
	if !strings.HasPrefix(c.TokenURL, "https://") && !strings.HasPrefix(c.TokenURL, "http://") {
		return fmt.Errorf("token_url must start with http:// or https://")
	}
	return nil
}

// FromClientCredentials fetches tokens with the client credentials flow.
// Each call performs an exchange, so wrap it in Cached.
func FromClientCredentials(cfg ClientCredentialsConfig) (TokenProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	return TokenFunc(func(ctx context.Context) (string, error) {
		tok, err := cc.Token(ctx)
		if err != nil {
			return "", fmt.Errorf("acquiring client credentials token: %w", err)
		}
		return tok.AccessToken, nil
	}), nil
}
