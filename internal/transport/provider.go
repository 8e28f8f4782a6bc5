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

package transport

import (
	"log/slog"
	"sync"

	"github.com/tombee/videoindexer/internal/log"
)

// FallbackHTTPConfig is the configuration of the private transport built when
// no shared one is configured. It does not pool connections and never retries.
func FallbackHTTPConfig() HTTPConfig {
	cfg := DefaultHTTPConfig()
	cfg.Retry = NoRetryConfig()
	cfg.DisableKeepAlives = true
	cfg.MaxIdleConns = 0
	cfg.MaxIdleConnsPerHost = 0
	return cfg
}

// Provider resolves the transport used by every accessor.
//
// Production code hands it the shared transport. When none is configured it
// builds one fallback on first use and logs a warning once. This is the only
// place a transport is created on demand.
type Provider struct {
	shared Transport
	logger *slog.Logger
	opts   []Option

	once        sync.Once
	fallback    Transport
	fallbackErr error
}

// NewProvider creates a provider. shared may be nil. opts are applied to the
// fallback transport if one is ever built.
func NewProvider(shared Transport, logger *slog.Logger, opts ...Option) *Provider {
	return &Provider{
		shared: shared,
		logger: log.WithComponent(log.OrDefault(logger), "transport"),
		opts:   opts,
	}
}

// Transport returns the shared transport, or the lazily built fallback.
func (p *Provider) Transport() (Transport, error) {
	if p.shared != nil {
		return p.shared, nil
	}

	p.once.Do(func() {
		p.logger.Warn("no shared transport configured; using fallback without connection pooling or retry")
		opts := append([]Option{WithLogger(p.logger), WithName("fallback")}, p.opts...)
		t, err := NewHTTPTransport(FallbackHTTPConfig(), opts...)
		if err != nil {
			p.fallbackErr = err
			return
		}
		p.fallback = t
	})
	return p.fallback, p.fallbackErr
}

// IsFallback reports whether Transport returns a fallback instance.
func (p *Provider) IsFallback() bool {
	return p.shared == nil
}
