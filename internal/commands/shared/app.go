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

package shared

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/tombee/videoindexer/internal/auth"
	"github.com/tombee/videoindexer/internal/config"
	"github.com/tombee/videoindexer/internal/executor"
	"github.com/tombee/videoindexer/internal/log"
	"github.com/tombee/videoindexer/internal/secrets"
	"github.com/tombee/videoindexer/internal/tracing"
	"github.com/tombee/videoindexer/internal/transport"
	"github.com/tombee/videoindexer/internal/videoindexer"
	pkgerrors "github.com/tombee/videoindexer/pkg/errors"
)

// App holds everything a command needs to talk to the service.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Secrets *secrets.Resolver
	Client  *videoindexer.Client

	tracer *tracing.Provider
}

// LoadConfig loads the configuration selected by --config and applies the
// --log-level and --trace overrides.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.DiscoverPath(GetConfigPath()))
	if err != nil {
		return nil, err
	}
	if lvl := GetLogLevel(); lvl != "" {
		cfg.Log.Level = lvl
	}
	if GetTrace() {
		cfg.Tracing.Exporter = tracing.ExporterConsole
	}
	return cfg, nil
}

// NewApp builds the shared transport, executor and client from cfg.
// Callers must Close the returned App.
func NewApp(ctx context.Context, cfg *config.Config, store *secrets.Resolver) (*App, error) {
	logger := log.New(cfg.LogConfig())

	v, _, _ := GetVersion()
	tc := cfg.TracingConfig(v)
	tc.Writer = os.Stderr
	tracer, err := tracing.Setup(ctx, tc)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "setting up tracing")
	}

	app := &App{Config: cfg, Logger: logger, Secrets: store, tracer: tracer}
	if err := app.init(ctx); err != nil {
		_ = tracer.Shutdown(ctx)
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	shared, err := transport.NewHTTPTransport(cfg.TransportConfig(),
		transport.WithLogger(a.Logger),
		transport.WithRateLimiter(transport.NewRateLimiter(cfg.HTTP.RateLimit.RPS, cfg.HTTP.RateLimit.Burst)),
		transport.WithTracerProvider(a.tracer.TracerProvider()),
	)
	if err != nil {
		return pkgerrors.Wrap(err, "creating transport")
	}
	exec := executor.New(transport.NewProvider(shared, a.Logger), executor.WithLogger(a.Logger))

	tokens, err := TokenProvider(ctx, cfg, a.Secrets)
	if err != nil {
		return err
	}

	client, err := videoindexer.NewClient(exec, videoindexer.Options{
		Endpoint:  cfg.Endpoint,
		Location:  cfg.Location,
		AccountID: cfg.AccountID,
		Placement: cfg.Placement(),
		Tokens:    tokens,
		Timeout:   cfg.HTTP.Timeout,
		Logger:    a.Logger,
	})
	if err != nil {
		return err
	}
	a.Client = client
	return nil
}

// TokenProvider returns the cached token source described by cfg.Token.
func TokenProvider(ctx context.Context, cfg *config.Config, store auth.SecretGetter) (*auth.CachedProvider, error) {
	opts := []auth.CachedOption{auth.WithSkew(cfg.Token.RefreshSkew)}

	cc := cfg.Token.ClientCredentials
	if cc == nil {
		return auth.Cached(auth.FromSecret(store, cfg.Token.Secret), opts...), nil
	}

	clientSecret, err := store.Get(ctx, cc.ClientSecret)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "resolving client secret %q", cc.ClientSecret)
	}
	source, err := auth.FromClientCredentials(auth.ClientCredentialsConfig{
		ClientID:     cc.ClientID,
		ClientSecret: clientSecret,
		TokenURL:     cc.TokenURL,
		Scopes:       cc.Scopes,
	})
	if err != nil {
		return nil, err
	}
	return auth.Cached(source, opts...), nil
}

// Close flushes spans.
func (a *App) Close(ctx context.Context) error {
	if a == nil || a.tracer == nil {
		return nil
	}
	return a.tracer.Shutdown(ctx)
}

// WithApp loads configuration and secrets, runs fn and closes the App.
func WithApp(ctx context.Context, fn func(*App) error) (err error) {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	store, err := secrets.DefaultResolver()
	if err != nil {
		return pkgerrors.Wrap(err, "opening secret store")
	}
	app, err := NewApp(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, app.Close(context.WithoutCancel(ctx)))
	}()
	return fn(app)
}
