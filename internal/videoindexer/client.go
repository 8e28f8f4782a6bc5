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

// Package videoindexer exposes the service endpoints as typed accessors.
// Every accessor builds a RequestSpec and funnels it through the shared
// executor, so none of them touch HTTP directly.
package videoindexer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tombee/videoindexer/internal/apierr"
	"github.com/tombee/videoindexer/internal/auth"
	"github.com/tombee/videoindexer/internal/executor"
	"github.com/tombee/videoindexer/internal/log"
	"github.com/tombee/videoindexer/internal/memo"
	"github.com/tombee/videoindexer/internal/redact"
	"github.com/tombee/videoindexer/internal/uri"
	vierrors "github.com/tombee/videoindexer/pkg/errors"
)

// Options configures a Client.
type Options struct {
	// Endpoint is the service root URL.
	Endpoint string

	// Location is the account region.
	Location string

	// AccountID is the account GUID.
	AccountID string

	// Placement says where the access token travels.
	Placement redact.Placement

	// Tokens supplies the access token for each call.
	Tokens auth.TokenProvider

	// Timeout bounds each call including retries. Zero means none.
	Timeout time.Duration

	// AccountCell memoizes the current account. A fresh cell is used when nil.
	AccountCell *memo.Cell[Account]

	// Logger is the base logger.
	Logger *slog.Logger
}

// Client groups the endpoint accessors of one account.
type Client struct {
	exec      *executor.Executor
	endpoint  string
	location  string
	accountID string
	placement redact.Placement
	tokens    auth.TokenProvider
	timeout   time.Duration
	logger    *slog.Logger

	accounts *AccountsService
	videos   *VideosService
}

// invalidator is implemented by token providers that cache.
type invalidator interface {
	Invalidate()
}

// NewClient creates a client that sends every call through exec.
func NewClient(exec *executor.Executor, opts Options) (*Client, error) {
	if exec == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if strings.TrimSpace(opts.AccountID) == "" {
		return nil, fmt.Errorf("account id is required")
	}
	if strings.TrimSpace(opts.Location) == "" {
		return nil, fmt.Errorf("location is required")
	}
	if opts.Tokens == nil {
		return nil, fmt.Errorf("token provider is required")
	}

	cell := opts.AccountCell
	if cell == nil {
		cell = memo.New[Account]()
	}

	c := &Client{
		exec:      exec,
		endpoint:  opts.Endpoint,
		location:  opts.Location,
		accountID: opts.AccountID,
		placement: opts.Placement,
		tokens:    opts.Tokens,
		timeout:   opts.Timeout,
		logger:    log.WithComponent(log.OrDefault(opts.Logger), "videoindexer"),
	}
	c.accounts = &AccountsService{client: c, cell: cell}
	c.videos = &VideosService{client: c}
	return c, nil
}

// Accounts returns the account accessor.
func (c *Client) Accounts() *AccountsService {
	return c.accounts
}

// Videos returns the video accessor.
func (c *Client) Videos() *VideosService {
	return c.videos
}

// AccountID returns the account the client is bound to.
func (c *Client) AccountID() string {
	return c.accountID
}

// newSpec builds a RequestSpec for an account-scoped resource.
func (c *Client) newSpec(ctx context.Context, method string, q *uri.Query, resource ...string) (executor.RequestSpec, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return executor.RequestSpec{}, &vierrors.AuthError{AccountID: c.accountID, Cause: err}
	}
	return executor.RequestSpec{
		Method:       method,
		BaseEndpoint: c.endpoint,
		PathSegments: uri.AccountPath(uri.Segment(c.location), uri.Segment(c.accountID), resource...),
		Query:        q,
		Secret:       token,
		Placement:    c.placement,
		Timeout:      c.timeout,
	}, nil
}

// observe drops a cached token the service has rejected so the next call
// fetches a fresh one.
func (c *Client) observe(ctx context.Context, err error) {
	if !apierr.IsStatus(err, 401) {
		return
	}
	if inv, ok := c.tokens.(invalidator); ok {
		c.logger.InfoContext(ctx, "access token rejected, dropping cached token",
			log.AccountKey, c.accountID)
		inv.Invalidate()
	}
}

// do sends spec and decodes a T, applying the client's error handling.
func do[T any](ctx context.Context, c *Client, spec executor.RequestSpec) (T, error) {
	v, err := executor.Do[T](ctx, c.exec, spec)
	if err != nil {
		c.observe(ctx, err)
	}
	return v, err
}
