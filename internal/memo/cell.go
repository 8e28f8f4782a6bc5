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

// Package memo holds values that are fetched once and reused, such as the
// current account record or an access token.
//
// A Cell is an explicit object owned by whoever constructs it. There is no
// package-level cache: two Cells never share state.
package memo

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrFetchPanicked is returned to callers waiting on a fetch that panicked.
var ErrFetchPanicked = errors.New("memo: fetch panicked")

// FetchFunc produces the value for a Cell.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Option configures a Cell.
type Option[T any] func(*Cell[T])

// WithTTL makes a stored value expire d after it was fetched. Zero keeps it
// until Invalidate.
func WithTTL[T any](d time.Duration) Option[T] {
	return func(c *Cell[T]) {
		c.ttl = func(T) time.Duration { return d }
	}
}

// WithTTLFunc derives the lifetime of each value from the value itself.
// A result <= 0 means the value is kept until Invalidate.
func WithTTLFunc[T any](fn func(T) time.Duration) Option[T] {
	return func(c *Cell[T]) {
		c.ttl = fn
	}
}

// WithClock replaces time.Now.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *Cell[T]) {
		c.now = now
	}
}

// call is one fetch in progress.
type call[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Cell memoizes a single value.
//
// At most one fetch runs at a time; concurrent Get calls wait for it and
// share its result. Failed fetches are never stored, so the next Get tries
// again.
type Cell[T any] struct {
	ttl func(T) time.Duration
	now func() time.Time

	mu       sync.Mutex
	value    T
	valid    bool
	expires  time.Time
	inflight *call[T]
	fetches  int
}

// New creates an empty Cell.
func New[T any](opts ...Option[T]) *Cell[T] {
	c := &Cell[T]{
		ttl: func(T) time.Duration { return 0 },
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the stored value, or runs fetch to obtain it.
//
// A waiter whose ctx ends before the shared fetch finishes returns ctx.Err().
// If the shared fetch fails only because the ctx of the caller that started
// it ended, a waiter whose own ctx is still live runs the fetch itself.
func (c *Cell[T]) Get(ctx context.Context, fetch FetchFunc[T]) (T, error) {
	for {
		c.mu.Lock()
		if c.freshLocked() {
			v := c.value
			c.mu.Unlock()
			return v, nil
		}

		cl := c.inflight
		if cl == nil {
			cl = &call[T]{done: make(chan struct{})}
			c.inflight = cl
			c.fetches++
			c.mu.Unlock()
			return c.run(ctx, cl, fetch)
		}
		c.mu.Unlock()

		select {
		case <-cl.done:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
		if isContextErr(cl.err) && ctx.Err() == nil {
			continue
		}
		return cl.value, cl.err
	}
}

// run performs the fetch for cl and publishes its result. A panicking fetch
// still releases waiters, with ErrFetchPanicked, before the panic resumes.
func (c *Cell[T]) run(ctx context.Context, cl *call[T], fetch FetchFunc[T]) (T, error) {
	completed := false
	defer func() {
		if !completed {
			var zero T
			cl.value, cl.err = zero, ErrFetchPanicked
		}
		c.mu.Lock()
		c.inflight = nil
		if cl.err == nil {
			c.storeLocked(cl.value)
		}
		c.mu.Unlock()
		close(cl.done)
	}()

	cl.value, cl.err = fetch(ctx)
	completed = true
	return cl.value, cl.err
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Peek returns the stored value without fetching.
func (c *Cell[T]) Peek() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.freshLocked() {
		var zero T
		return zero, false
	}
	return c.value, true
}

// Set stores v as if it had been fetched.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storeLocked(v)
}

// Invalidate drops the stored value. A fetch already in flight still
// completes and stores its result.
func (c *Cell[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.value = zero
	c.valid = false
	c.expires = time.Time{}
}

// Fetches reports how many times a fetch was started.
func (c *Cell[T]) Fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

func (c *Cell[T]) storeLocked(v T) {
	c.value = v
	c.valid = true
	c.expires = time.Time{}
	if d := c.ttl(v); d > 0 {
		c.expires = c.now().Add(d)
	}
}

func (c *Cell[T]) freshLocked() bool {
	if !c.valid {
		return false
	}
	return c.expires.IsZero() || c.now().Before(c.expires)
}
