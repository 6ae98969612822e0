// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Policy is a fixed-window ceiling for one class of routes.
type Policy struct {
	// Name namespaces the counter keys of this policy.
	Name string
	// Requests is the number of requests allowed per window.
	Requests int64
	// Window is the length of one counting window.
	Window time.Duration
}

// Result describes the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// RetryAfter is how long the caller should wait before the window resets.
func (r Result) RetryAfter(
	now time.Time,
) time.Duration {
	if d := r.ResetAt.Sub(now); d > 0 {
		return d
	}

	return 0
}

// Limiter applies fixed-window policies on top of a Store.
type Limiter struct {
	store Store
	now   func() time.Time
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithLimiterClock overrides the time source.
func WithLimiterClock(
	now func() time.Time,
) LimiterOption {
	return func(l *Limiter) {
		l.now = now
	}
}

// NewLimiter creates a Limiter.
func NewLimiter(
	store Store,
	opts ...LimiterOption,
) *Limiter {
	l := &Limiter{
		store: store,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Allow records a hit for key under policy and reports whether it fits the
// ceiling. The hit counts even when the request is later abandoned.
func (l *Limiter) Allow(
	ctx context.Context,
	policy Policy,
	key string,
) (Result, error) {
	now := l.now()

	st, err := l.store.IncrementAndGet(ctx, policy.Name+":"+key, policy.Window, now)
	if err != nil {
		return Result{}, fmt.Errorf("%s limiter: %w", policy.Name, err)
	}

	remaining := policy.Requests - st.Count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   st.Count <= policy.Requests,
		Limit:     policy.Requests,
		Remaining: remaining,
		ResetAt:   st.WindowStart.Add(policy.Window),
	}, nil
}
