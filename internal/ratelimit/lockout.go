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
	"log/slog"
	"strings"
	"time"
)

// Lockout defaults.
const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 30 * time.Minute
)

// LockoutState is the per-identity lockout view.
type LockoutState struct {
	FailedAttempts int64
	LockedUntil    time.Time
}

// Locked reports whether the identity is locked at now.
func (s LockoutState) Locked(
	now time.Time,
) bool {
	return now.Before(s.LockedUntil)
}

// LockoutConfig configures a Lockout.
type LockoutConfig struct {
	// Threshold is the number of failures that locks an identity.
	Threshold int64
	// Duration is how long a lock lasts.
	Duration time.Duration
	// Window is how long failures are remembered before the count resets.
	Window time.Duration
}

// Lockout locks identities after repeated authentication failures.
type Lockout struct {
	store  Store
	cfg    LockoutConfig
	logger *slog.Logger
	now    func() time.Time
}

// LockoutOption configures a Lockout.
type LockoutOption func(*Lockout)

// WithLockoutClock overrides the time source.
func WithLockoutClock(
	now func() time.Time,
) LockoutOption {
	return func(l *Lockout) {
		l.now = now
	}
}

// NewLockout creates a Lockout. Zero config values take the defaults; a zero
// Window follows Duration.
func NewLockout(
	logger *slog.Logger,
	store Store,
	cfg LockoutConfig,
	opts ...LockoutOption,
) *Lockout {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultLockoutThreshold
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultLockoutDuration
	}
	if cfg.Window <= 0 {
		cfg.Window = cfg.Duration
	}

	l := &Lockout{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Check returns ErrAccountLocked while identity is locked.
func (l *Lockout) Check(
	ctx context.Context,
	identity string,
) (LockoutState, error) {
	now := l.now()

	st, found, err := l.store.Get(ctx, lockKey(identity), now)
	if err != nil {
		return LockoutState{}, fmt.Errorf("reading lockout: %w", err)
	}

	if !found {
		return LockoutState{}, nil
	}

	state := LockoutState{
		FailedAttempts: st.Count,
		LockedUntil:    st.ExpiresAt,
	}
	if state.Locked(now) {
		return state, ErrAccountLocked
	}

	return state, nil
}

// RecordFailure counts a failed authentication and locks the identity once
// the threshold is reached.
func (l *Lockout) RecordFailure(
	ctx context.Context,
	identity string,
) (LockoutState, error) {
	now := l.now()

	st, err := l.store.IncrementAndGet(ctx, failKey(identity), l.cfg.Window, now)
	if err != nil {
		return LockoutState{}, fmt.Errorf("counting failure: %w", err)
	}

	state := LockoutState{FailedAttempts: st.Count}
	if st.Count < l.cfg.Threshold {
		return state, nil
	}

	lock := State{Count: st.Count, WindowStart: now}
	if err := l.store.Set(ctx, lockKey(identity), lock, l.cfg.Duration, now); err != nil {
		return state, fmt.Errorf("locking identity: %w", err)
	}

	if err := l.store.Delete(ctx, failKey(identity)); err != nil {
		l.logger.Warn(
			"failed to reset failure counter",
			slog.String("error", err.Error()),
		)
	}

	state.LockedUntil = now.Add(l.cfg.Duration)

	l.logger.Info(
		"identity locked",
		slog.Int64("failed_attempts", st.Count),
		slog.Time("locked_until", state.LockedUntil),
	)

	return state, nil
}

// RecordSuccess clears the failure count and any lock for identity.
func (l *Lockout) RecordSuccess(
	ctx context.Context,
	identity string,
) error {
	if err := l.store.Delete(ctx, failKey(identity)); err != nil {
		return fmt.Errorf("clearing failures: %w", err)
	}

	if err := l.store.Delete(ctx, lockKey(identity)); err != nil {
		return fmt.Errorf("clearing lock: %w", err)
	}

	return nil
}

// NormalizeIdentity folds an identity so "Cook@Example.com " and
// "cook@example.com" share one counter.
func NormalizeIdentity(
	identity string,
) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

func failKey(
	identity string,
) string {
	return "lockout:fail:" + NormalizeIdentity(identity)
}

func lockKey(
	identity string,
) string {
	return "lockout:lock:" + NormalizeIdentity(identity)
}
