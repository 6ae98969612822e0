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

// Package ratelimit tracks per-key request counters and authentication
// lockouts behind a pluggable Store.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrAccountLocked is returned while an identity is locked out.
var ErrAccountLocked = errors.New("account locked")

// State is the stored value behind one counter key.
type State struct {
	// Count is the number of hits recorded in the current window.
	Count int64 `json:"count"`
	// WindowStart is when the current window opened.
	WindowStart time.Time `json:"window_start"`
	// ExpiresAt is when the state stops being meaningful.
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the state no longer applies at now.
func (s State) Expired(
	now time.Time,
) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store is a small key-value surface for counters. Implementations must make
// IncrementAndGet a single atomic step per key.
type Store interface {
	// IncrementAndGet adds one hit to key, opening a new window when the
	// previous one has elapsed, and returns the resulting state.
	IncrementAndGet(
		ctx context.Context,
		key string,
		window time.Duration,
		now time.Time,
	) (State, error)
	// Get returns the state for key. Expired state is reported as absent.
	Get(
		ctx context.Context,
		key string,
		now time.Time,
	) (State, bool, error)
	// Set replaces the state for key; it expires after ttl.
	Set(
		ctx context.Context,
		key string,
		state State,
		ttl time.Duration,
		now time.Time,
	) error
	// Delete removes key.
	Delete(
		ctx context.Context,
		key string,
	) error
}

// advance applies one hit to prev. Windows reset lazily by timestamp
// comparison; nothing sweeps them in the background.
func advance(
	prev State,
	found bool,
	window time.Duration,
	now time.Time,
) State {
	if !found || !now.Before(prev.WindowStart.Add(window)) {
		return State{
			Count:       1,
			WindowStart: now,
			ExpiresAt:   now.Add(window),
		}
	}

	prev.Count++
	prev.ExpiresAt = prev.WindowStart.Add(window)

	return prev
}
