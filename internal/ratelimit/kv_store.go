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
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/retr0h/pantry/internal/messaging"
)

// maxCASAttempts bounds the optimistic-concurrency retry loop.
const maxCASAttempts = 16

// marshalJSON is the function used to marshal state. Tests override it.
var marshalJSON = json.Marshal

// ensure KVStore implements Store at compile time.
var _ Store = (*KVStore)(nil)

// KVStore keeps counters in a NATS KV bucket so several API processes share
// one view. Increments use revision compare-and-swap, so concurrent writers
// never both apply the same read.
type KVStore struct {
	bucket messaging.Bucket
	logger *slog.Logger
}

// NewKVStore creates a new KVStore.
func NewKVStore(
	logger *slog.Logger,
	bucket messaging.Bucket,
) *KVStore {
	return &KVStore{
		bucket: bucket,
		logger: logger,
	}
}

// IncrementAndGet adds one hit to key with a CAS retry loop.
func (s *KVStore) IncrementAndGet(
	ctx context.Context,
	key string,
	window time.Duration,
	now time.Time,
) (State, error) {
	var lastErr error

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		prev, rev, found, err := s.load(ctx, key)
		if err != nil {
			return State{}, err
		}

		next := advance(prev, found, window, now)
		if err := s.store(ctx, key, next, rev, found); err != nil {
			lastErr = err
			s.logger.Debug(
				"counter write conflict",
				slog.String("key", key),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			continue
		}

		return next, nil
	}

	return State{}, fmt.Errorf("increment counter %q: %w", key, lastErr)
}

// Get returns the live state for key.
func (s *KVStore) Get(
	ctx context.Context,
	key string,
	now time.Time,
) (State, bool, error) {
	st, _, found, err := s.load(ctx, key)
	if err != nil || !found {
		return State{}, false, err
	}

	if st.Expired(now) {
		return State{}, false, nil
	}

	return st, true, nil
}

// Set replaces the state for key.
func (s *KVStore) Set(
	ctx context.Context,
	key string,
	state State,
	ttl time.Duration,
	now time.Time,
) error {
	state.ExpiresAt = now.Add(ttl)

	var lastErr error
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		_, rev, found, err := s.load(ctx, key)
		if err != nil {
			return err
		}

		if lastErr = s.store(ctx, key, state, rev, found); lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("set counter %q: %w", key, lastErr)
}

// Delete removes key.
func (s *KVStore) Delete(
	ctx context.Context,
	key string,
) error {
	if err := s.bucket.Delete(ctx, bucketKey(key)); err != nil {
		return fmt.Errorf("delete counter %q: %w", key, err)
	}

	return nil
}

func (s *KVStore) load(
	ctx context.Context,
	key string,
) (State, uint64, bool, error) {
	data, rev, err := s.bucket.Get(ctx, bucketKey(key))
	if err != nil {
		if errors.Is(err, messaging.ErrKeyNotFound) {
			return State{}, 0, false, nil
		}
		return State{}, 0, false, fmt.Errorf("get counter %q: %w", key, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, 0, false, fmt.Errorf("unmarshal counter %q: %w", key, err)
	}

	return st, rev, true, nil
}

func (s *KVStore) store(
	ctx context.Context,
	key string,
	st State,
	rev uint64,
	found bool,
) error {
	data, err := marshalJSON(st)
	if err != nil {
		return fmt.Errorf("marshal counter %q: %w", key, err)
	}

	if found {
		_, err = s.bucket.Update(ctx, bucketKey(key), data, rev)
	} else {
		_, err = s.bucket.Create(ctx, bucketKey(key), data)
	}

	return err
}

// bucketKey encodes arbitrary counter keys (IPv6 addresses, e-mails) into the
// KV key alphabet.
func bucketKey(
	key string,
) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}
