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

package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/retr0h/pantry/internal/messaging"
)

// ensure KVStore implements Store at compile time.
var _ Store = (*KVStore)(nil)

// KVStore implements Store backed by a NATS KeyValue bucket. Entries are
// written with Create, which the server refuses for an existing key.
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

// Write appends an audit entry to the KV bucket.
func (s *KVStore) Write(
	ctx context.Context,
	entry Entry,
) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	if _, err := s.bucket.Create(ctx, entry.ID, data); err != nil {
		if errors.Is(err, messaging.ErrKeyExists) {
			return fmt.Errorf("%w: %s", ErrDuplicate, entry.ID)
		}
		return fmt.Errorf("create audit entry: %w", err)
	}

	return nil
}

// Get retrieves a single audit entry by ID.
func (s *KVStore) Get(
	ctx context.Context,
	id string,
) (*Entry, error) {
	data, _, err := s.bucket.Get(ctx, id)
	if err != nil {
		if errors.Is(err, messaging.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get audit entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal audit entry: %w", err)
	}

	return &entry, nil
}

// List retrieves audit entries with pagination, newest first.
func (s *KVStore) List(
	ctx context.Context,
	limit int,
	offset int,
) ([]Entry, int, error) {
	keys, err := s.bucket.Keys(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit keys: %w", err)
	}

	total := len(keys)

	// UUIDv7 keys sort by creation time.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	if offset >= total {
		return []Entry{}, total, nil
	}

	end := min(offset+limit, total)

	entries := make([]Entry, 0, end-offset)
	for _, key := range keys[offset:end] {
		data, _, err := s.bucket.Get(ctx, key)
		if err != nil {
			s.logger.Warn(
				"failed to get audit entry",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			continue
		}

		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			s.logger.Warn(
				"failed to unmarshal audit entry",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			continue
		}

		entries = append(entries, entry)
	}

	return entries, total, nil
}
