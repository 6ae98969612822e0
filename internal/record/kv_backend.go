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

package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/retr0h/pantry/internal/messaging"
)

// maxMergeAttempts bounds the compare-and-swap loop in Apply.
const maxMergeAttempts = 16

// ensure KVBackend implements Backend at compile time.
var _ Backend = (*KVBackend)(nil)

// KVBackend stores documents as JSON in a NATS KV bucket under "<type>.<id>".
// Merges use revision compare-and-swap so concurrent partial writes to one
// document never drop each other's fields.
type KVBackend struct {
	bucket messaging.Bucket
	logger *slog.Logger
}

// NewKVBackend creates a KVBackend.
func NewKVBackend(
	logger *slog.Logger,
	bucket messaging.Bucket,
) *KVBackend {
	return &KVBackend{
		bucket: bucket,
		logger: logger,
	}
}

// Apply merges w into the stored document.
func (b *KVBackend) Apply(
	ctx context.Context,
	w Write,
	create bool,
) error {
	key := documentKey(w.Type, w.ID)

	var lastErr error
	for attempt := 0; attempt < maxMergeAttempts; attempt++ {
		doc, rev, err := b.load(ctx, key)
		exists := err == nil

		switch {
		case errors.Is(err, ErrNotFound):
			doc = Record{Type: w.Type, ID: w.ID}
		case err != nil:
			return err
		case create:
			return ErrExists
		}

		doc.merge(w)

		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", key, err)
		}

		if exists {
			_, lastErr = b.bucket.Update(ctx, key, data, rev)
		} else {
			_, lastErr = b.bucket.Create(ctx, key, data)
			if create && errors.Is(lastErr, messaging.ErrKeyExists) {
				return ErrExists
			}
		}

		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("write record %s: %w", key, lastErr)
}

// Get returns one stored document.
func (b *KVBackend) Get(
	ctx context.Context,
	recordType string,
	id string,
) (Record, error) {
	doc, _, err := b.load(ctx, documentKey(recordType, id))
	return doc, err
}

// List returns every document of recordType ordered by ID. Documents that
// vanish between listing and reading are skipped.
func (b *KVBackend) List(
	ctx context.Context,
	recordType string,
) ([]Record, error) {
	keys, err := b.bucket.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list record keys: %w", err)
	}

	prefix := recordType + "."
	out := make([]Record, 0, len(keys))
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}

		doc, _, err := b.load(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		out = append(out, doc)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (b *KVBackend) load(
	ctx context.Context,
	key string,
) (Record, uint64, error) {
	data, rev, err := b.bucket.Get(ctx, key)
	if err != nil {
		if errors.Is(err, messaging.ErrKeyNotFound) {
			return Record{}, 0, ErrNotFound
		}
		return Record{}, 0, fmt.Errorf("get record %s: %w", key, err)
	}

	var doc Record
	if err := json.Unmarshal(data, &doc); err != nil {
		return Record{}, 0, fmt.Errorf("unmarshal record %s: %w", key, err)
	}

	return doc, rev, nil
}

// documentKey builds a KV key. Record types and IDs are expected to use the
// KV key alphabet (hex digests and UUIDs do).
func documentKey(
	recordType string,
	id string,
) string {
	return recordType + "." + id
}
