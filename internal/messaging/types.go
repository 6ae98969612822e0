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

// Package messaging wraps the NATS client and the JetStream KeyValue
// surface used by the audit, counter and record stores.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	natsclient "github.com/osapi-io/nats-client/pkg/client"
)

//go:generate mockgen -source=types.go -destination=mocks/bucket.gen.go -package=mocks

var (
	// ErrKeyNotFound is returned by Bucket.Get for a missing or deleted key.
	ErrKeyNotFound = errors.New("key not found")
	// ErrKeyExists is returned by Bucket.Create when the key already holds a value.
	ErrKeyExists = errors.New("key exists")
)

// NATSClient is the part of the NATS client pantry uses: one connection
// and the KV buckets opened on it.
type NATSClient interface {
	Connect() error
	CreateOrUpdateKVBucketWithConfig(
		ctx context.Context,
		config jetstream.KeyValueConfig,
	) (jetstream.KeyValue, error)
}

// Ensure natsclient.Client implements NATSClient interface
var _ NATSClient = (*natsclient.Client)(nil)

// Bucket is the subset of a NATS KeyValue bucket the stores rely on.
// Revisions enable optimistic concurrency: Update only succeeds when the
// key's latest revision still matches.
type Bucket interface {
	// Get returns the latest value and its revision.
	Get(ctx context.Context, key string) ([]byte, uint64, error)
	// Create stores value only when key does not exist yet.
	Create(ctx context.Context, key string, value []byte) (uint64, error)
	// Update stores value only when the key is still at revision.
	Update(ctx context.Context, key string, value []byte, revision uint64) (uint64, error)
	// Delete removes key.
	Delete(ctx context.Context, key string) error
	// Keys lists every live key.
	Keys(ctx context.Context) ([]string, error)
}

// BucketConfig describes a KV bucket to open or create.
type BucketConfig struct {
	Name    string
	TTL     time.Duration
	Storage jetstream.StorageType
}

// ensure natsBucket implements Bucket at compile time.
var _ Bucket = (*natsBucket)(nil)

type natsBucket struct {
	kv jetstream.KeyValue
}

// NewBucket adapts a JetStream KeyValue handle to Bucket.
func NewBucket(
	kv jetstream.KeyValue,
) Bucket {
	return &natsBucket{kv: kv}
}

func (b *natsBucket) Get(
	ctx context.Context,
	key string,
) ([]byte, uint64, error) {
	entry, err := b.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, 0, ErrKeyNotFound
		}
		return nil, 0, err
	}

	return entry.Value(), entry.Revision(), nil
}

func (b *natsBucket) Create(
	ctx context.Context,
	key string,
	value []byte,
) (uint64, error) {
	rev, err := b.kv.Create(ctx, key, value)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return 0, ErrKeyExists
		}
		return 0, err
	}

	return rev, nil
}

func (b *natsBucket) Update(
	ctx context.Context,
	key string,
	value []byte,
	revision uint64,
) (uint64, error) {
	return b.kv.Update(ctx, key, value, revision)
}

func (b *natsBucket) Delete(
	ctx context.Context,
	key string,
) error {
	return b.kv.Delete(ctx, key)
}

func (b *natsBucket) Keys(
	ctx context.Context,
) ([]string, error) {
	keys, err := b.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []string{}, nil
		}
		return nil, err
	}

	return keys, nil
}

// OpenBucket creates the bucket described by cfg, or updates it to cfg
// when it already exists.
func OpenBucket(
	ctx context.Context,
	nc NATSClient,
	cfg BucketConfig,
) (Bucket, error) {
	kv, err := nc.CreateOrUpdateKVBucketWithConfig(ctx, jetstream.KeyValueConfig{
		Bucket:  cfg.Name,
		TTL:     cfg.TTL,
		Storage: cfg.Storage,
	})
	if err != nil {
		return nil, fmt.Errorf("opening kv bucket %q: %w", cfg.Name, err)
	}

	return NewBucket(kv), nil
}

// ParseStorageType maps "memory"/"file" strings to jetstream.StorageType.
func ParseStorageType(
	s string,
) jetstream.StorageType {
	if s == "memory" {
		return jetstream.MemoryStorage
	}

	return jetstream.FileStorage
}

// ApplyNamespace prefixes a bucket name with namespace when one is set.
func ApplyNamespace(
	namespace string,
	name string,
) string {
	if namespace == "" {
		return name
	}

	return namespace + "-" + name
}
