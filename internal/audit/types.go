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

// Package audit records one tamper-evident entry per completed request.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when no entry has the requested ID.
	ErrNotFound = errors.New("audit entry not found")
	// ErrDuplicate is returned when an entry ID is already taken. Entries
	// are never overwritten.
	ErrDuplicate = errors.New("audit entry already exists")
)

// Entry is a single immutable audit record.
type Entry struct {
	// ID is a time-ordered unique identifier.
	ID string `json:"id"`
	// Timestamp is when the request started.
	Timestamp time.Time `json:"timestamp"`
	// Actor is the authenticated subject, empty for anonymous requests.
	Actor string `json:"actor,omitempty"`
	// Action is the verb derived from the HTTP method (create, read, update, delete).
	Action string `json:"action"`
	// ResourceType is the first path segment of the request.
	ResourceType string `json:"resource_type"`
	// Fingerprint is the hex SHA-256 over the original request.
	Fingerprint string `json:"fingerprint"`
	// StatusCode is the HTTP status actually sent.
	StatusCode int `json:"status_code"`
	// DurationMs is the request processing time in milliseconds.
	DurationMs int64 `json:"duration_ms"`
	// IP is the client's address.
	IP string `json:"ip"`
	// UserAgent is the client's User-Agent header.
	UserAgent string `json:"user_agent"`
	// Method is the HTTP method.
	Method string `json:"method"`
	// Path is the request URL path.
	Path string `json:"path"`
}

// Store is an append-only audit log.
type Store interface {
	// Write appends entry. It fails with ErrDuplicate rather than replace
	// an existing entry.
	Write(ctx context.Context, entry Entry) error
	// Get returns one entry by ID.
	Get(ctx context.Context, id string) (*Entry, error)
	// List returns a page of entries, newest first, and the total count.
	List(ctx context.Context, limit int, offset int) ([]Entry, int, error)
}

// WriteFailure reports an entry that could not be persisted.
type WriteFailure struct {
	EntryID string
	Err     error
}

// Error implements error.
func (f *WriteFailure) Error() string {
	return fmt.Sprintf("audit write failed for entry %s: %v", f.EntryID, f.Err)
}

// Unwrap returns the underlying store error.
func (f *WriteFailure) Unwrap() error {
	return f.Err
}
