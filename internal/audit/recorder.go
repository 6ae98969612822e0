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
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	meterName    = "github.com/retr0h/pantry/internal/audit"
	writeTimeout = 5 * time.Second
)

// Request is the part of an inbound request captured when it starts.
// Handlers may consume or rewrite the body later; the fingerprint is taken
// over this snapshot.
type Request struct {
	Method    string
	Path      string
	Body      []byte
	IP        string
	UserAgent string
	Start     time.Time
}

// Recorder builds entries for completed requests and appends them to a
// Store in the background.
type Recorder struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
	key    []byte

	wg       sync.WaitGroup
	failures atomic.Int64

	written       metric.Int64Counter
	writeFailures metric.Int64Counter
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderClock overrides the clock used to stamp request completion.
func WithRecorderClock(
	now func() time.Time,
) RecorderOption {
	return func(r *Recorder) {
		r.now = now
	}
}

// WithFingerprintKey sets the HMAC key used for request fingerprints.
func WithFingerprintKey(
	key []byte,
) RecorderOption {
	return func(r *Recorder) {
		r.key = append([]byte(nil), key...)
	}
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(
	logger *slog.Logger,
	store Store,
	opts ...RecorderOption,
) *Recorder {
	r := &Recorder{
		store:         store,
		logger:        logger,
		now:           time.Now,
		written:       counter("pantry.audit.entries", "Audit entries persisted."),
		writeFailures: counter("pantry.audit.write_failures", "Audit entries that could not be persisted."),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Build assembles the entry for a completed request.
func (r *Recorder) Build(
	req Request,
	statusCode int,
	actor string,
) Entry {
	duration := r.now().Sub(req.Start).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	return Entry{
		ID:           newEntryID(),
		Timestamp:    req.Start.UTC(),
		Actor:        actor,
		Action:       ActionFor(req.Method),
		ResourceType: ResourceTypeFor(req.Path),
		Fingerprint:  Fingerprint(r.key, req.Method, req.Path, req.Body, actor, req.Start),
		StatusCode:   statusCode,
		DurationMs:   duration,
		IP:           req.IP,
		UserAgent:    req.UserAgent,
		Method:       req.Method,
		Path:         req.Path,
	}
}

// Record builds the entry and writes it without blocking the caller.
// Write failures are logged and counted, never returned.
func (r *Recorder) Record(
	ctx context.Context,
	req Request,
	statusCode int,
	actor string,
) Entry {
	entry := r.Build(req, statusCode, actor)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		defer cancel()

		_ = r.Write(writeCtx, entry)
	}()

	return entry
}

// Write persists entry synchronously. A failure is returned as
// *WriteFailure after being logged and counted.
func (r *Recorder) Write(
	ctx context.Context,
	entry Entry,
) error {
	if err := r.store.Write(ctx, entry); err != nil {
		failure := &WriteFailure{EntryID: entry.ID, Err: err}

		r.failures.Add(1)
		r.writeFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("resource_type", entry.ResourceType),
		))
		r.logger.Error(
			"audit write failed",
			slog.String("id", entry.ID),
			slog.String("fingerprint", entry.Fingerprint),
			slog.String("error", err.Error()),
		)

		return failure
	}

	r.written.Add(ctx, 1)

	return nil
}

// Failures returns the number of entries that could not be persisted.
func (r *Recorder) Failures() int64 {
	return r.failures.Load()
}

// Wait blocks until every background write has finished.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

func counter(
	name string,
	description string,
) metric.Int64Counter {
	c, err := otel.Meter(meterName).Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return noop.Int64Counter{}
	}

	return c
}

// newEntryID returns a time-ordered UUIDv7 so keys sort by creation time.
func newEntryID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}
