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
package telemetry

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// RedactedValue replaces the value of a redacted attribute.
const RedactedValue = "[REDACTED]"

// DefaultRedactedKeys are attribute keys whose values never reach a log line.
var DefaultRedactedKeys = []string{
	"password",
	"master_secret",
	"signing_key",
	"authorization",
}

// traceHandler wraps a slog.Handler. It masks secret-bearing attributes and
// adds trace_id and span_id when a valid span context is present.
type traceHandler struct {
	inner  slog.Handler
	redact map[string]struct{}
}

// NewTraceHandler creates a slog.Handler that delegates to inner. Attributes
// whose key matches one of redactKeys, ignoring case and at any group depth,
// are written as RedactedValue.
func NewTraceHandler(
	inner slog.Handler,
	redactKeys ...string,
) slog.Handler {
	redact := make(map[string]struct{}, len(redactKeys))
	for _, k := range redactKeys {
		redact[strings.ToLower(k)] = struct{}{}
	}

	return &traceHandler{inner: inner, redact: redact}
}

// Enabled reports whether the inner handler handles records at the given level.
func (h *traceHandler) Enabled(
	ctx context.Context,
	level slog.Level,
) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle masks redacted attributes, adds trace fields when a span is
// active, then delegates to the inner handler.
func (h *traceHandler) Handle(
	ctx context.Context,
	record slog.Record,
) error {
	if len(h.redact) > 0 && record.NumAttrs() > 0 {
		clean := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
		record.Attrs(func(a slog.Attr) bool {
			clean.AddAttrs(h.scrub(a))
			return true
		})
		record = clean
	}

	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	return h.inner.Handle(ctx, record)
}

// WithAttrs returns a new handler with the given attributes, masked.
func (h *traceHandler) WithAttrs(
	attrs []slog.Attr,
) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = h.scrub(a)
	}

	return &traceHandler{inner: h.inner.WithAttrs(clean), redact: h.redact}
}

// WithGroup returns a new handler with the given group name.
func (h *traceHandler) WithGroup(
	name string,
) slog.Handler {
	return &traceHandler{inner: h.inner.WithGroup(name), redact: h.redact}
}

func (h *traceHandler) scrub(
	a slog.Attr,
) slog.Attr {
	if _, ok := h.redact[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, RedactedValue)
	}

	a.Value = a.Value.Resolve()
	if a.Value.Kind() != slog.KindGroup {
		return a
	}

	group := a.Value.Group()
	clean := make([]slog.Attr, len(group))
	for i, ga := range group {
		clean[i] = h.scrub(ga)
	}

	return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
}
