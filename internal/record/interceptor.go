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
	"fmt"
	"maps"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Interceptor encrypts sensitive fields on the way into storage and decrypts
// them on the way out.
type Interceptor struct {
	cipher    FieldCipher
	sensitive Sensitive
	workers   int
}

// NewInterceptor creates an Interceptor. Batch reads decrypt on up to
// GOMAXPROCS goroutines since every field costs a full key derivation.
func NewInterceptor(
	cipher FieldCipher,
	sensitive Sensitive,
) *Interceptor {
	return &Interceptor{
		cipher:    cipher,
		sensitive: sensitive,
		workers:   runtime.GOMAXPROCS(0),
	}
}

// BeforeWrite returns the stored form of w. Only sensitive fields present in
// w with a non-empty value are encrypted; fields the write does not set are
// never seen, so values already stored encrypted are never sealed twice.
func (i *Interceptor) BeforeWrite(
	w Write,
) (Write, error) {
	out := Write{
		Type:   w.Type,
		ID:     w.ID,
		Fields: maps.Clone(w.Fields),
	}

	for _, name := range i.sensitive.Fields(w.Type) {
		value, ok := out.Fields[name]
		if !ok || value == "" {
			continue
		}

		blob, err := i.cipher.Encrypt(value)
		if err != nil {
			return Write{}, fmt.Errorf("encrypting %s.%s: %w", w.Type, name, err)
		}

		out.Fields[name] = blob
	}

	return out, nil
}

// AfterRead returns r with its sensitive fields decrypted. A field that fails
// to decrypt fails the whole record; the caller must treat it as compromised.
func (i *Interceptor) AfterRead(
	r Record,
) (Record, error) {
	out := r.clone()

	for _, name := range i.sensitive.Fields(r.Type) {
		blob, ok := out.Fields[name]
		if !ok || blob == "" {
			continue
		}

		plaintext, err := i.cipher.Decrypt(blob)
		if err != nil {
			return Record{}, fmt.Errorf("decrypting %s/%s field %s: %w", r.Type, r.ID, name, err)
		}

		out.Fields[name] = plaintext
	}

	return out, nil
}

// AfterReadMany decrypts a batch concurrently, preserving order. The first
// failure cancels the batch.
func (i *Interceptor) AfterReadMany(
	ctx context.Context,
	records []Record,
) ([]Record, error) {
	out := make([]Record, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)

	for idx, r := range records {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			decoded, err := i.AfterRead(r)
			if err != nil {
				return err
			}

			out[idx] = decoded
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
