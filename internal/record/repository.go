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
	"log/slog"
)

// Repository pairs a Backend with an Interceptor. It is the only path
// application code uses to reach records.
type Repository struct {
	backend     Backend
	interceptor *Interceptor
	logger      *slog.Logger
}

// NewRepository creates a Repository.
func NewRepository(
	logger *slog.Logger,
	backend Backend,
	interceptor *Interceptor,
) *Repository {
	return &Repository{
		backend:     backend,
		interceptor: interceptor,
		logger:      logger,
	}
}

// Create stores a new record, failing with ErrExists if the ID is taken.
func (r *Repository) Create(
	ctx context.Context,
	w Write,
) error {
	return r.apply(ctx, w, true)
}

// Save creates the record or merges the fields set in w into it.
func (r *Repository) Save(
	ctx context.Context,
	w Write,
) error {
	return r.apply(ctx, w, false)
}

// Find returns one record with sensitive fields decrypted.
func (r *Repository) Find(
	ctx context.Context,
	recordType string,
	id string,
) (Record, error) {
	stored, err := r.backend.Get(ctx, recordType, id)
	if err != nil {
		return Record{}, err
	}

	rec, err := r.interceptor.AfterRead(stored)
	if err != nil {
		r.logger.Error(
			"stored record failed integrity check",
			slog.String("type", recordType),
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return Record{}, err
	}

	return rec, nil
}

// FindAll returns every record of recordType with sensitive fields decrypted.
func (r *Repository) FindAll(
	ctx context.Context,
	recordType string,
) ([]Record, error) {
	stored, err := r.backend.List(ctx, recordType)
	if err != nil {
		return nil, err
	}

	return r.interceptor.AfterReadMany(ctx, stored)
}

func (r *Repository) apply(
	ctx context.Context,
	w Write,
	create bool,
) error {
	if w.Type == "" || w.ID == "" {
		return fmt.Errorf("write requires a record type and id")
	}

	sealed, err := r.interceptor.BeforeWrite(w)
	if err != nil {
		return err
	}

	return r.backend.Apply(ctx, sealed, create)
}
