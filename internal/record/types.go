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

// Package record makes field encryption invisible to the persistence layer.
//
// The persistence adapter calls Interceptor.BeforeWrite on every write and
// Interceptor.AfterRead / AfterReadMany on every read. Which fields of which
// record types are sensitive is declared once, in Sensitive.
package record

import (
	"context"
	"errors"
	"maps"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrExists is returned by Create when the record already exists.
var ErrExists = errors.New("record already exists")

// Record is a stored document as returned by a read.
type Record struct {
	Type   string            `json:"type"`
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

// Write is one write operation. Fields holds only the attributes set by this
// operation; attributes absent from it are left untouched in storage.
type Write struct {
	Type   string
	ID     string
	Fields map[string]string
}

// Sensitive maps a record type to the fields stored encrypted.
type Sensitive map[string][]string

// Fields returns the sensitive fields declared for recordType.
func (s Sensitive) Fields(
	recordType string,
) []string {
	return s[recordType]
}

// FieldCipher seals and opens individual values.
type FieldCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(blob string) (string, error)
}

// Backend is the persistence layer seen by the repository. It stores
// whatever it is handed and merges a Write into the existing document.
type Backend interface {
	// Apply merges w into the stored document, creating it when absent.
	// With create set it fails with ErrExists instead of merging.
	Apply(ctx context.Context, w Write, create bool) error
	// Get returns one stored document.
	Get(ctx context.Context, recordType string, id string) (Record, error)
	// List returns every stored document of recordType.
	List(ctx context.Context, recordType string) ([]Record, error)
}

// clone returns a deep copy of r.
func (r Record) clone() Record {
	r.Fields = maps.Clone(r.Fields)
	if r.Fields == nil {
		r.Fields = map[string]string{}
	}

	return r
}

// merge applies w onto r in place.
func (r *Record) merge(
	w Write,
) {
	if r.Fields == nil {
		r.Fields = make(map[string]string, len(w.Fields))
	}

	maps.Copy(r.Fields, w.Fields)
}
