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
	"sort"
	"sync"
)

// ensure MemoryBackend implements Backend at compile time.
var _ Backend = (*MemoryBackend)(nil)

// MemoryBackend keeps documents in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string]map[string]Record
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		docs: make(map[string]map[string]Record),
	}
}

// Apply merges w into the stored document.
func (m *MemoryBackend) Apply(
	_ context.Context,
	w Write,
	create bool,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID, ok := m.docs[w.Type]
	if !ok {
		byID = make(map[string]Record)
		m.docs[w.Type] = byID
	}

	doc, exists := byID[w.ID]
	if exists && create {
		return ErrExists
	}

	if !exists {
		doc = Record{Type: w.Type, ID: w.ID}
	}

	doc = doc.clone()
	doc.merge(w)
	byID[w.ID] = doc

	return nil
}

// Get returns a copy of one stored document.
func (m *MemoryBackend) Get(
	_ context.Context,
	recordType string,
	id string,
) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[recordType][id]
	if !ok {
		return Record{}, ErrNotFound
	}

	return doc.clone(), nil
}

// List returns copies of every document of recordType ordered by ID.
func (m *MemoryBackend) List(
	_ context.Context,
	recordType string,
) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, 0, len(m.docs[recordType]))
	for _, doc := range m.docs[recordType] {
		out = append(out, doc.clone())
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})

	return out, nil
}
