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
	"fmt"
	"sync"
)

// ensure MemoryStore implements Store at compile time.
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps entries in process memory, in write order.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	byID    map[string]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]int),
	}
}

// Write appends entry.
func (s *MemoryStore) Write(
	_ context.Context,
	entry Entry,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[entry.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, entry.ID)
	}

	s.byID[entry.ID] = len(s.entries)
	s.entries = append(s.entries, entry)

	return nil
}

// Get returns a copy of one entry.
func (s *MemoryStore) Get(
	_ context.Context,
	id string,
) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}

	entry := s.entries[idx]
	return &entry, nil
}

// List returns a page of entries, newest first.
func (s *MemoryStore) List(
	_ context.Context,
	limit int,
	offset int,
) ([]Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.entries)
	if offset >= total {
		return []Entry{}, total, nil
	}

	end := min(offset+limit, total)
	out := make([]Entry, 0, end-offset)
	for i := offset; i < end; i++ {
		out = append(out, s.entries[total-1-i])
	}

	return out, total, nil
}
