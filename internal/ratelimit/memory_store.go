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

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepEvery controls how often the memory store drops expired keys.
const sweepEvery = 1024

// ensure MemoryStore implements Store at compile time.
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps counters in process memory. State is lost on restart,
// which leaves every key unlimited until it is hit again.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]State
	ops     int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]State),
	}
}

// IncrementAndGet adds one hit to key under the store lock.
func (m *MemoryStore) IncrementAndGet(
	_ context.Context,
	key string,
	window time.Duration,
	now time.Time,
) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.maybeSweep(now)

	prev, found := m.entries[key]
	next := advance(prev, found, window, now)
	m.entries[key] = next

	return next, nil
}

// Get returns the live state for key.
func (m *MemoryStore) Get(
	_ context.Context,
	key string,
	now time.Time,
) (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.entries[key]
	if !ok {
		return State{}, false, nil
	}

	if st.Expired(now) {
		delete(m.entries, key)
		return State{}, false, nil
	}

	return st, true, nil
}

// Set replaces the state for key.
func (m *MemoryStore) Set(
	_ context.Context,
	key string,
	state State,
	ttl time.Duration,
	now time.Time,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.maybeSweep(now)

	state.ExpiresAt = now.Add(ttl)
	m.entries[key] = state

	return nil
}

// Delete removes key.
func (m *MemoryStore) Delete(
	_ context.Context,
	key string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)

	return nil
}

// Len reports how many keys are held, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

// maybeSweep drops expired keys every sweepEvery mutations. Callers hold mu.
func (m *MemoryStore) maybeSweep(
	now time.Time,
) {
	m.ops++
	if m.ops < sweepEvery {
		return
	}

	m.ops = 0
	for key, st := range m.entries {
		if st.Expired(now) {
			delete(m.entries, key)
		}
	}
}
