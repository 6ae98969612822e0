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

package export

import (
	"context"

	"github.com/retr0h/pantry/internal/audit"
)

// SliceExporter collects entries in memory, for callers that need the
// whole log at once such as tamper verification.
type SliceExporter struct {
	Entries []audit.Entry
}

// Open resets the collected entries.
func (e *SliceExporter) Open(
	_ context.Context,
) error {
	e.Entries = e.Entries[:0]
	return nil
}

// Write appends entry.
func (e *SliceExporter) Write(
	_ context.Context,
	entry audit.Entry,
) error {
	e.Entries = append(e.Entries, entry)
	return nil
}

// Close is a no-op.
func (e *SliceExporter) Close(
	_ context.Context,
) error {
	return nil
}
