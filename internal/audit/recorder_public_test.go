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

package audit_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/retr0h/pantry/internal/audit"
	"github.com/retr0h/pantry/internal/testutil"
)

type RecorderPublicTestSuite struct {
	suite.Suite

	ctx   context.Context
	start time.Time
}

func (s *RecorderPublicTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *RecorderPublicTestSuite) request() audit.Request {
	return audit.Request{
		Method:    "PATCH",
		Path:      "/account",
		Body:      []byte(`{"name":"Chef"}`),
		IP:        "10.0.0.1",
		UserAgent: "curl/8",
		Start:     s.start,
	}
}

func (s *RecorderPublicTestSuite) TestBuild() {
	tests := []struct {
		name         string
		end          time.Time
		validateFunc func(e audit.Entry)
	}{
		{
			name: "when request completes captures final metadata",
			end:  s.start.Add(250 * time.Millisecond),
			validateFunc: func(e audit.Entry) {
				s.NotEmpty(e.ID)
				s.Equal(s.start, e.Timestamp)
				s.Equal("acct-1", e.Actor)
				s.Equal("update", e.Action)
				s.Equal("account", e.ResourceType)
				s.Equal(204, e.StatusCode)
				s.Equal(int64(250), e.DurationMs)
				s.Equal("10.0.0.1", e.IP)
				s.Equal("curl/8", e.UserAgent)
				s.Equal(
					audit.Fingerprint([]byte("fp-key"), "PATCH", "/account", []byte(`{"name":"Chef"}`), "acct-1", s.start),
					e.Fingerprint,
				)
			},
		},
		{
			name: "when clock steps backwards duration is clamped to zero",
			end:  s.start.Add(-time.Second),
			validateFunc: func(e audit.Entry) {
				s.Zero(e.DurationMs)
			},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			r := audit.NewRecorder(
				testutil.NoopLogger(),
				audit.NewMemoryStore(),
				audit.WithRecorderClock(func() time.Time { return tc.end }),
				audit.WithFingerprintKey([]byte("fp-key")),
			)

			tc.validateFunc(r.Build(s.request(), 204, "acct-1"))
		})
	}
}

func (s *RecorderPublicTestSuite) TestRecordAppendsOneEntryPerRequest() {
	store := audit.NewMemoryStore()
	r := audit.NewRecorder(testutil.NoopLogger(), store)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := s.request()
			req.Path = fmt.Sprintf("/account/%d", i)
			r.Record(s.ctx, req, 200, "")
		}()
	}
	wg.Wait()
	r.Wait()

	entries, total, err := store.List(s.ctx, 1000, 0)
	s.Require().NoError(err)
	s.Equal(200, total)

	ids := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		ids[e.ID] = struct{}{}
	}
	s.Len(ids, 200)
	s.Zero(r.Failures())
}

func (s *RecorderPublicTestSuite) TestRecordSurvivesCanceledRequest() {
	store := audit.NewMemoryStore()
	r := audit.NewRecorder(testutil.NoopLogger(), store)

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	entry := r.Record(ctx, s.request(), 499, "")
	r.Wait()

	got, err := store.Get(s.ctx, entry.ID)
	s.Require().NoError(err)
	s.Equal(499, got.StatusCode)
}

func (s *RecorderPublicTestSuite) TestWriteFailureIsReportedNotHidden() {
	r := audit.NewRecorder(testutil.NoopLogger(), failingStore{})

	entry := r.Record(s.ctx, s.request(), 200, "")
	r.Wait()
	s.Equal(int64(1), r.Failures())

	err := r.Write(s.ctx, entry)

	var failure *audit.WriteFailure
	s.Require().ErrorAs(err, &failure)
	s.Equal(entry.ID, failure.EntryID)
	s.ErrorContains(err, "store offline")
	s.Equal(int64(2), r.Failures())
}

func (s *RecorderPublicTestSuite) TestWriteRefusesOverwrite() {
	store := audit.NewMemoryStore()
	r := audit.NewRecorder(testutil.NoopLogger(), store)

	entry := r.Build(s.request(), 200, "")
	s.Require().NoError(r.Write(s.ctx, entry))

	changed := entry
	changed.StatusCode = 500
	s.ErrorIs(r.Write(s.ctx, changed), audit.ErrDuplicate)

	got, err := store.Get(s.ctx, entry.ID)
	s.Require().NoError(err)
	s.Equal(200, got.StatusCode)
}

func TestRecorderPublicTestSuite(t *testing.T) {
	suite.Run(t, new(RecorderPublicTestSuite))
}

type failingStore struct{}

func (failingStore) Write(context.Context, audit.Entry) error {
	return errors.New("store offline")
}

func (failingStore) Get(context.Context, string) (*audit.Entry, error) {
	return nil, audit.ErrNotFound
}

func (failingStore) List(context.Context, int, int) ([]audit.Entry, int, error) {
	return nil, 0, errors.New("store offline")
}
