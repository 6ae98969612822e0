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

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"

	"github.com/retr0h/pantry/internal/audit"
)

type recordedCall struct {
	req    audit.Request
	status int
	actor  string
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (f *fakeRecorder) Record(
	_ context.Context,
	req audit.Request,
	statusCode int,
	actor string,
) audit.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, recordedCall{req: req, status: statusCode, actor: actor})

	return audit.Entry{}
}

type AuditMiddlewareTestSuite struct {
	suite.Suite
}

func (s *AuditMiddlewareTestSuite) TestAuditRequests() {
	tests := []struct {
		name         string
		req          func() *http.Request
		handler      echo.HandlerFunc
		validateFunc func(rec *httptest.ResponseRecorder, calls []recordedCall)
	}{
		{
			name: "when handler succeeds records the sent status and actor",
			req: func() *http.Request {
				req := jsonRequest(http.MethodPost, "/recipes", strings.NewReader(`{"title":"soup"}`))
				req.Header.Set("User-Agent", "pantry-test")
				req.RemoteAddr = "198.51.100.9:5000"
				return req
			},
			handler: func(c echo.Context) error {
				c.Set(ContextKeySubject, "user-1")
				return c.JSON(http.StatusCreated, map[string]string{"id": "r1"})
			},
			validateFunc: func(rec *httptest.ResponseRecorder, calls []recordedCall) {
				s.Equal(http.StatusCreated, rec.Code)
				s.Require().Len(calls, 1)
				s.Equal(http.StatusCreated, calls[0].status)
				s.Equal("user-1", calls[0].actor)
				s.Equal(http.MethodPost, calls[0].req.Method)
				s.Equal("/recipes", calls[0].req.Path)
				s.Equal(`{"title":"soup"}`, string(calls[0].req.Body))
				s.Equal("198.51.100.9", calls[0].req.IP)
				s.Equal("pantry-test", calls[0].req.UserAgent)
				s.False(calls[0].req.Start.IsZero())
			},
		},
		{
			name: "when a stage rejects records the rejection status",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/account", nil)
			},
			handler: func(echo.Context) error {
				return NewRejection(KindRateLimitExceeded, "slow down")
			},
			validateFunc: func(rec *httptest.ResponseRecorder, calls []recordedCall) {
				s.Equal(http.StatusTooManyRequests, rec.Code)
				s.Require().Len(calls, 1)
				s.Equal(http.StatusTooManyRequests, calls[0].status)
				s.Empty(calls[0].actor)
			},
		},
		{
			name: "when path is excluded records nothing",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/health/ready", nil)
			},
			handler: func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			},
			validateFunc: func(_ *httptest.ResponseRecorder, calls []recordedCall) {
				s.Empty(calls)
			},
		},
		{
			name: "when body exceeds the cap fingerprints the head but serves it whole",
			req: func() *http.Request {
				return jsonRequest(http.MethodPost, "/recipes", strings.NewReader("0123456789abcdef"))
			},
			handler: func(c echo.Context) error {
				b, _ := io.ReadAll(c.Request().Body)
				return c.String(http.StatusOK, string(b))
			},
			validateFunc: func(rec *httptest.ResponseRecorder, calls []recordedCall) {
				s.Equal("0123456789abcdef", rec.Body.String())
				s.Require().Len(calls, 1)
				s.Equal("01234567", string(calls[0].req.Body))
			},
		},
		{
			name: "when handler rewrites the body fingerprints the original",
			req: func() *http.Request {
				return jsonRequest(http.MethodPost, "/recipes", strings.NewReader("original"))
			},
			handler: func(c echo.Context) error {
				replaceBody(c.Request(), []byte("rewritten"))
				return c.NoContent(http.StatusNoContent)
			},
			validateFunc: func(_ *httptest.ResponseRecorder, calls []recordedCall) {
				s.Require().Len(calls, 1)
				s.Equal("original", string(calls[0].req.Body))
			},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			recorder := &fakeRecorder{}
			rec := serveWith(
				tc.req(),
				tc.handler,
				auditRequests(recorder, []string{"/health", "/metrics"}, 8),
			)

			tc.validateFunc(rec, recorder.calls)
		})
	}
}

func TestAuditMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(AuditMiddlewareTestSuite))
}
