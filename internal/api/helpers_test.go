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
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/labstack/echo/v4"

	"github.com/retr0h/pantry/internal/testutil"
)

// captured is what the terminal handler saw after the pipeline ran.
type captured struct {
	called  bool
	body    string
	query   map[string][]string
	raw     string
	subject string
	email   string
}

func captureHandler(
	got *captured,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		got.called = true
		b, _ := io.ReadAll(c.Request().Body)
		got.body = string(b)
		got.query = c.QueryParams()
		got.raw = c.Request().URL.RawQuery
		got.subject, _ = c.Get(ContextKeySubject).(string)
		got.email, _ = c.Get(ContextKeyEmail).(string)

		return c.NoContent(http.StatusNoContent)
	}
}

// serveWith runs req through mws and handler on a fresh Echo.
func serveWith(
	req *http.Request,
	handler echo.HandlerFunc,
	mws ...echo.MiddlewareFunc,
) *httptest.ResponseRecorder {
	e := echo.New()
	e.HTTPErrorHandler = errorHandler(testutil.NoopLogger())
	e.Use(mws...)
	e.Any("/*", handler)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

func jsonRequest(
	method string,
	target string,
	body io.Reader,
) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	return req
}
