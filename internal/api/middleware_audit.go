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
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/retr0h/pantry/internal/audit"
)

// auditRequests records one entry per completed request. The request is
// snapshotted before any other stage runs; the status is taken after the
// response is committed, rejections included.
func auditRequests(
	recorder AuditRecorder,
	excludePaths []string,
	maxBodyBytes int64,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			for _, prefix := range excludePaths {
				if strings.HasPrefix(req.URL.Path, prefix) {
					return next(c)
				}
			}

			snapshot := audit.Request{
				Method:    req.Method,
				Path:      req.URL.Path,
				Body:      snapshotBody(c, maxBodyBytes),
				IP:        c.RealIP(),
				UserAgent: req.UserAgent(),
				Start:     time.Now(),
			}

			if err := next(c); err != nil {
				c.Error(err)
			}

			actor, _ := c.Get(ContextKeySubject).(string)
			recorder.Record(c.Request().Context(), snapshot, c.Response().Status, actor)

			return nil
		}
	}
}

// snapshotBody copies up to limit bytes of the body and leaves the full
// body readable for later stages.
func snapshotBody(
	c echo.Context,
	limit int64,
) []byte {
	req := c.Request()
	if req.Body == nil || limit <= 0 {
		return nil
	}

	head, err := io.ReadAll(io.LimitReader(req.Body, limit))
	req.Body = struct {
		io.Reader
		io.Closer
	}{
		Reader: io.MultiReader(bytes.NewReader(head), req.Body),
		Closer: req.Body,
	}
	if err != nil {
		return nil
	}

	return head
}
