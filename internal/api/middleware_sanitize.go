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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/microcosm-cc/bluemonday"
)

// securityHeaders attaches the fixed response headers. It never rejects.
func securityHeaders() echo.MiddlewareFunc {
	secure := middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "0",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		HSTSMaxAge:            15552000,
		ContentSecurityPolicy: "default-src 'self'; frame-ancestors 'self'; object-src 'none'",
		ReferrerPolicy:        "no-referrer",
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return secure(func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			h.Set("Cross-Origin-Resource-Policy", "same-origin")
			h.Set("Origin-Agent-Cluster", "?1")
			h.Set("X-DNS-Prefetch-Control", "off")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
			h.Del(echo.HeaderServer)

			return next(c)
		})
	}
}

// sanitizeMarkup strips markup from every string the client sent: query
// values, form values and JSON string values.
func sanitizeMarkup(
	policy *bluemonday.Policy,
) echo.MiddlewareFunc {
	clean := func(v any) any {
		return mapStrings(v, policy.Sanitize)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			q := c.QueryParams()
			if len(q) > 0 {
				for _, vs := range q {
					for i := range vs {
						vs[i] = policy.Sanitize(vs[i])
					}
				}
				c.Request().URL.RawQuery = q.Encode()
			}

			if err := rewriteBody(c.Request(), clean, func(form url.Values) {
				for _, vs := range form {
					for i := range vs {
						vs[i] = policy.Sanitize(vs[i])
					}
				}
			}); err != nil {
				return err
			}

			return next(c)
		}
	}
}

// sanitizeInjection drops keys that the document store would read as query
// operators: any key starting with "$" or containing ".".
func sanitizeInjection() echo.MiddlewareFunc {
	dropKeys := func(values url.Values) bool {
		dropped := false
		for k := range values {
			if operatorKey(k) {
				delete(values, k)
				dropped = true
			}
		}

		return dropped
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			q := c.QueryParams()
			if dropKeys(q) {
				c.Request().URL.RawQuery = q.Encode()
			}

			if err := rewriteBody(c.Request(), stripOperators, func(form url.Values) {
				dropKeys(form)
			}); err != nil {
				return err
			}

			return next(c)
		}
	}
}

// collapseParams keeps the first value of every repeated query parameter.
func collapseParams() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			q := c.QueryParams()
			polluted := false
			for k, vs := range q {
				if len(vs) > 1 {
					q[k] = vs[:1]
					polluted = true
				}
			}
			if polluted {
				c.Request().URL.RawQuery = q.Encode()
			}

			return next(c)
		}
	}
}

func operatorKey(
	k string,
) bool {
	return strings.HasPrefix(k, "$") || strings.Contains(k, ".")
}

func stripOperators(
	v any,
) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if operatorKey(k) {
				delete(t, k)
				continue
			}
			t[k] = stripOperators(child)
		}
	case []any:
		for i := range t {
			t[i] = stripOperators(t[i])
		}
	}

	return v
}

func mapStrings(
	v any,
	fn func(string) string,
) any {
	switch t := v.(type) {
	case string:
		return fn(t)
	case map[string]any:
		for k, child := range t {
			t[k] = mapStrings(child, fn)
		}
	case []any:
		for i := range t {
			t[i] = mapStrings(t[i], fn)
		}
	}

	return v
}

// rewriteBody applies onJSON or onForm to the request body according to its
// content type and swaps in the re-encoded result. Bodies that do not parse
// are left for the handler to reject.
func rewriteBody(
	req *http.Request,
	onJSON func(any) any,
	onForm func(url.Values),
) error {
	ctype := req.Header.Get(echo.HeaderContentType)
	isJSON := strings.HasPrefix(ctype, echo.MIMEApplicationJSON)
	isForm := strings.HasPrefix(ctype, echo.MIMEApplicationForm)
	if !isJSON && !isForm {
		return nil
	}

	body, err := readBody(req)
	if err != nil || len(body) == 0 {
		return err
	}

	var out []byte
	if isJSON {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()

		var doc any
		if dec.Decode(&doc) != nil {
			return nil
		}
		if out, err = json.Marshal(onJSON(doc)); err != nil {
			return nil
		}
	} else {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return nil
		}
		onForm(form)
		out = []byte(form.Encode())
	}

	replaceBody(req, out)

	return nil
}

// readBody drains the request body and puts an identical copy back.
func readBody(
	req *http.Request,
) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}

	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, he
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable request body")
	}

	replaceBody(req, body)

	return body, nil
}

func replaceBody(
	req *http.Request,
	body []byte,
) {
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.ContentLength = int64(len(body))
}
