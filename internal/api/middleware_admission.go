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
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/retr0h/pantry/internal/api/account"
	"github.com/retr0h/pantry/internal/authtoken"
	"github.com/retr0h/pantry/internal/config"
	"github.com/retr0h/pantry/internal/ratelimit"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

type limitCheck struct {
	policy ratelimit.Policy
	key    string
}

// rateLimit counts every request against the general policy by client IP,
// and requests to auth paths against the auth policy by IP and identity.
// A failing counter store admits the request.
func rateLimit(
	logger *slog.Logger,
	limiter RateLimiter,
	cfg config.Admission,
) echo.MiddlewareFunc {
	general := ratelimit.Policy{
		Name:     "general",
		Requests: cfg.RateLimits.General.Requests,
		Window:   cfg.RateLimits.General.Window,
	}
	auth := ratelimit.Policy{
		Name:     "auth",
		Requests: cfg.RateLimits.Auth.Requests,
		Window:   cfg.RateLimits.Auth.Window,
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ip := c.RealIP()
			// An abandoned request still consumed capacity.
			ctx := context.WithoutCancel(req.Context())

			checks := []limitCheck{{policy: general, key: ip}}
			if matchPath(cfg.AuthPaths, req.URL.Path) {
				key := ip
				if id := identityFromRequest(req, cfg.IdentityField); id != "" {
					key = ip + "|" + id
				}
				checks = append(checks, limitCheck{policy: auth, key: key})
			}

			for _, chk := range checks {
				res, err := limiter.Allow(ctx, chk.policy, chk.key)
				if err != nil {
					logger.Warn(
						"rate limiter unavailable, admitting request",
						slog.String("policy", chk.policy.Name),
						slog.String("error", err.Error()),
					)
					continue
				}

				h := c.Response().Header()
				h.Set(HeaderRateLimitLimit, strconv.FormatInt(res.Limit, 10))
				h.Set(HeaderRateLimitRemaining, strconv.FormatInt(res.Remaining, 10))
				h.Set(HeaderRateLimitReset, strconv.FormatInt(res.ResetAt.Unix(), 10))

				if !res.Allowed {
					h.Set(HeaderRetryAfter, retryAfterSeconds(res.RetryAfter(time.Now())))
					return NewRejection(
						KindRateLimitExceeded,
						"too many requests, try again later",
					)
				}
			}

			return next(c)
		}
	}
}

// lockoutGuard refuses login attempts for a locked identity before the
// password is ever checked.
func lockoutGuard(
	logger *slog.Logger,
	lockout LockoutChecker,
	cfg config.Admission,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !matchPath(cfg.LoginPaths, req.URL.Path) {
				return next(c)
			}

			identity := identityFromRequest(req, cfg.IdentityField)
			if identity == "" {
				return next(c)
			}

			state, err := lockout.Check(context.WithoutCancel(req.Context()), identity)
			switch {
			case errors.Is(err, ratelimit.ErrAccountLocked):
				c.Response().Header().Set(
					HeaderRetryAfter,
					retryAfterSeconds(time.Until(state.LockedUntil)),
				)
				return NewRejection(KindAccountLocked, account.LockedMessage)
			case err != nil:
				logger.Warn(
					"lockout store unavailable, admitting request",
					slog.String("error", err.Error()),
				)
			}

			return next(c)
		}
	}
}

// requireToken verifies the bearer token on every non-public path and puts
// the token's identity on the context.
func requireToken(
	tokens TokenValidator,
	signingKey string,
	publicPaths []string,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if matchPath(publicPaths, c.Request().URL.Path) {
				return next(c)
			}

			raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			raw = strings.TrimSpace(raw)
			if !ok || raw == "" {
				return NewRejection(KindMissingToken, "bearer token required")
			}

			claims, err := tokens.Validate(raw, signingKey)
			switch {
			case errors.Is(err, authtoken.ErrTokenExpired):
				return NewRejection(KindTokenExpired, "token has expired")
			case err != nil:
				return NewRejection(KindTokenInvalid, "token is invalid")
			}

			c.Set(ContextKeySubject, claims.Subject)
			c.Set(ContextKeyEmail, claims.Email)

			return next(c)
		}
	}
}

// matchPath reports whether path equals one of patterns. A pattern ending
// in "/*" also matches everything below it.
func matchPath(
	patterns []string,
	path string,
) bool {
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "/*"); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}

	return false
}

// identityFromRequest reads field from a JSON or form body without
// consuming it, normalized for use as a counter key. Keys match without
// regard to case and the last match wins, the way echo binds the body.
func identityFromRequest(
	req *http.Request,
	field string,
) string {
	ctype := req.Header.Get(echo.HeaderContentType)

	body, err := readBody(req)
	if err != nil || len(body) == 0 {
		return ""
	}

	switch {
	case strings.HasPrefix(ctype, echo.MIMEApplicationJSON):
		return ratelimit.NormalizeIdentity(jsonField(body, field))
	case strings.HasPrefix(ctype, echo.MIMEApplicationForm):
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return ""
		}
		if v, ok := form[field]; ok && len(v) > 0 {
			return ratelimit.NormalizeIdentity(v[0])
		}
		for k, v := range form {
			if strings.EqualFold(k, field) && len(v) > 0 {
				return ratelimit.NormalizeIdentity(v[0])
			}
		}
	}

	return ""
}

// jsonField returns the string value of the top-level key matching field,
// walking the object in order so a later duplicate replaces an earlier one.
func jsonField(
	body []byte,
	field string,
) string {
	dec := json.NewDecoder(bytes.NewReader(body))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return ""
	}

	var value string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return ""
		}
		if !strings.EqualFold(key, field) {
			continue
		}

		var s string
		if json.Unmarshal(raw, &s) == nil {
			value = s
		}
	}

	return value
}

func retryAfterSeconds(
	d time.Duration,
) string {
	return strconv.Itoa(max(1, int(math.Ceil(d.Seconds()))))
}
