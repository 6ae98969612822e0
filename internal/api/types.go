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

// Package api serves pantry over HTTP behind the admission pipeline.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/retr0h/pantry/internal/audit"
	"github.com/retr0h/pantry/internal/authtoken"
	"github.com/retr0h/pantry/internal/config"
	"github.com/retr0h/pantry/internal/ratelimit"
)

// Context keys set by token validation for handlers and audit.
const (
	ContextKeySubject = "auth.subject"
	ContextKeyEmail   = "auth.email"
)

// TokenValidator parses and verifies bearer tokens.
type TokenValidator interface {
	Validate(
		tokenString string,
		signingKey string,
	) (*authtoken.CustomClaims, error)
}

// RateLimiter counts a hit for key under policy.
type RateLimiter interface {
	Allow(
		ctx context.Context,
		policy ratelimit.Policy,
		key string,
	) (ratelimit.Result, error)
}

// LockoutChecker reports whether an identity is locked out.
type LockoutChecker interface {
	Check(
		ctx context.Context,
		identity string,
	) (ratelimit.LockoutState, error)
}

// AuditRecorder appends an entry for a completed request.
type AuditRecorder interface {
	Record(
		ctx context.Context,
		req audit.Request,
		statusCode int,
		actor string,
	) audit.Entry
}

// Server is the HTTP front of pantry.
type Server struct {
	Echo      *echo.Echo
	logger    *slog.Logger
	appConfig config.Config

	tokens   TokenValidator
	limiter  RateLimiter
	lockout  LockoutChecker
	recorder AuditRecorder

	metricsHandler http.Handler
	metricsPath    string
}

// Option configures a Server.
type Option func(*Server)

// WithTokenValidator replaces the default token validator.
func WithTokenValidator(
	v TokenValidator,
) Option {
	return func(s *Server) {
		s.tokens = v
	}
}

// WithRateLimiter enables the rate-limit stage.
func WithRateLimiter(
	l RateLimiter,
) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// WithLockout enables the brute-force lockout stage.
func WithLockout(
	l LockoutChecker,
) Option {
	return func(s *Server) {
		s.lockout = l
	}
}

// WithAuditRecorder enables audit recording.
func WithAuditRecorder(
	r AuditRecorder,
) Option {
	return func(s *Server) {
		s.recorder = r
	}
}

// WithMetrics mounts handler at path.
func WithMetrics(
	handler http.Handler,
	path string,
) Option {
	return func(s *Server) {
		s.metricsHandler = handler
		s.metricsPath = path
	}
}
