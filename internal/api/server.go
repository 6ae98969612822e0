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
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/microcosm-cc/bluemonday"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/retr0h/pantry/internal/authtoken"
	"github.com/retr0h/pantry/internal/config"
)

// maxRequestBody caps every request body.
const maxRequestBody = "1M"

// New builds the Echo server and installs the admission pipeline. Stages
// run in this order: audit, security headers, markup sanitizing, operator
// key stripping, parameter collapsing, rate limit, lockout, token check.
// Stages without a backing dependency are skipped.
func New(
	appConfig config.Config,
	logger *slog.Logger,
	opts ...Option,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)
	e.IPExtractor = ipExtractor(logger, appConfig.API.Server.TrustedProxies)

	corsConfig := middleware.CORSConfig{}
	if origins := appConfig.API.Server.Security.CORS.AllowOrigins; len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	}

	e.Use(otelecho.Middleware("pantry-api"))
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(corsConfig))
	e.Use(middleware.BodyLimit(maxRequestBody))

	s := &Server{
		Echo:      e,
		logger:    logger,
		appConfig: appConfig,
		tokens:    authtoken.New(logger),
	}

	for _, opt := range opts {
		opt(s)
	}

	security := appConfig.API.Server.Security
	admission := appConfig.Admission

	if s.recorder != nil {
		e.Use(auditRequests(s.recorder, appConfig.Audit.ExcludePaths, appConfig.Audit.MaxBodyBytes))
	}
	// Panics below the audit stage still produce an entry.
	e.Use(middleware.Recover())
	e.Use(securityHeaders())
	e.Use(sanitizeMarkup(bluemonday.StrictPolicy()))
	e.Use(sanitizeInjection())
	e.Use(collapseParams())
	if s.limiter != nil {
		e.Use(rateLimit(logger, s.limiter, admission))
	}
	if s.lockout != nil {
		e.Use(lockoutGuard(logger, s.lockout, admission))
	}
	e.Use(requireToken(s.tokens, security.SigningKey, security.PublicPaths))

	if s.metricsHandler != nil {
		e.GET(s.metricsPath, echo.WrapHandler(s.metricsHandler))
	}

	return s
}

// ipExtractor resolves the client IP used for rate limiting and audit. The
// remote address is used unless the connection comes from a trusted proxy,
// in which case X-Forwarded-For is walked back to the first untrusted hop.
func ipExtractor(
	logger *slog.Logger,
	trustedProxies []string,
) echo.IPExtractor {
	if len(trustedProxies) == 0 {
		return echo.ExtractIPDirect()
	}

	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			logger.Warn(
				"ignoring trusted proxy",
				slog.String("cidr", cidr),
				slog.String("error", err.Error()),
			)
			continue
		}
		opts = append(opts, echo.TrustIPRange(ipNet))
	}

	return echo.ExtractIPFromXFFHeader(opts...)
}

// RegisterHandlers mounts every handler group on the server.
func (s *Server) RegisterHandlers(
	handlers []func(e *echo.Echo),
) {
	for _, register := range handlers {
		register(s.Echo)
	}
}

// SubjectFromContext returns the authenticated subject, or "" when the
// request was not authenticated.
func SubjectFromContext(
	c echo.Context,
) string {
	subject, _ := c.Get(ContextKeySubject).(string)

	return subject
}

// Start listens on the configured port without blocking.
func (s *Server) Start() {
	go func() {
		listenAddr := fmt.Sprintf(":%d", s.appConfig.API.Server.Port)
		s.logger.Info("starting server", slog.String("addr", listenAddr))
		if err := s.Echo.Start(listenAddr); err != nil && err != http.ErrServerClosed {
			s.logger.Error(
				"failed to start server",
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(
	ctx context.Context,
) {
	s.logger.Info("stopping server")

	if err := s.Echo.Shutdown(ctx); err != nil {
		s.logger.Error(
			"server shutdown failed",
			slog.String("error", err.Error()),
		)
	} else {
		s.logger.Info("server stopped gracefully")
	}
}
