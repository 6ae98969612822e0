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

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/retr0h/pantry/internal/config"
)

type ConfigPublicTestSuite struct {
	suite.Suite
}

func (s *ConfigPublicTestSuite) valid() config.Config {
	return config.Config{
		API: config.API{
			Server: config.Server{
				Port: 8080,
				Security: config.ServerSecurity{
					MasterSecret: "master",
					SigningKey:   "signing",
					TokenTTL:     time.Hour,
				},
			},
		},
		Crypto: config.Crypto{
			FieldIterations:    100000,
			PasswordIterations: 210000,
			PasswordSaltBytes:  16,
			PasswordKeyBytes:   64,
		},
		Admission: config.Admission{
			RateLimits: config.RateLimits{
				General: config.RateLimit{Requests: 100, Window: 15 * time.Minute},
				Auth:    config.RateLimit{Requests: 5, Window: time.Hour},
			},
			IdentityField: "email",
			Lockout: config.Lockout{
				Threshold: 5,
				Duration:  30 * time.Minute,
			},
			Store: "memory",
		},
		Audit: config.Audit{
			Backend:      "memory",
			MaxBodyBytes: 1024,
		},
		Records: config.Records{
			Backend:   "memory",
			Sensitive: map[string][]string{"user": {"email"}},
		},
	}
}

func (s *ConfigPublicTestSuite) TestValidate() {
	tests := []struct {
		name        string
		mutate      func(c *config.Config)
		errContains string
	}{
		{
			name:   "when config is valid",
			mutate: func(*config.Config) {},
		},
		{
			name: "when master secret is missing",
			mutate: func(c *config.Config) {
				c.API.Server.Security.MasterSecret = ""
			},
			errContains: "MasterSecret",
		},
		{
			name: "when signing key is missing",
			mutate: func(c *config.Config) {
				c.API.Server.Security.SigningKey = ""
			},
			errContains: "SigningKey",
		},
		{
			name: "when field iterations are below the floor",
			mutate: func(c *config.Config) {
				c.Crypto.FieldIterations = 99999
			},
			errContains: "FieldIterations",
		},
		{
			name: "when password salt is too short",
			mutate: func(c *config.Config) {
				c.Crypto.PasswordSaltBytes = 8
			},
			errContains: "PasswordSaltBytes",
		},
		{
			name: "when trusted proxies are valid ranges",
			mutate: func(c *config.Config) {
				c.API.Server.TrustedProxies = []string{"10.0.0.0/8", "::1/128"}
			},
		},
		{
			name: "when a trusted proxy is not a range",
			mutate: func(c *config.Config) {
				c.API.Server.TrustedProxies = []string{"10.0.0.1"}
			},
			errContains: "TrustedProxies",
		},
		{
			name: "when shutdown timeout is negative",
			mutate: func(c *config.Config) {
				c.API.Server.ShutdownTimeout = -time.Second
			},
			errContains: "ShutdownTimeout",
		},
		{
			name: "when rate window is zero",
			mutate: func(c *config.Config) {
				c.Admission.RateLimits.Auth.Window = 0
			},
			errContains: "Window",
		},
		{
			name: "when admission store is unknown",
			mutate: func(c *config.Config) {
				c.Admission.Store = "redis"
			},
			errContains: "must be one of [memory nats]",
		},
		{
			name: "when postgres audit has no dsn",
			mutate: func(c *config.Config) {
				c.Audit.Backend = "postgres"
			},
			errContains: "postgres.dsn is required",
		},
		{
			name: "when a nats backend has no url",
			mutate: func(c *config.Config) {
				c.Records.Backend = "nats"
			},
			errContains: "nats.url is required",
		},
		{
			name: "when master secret doubles as signing key",
			mutate: func(c *config.Config) {
				c.API.Server.Security.SigningKey = "master"
			},
			errContains: "must differ",
		},
		{
			name: "when otlp tracing has no endpoint",
			mutate: func(c *config.Config) {
				c.Telemetry.Tracing = config.TracingConfig{Enabled: true, Exporter: "otlp"}
			},
			errContains: "OTLPEndpoint",
		},
		{
			name: "when tracing exporter is unknown",
			mutate: func(c *config.Config) {
				c.Telemetry.Tracing = config.TracingConfig{Enabled: true, Exporter: "jaeger"}
			},
			errContains: "Exporter",
		},
		{
			name: "when nats user_pass auth has no username",
			mutate: func(c *config.Config) {
				c.NATS.Auth = config.NATSAuth{Type: "user_pass", Password: "secret"}
			},
			errContains: "Username",
		},
		{
			name: "when nats auth type is unknown",
			mutate: func(c *config.Config) {
				c.NATS.Auth = config.NATSAuth{Type: "token"}
			},
			errContains: "Type",
		},
		{
			name: "when a sensitive type lists no fields",
			mutate: func(c *config.Config) {
				c.Records.Sensitive["recipe"] = nil
			},
			errContains: "records.sensitive",
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			cfg := s.valid()
			tt.mutate(&cfg)

			err := config.Validate(&cfg)

			if tt.errContains == "" {
				s.NoError(err)
				return
			}

			s.Error(err)
			s.Contains(err.Error(), tt.errContains)
		})
	}
}

func (s *ConfigPublicTestSuite) TestDefaults() {
	d := config.Defaults()

	s.Equal(100000, d["crypto.field_iterations"])
	s.Equal(100, d["admission.rate_limits.general.requests"])
	s.Equal(15*time.Minute, d["admission.rate_limits.general.window"])
	s.Equal(5, d["admission.rate_limits.auth.requests"])
	s.Equal(time.Hour, d["admission.rate_limits.auth.window"])
	s.Equal(5, d["admission.lockout.threshold"])
	s.Empty(d["audit.exclude_paths"])
	s.Empty(d["api.server.trusted_proxies"])
	s.Equal(10*time.Second, d["api.server.shutdown_timeout"])
}

func TestConfigPublicTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigPublicTestSuite))
}
