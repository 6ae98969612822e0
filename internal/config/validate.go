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

package config

import (
	"errors"
	"strings"
	"time"

	"github.com/retr0h/pantry/internal/validation"
)

// Defaults returns the value of every key that has a sensible default,
// keyed by its dotted viper path.
func Defaults() map[string]any {
	return map[string]any{
		"api.server.port":                        8080,
		"api.server.trusted_proxies":             []string{},
		"api.server.shutdown_timeout":            10 * time.Second,
		"api.server.security.token_ttl":          time.Hour,
		"api.server.security.token_issuer":       "pantry",
		"api.server.security.public_paths":       []string{"/health", "/health/*", "/metrics", "/auth/register", "/auth/login"},
		"crypto.field_iterations":                100000,
		"crypto.password_iterations":             210000,
		"crypto.password_salt_bytes":             16,
		"crypto.password_key_bytes":              64,
		"admission.rate_limits.general.requests": 100,
		"admission.rate_limits.general.window":   15 * time.Minute,
		"admission.rate_limits.auth.requests":    5,
		"admission.rate_limits.auth.window":      time.Hour,
		"admission.auth_paths":                   []string{"/auth/*"},
		"admission.login_paths":                  []string{"/auth/login"},
		"admission.identity_field":               "email",
		"admission.lockout.threshold":            5,
		"admission.lockout.duration":             30 * time.Minute,
		"admission.store":                        "memory",
		"audit.backend":                          "memory",
		"audit.exclude_paths":                    []string{},
		"audit.max_body_bytes":                   64 << 10,
		"records.backend":                        "memory",
		"records.sensitive":                      map[string][]string{"user": {"email", "phone"}},
		"nats.url":                               "nats://localhost:4222",
		"nats.client_name":                       "pantry",
		"nats.auth.type":                         "none",
		"nats.server.host":                       "localhost",
		"nats.server.port":                       4222,
		"nats.server.store_dir":                  ".nats/jetstream/",
		"nats.buckets.audit":                     "audit",
		"nats.buckets.ratelimit":                 "ratelimit",
		"nats.buckets.records":                   "records",
		"nats.buckets.storage":                   "file",
		"telemetry.metrics.path":                 "/metrics",
	}
}

// Validate checks field constraints and the dependencies between sections.
func Validate(
	cfg *Config,
) error {
	if msg, ok := validation.Struct(cfg); !ok {
		return errors.New(msg)
	}

	var errs []error

	if cfg.Audit.Backend == "postgres" && cfg.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres.dsn is required when audit.backend is postgres"))
	}

	usesNATS := cfg.Audit.Backend == "nats" ||
		cfg.Admission.Store == "nats" ||
		cfg.Records.Backend == "nats"
	if usesNATS && cfg.NATS.URL == "" {
		errs = append(errs, errors.New("nats.url is required when a nats backend is selected"))
	}

	if cfg.API.Server.Security.MasterSecret != "" &&
		cfg.API.Server.Security.MasterSecret == cfg.API.Server.Security.SigningKey {
		errs = append(errs, errors.New("master_secret and signing_key must differ"))
	}

	for recordType, fields := range cfg.Records.Sensitive {
		if strings.TrimSpace(recordType) == "" || len(fields) == 0 {
			errs = append(errs, errors.New("records.sensitive entries need a type and at least one field"))
			break
		}
	}

	return errors.Join(errs...)
}
