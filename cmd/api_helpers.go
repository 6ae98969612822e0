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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/retr0h/pantry/internal/api"
	"github.com/retr0h/pantry/internal/api/health"
	"github.com/retr0h/pantry/internal/audit"
	"github.com/retr0h/pantry/internal/authtoken"
	"github.com/retr0h/pantry/internal/cli"
	"github.com/retr0h/pantry/internal/config"
	"github.com/retr0h/pantry/internal/fieldcipher"
	"github.com/retr0h/pantry/internal/messaging"
	"github.com/retr0h/pantry/internal/password"
	"github.com/retr0h/pantry/internal/ratelimit"
	"github.com/retr0h/pantry/internal/record"
	"github.com/retr0h/pantry/internal/telemetry"
)

// fingerprintKeyLabel names the sub-key that keys audit fingerprints.
const fingerprintKeyLabel = "audit-fingerprint"

// ServerManager responsible for Server operations.
type ServerManager interface {
	cli.Lifecycle
	// GetAccountHandler returns account handler for registration.
	GetAccountHandler(deps api.AccountDeps) ([]func(e *echo.Echo), error)
	// GetHealthHandler returns health handler for registration.
	GetHealthHandler(
		checker health.Checker,
		startTime time.Time,
		version string,
	) []func(e *echo.Echo)
	// RegisterHandlers registers a list of handlers with the Echo instance.
	RegisterHandlers(handlers []func(e *echo.Echo))
}

// backends holds the stores selected by configuration together with the
// connections they depend on.
type backends struct {
	counters ratelimit.Store
	records  record.Backend
	audit    audit.Store
	checks   map[string]health.CheckFunc
	closers  []func()
}

// Close releases every connection opened for the backends.
func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackends opens the counter, record and audit stores named in cfg.
// natsURL overrides cfg.NATS.URL when set.
func openBackends(
	ctx context.Context,
	log *slog.Logger,
	cfg config.Config,
	natsURL string,
) (*backends, error) {
	b := &backends{checks: map[string]health.CheckFunc{}}

	var nc messaging.NATSClient
	if usesNATS(cfg) {
		if natsURL == "" {
			natsURL = cfg.NATS.URL
		}

		client, err := cli.ConnectNATS(log, cfg.NATS, natsURL)
		if err != nil {
			return nil, err
		}

		nc = client
		b.closers = append(b.closers, func() { cli.CloseNATSClient(client) })
		b.checks["nats"] = func(context.Context) error {
			return cli.CheckNATSConnected(client)
		}
	}

	var err error
	if b.counters, err = openCounters(ctx, log, cfg, nc); err != nil {
		b.Close()
		return nil, err
	}

	if b.records, err = openRecords(ctx, log, cfg, nc); err != nil {
		b.Close()
		return nil, err
	}

	if b.audit, err = openAudit(ctx, log, cfg, nc, b); err != nil {
		b.Close()
		return nil, err
	}

	return b, nil
}

func usesNATS(
	cfg config.Config,
) bool {
	return cfg.Admission.Store == "nats" ||
		cfg.Records.Backend == "nats" ||
		cfg.Audit.Backend == "nats"
}

func openCounters(
	ctx context.Context,
	log *slog.Logger,
	cfg config.Config,
	nc messaging.NATSClient,
) (ratelimit.Store, error) {
	if cfg.Admission.Store != "nats" {
		return ratelimit.NewMemoryStore(), nil
	}

	bucket, err := cli.OpenConfiguredBucket(ctx, nc, cfg.NATS, cfg.NATS.Buckets.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("opening rate limit bucket: %w", err)
	}

	return ratelimit.NewKVStore(log, bucket), nil
}

func openRecords(
	ctx context.Context,
	log *slog.Logger,
	cfg config.Config,
	nc messaging.NATSClient,
) (record.Backend, error) {
	if cfg.Records.Backend != "nats" {
		return record.NewMemoryBackend(), nil
	}

	bucket, err := cli.OpenConfiguredBucket(ctx, nc, cfg.NATS, cfg.NATS.Buckets.Records)
	if err != nil {
		return nil, fmt.Errorf("opening records bucket: %w", err)
	}

	return record.NewKVBackend(log, bucket), nil
}

func openAudit(
	ctx context.Context,
	log *slog.Logger,
	cfg config.Config,
	nc messaging.NATSClient,
	b *backends,
) (audit.Store, error) {
	switch cfg.Audit.Backend {
	case "nats":
		bucket, err := cli.OpenConfiguredBucket(ctx, nc, cfg.NATS, cfg.NATS.Buckets.Audit)
		if err != nil {
			return nil, fmt.Errorf("opening audit bucket: %w", err)
		}

		return audit.NewKVStore(log, bucket), nil
	case "postgres":
		db, err := audit.OpenPostgres(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}

		b.closers = append(b.closers, func() { _ = db.Close() })
		b.checks["postgres"] = db.PingContext

		if err := audit.Migrate(ctx, db); err != nil {
			return nil, err
		}

		return audit.NewPostgresStore(log, db), nil
	default:
		return audit.NewMemoryStore(), nil
	}
}

// openAuditReader opens the configured audit store for the offline audit
// commands. The memory backend has nothing to read.
func openAuditReader(
	ctx context.Context,
	log *slog.Logger,
	cfg config.Config,
) (audit.Store, func(), error) {
	switch cfg.Audit.Backend {
	case "nats":
		nc, err := cli.ConnectNATS(log, cfg.NATS, cfg.NATS.URL)
		if err != nil {
			return nil, nil, err
		}
		closeNATS := func() { cli.CloseNATSClient(nc) }

		bucket, err := cli.OpenConfiguredBucket(ctx, nc, cfg.NATS, cfg.NATS.Buckets.Audit)
		if err != nil {
			closeNATS()
			return nil, nil, fmt.Errorf("opening audit bucket: %w", err)
		}

		return audit.NewKVStore(log, bucket), closeNATS, nil
	case "postgres":
		db, err := audit.OpenPostgres(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}

		return audit.NewPostgresStore(log, db), func() { _ = db.Close() }, nil
	default:
		return nil, nil, errors.New("audit.backend memory keeps no entries outside the API process")
	}
}

// setupAPIServer builds the API server with every admission stage and the
// account and health routes. The returned cleanup drains pending audit
// writes before closing the backends.
func setupAPIServer(
	ctx context.Context,
	log *slog.Logger,
	cfg config.Config,
	natsURL string,
	metrics *telemetry.MetricsEndpoint,
) (ServerManager, func(), error) {
	security := cfg.API.Server.Security

	cipher, err := fieldcipher.New(
		[]byte(security.MasterSecret),
		fieldcipher.WithIterations(cfg.Crypto.FieldIterations),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating field cipher: %w", err)
	}

	hasher := password.New(
		password.WithIterations(cfg.Crypto.PasswordIterations),
		password.WithSaltSize(cfg.Crypto.PasswordSaltBytes),
		password.WithKeySize(cfg.Crypto.PasswordKeyBytes),
	)

	b, err := openBackends(ctx, log, cfg, natsURL)
	if err != nil {
		return nil, nil, err
	}

	lockout := ratelimit.NewLockout(
		log,
		b.counters,
		ratelimit.LockoutConfig{
			Threshold: cfg.Admission.Lockout.Threshold,
			Duration:  cfg.Admission.Lockout.Duration,
			Window:    cfg.Admission.Lockout.Window,
		},
	)
	recorder := audit.NewRecorder(
		log,
		b.audit,
		audit.WithFingerprintKey(cipher.DeriveKey(fingerprintKeyLabel)),
	)
	tokens := authtoken.New(log)

	opts := []api.Option{
		api.WithTokenValidator(tokens),
		api.WithRateLimiter(ratelimit.NewLimiter(b.counters)),
		api.WithLockout(lockout),
		api.WithAuditRecorder(recorder),
	}
	if metrics != nil && metrics.Handler != nil {
		opts = append(opts, api.WithMetrics(metrics.Handler, metrics.Path))
	}

	var sm ServerManager = api.New(cfg, log, opts...)

	repo := record.NewRepository(
		log,
		b.records,
		record.NewInterceptor(cipher, record.Sensitive(cfg.Records.Sensitive)),
	)

	accountHandlers, err := sm.GetAccountHandler(api.AccountDeps{
		Hasher:   hasher,
		Records:  repo,
		Failures: lockout,
		Tokens:   tokens,
		Indexer:  cipher,
	})
	if err != nil {
		b.Close()
		return nil, nil, err
	}

	checker := &health.ComponentChecker{Checks: b.checks}

	handlers := make([]func(e *echo.Echo), 0, 4)
	handlers = append(handlers, accountHandlers...)
	handlers = append(
		handlers,
		sm.GetHealthHandler(checker, time.Now(), buildVersion().GitVersion)...)
	sm.RegisterHandlers(handlers)

	cleanup := func() {
		recorder.Wait()
		if n := recorder.Failures(); n > 0 {
			log.Warn("audit entries were lost", slog.Int64("failures", n))
		}
		b.Close()
	}

	return sm, cleanup, nil
}
