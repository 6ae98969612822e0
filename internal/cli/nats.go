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

// Package cli provides shared helpers for the pantry commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natsclient "github.com/osapi-io/nats-client/pkg/client"

	"github.com/retr0h/pantry/internal/config"
	"github.com/retr0h/pantry/internal/messaging"
)

const (
	// natsReadyTimeout bounds how long Start waits for the embedded server.
	natsReadyTimeout = 10 * time.Second
	defaultNATSPort  = 4222
)

// EmbeddedNATS runs an in-process NATS server with JetStream enabled.
type EmbeddedNATS struct {
	logger *slog.Logger
	server *server.Server
}

// NewEmbeddedNATS prepares an embedded server from cfg without starting it.
func NewEmbeddedNATS(
	logger *slog.Logger,
	cfg config.NATSServer,
) (*EmbeddedNATS, error) {
	opts := &server.Options{
		Host:      cfg.Host,
		Port:      cfg.Port,
		JetStream: true,
		StoreDir:  cfg.StoreDir,
		NoSigs:    true,
	}

	s, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	return &EmbeddedNATS{
		logger: logger,
		server: s,
	}, nil
}

// Start launches the server and waits until it accepts connections.
func (n *EmbeddedNATS) Start() {
	n.server.Start()

	if !n.server.ReadyForConnections(natsReadyTimeout) {
		n.logger.Error("nats server not ready", slog.Duration("timeout", natsReadyTimeout))
		return
	}

	n.logger.Info("nats server started", slog.String("url", n.server.ClientURL()))
}

// Stop shuts the server down and waits for it to exit.
func (n *EmbeddedNATS) Stop(
	_ context.Context,
) {
	n.server.Shutdown()
	n.server.WaitForShutdown()
	n.logger.Info("nats server stopped")
}

// ClientURL is the URL clients use to reach the server.
func (n *EmbeddedNATS) ClientURL() string {
	return n.server.ClientURL()
}

// ConnectNATS dials rawURL with the configured client name and auth.
func ConnectNATS(
	logger *slog.Logger,
	cfg config.NATS,
	rawURL string,
) (*natsclient.Client, error) {
	host, port, err := splitNATSURL(rawURL)
	if err != nil {
		return nil, err
	}

	nc := natsclient.New(logger, &natsclient.Options{
		Host: host,
		Port: port,
		Auth: BuildNATSAuthOptions(cfg.Auth),
		Name: cfg.ClientName,
	})

	if err := nc.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to nats %s: %w", rawURL, err)
	}

	return nc, nil
}

// CloseNATSClient safely closes a NATS client connection.
func CloseNATSClient(
	nc messaging.NATSClient,
) {
	if natsConn, ok := nc.(*natsclient.Client); ok && natsConn.NC != nil {
		natsConn.NC.Close()
	}
}

// CheckNATSConnected reports an error unless nc holds a live connection.
func CheckNATSConnected(
	nc messaging.NATSClient,
) error {
	natsConn, ok := nc.(*natsclient.Client)
	if !ok || natsConn.NC == nil {
		return errors.New("nats client unavailable")
	}

	if natsConn.NC.ConnectedUrl() == "" {
		return errors.New("nats not connected")
	}

	return nil
}

// BuildNATSAuthOptions converts a config NATSAuth to natsclient.AuthOptions.
func BuildNATSAuthOptions(
	auth config.NATSAuth,
) natsclient.AuthOptions {
	switch auth.Type {
	case "user_pass":
		return natsclient.AuthOptions{
			AuthType: natsclient.UserPassAuth,
			Username: auth.Username,
			Password: auth.Password,
		}
	case "nkey":
		return natsclient.AuthOptions{
			AuthType: natsclient.NKeyAuth,
			NKeyFile: auth.NKeyFile,
		}
	default:
		return natsclient.AuthOptions{
			AuthType: natsclient.NoAuth,
		}
	}
}

// OpenConfiguredBucket opens name under the configured namespace and
// storage type.
func OpenConfiguredBucket(
	ctx context.Context,
	nc messaging.NATSClient,
	cfg config.NATS,
	name string,
) (messaging.Bucket, error) {
	return messaging.OpenBucket(ctx, nc, messaging.BucketConfig{
		Name:    messaging.ApplyNamespace(cfg.Namespace, name),
		Storage: messaging.ParseStorageType(cfg.Buckets.Storage),
	})
}

// splitNATSURL turns "nats://host:port" (or "host:port") into its parts.
// A missing port means the NATS default.
func splitNATSURL(
	rawURL string,
) (string, int, error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "nats://" + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", 0, fmt.Errorf("parsing nats url: %w", err)
	}
	if u.Hostname() == "" {
		return "", 0, fmt.Errorf("nats url %q has no host", rawURL)
	}

	if u.Port() == "" {
		return u.Hostname(), defaultNATSPort, nil
	}

	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return "", 0, fmt.Errorf("nats url port: %w", err)
	}

	return u.Hostname(), port, nil
}
