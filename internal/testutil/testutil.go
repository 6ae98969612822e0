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

// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go/jetstream"
	natsclient "github.com/osapi-io/nats-client/pkg/client"
	"github.com/stretchr/testify/require"

	"github.com/retr0h/pantry/internal/messaging"
)

// NoopLogger returns a logger that discards everything.
func NoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// RunNATS starts an in-process NATS server with JetStream enabled and
// returns a connected client. Everything is torn down with t.
func RunNATS(
	t testing.TB,
) *natsclient.Client {
	t.Helper()

	opts := natsserver.DefaultTestOptions
	opts.Port = server.RANDOM_PORT
	opts.JetStream = true
	opts.StoreDir = t.TempDir()

	s := natsserver.RunServer(&opts)
	t.Cleanup(s.Shutdown)

	addr, ok := s.Addr().(*net.TCPAddr)
	require.True(t, ok)

	nc := natsclient.New(NoopLogger(), &natsclient.Options{
		Host: addr.IP.String(),
		Port: addr.Port,
		Auth: natsclient.AuthOptions{
			AuthType: natsclient.NoAuth,
		},
	})
	require.NoError(t, nc.Connect())
	t.Cleanup(func() {
		if nc.NC != nil {
			nc.NC.Close()
		}
	})

	return nc
}

// NewBucket creates a memory-backed KV bucket on a fresh JetStream server.
func NewBucket(
	t testing.TB,
	name string,
) messaging.Bucket {
	t.Helper()

	b, err := messaging.OpenBucket(context.Background(), RunNATS(t), messaging.BucketConfig{
		Name:    name,
		Storage: jetstream.MemoryStorage,
	})
	require.NoError(t, err)

	return b
}
