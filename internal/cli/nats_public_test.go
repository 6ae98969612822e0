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

package cli_test

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/nats-io/nats-server/v2/server"
	natsclient "github.com/osapi-io/nats-client/pkg/client"
	"github.com/stretchr/testify/suite"

	"github.com/retr0h/pantry/internal/cli"
	"github.com/retr0h/pantry/internal/config"
	"github.com/retr0h/pantry/internal/messaging/mocks"
	"github.com/retr0h/pantry/internal/testutil"
)

type NATSPublicTestSuite struct {
	suite.Suite

	ctx      context.Context
	ctrl     *gomock.Controller
	embedded *cli.EmbeddedNATS
}

func (s *NATSPublicTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())

	embedded, err := cli.NewEmbeddedNATS(testutil.NoopLogger(), config.NATSServer{
		Host:     "127.0.0.1",
		Port:     server.RANDOM_PORT,
		StoreDir: s.T().TempDir(),
	})
	s.Require().NoError(err)

	embedded.Start()
	s.embedded = embedded
}

func (s *NATSPublicTestSuite) TearDownTest() {
	s.embedded.Stop(context.Background())
	s.ctrl.Finish()
}

func (s *NATSPublicTestSuite) TestOpenConfiguredBucket() {
	tests := []struct {
		name         string
		cfg          config.NATS
		bucket       string
		validateFunc func(nc *natsclient.Client)
	}{
		{
			name: "when namespace is set prefixes the bucket",
			cfg: config.NATS{
				Namespace: "staging",
				Buckets:   config.NATSBuckets{Storage: "memory"},
			},
			bucket: "audit",
			validateFunc: func(nc *natsclient.Client) {
				kv, err := nc.ExtJS.KeyValue(s.ctx, "staging-audit")
				s.Require().NoError(err)

				status, err := kv.Status(s.ctx)
				s.Require().NoError(err)
				s.Equal("staging-audit", status.Bucket())
			},
		},
		{
			name: "when namespace is empty uses the bare name",
			cfg: config.NATS{
				Buckets: config.NATSBuckets{Storage: "file"},
			},
			bucket: "records",
			validateFunc: func(nc *natsclient.Client) {
				_, err := nc.ExtJS.KeyValue(s.ctx, "records")
				s.NoError(err)
			},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			nc, err := cli.ConnectNATS(testutil.NoopLogger(), tc.cfg, s.embedded.ClientURL())
			s.Require().NoError(err)
			defer cli.CloseNATSClient(nc)

			s.NoError(cli.CheckNATSConnected(nc))

			b, err := cli.OpenConfiguredBucket(s.ctx, nc, tc.cfg, tc.bucket)
			s.Require().NoError(err)

			_, err = b.Create(s.ctx, "k", []byte("v"))
			s.Require().NoError(err)

			got, _, err := b.Get(s.ctx, "k")
			s.Require().NoError(err)
			s.Equal([]byte("v"), got)

			tc.validateFunc(nc)
		})
	}
}

func (s *NATSPublicTestSuite) TestConnectNATS() {
	tests := []struct {
		name        string
		url         string
		errContains string
	}{
		{
			name:        "when the server is unreachable",
			url:         "nats://127.0.0.1:1",
			errContains: "connecting to nats",
		},
		{
			name:        "when the url has no host",
			url:         "nats://:4222",
			errContains: "has no host",
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			nc, err := cli.ConnectNATS(testutil.NoopLogger(), config.NATS{}, tc.url)

			s.Nil(nc)
			s.ErrorContains(err, tc.errContains)
		})
	}
}

func (s *NATSPublicTestSuite) TestCheckNATSConnected() {
	tests := []struct {
		name        string
		client      func() (*natsclient.Client, func())
		mock        bool
		errContains string
	}{
		{
			name: "when connected",
			client: func() (*natsclient.Client, func()) {
				nc, err := cli.ConnectNATS(testutil.NoopLogger(), config.NATS{}, s.embedded.ClientURL())
				s.Require().NoError(err)
				return nc, func() { cli.CloseNATSClient(nc) }
			},
		},
		{
			name: "when never connected",
			client: func() (*natsclient.Client, func()) {
				return &natsclient.Client{}, func() {}
			},
			errContains: "nats client unavailable",
		},
		{
			name:        "when the client is not a nats client",
			mock:        true,
			errContains: "nats client unavailable",
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			if tc.mock {
				mock := mocks.NewMockNATSClient(s.ctrl)
				s.ErrorContains(cli.CheckNATSConnected(mock), tc.errContains)
				s.NotPanics(func() { cli.CloseNATSClient(mock) })
				return
			}

			nc, done := tc.client()
			defer done()

			err := cli.CheckNATSConnected(nc)
			if tc.errContains == "" {
				s.NoError(err)
				return
			}
			s.ErrorContains(err, tc.errContains)
		})
	}
}

func (s *NATSPublicTestSuite) TestBuildNATSAuthOptions() {
	tests := []struct {
		name string
		auth config.NATSAuth
		want natsclient.AuthOptions
	}{
		{
			name: "when user_pass auth",
			auth: config.NATSAuth{
				Type:     "user_pass",
				Username: "pantry",
				Password: "secret",
			},
			want: natsclient.AuthOptions{
				AuthType: natsclient.UserPassAuth,
				Username: "pantry",
				Password: "secret",
			},
		},
		{
			name: "when nkey auth",
			auth: config.NATSAuth{
				Type:     "nkey",
				NKeyFile: "/etc/pantry/nkey.seed",
			},
			want: natsclient.AuthOptions{
				AuthType: natsclient.NKeyAuth,
				NKeyFile: "/etc/pantry/nkey.seed",
			},
		},
		{
			name: "when none auth",
			auth: config.NATSAuth{Type: "none"},
			want: natsclient.AuthOptions{AuthType: natsclient.NoAuth},
		},
		{
			name: "when auth type is empty",
			auth: config.NATSAuth{},
			want: natsclient.AuthOptions{AuthType: natsclient.NoAuth},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.Equal(tc.want, cli.BuildNATSAuthOptions(tc.auth))
		})
	}
}

func TestNATSPublicTestSuite(t *testing.T) {
	suite.Run(t, new(NATSPublicTestSuite))
}
