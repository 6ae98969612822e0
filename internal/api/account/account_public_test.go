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

package account_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"

	"github.com/retr0h/pantry/internal/api/account"
	"github.com/retr0h/pantry/internal/authtoken"
	"github.com/retr0h/pantry/internal/fieldcipher"
	"github.com/retr0h/pantry/internal/password"
	"github.com/retr0h/pantry/internal/ratelimit"
	"github.com/retr0h/pantry/internal/record"
	"github.com/retr0h/pantry/internal/testutil"
)

const (
	signingKey  = "test-signing-key"
	subjectHdr  = "X-Test-Subject"
	cookEmail   = "cook@example.com"
	cookPass    = "saffron42rice"
	registerDoc = `{"email":"Cook@Example.com","password":"saffron42rice","name":"Ada","phone":"+15555550100"}`
)

type AccountPublicTestSuite struct {
	suite.Suite

	ctx     context.Context
	e       *echo.Echo
	cipher  *fieldcipher.Cipher
	backend *record.MemoryBackend
	lockout *ratelimit.Lockout
	tokens  *authtoken.Token
}

func (s *AccountPublicTestSuite) SetupTest() {
	s.ctx = context.Background()
	logger := testutil.NoopLogger()

	cipher, err := fieldcipher.New([]byte("test-master-secret"), fieldcipher.WithIterations(1000))
	s.Require().NoError(err)
	s.cipher = cipher

	s.backend = record.NewMemoryBackend()
	repo := record.NewRepository(
		logger,
		s.backend,
		record.NewInterceptor(cipher, record.Sensitive{
			account.RecordType: {account.FieldEmail, account.FieldPhone},
		}),
	)
	s.lockout = ratelimit.NewLockout(logger, ratelimit.NewMemoryStore(), ratelimit.LockoutConfig{
		Threshold: 3,
		Duration:  time.Minute,
	})
	s.tokens = authtoken.New(logger)

	a, err := account.New(
		logger,
		password.New(password.WithIterations(1000)),
		repo,
		s.lockout,
		s.tokens,
		cipher,
		account.TokenPolicy{SigningKey: signingKey, Issuer: "pantry", TTL: time.Hour},
		func(c echo.Context) string { return c.Request().Header.Get(subjectHdr) },
	)
	s.Require().NoError(err)

	s.e = echo.New()
	a.Register(s.e)
}

func (s *AccountPublicTestSuite) do(
	method string,
	path string,
	body string,
	subject string,
) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if subject != "" {
		req.Header.Set(subjectHdr, subject)
	}

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	return rec
}

func (s *AccountPublicTestSuite) register() string {
	rec := s.do(http.MethodPost, "/auth/register", registerDoc, "")
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var resp account.RegisterResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))

	return resp.ID
}

func (s *AccountPublicTestSuite) TestRegister() {
	tests := []struct {
		name         string
		body         string
		setup        func()
		validateFunc func(*httptest.ResponseRecorder)
	}{
		{
			name: "when valid stores sensitive fields encrypted",
			body: registerDoc,
			validateFunc: func(rec *httptest.ResponseRecorder) {
				s.Equal(http.StatusCreated, rec.Code)

				var resp account.RegisterResponse
				s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
				s.Equal(s.cipher.BlindIndex(cookEmail), resp.ID)

				raw, err := s.backend.Get(s.ctx, account.RecordType, resp.ID)
				s.Require().NoError(err)
				s.True(fieldcipher.IsBlob(raw.Fields[account.FieldEmail]))
				s.True(fieldcipher.IsBlob(raw.Fields[account.FieldPhone]))
				s.NotContains(raw.Fields[account.FieldEmail], cookEmail)
				s.Equal("Ada", raw.Fields[account.FieldName])
				s.NotContains(raw.Fields[account.FieldPasswordHash], cookPass)
			},
		},
		{
			name:  "when email is taken returns conflict",
			body:  registerDoc,
			setup: func() { s.register() },
			validateFunc: func(rec *httptest.ResponseRecorder) {
				s.Equal(http.StatusConflict, rec.Code)
			},
		},
		{
			name: "when email is malformed returns bad request",
			body: `{"email":"nope","password":"saffron42rice","name":"Ada"}`,
			validateFunc: func(rec *httptest.ResponseRecorder) {
				s.Equal(http.StatusBadRequest, rec.Code)
				s.Contains(rec.Body.String(), "email")
			},
		},
		{
			name: "when password is weak returns bad request",
			body: `{"email":"cook@example.com","password":"short","name":"Ada"}`,
			validateFunc: func(rec *httptest.ResponseRecorder) {
				s.Equal(http.StatusBadRequest, rec.Code)
				s.Contains(rec.Body.String(), "mix letters with digits")
			},
		},
		{
			name: "when body is not json returns bad request",
			body: `{`,
			validateFunc: func(rec *httptest.ResponseRecorder) {
				s.Equal(http.StatusBadRequest, rec.Code)
			},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.SetupTest()
			if tc.setup != nil {
				tc.setup()
			}

			tc.validateFunc(s.do(http.MethodPost, "/auth/register", tc.body, ""))
		})
	}
}

func (s *AccountPublicTestSuite) TestLogin() {
	tests := []struct {
		name         string
		body         string
		attempts     int
		validateFunc func(*httptest.ResponseRecorder)
	}{
		{
			name:     "when credentials match issues a token",
			body:     `{"email":"COOK@example.com","password":"saffron42rice"}`,
			attempts: 1,
			validateFunc: func(rec *httptest.ResponseRecorder) {
				s.Equal(http.StatusOK, rec.Code)

				var resp account.LoginResponse
				s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))

				claims, err := s.tokens.Validate(resp.Token, signingKey)
				s.Require().NoError(err)
				s.Equal(s.cipher.BlindIndex(cookEmail), claims.Subject)
				s.Equal(cookEmail, claims.Email)
				s.True(resp.ExpiresAt.After(time.Now()))
			},
		},
		{
			name:     "when password is wrong returns unauthorized",
			body:     `{"email":"cook@example.com","password":"wrong42pass"}`,
			attempts: 1,
			validateFunc: func(rec *httptest.ResponseRecorder) {
				s.Equal(http.StatusUnauthorized, rec.Code)

				state, err := s.lockout.Check(s.ctx, cookEmail)
				s.NoError(err)
				s.Zero(state.FailedAttempts)
			},
		},
		{
			name:     "when failures reach the threshold locks the identity",
			body:     `{"email":"cook@example.com","password":"wrong42pass"}`,
			attempts: 3,
			validateFunc: func(rec *httptest.ResponseRecorder) {
				s.Equal(http.StatusUnauthorized, rec.Code)

				_, err := s.lockout.Check(s.ctx, cookEmail)
				s.ErrorIs(err, ratelimit.ErrAccountLocked)
			},
		},
		{
			name:     "when email is unknown returns the same unauthorized",
			body:     `{"email":"ghost@example.com","password":"saffron42rice"}`,
			attempts: 3,
			validateFunc: func(rec *httptest.ResponseRecorder) {
				s.Equal(http.StatusUnauthorized, rec.Code)
				s.Contains(rec.Body.String(), "invalid email or password")

				_, err := s.lockout.Check(s.ctx, "ghost@example.com")
				s.ErrorIs(err, ratelimit.ErrAccountLocked)
			},
		},
		{
			name:     "when email is missing returns bad request",
			body:     `{"password":"saffron42rice"}`,
			attempts: 1,
			validateFunc: func(rec *httptest.ResponseRecorder) {
				s.Equal(http.StatusBadRequest, rec.Code)
			},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.register()

			var rec *httptest.ResponseRecorder
			for range tc.attempts {
				rec = s.do(http.MethodPost, "/auth/login", tc.body, "")
			}

			tc.validateFunc(rec)
		})
	}
}

func (s *AccountPublicTestSuite) TestLoginClearsFailures() {
	s.register()

	for range 2 {
		rec := s.do(http.MethodPost, "/auth/login", `{"email":"cook@example.com","password":"wrong42pass"}`, "")
		s.Equal(http.StatusUnauthorized, rec.Code)
	}

	rec := s.do(http.MethodPost, "/auth/login", `{"email":"cook@example.com","password":"saffron42rice"}`, "")
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/auth/login", `{"email":"cook@example.com","password":"wrong42pass"}`, "")
	s.Equal(http.StatusUnauthorized, rec.Code)

	_, err := s.lockout.Check(s.ctx, cookEmail)
	s.NoError(err)
}

func (s *AccountPublicTestSuite) TestLoginWhileLocked() {
	tests := []struct {
		name         string
		body         string
		validateFunc func(*httptest.ResponseRecorder)
	}{
		{
			name: "when the identity key is lower case",
			body: `{"email":"cook@example.com","password":"saffron42rice"}`,
			validateFunc: func(rec *httptest.ResponseRecorder) {
				s.Equal(http.StatusLocked, rec.Code)
				s.NotEmpty(rec.Header().Get("Retry-After"))
			},
		},
		{
			name: "when the identity key is upper case",
			body: `{"EMAIL":"Cook@Example.com","password":"saffron42rice"}`,
			validateFunc: func(rec *httptest.ResponseRecorder) {
				s.Equal(http.StatusLocked, rec.Code)
				s.NotContains(rec.Body.String(), "token")
			},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.register()

			for range 3 {
				rec := s.do(
					http.MethodPost,
					"/auth/login",
					`{"email":"cook@example.com","password":"wrong42pass"}`,
					"",
				)
				s.Require().Equal(http.StatusUnauthorized, rec.Code)
			}

			tc.validateFunc(s.do(http.MethodPost, "/auth/login", tc.body, ""))
		})
	}
}

func (s *AccountPublicTestSuite) TestGetAccount() {
	tests := []struct {
		name         string
		subject      func(id string) string
		tamper       bool
		validateFunc func(*httptest.ResponseRecorder)
	}{
		{
			name:    "when signed in returns the decrypted profile",
			subject: func(id string) string { return id },
			validateFunc: func(rec *httptest.ResponseRecorder) {
				s.Equal(http.StatusOK, rec.Code)

				var p account.Profile
				s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &p))
				s.Equal(cookEmail, p.Email)
				s.Equal("+15555550100", p.Phone)
				s.Equal("Ada", p.Name)
				s.NotEmpty(p.CreatedAt)
			},
		},
		{
			name:    "when subject has no record returns not found",
			subject: func(string) string { return "missing" },
			validateFunc: func(rec *httptest.ResponseRecorder) {
				s.Equal(http.StatusNotFound, rec.Code)
			},
		},
		{
			name:    "when stored field was tampered fails closed",
			subject: func(id string) string { return id },
			tamper:  true,
			validateFunc: func(rec *httptest.ResponseRecorder) {
				s.Equal(http.StatusInternalServerError, rec.Code)
				s.NotContains(rec.Body.String(), cookEmail)
			},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.SetupTest()
			id := s.register()

			if tc.tamper {
				raw, err := s.backend.Get(s.ctx, account.RecordType, id)
				s.Require().NoError(err)
				s.Require().NoError(s.backend.Apply(s.ctx, record.Write{
					Type:   account.RecordType,
					ID:     id,
					Fields: map[string]string{account.FieldEmail: flipBase64(raw.Fields[account.FieldEmail])},
				}, false))
			}

			tc.validateFunc(s.do(http.MethodGet, "/account", "", tc.subject(id)))
		})
	}
}

func (s *AccountPublicTestSuite) TestPatchAccount() {
	tests := []struct {
		name         string
		body         string
		validateFunc func(rec *httptest.ResponseRecorder, before record.Record, after record.Record)
	}{
		{
			name: "when name changes leaves the encrypted fields untouched",
			body: `{"name":"Ada L."}`,
			validateFunc: func(rec *httptest.ResponseRecorder, before record.Record, after record.Record) {
				s.Equal(http.StatusOK, rec.Code)
				s.Equal("Ada L.", after.Fields[account.FieldName])
				s.Equal(before.Fields[account.FieldEmail], after.Fields[account.FieldEmail])
				s.Equal(before.Fields[account.FieldPhone], after.Fields[account.FieldPhone])
			},
		},
		{
			name: "when phone changes re-encrypts only the phone",
			body: `{"phone":"+15555550199"}`,
			validateFunc: func(rec *httptest.ResponseRecorder, before record.Record, after record.Record) {
				s.Equal(http.StatusOK, rec.Code)
				s.Contains(rec.Body.String(), "+15555550199")
				s.Equal(before.Fields[account.FieldEmail], after.Fields[account.FieldEmail])
				s.NotEqual(before.Fields[account.FieldPhone], after.Fields[account.FieldPhone])
				s.True(fieldcipher.IsBlob(after.Fields[account.FieldPhone]))
			},
		},
		{
			name: "when nothing is set returns bad request",
			body: `{}`,
			validateFunc: func(rec *httptest.ResponseRecorder, before record.Record, after record.Record) {
				s.Equal(http.StatusBadRequest, rec.Code)
				s.Equal(before, after)
			},
		},
		{
			name: "when phone is malformed returns bad request",
			body: `{"phone":"call me"}`,
			validateFunc: func(rec *httptest.ResponseRecorder, _ record.Record, _ record.Record) {
				s.Equal(http.StatusBadRequest, rec.Code)
			},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.SetupTest()
			id := s.register()

			before, err := s.backend.Get(s.ctx, account.RecordType, id)
			s.Require().NoError(err)

			rec := s.do(http.MethodPatch, "/account", tc.body, id)

			after, err := s.backend.Get(s.ctx, account.RecordType, id)
			s.Require().NoError(err)

			tc.validateFunc(rec, before, after)
		})
	}
}

// flipBase64 swaps one character in the middle of an encoded blob for a
// different valid one, so the blob still decodes but no longer verifies.
func flipBase64(
	blob string,
) string {
	b := []byte(blob)
	i := len(b) / 2
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}

	return string(b)
}

func TestAccountPublicTestSuite(t *testing.T) {
	suite.Run(t, new(AccountPublicTestSuite))
}
