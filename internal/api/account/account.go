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

package account

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/retr0h/pantry/internal/fieldcipher"
	"github.com/retr0h/pantry/internal/record"
)

// Option configures an Account.
type Option func(*Account)

// WithClock overrides the time source.
func WithClock(
	now func() time.Time,
) Option {
	return func(a *Account) {
		a.now = now
	}
}

// New creates the account handlers. subject extracts the authenticated
// user ID placed on the context by token validation.
func New(
	logger *slog.Logger,
	hasher PasswordHasher,
	records Records,
	failures FailureRecorder,
	tokens TokenIssuer,
	indexer Indexer,
	policy TokenPolicy,
	subject func(echo.Context) string,
	opts ...Option,
) (*Account, error) {
	decoy, err := hasher.Hash("decoy-password-0")
	if err != nil {
		return nil, err
	}

	a := &Account{
		logger:    logger,
		hasher:    hasher,
		records:   records,
		failures:  failures,
		tokens:    tokens,
		indexer:   indexer,
		policy:    policy,
		subject:   subject,
		now:       time.Now,
		decoyHash: decoy,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Register mounts the account routes on e.
func (a *Account) Register(
	e *echo.Echo,
) {
	e.POST("/auth/register", a.PostRegister)
	e.POST("/auth/login", a.PostLogin)
	e.GET("/account", a.GetAccount)
	e.PATCH("/account", a.PatchAccount)
}

// storageError maps a repository failure to an HTTP error. A record that
// fails its integrity check is reported, never served.
func (a *Account) storageError(
	err error,
	id string,
) error {
	if errors.Is(err, fieldcipher.ErrAuthenticationFailure) {
		a.logger.Error(
			"user record failed integrity check",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return echo.NewHTTPError(http.StatusInternalServerError, "account data is unreadable")
	}
	if errors.Is(err, record.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "account not found")
	}

	return err
}

func toProfile(
	rec record.Record,
) Profile {
	return Profile{
		ID:        rec.ID,
		Email:     rec.Fields[FieldEmail],
		Name:      rec.Fields[FieldName],
		Phone:     rec.Fields[FieldPhone],
		CreatedAt: rec.Fields[FieldCreatedAt],
	}
}
