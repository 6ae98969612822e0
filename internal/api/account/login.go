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
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/retr0h/pantry/internal/ratelimit"
	"github.com/retr0h/pantry/internal/record"
	"github.com/retr0h/pantry/internal/validation"
)

// errBadCredentials never says which half of the pair was wrong.
var errBadCredentials = echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")

// LockedMessage is the reply to a sign-in for a locked identity.
const LockedMessage = "account temporarily locked after repeated failed sign-ins"

// PostLogin verifies credentials and issues a token. Failures count toward
// the lockout; a success clears it.
func (a *Account) PostLogin(
	c echo.Context,
) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if msg, ok := validation.Struct(req); !ok {
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	}

	ctx := c.Request().Context()
	email := ratelimit.NormalizeIdentity(req.Email)

	// The admission stage checks the raw body; this checks what was bound.
	state, err := a.failures.Check(ctx, email)
	switch {
	case errors.Is(err, ratelimit.ErrAccountLocked):
		wait := max(1, int(math.Ceil(state.LockedUntil.Sub(a.now()).Seconds())))
		c.Response().Header().Set("Retry-After", strconv.Itoa(wait))
		return echo.NewHTTPError(http.StatusLocked, LockedMessage).SetInternal(err)
	case err != nil:
		a.logger.Warn("reading lockout state", slog.String("error", err.Error()))
	}

	id := a.indexer.BlindIndex(email)

	rec, err := a.records.Find(ctx, RecordType, id)
	switch {
	case errors.Is(err, record.ErrNotFound):
		a.hasher.Verify(req.Password, a.decoyHash)
		return a.fail(c, email)
	case err != nil:
		return a.storageError(err, id)
	}

	if !a.hasher.Verify(req.Password, rec.Fields[FieldPasswordHash]) {
		return a.fail(c, email)
	}

	if err := a.failures.RecordSuccess(ctx, email); err != nil {
		a.logger.Warn("clearing sign-in failures", slog.String("error", err.Error()))
	}

	issuedAt := a.now()
	token, err := a.tokens.Generate(
		a.policy.SigningKey,
		id,
		email,
		a.policy.Issuer,
		a.policy.TTL,
	)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: issuedAt.Add(a.policy.TTL).UTC(),
	})
}

func (a *Account) fail(
	c echo.Context,
	email string,
) error {
	state, err := a.failures.RecordFailure(c.Request().Context(), email)
	if err != nil {
		a.logger.Warn("recording sign-in failure", slog.String("error", err.Error()))
	} else if !state.LockedUntil.IsZero() {
		a.logger.Info("sign-in locked out", slog.Int64("failed_attempts", state.FailedAttempts))
	}

	return errBadCredentials
}
