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
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/retr0h/pantry/internal/ratelimit"
	"github.com/retr0h/pantry/internal/record"
	"github.com/retr0h/pantry/internal/validation"
)

// PostRegister creates a user. The user ID is the blind index of the
// e-mail so sign-in can find the record without decrypting others.
func (a *Account) PostRegister(
	c echo.Context,
) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if msg, ok := validation.Struct(req); !ok {
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	}

	email := ratelimit.NormalizeIdentity(req.Email)

	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	id := a.indexer.BlindIndex(email)
	err = a.records.Create(c.Request().Context(), record.Write{
		Type: RecordType,
		ID:   id,
		Fields: map[string]string{
			FieldEmail:        email,
			FieldName:         req.Name,
			FieldPhone:        req.Phone,
			FieldPasswordHash: hash,
			FieldCreatedAt:    a.now().UTC().Format(time.RFC3339),
		},
	})
	if errors.Is(err, record.ErrExists) {
		return echo.NewHTTPError(http.StatusConflict, "account already exists")
	}
	if err != nil {
		return fmt.Errorf("creating account: %w", err)
	}

	a.logger.Info("account registered", slog.String("id", id))

	return c.JSON(http.StatusCreated, RegisterResponse{ID: id})
}
