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
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/retr0h/pantry/internal/record"
	"github.com/retr0h/pantry/internal/validation"
)

// GetAccount returns the signed-in user's profile with sensitive fields
// decrypted.
func (a *Account) GetAccount(
	c echo.Context,
) error {
	id := a.subject(c)

	rec, err := a.records.Find(c.Request().Context(), RecordType, id)
	if err != nil {
		return a.storageError(err, id)
	}

	return c.JSON(http.StatusOK, toProfile(rec))
}

// PatchAccount updates only the fields present in the request. Stored
// fields the request does not name are not rewritten.
func (a *Account) PatchAccount(
	c echo.Context,
) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if msg, ok := validation.Struct(req); !ok {
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	}

	fields := map[string]string{}
	if req.Name != nil {
		fields[FieldName] = *req.Name
	}
	if req.Phone != nil {
		fields[FieldPhone] = *req.Phone
	}
	if len(fields) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}

	ctx := c.Request().Context()
	id := a.subject(c)

	if _, err := a.records.Find(ctx, RecordType, id); err != nil {
		return a.storageError(err, id)
	}

	if err := a.records.Save(ctx, record.Write{Type: RecordType, ID: id, Fields: fields}); err != nil {
		return fmt.Errorf("updating account: %w", err)
	}

	rec, err := a.records.Find(ctx, RecordType, id)
	if err != nil {
		return a.storageError(err, id)
	}

	return c.JSON(http.StatusOK, toProfile(rec))
}
