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

package api

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/retr0h/pantry/internal/api/account"
)

// AccountDeps are the collaborators of the account routes.
type AccountDeps struct {
	Hasher   account.PasswordHasher
	Records  account.Records
	Failures account.FailureRecorder
	Tokens   account.TokenIssuer
	Indexer  account.Indexer
}

// GetAccountHandler returns the account routes for registration.
func (s *Server) GetAccountHandler(
	deps AccountDeps,
) ([]func(e *echo.Echo), error) {
	security := s.appConfig.API.Server.Security

	a, err := account.New(
		s.logger,
		deps.Hasher,
		deps.Records,
		deps.Failures,
		deps.Tokens,
		deps.Indexer,
		account.TokenPolicy{
			SigningKey: security.SigningKey,
			Issuer:     security.TokenIssuer,
			TTL:        security.TokenTTL,
		},
		SubjectFromContext,
	)
	if err != nil {
		return nil, fmt.Errorf("creating account handlers: %w", err)
	}

	return []func(e *echo.Echo){a.Register}, nil
}
