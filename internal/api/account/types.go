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

// Package account serves registration, sign-in and the signed-in profile.
// It is a thin caller of the password hasher, the record repository, the
// lockout service and the token issuer.
package account

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/retr0h/pantry/internal/ratelimit"
	"github.com/retr0h/pantry/internal/record"
)

// RecordType is the record type users are stored under.
const RecordType = "user"

// Field names of a user record.
const (
	FieldEmail        = "email"
	FieldName         = "name"
	FieldPhone        = "phone"
	FieldPasswordHash = "password_hash"
	FieldCreatedAt    = "created_at"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) bool
}

// Records reads and writes user records.
type Records interface {
	Create(ctx context.Context, w record.Write) error
	Save(ctx context.Context, w record.Write) error
	Find(ctx context.Context, recordType string, id string) (record.Record, error)
}

// FailureRecorder tracks failed and successful sign-ins.
type FailureRecorder interface {
	Check(ctx context.Context, identity string) (ratelimit.LockoutState, error)
	RecordFailure(ctx context.Context, identity string) (ratelimit.LockoutState, error)
	RecordSuccess(ctx context.Context, identity string) error
}

// TokenIssuer signs bearer tokens.
type TokenIssuer interface {
	Generate(
		signingKey string,
		subject string,
		email string,
		issuer string,
		ttl time.Duration,
	) (string, error)
}

// Indexer derives the lookup key for an e-mail address.
type Indexer interface {
	BlindIndex(value string) string
}

// TokenPolicy is how issued tokens are signed.
type TokenPolicy struct {
	SigningKey string
	Issuer     string
	TTL        time.Duration
}

// Account implements the account endpoints.
type Account struct {
	logger   *slog.Logger
	hasher   PasswordHasher
	records  Records
	failures FailureRecorder
	tokens   TokenIssuer
	indexer  Indexer
	policy   TokenPolicy
	subject  func(echo.Context) string
	now      func() time.Time

	// decoyHash is verified against when the account does not exist so
	// unknown and known e-mails cost the same.
	decoyHash string
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,passphrase"`
	Name     string `json:"name"     validate:"required,max=120"`
	Phone    string `json:"phone"    validate:"omitempty,e164"`
}

// RegisterResponse is the body of a successful registration.
type RegisterResponse struct {
	ID string `json:"id"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UpdateRequest is the body of PATCH /account. Absent fields are left as
// they are.
type UpdateRequest struct {
	Name  *string `json:"name"  validate:"omitempty,min=1,max=120"`
	Phone *string `json:"phone" validate:"omitempty,e164"`
}

// Profile is the signed-in user's view of their record.
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}
