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

// Package password hashes credentials for storage and verifies them.
package password

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Defaults applied when a Hasher is built without options.
const (
	DefaultIterations = 210000
	DefaultSaltSize   = 16
	DefaultKeySize    = 64

	minSaltSize = 16

	// separator never appears in hex output.
	separator = ":"
)

// ErrMalformedHash is returned when a stored hash cannot be parsed.
var ErrMalformedHash = errors.New("malformed password hash")

// randReader is the entropy source. Tests replace it to simulate failures.
var randReader io.Reader = rand.Reader

// Hasher derives password hashes with PBKDF2-SHA512.
type Hasher struct {
	iterations int
	saltSize   int
	keySize    int
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithIterations overrides the PBKDF2 iteration count.
func WithIterations(
	n int,
) Option {
	return func(h *Hasher) {
		if n > 0 {
			h.iterations = n
		}
	}
}

// WithSaltSize overrides the salt length. Values under 16 bytes are ignored.
func WithSaltSize(
	n int,
) Option {
	return func(h *Hasher) {
		if n >= minSaltSize {
			h.saltSize = n
		}
	}
}

// WithKeySize overrides the derived key length.
func WithKeySize(
	n int,
) Option {
	return func(h *Hasher) {
		if n > 0 {
			h.keySize = n
		}
	}
}

// New returns a Hasher.
func New(
	opts ...Option,
) *Hasher {
	h := &Hasher{
		iterations: DefaultIterations,
		saltSize:   DefaultSaltSize,
		keySize:    DefaultKeySize,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Hash returns "salt:key", both hex encoded. The salt is fresh on every call.
func (h *Hasher) Hash(
	password string,
) (string, error) {
	salt := make([]byte, h.saltSize)
	if _, err := io.ReadFull(randReader, salt); err != nil {
		return "", fmt.Errorf("reading random salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, h.iterations, h.keySize, sha512.New)

	return hex.EncodeToString(salt) + separator + hex.EncodeToString(key), nil
}

// Verify reports whether password matches hash. The comparison runs in
// constant time and a malformed hash simply fails to match.
func (h *Hasher) Verify(
	password string,
	hash string,
) bool {
	salt, want, err := parse(hash)
	if err != nil {
		return false
	}

	got := pbkdf2.Key([]byte(password), salt, h.iterations, len(want), sha512.New)

	return subtle.ConstantTimeCompare(got, want) == 1
}

func parse(
	hash string,
) ([]byte, []byte, error) {
	saltHex, keyHex, ok := strings.Cut(hash, separator)
	if !ok {
		return nil, nil, ErrMalformedHash
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) < minSaltSize {
		return nil, nil, ErrMalformedHash
	}

	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) == 0 {
		return nil, nil, ErrMalformedHash
	}

	return salt, key, nil
}
