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

// Package fieldcipher encrypts individual text values for storage at rest.
//
// Every blob carries its own salt and IV, so the key used for one value is
// never used for another. A blob is laid out as
//
//	salt (64) || iv (16) || tag (16) || ciphertext
//
// and base64 encoded.
package fieldcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Blob layout sizes in bytes.
const (
	SaltSize = 64
	IVSize   = 16
	TagSize  = 16
	KeySize  = 32

	headerSize = SaltSize + IVSize + TagSize
)

// DefaultIterations is the PBKDF2 work factor used when none is configured.
const DefaultIterations = 100000

// blindIndexSalt separates the blind index sub-key from field keys.
var blindIndexSalt = []byte("pantry/blind-index/v1")

var (
	// ErrAuthenticationFailure is returned when a blob fails tag verification:
	// it was corrupted, tampered with, or sealed under another master secret.
	ErrAuthenticationFailure = errors.New("field authentication failed")
	// ErrMalformedBlob is returned when a blob cannot be decoded or is too
	// short to hold its header.
	ErrMalformedBlob = errors.New("malformed encrypted field")
	// ErrEmptySecret is returned by New when no master secret is supplied.
	ErrEmptySecret = errors.New("master secret is empty")
)

// randReader is the entropy source. Tests replace it to simulate failures.
var randReader io.Reader = rand.Reader

// Cipher seals and opens field values with keys derived from a master secret.
// It holds no mutable state and is safe for concurrent use.
type Cipher struct {
	secret     []byte
	iterations int
	indexKey   []byte
}

// Option configures a Cipher.
type Option func(*Cipher)

// WithIterations overrides the PBKDF2 iteration count.
func WithIterations(
	n int,
) Option {
	return func(c *Cipher) {
		if n > 0 {
			c.iterations = n
		}
	}
}

// New returns a Cipher bound to secret. The secret is copied and never exposed.
func New(
	secret []byte,
	opts ...Option,
) (*Cipher, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	c := &Cipher{
		secret:     append([]byte(nil), secret...),
		iterations: DefaultIterations,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.indexKey = pbkdf2.Key(c.secret, blindIndexSalt, c.iterations, KeySize, sha512.New)

	return c, nil
}

// Iterations reports the configured PBKDF2 work factor.
func (c *Cipher) Iterations() int {
	return c.iterations
}

// Encrypt seals plaintext under a freshly salted key and returns the encoded blob.
func (c *Cipher) Encrypt(
	plaintext string,
) (string, error) {
	header := make([]byte, SaltSize+IVSize)
	if _, err := io.ReadFull(randReader, header); err != nil {
		return "", fmt.Errorf("reading random salt and iv: %w", err)
	}

	salt, iv := header[:SaltSize], header[SaltSize:]

	aead, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	// Seal appends the tag after the ciphertext; the stored layout puts it first.
	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	blob := make([]byte, 0, headerSize+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, iv...)
	blob = append(blob, tag...)
	blob = append(blob, ciphertext...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens an encoded blob. No plaintext is returned unless the tag
// verifies; any mismatch yields ErrAuthenticationFailure.
func (c *Cipher) Decrypt(
	encoded string,
) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedBlob, err)
	}

	if len(blob) < headerSize {
		return "", fmt.Errorf("%w: %d bytes", ErrMalformedBlob, len(blob))
	}

	salt := blob[:SaltSize]
	iv := blob[SaltSize : SaltSize+IVSize]
	tag := blob[SaltSize+IVSize : headerSize]
	ciphertext := blob[headerSize:]

	aead, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", ErrAuthenticationFailure
	}

	return string(plaintext), nil
}

// IsBlob reports whether value decodes to something shaped like a blob. It
// does not verify the tag.
func IsBlob(
	value string,
) bool {
	blob, err := base64.StdEncoding.DecodeString(value)
	return err == nil && len(blob) >= headerSize
}

// BlindIndex returns a deterministic keyed digest of value, suitable as a
// lookup key for records whose value is stored encrypted.
func (c *Cipher) BlindIndex(
	value string,
) string {
	mac := hmac.New(sha256.New, c.indexKey)
	mac.Write([]byte(value))

	return hex.EncodeToString(mac.Sum(nil))
}

// DeriveKey returns a KeySize sub-key of the master secret bound to label.
// Distinct labels yield unrelated keys.
func (c *Cipher) DeriveKey(
	label string,
) []byte {
	salt := []byte("pantry/" + label + "/v1")

	return pbkdf2.Key(c.secret, salt, c.iterations, KeySize, sha512.New)
}

func (c *Cipher) aead(
	salt []byte,
) (cipher.AEAD, error) {
	key := pbkdf2.Key(c.secret, salt, c.iterations, KeySize, sha512.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating block cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("creating gcm: %w", err)
	}

	return aead, nil
}
