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

package fieldcipher_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/retr0h/pantry/internal/fieldcipher"
)

// testIterations keeps the KDF cheap; production uses DefaultIterations.
const testIterations = 1000

type CipherPublicTestSuite struct {
	suite.Suite

	cipher *fieldcipher.Cipher
}

func (s *CipherPublicTestSuite) SetupTest() {
	c, err := fieldcipher.New(
		[]byte("correct horse battery staple"),
		fieldcipher.WithIterations(testIterations),
	)
	s.Require().NoError(err)

	s.cipher = c
}

func (s *CipherPublicTestSuite) TestNew() {
	tests := []struct {
		name         string
		secret       []byte
		opts         []fieldcipher.Option
		wantErr      error
		validateFunc func(c *fieldcipher.Cipher)
	}{
		{
			name:    "when secret is empty",
			secret:  nil,
			wantErr: fieldcipher.ErrEmptySecret,
		},
		{
			name:   "when no options uses default iterations",
			secret: []byte("secret"),
			validateFunc: func(c *fieldcipher.Cipher) {
				s.Equal(fieldcipher.DefaultIterations, c.Iterations())
			},
		},
		{
			name:   "when iterations option is set",
			secret: []byte("secret"),
			opts:   []fieldcipher.Option{fieldcipher.WithIterations(testIterations)},
			validateFunc: func(c *fieldcipher.Cipher) {
				s.Equal(testIterations, c.Iterations())
			},
		},
		{
			name:   "when iterations option is not positive keeps default",
			secret: []byte("secret"),
			opts:   []fieldcipher.Option{fieldcipher.WithIterations(0)},
			validateFunc: func(c *fieldcipher.Cipher) {
				s.Equal(fieldcipher.DefaultIterations, c.Iterations())
			},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			c, err := fieldcipher.New(tc.secret, tc.opts...)
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				s.Nil(c)
				return
			}

			s.NoError(err)
			tc.validateFunc(c)
		})
	}
}

func (s *CipherPublicTestSuite) TestEncryptDecryptRoundTrip() {
	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "empty string", plaintext: ""},
		{name: "ascii", plaintext: "cook@example.com"},
		{name: "unicode", plaintext: "crème brûlée ✓ 食谱"},
		{name: "long value", plaintext: string(make([]byte, 4096))},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			blob, err := s.cipher.Encrypt(tc.plaintext)
			s.Require().NoError(err)
			s.True(fieldcipher.IsBlob(blob))

			raw, err := base64.StdEncoding.DecodeString(blob)
			s.Require().NoError(err)
			s.Len(raw, fieldcipher.SaltSize+fieldcipher.IVSize+fieldcipher.TagSize+len(tc.plaintext))

			got, err := s.cipher.Decrypt(blob)
			s.NoError(err)
			s.Equal(tc.plaintext, got)
		})
	}
}

func (s *CipherPublicTestSuite) TestEncryptIsNeverDeterministic() {
	first, err := s.cipher.Encrypt("555-0100")
	s.Require().NoError(err)

	second, err := s.cipher.Encrypt("555-0100")
	s.Require().NoError(err)

	s.NotEqual(first, second)

	a, _ := base64.StdEncoding.DecodeString(first)
	b, _ := base64.StdEncoding.DecodeString(second)
	s.NotEqual(a[:fieldcipher.SaltSize], b[:fieldcipher.SaltSize])
	s.NotEqual(
		a[fieldcipher.SaltSize:fieldcipher.SaltSize+fieldcipher.IVSize],
		b[fieldcipher.SaltSize:fieldcipher.SaltSize+fieldcipher.IVSize],
	)
}

func (s *CipherPublicTestSuite) TestDecryptFailsOnAnyBitFlip() {
	blob, err := s.cipher.Encrypt("ok")
	s.Require().NoError(err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	s.Require().NoError(err)

	for i := 0; i < len(raw)*8; i++ {
		tampered := append([]byte(nil), raw...)
		tampered[i/8] ^= 1 << (i % 8)

		got, err := s.cipher.Decrypt(base64.StdEncoding.EncodeToString(tampered))
		s.Require().ErrorIs(err, fieldcipher.ErrAuthenticationFailure, "bit %d", i)
		s.Empty(got)
	}
}

func (s *CipherPublicTestSuite) TestDecrypt() {
	other, err := fieldcipher.New([]byte("another secret"), fieldcipher.WithIterations(testIterations))
	s.Require().NoError(err)

	tests := []struct {
		name     string
		blobFunc func() string
		wantErr  error
	}{
		{
			name: "when sealed under another master secret",
			blobFunc: func() string {
				blob, _ := other.Encrypt("secret")
				return blob
			},
			wantErr: fieldcipher.ErrAuthenticationFailure,
		},
		{
			name: "when blob is not base64",
			blobFunc: func() string {
				return "%%%not-base64%%%"
			},
			wantErr: fieldcipher.ErrMalformedBlob,
		},
		{
			name: "when blob is shorter than the header",
			blobFunc: func() string {
				return base64.StdEncoding.EncodeToString(make([]byte, 10))
			},
			wantErr: fieldcipher.ErrMalformedBlob,
		},
		{
			name: "when blob is truncated after the header",
			blobFunc: func() string {
				blob, _ := s.cipher.Encrypt("a longer secret value")
				raw, _ := base64.StdEncoding.DecodeString(blob)
				return base64.StdEncoding.EncodeToString(raw[:len(raw)-3])
			},
			wantErr: fieldcipher.ErrAuthenticationFailure,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			got, err := s.cipher.Decrypt(tc.blobFunc())
			s.ErrorIs(err, tc.wantErr)
			s.Empty(got)
		})
	}
}

func (s *CipherPublicTestSuite) TestIsBlob() {
	blob, err := s.cipher.Encrypt("x")
	s.Require().NoError(err)

	s.True(fieldcipher.IsBlob(blob))
	s.False(fieldcipher.IsBlob("cook@example.com"))
	s.False(fieldcipher.IsBlob(base64.StdEncoding.EncodeToString([]byte("short"))))
}

func (s *CipherPublicTestSuite) TestBlindIndex() {
	other, err := fieldcipher.New([]byte("another secret"), fieldcipher.WithIterations(testIterations))
	s.Require().NoError(err)

	a := s.cipher.BlindIndex("cook@example.com")

	s.Len(a, 64)
	s.Equal(a, s.cipher.BlindIndex("cook@example.com"))
	s.NotEqual(a, s.cipher.BlindIndex("chef@example.com"))
	s.NotEqual(a, other.BlindIndex("cook@example.com"))
}

func (s *CipherPublicTestSuite) TestDeriveKey() {
	other, err := fieldcipher.New([]byte("another secret"), fieldcipher.WithIterations(testIterations))
	s.Require().NoError(err)

	key := s.cipher.DeriveKey("audit-fingerprint")

	s.Len(key, fieldcipher.KeySize)
	s.Equal(key, s.cipher.DeriveKey("audit-fingerprint"))
	s.NotEqual(key, s.cipher.DeriveKey("something-else"))
	s.NotEqual(key, other.DeriveKey("audit-fingerprint"))
}

func TestCipherPublicTestSuite(t *testing.T) {
	suite.Run(t, new(CipherPublicTestSuite))
}
