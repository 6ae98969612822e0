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

package audit_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/retr0h/pantry/internal/audit"
)

type FingerprintPublicTestSuite struct {
	suite.Suite

	start time.Time
	key   []byte
}

func (s *FingerprintPublicTestSuite) SetupTest() {
	s.start = time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	s.key = []byte("fingerprint-key")
}

func (s *FingerprintPublicTestSuite) TestFingerprint() {
	base := audit.Fingerprint(s.key, "POST", "/auth/login", []byte(`{"email":"a"}`), "acct-1", s.start)

	s.Len(base, 64)
	s.Equal(base, audit.Fingerprint(s.key, "POST", "/auth/login", []byte(`{"email":"a"}`), "acct-1", s.start))

	variants := map[string]string{
		"method": audit.Fingerprint(s.key, "PUT", "/auth/login", []byte(`{"email":"a"}`), "acct-1", s.start),
		"path":   audit.Fingerprint(s.key, "POST", "/auth/logi", []byte(`{"email":"a"}`), "acct-1", s.start),
		"body":   audit.Fingerprint(s.key, "POST", "/auth/login", []byte(`{"email":"b"}`), "acct-1", s.start),
		"actor":  audit.Fingerprint(s.key, "POST", "/auth/login", []byte(`{"email":"a"}`), "acct-2", s.start),
		"start": audit.Fingerprint(
			s.key,
			"POST", "/auth/login", []byte(`{"email":"a"}`), "acct-1", s.start.Add(time.Nanosecond),
		),
		"field boundary": audit.Fingerprint(s.key, "POST", "/auth/login{", []byte(`"email":"a"}`), "acct-1", s.start),
	}

	for name, fp := range variants {
		s.NotEqual(base, fp, name)
	}
}

func (s *FingerprintPublicTestSuite) TestFingerprintIsKeyed() {
	body := []byte(`{"email":"a@example.com","password":"hunter2"}`)
	keyed := audit.Fingerprint(s.key, "POST", "/auth/login", body, "", s.start)

	tests := []struct {
		name  string
		other string
	}{
		{
			name:  "when key differs digest differs",
			other: audit.Fingerprint([]byte("other-key"), "POST", "/auth/login", body, "", s.start),
		},
		{
			name:  "when no key is used digest differs",
			other: audit.Fingerprint(nil, "POST", "/auth/login", body, "", s.start),
		},
		{
			name: "when digest is a bare sha256 of the same fields it differs",
			other: func() string {
				h := sha256.New()
				for i, part := range [][]byte{
					[]byte("POST"),
					[]byte("/auth/login"),
					body,
					[]byte(""),
					[]byte(s.start.Format(time.RFC3339Nano)),
				} {
					if i > 0 {
						h.Write([]byte{0})
					}
					h.Write(part)
				}
				return hex.EncodeToString(h.Sum(nil))
			}(),
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.NotEqual(keyed, tc.other)
		})
	}
}

func (s *FingerprintPublicTestSuite) TestFingerprintIgnoresZone() {
	local := s.start.In(time.FixedZone("CET", 3600))

	s.Equal(
		audit.Fingerprint(s.key, "GET", "/", nil, "", s.start),
		audit.Fingerprint(s.key, "GET", "/", nil, "", local),
	)
}

func (s *FingerprintPublicTestSuite) TestActionFor() {
	tests := map[string]string{
		"GET":     "read",
		"HEAD":    "read",
		"POST":    "create",
		"PUT":     "update",
		"PATCH":   "update",
		"DELETE":  "delete",
		"OPTIONS": "options",
	}

	for method, want := range tests {
		s.Equal(want, audit.ActionFor(method), method)
	}
}

func (s *FingerprintPublicTestSuite) TestResourceTypeFor() {
	tests := map[string]string{
		"/":            "root",
		"":             "root",
		"/account":     "account",
		"/auth/login":  "auth",
		"/recipes/42/": "recipes",
		"health":       "health",
	}

	for path, want := range tests {
		s.Equal(want, audit.ResourceTypeFor(path), path)
	}
}

func (s *FingerprintPublicTestSuite) TestFindTampered() {
	honest := audit.Entry{
		ID:          "1",
		Timestamp:   s.start,
		Actor:       "acct-1",
		Action:      "read",
		Fingerprint: "aaa",
		StatusCode:  200,
		Method:      "GET",
		Path:        "/account",
	}
	copied := honest
	copied.ID = "2"

	altered := honest
	altered.ID = "3"
	altered.Fingerprint = "bbb"
	forged := altered
	forged.ID = "4"
	forged.StatusCode = 403

	lone := honest
	lone.ID = "5"
	lone.Fingerprint = "ccc"

	tests := []struct {
		name         string
		entries      []audit.Entry
		validateFunc func(reports []audit.TamperReport)
	}{
		{
			name:    "when log is empty reports nothing",
			entries: nil,
			validateFunc: func(reports []audit.TamperReport) {
				s.Empty(reports)
			},
		},
		{
			name:    "when fingerprints are unique reports nothing",
			entries: []audit.Entry{honest, altered, lone},
			validateFunc: func(reports []audit.TamperReport) {
				s.Empty(reports)
			},
		},
		{
			name:    "when shared fingerprint carries identical metadata reports nothing",
			entries: []audit.Entry{honest, copied},
			validateFunc: func(reports []audit.TamperReport) {
				s.Empty(reports)
			},
		},
		{
			name:    "when shared fingerprint disagrees reports the group",
			entries: []audit.Entry{honest, altered, lone, forged},
			validateFunc: func(reports []audit.TamperReport) {
				s.Require().Len(reports, 1)
				s.Equal("bbb", reports[0].Fingerprint)
				s.Len(reports[0].Entries, 2)
			},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			tc.validateFunc(audit.FindTampered(tc.entries))
		})
	}
}

func TestFingerprintPublicTestSuite(t *testing.T) {
	suite.Run(t, new(FingerprintPublicTestSuite))
}
