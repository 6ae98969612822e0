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

package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Fingerprint is an HMAC-SHA256 of the original request under key. Fields
// are NUL separated so that shifting bytes between adjacent fields changes
// the digest. The body may carry credentials, so key must stay secret for
// the digest not to act as an offline guessing oracle.
func Fingerprint(
	key []byte,
	method string,
	path string,
	body []byte,
	actorID string,
	start time.Time,
) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	h.Write([]byte{0})
	h.Write([]byte(actorID))
	h.Write([]byte{0})
	h.Write([]byte(start.UTC().Format(time.RFC3339Nano)))

	return hex.EncodeToString(h.Sum(nil))
}

// ActionFor maps an HTTP method to an audit action.
func ActionFor(
	method string,
) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

// ResourceTypeFor returns the first segment of path, or "root".
func ResourceTypeFor(
	path string,
) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "root"
	}

	segment, _, _ := strings.Cut(trimmed, "/")
	return segment
}

// TamperReport groups entries that share a fingerprint but disagree on
// the metadata they recorded.
type TamperReport struct {
	Fingerprint string  `json:"fingerprint"`
	Entries     []Entry `json:"entries"`
}

// FindTampered returns one report per fingerprint whose entries disagree.
// A fingerprint covers the request start time to the nanosecond, so two
// honest entries never share one.
func FindTampered(
	entries []Entry,
) []TamperReport {
	groups := make(map[string][]Entry)
	for _, e := range entries {
		groups[e.Fingerprint] = append(groups[e.Fingerprint], e)
	}

	var reports []TamperReport
	for fp, group := range groups {
		if len(group) < 2 {
			continue
		}

		for _, e := range group[1:] {
			if !sameMetadata(group[0], e) {
				reports = append(reports, TamperReport{
					Fingerprint: fp,
					Entries:     group,
				})
				break
			}
		}
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Fingerprint < reports[j].Fingerprint
	})

	return reports
}

func sameMetadata(
	a Entry,
	b Entry,
) bool {
	return a.Timestamp.Equal(b.Timestamp) &&
		a.Actor == b.Actor &&
		a.Action == b.Action &&
		a.ResourceType == b.ResourceType &&
		a.StatusCode == b.StatusCode &&
		a.DurationMs == b.DurationMs &&
		a.IP == b.IP &&
		a.UserAgent == b.UserAgent &&
		a.Method == b.Method &&
		a.Path == b.Path
}
