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
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/retr0h/pantry/internal/api/account"
	"github.com/retr0h/pantry/internal/ratelimit"
)

// Kind names why a request was refused.
type Kind string

// Rejection kinds raised by the admission pipeline.
const (
	KindRateLimitExceeded Kind = "RateLimitExceeded"
	KindAccountLocked     Kind = "AccountLocked"
	KindMissingToken      Kind = "MissingToken"
	KindTokenExpired      Kind = "TokenExpired"
	KindTokenInvalid      Kind = "TokenInvalid"
)

var kindStatus = map[Kind]int{
	KindRateLimitExceeded: http.StatusTooManyRequests,
	KindAccountLocked:     http.StatusLocked,
	KindMissingToken:      http.StatusUnauthorized,
	KindTokenExpired:      http.StatusUnauthorized,
	KindTokenInvalid:      http.StatusUnauthorized,
}

// Rejection is a refused request. Stages return it as an error and the
// error handler renders it.
type Rejection struct {
	Kind    Kind
	Status  int
	Message string
}

// NewRejection builds a Rejection with the status that belongs to kind.
func NewRejection(
	kind Kind,
	message string,
) *Rejection {
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusForbidden
	}

	return &Rejection{
		Kind:    kind,
		Status:  status,
		Message: message,
	}
}

// Error implements error.
func (r *Rejection) Error() string {
	return string(r.Kind) + ": " + r.Message
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error"`
}

const meterName = "github.com/retr0h/pantry/internal/api"

func rejectionCounter() metric.Int64Counter {
	c, err := otel.Meter(meterName).Int64Counter(
		"pantry.admission.rejections",
		metric.WithDescription("Requests refused by the admission pipeline."),
	)
	if err != nil {
		return noop.Int64Counter{}
	}

	return c
}

// errorHandler renders rejections and echo errors as ErrorResponse.
func errorHandler(
	logger *slog.Logger,
) echo.HTTPErrorHandler {
	rejections := rejectionCounter()

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := ErrorResponse{Error: http.StatusText(status)}

		if errors.Is(err, ratelimit.ErrAccountLocked) {
			err = NewRejection(KindAccountLocked, account.LockedMessage)
		}

		var rej *Rejection
		var he *echo.HTTPError
		switch {
		case errors.As(err, &rej):
			status = rej.Status
			body = ErrorResponse{Kind: string(rej.Kind), Error: rej.Message}
			rejections.Add(
				c.Request().Context(),
				1,
				metric.WithAttributes(attribute.String("kind", string(rej.Kind))),
			)
		case errors.As(err, &he):
			status = he.Code
			msg, ok := he.Message.(string)
			if !ok {
				msg = http.StatusText(status)
			}
			body = ErrorResponse{Error: msg}
		default:
			logger.Error(
				"request failed",
				slog.String("path", c.Request().URL.Path),
				slog.String("error", err.Error()),
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error("writing error response", slog.String("error", writeErr.Error()))
		}
	}
}
