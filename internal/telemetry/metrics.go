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

package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/retr0h/pantry/internal/config"
)

// prometheusNewFn is swapped by tests to simulate exporter failures.
var prometheusNewFn = prometheus.New

// DefaultMetricsPath is used when the config leaves the path empty.
const DefaultMetricsPath = "/metrics"

// MetricsEndpoint is the scrape handler and where to mount it. A nil
// Handler means metrics are disabled.
type MetricsEndpoint struct {
	Handler  http.Handler
	Path     string
	Shutdown ShutdownFunc
}

// InitMeter installs the global meter provider. When enabled it exports
// through Prometheus; otherwise counters go to a noop provider.
func InitMeter(
	cfg config.MetricsConfig,
) (*MetricsEndpoint, error) {
	if !cfg.Enabled {
		otel.SetMeterProvider(noop.NewMeterProvider())

		return &MetricsEndpoint{}, nil
	}

	path := cfg.Path
	if path == "" {
		path = DefaultMetricsPath
	}

	exporter, err := prometheusNewFn()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(mp)

	return &MetricsEndpoint{
		Handler:  promhttp.Handler(),
		Path:     path,
		Shutdown: mp.Shutdown,
	}, nil
}
