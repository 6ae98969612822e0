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

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/retr0h/pantry/internal/cli"
	"github.com/retr0h/pantry/internal/telemetry"
)

// apiServerStartCmd represents the apiServerStart command.
var apiServerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server",
	Long: `Start the API server behind the admission pipeline.
Backends for counters, records and audit entries are chosen by the config file.
`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		log := logger.With("component", "api")

		shutdownTelemetry, metrics := initTelemetry(ctx)

		sm, cleanup, err := setupAPIServer(ctx, log, appConfig, "", metrics)
		if err != nil {
			cli.LogFatal(logger, "failed to set up api server", err)
		}

		sm.Start()
		cli.RunServer(ctx, log, sm, appConfig.API.Server.ShutdownTimeout, cleanup, func() {
			_ = shutdownTelemetry(context.Background())
		})
	},
}

// initTelemetry starts tracing and metrics from appConfig.
func initTelemetry(
	ctx context.Context,
) (telemetry.ShutdownFunc, *telemetry.MetricsEndpoint) {
	shutdownTracer, err := telemetry.InitTracer(ctx, "pantry", appConfig.Telemetry.Tracing)
	if err != nil {
		cli.LogFatal(logger, "failed to initialize tracer", err)
	}

	metrics, err := telemetry.InitMeter(appConfig.Telemetry.Metrics)
	if err != nil {
		cli.LogFatal(logger, "failed to initialize meter", err)
	}

	return telemetry.JoinShutdown(metrics.Shutdown, shutdownTracer), metrics
}

func init() {
	apiServerCmd.AddCommand(apiServerStartCmd)
}
