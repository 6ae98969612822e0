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
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/retr0h/pantry/internal/audit"
	"github.com/retr0h/pantry/internal/cli"
)

// auditVerifyCmd represents the auditVerify command.
var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Find audit entries whose metadata was altered",
	Long: `Read the whole audit log and report fingerprints shared by entries that
disagree on the request they describe. Exits non-zero when any are found.
`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		store, closeStore, err := openAuditReader(ctx, logger, appConfig)
		if err != nil {
			cli.LogFatal(logger, "failed to open audit store", err)
		}
		defer closeStore()

		entries, err := readAllEntries(ctx, store)
		if err != nil {
			cli.LogFatal(logger, "failed to read audit entries", err)
		}

		reports := audit.FindTampered(entries)

		fmt.Println()
		cli.PrintKV(os.Stdout,
			"Entries", strconv.Itoa(len(entries)),
			"Conflicts", strconv.Itoa(len(reports)),
		)

		if len(reports) == 0 {
			return
		}

		cli.PrintCompactTable(os.Stdout, []cli.Section{cli.TamperSection(reports)})
		closeStore()
		cli.LogFatal(
			logger,
			"audit log failed verification",
			fmt.Errorf("%d fingerprints have conflicting entries", len(reports)),
		)
	},
}

func init() {
	auditCmd.AddCommand(auditVerifyCmd)
}
