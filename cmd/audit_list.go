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
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/retr0h/pantry/internal/cli"
)

var (
	auditListLimit  int
	auditListOffset int
)

// auditListCmd represents the auditList command.
var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit log entries",
	Long: `List audit log entries with pagination, newest first.

Displays a table of recent API activity including actor, method, path,
response status, and duration.
`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		store, closeStore, err := openAuditReader(ctx, logger, appConfig)
		if err != nil {
			cli.LogFatal(logger, "failed to open audit store", err)
		}
		defer closeStore()

		entries, total, err := store.List(ctx, auditListLimit, auditListOffset)
		if err != nil {
			cli.LogFatal(logger, "failed to list audit entries", err)
		}

		if jsonOutput {
			_ = json.NewEncoder(os.Stdout).Encode(entries)
			return
		}

		fmt.Println()
		cli.PrintKV(os.Stdout, "Total", strconv.Itoa(total))

		if len(entries) == 0 {
			fmt.Println("  No audit entries found.")
			return
		}

		cli.PrintCompactTable(os.Stdout, []cli.Section{cli.AuditSection("Audit Entries", entries)})
	},
}

func init() {
	auditCmd.AddCommand(auditListCmd)
	auditListCmd.Flags().
		IntVar(&auditListLimit, "limit", 20, "Maximum number of entries to return")
	auditListCmd.Flags().IntVar(&auditListOffset, "offset", 0, "Number of entries to skip")
}
