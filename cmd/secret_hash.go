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
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/retr0h/pantry/internal/cli"
)

// secretHashCmd represents the secretHash command.
var secretHashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Hash a password",
	Run: func(cmd *cobra.Command, _ []string) {
		pass, err := readSecret(cmd, "password", "Password")
		if err != nil {
			cli.LogFatal(logger, "failed to read password", err)
		}

		hash, err := newPasswordHasher().Hash(pass)
		if err != nil {
			cli.LogFatal(logger, "failed to hash password", err)
		}

		fmt.Println(hash)
	},
}

// secretVerifyCmd represents the secretVerify command.
var secretVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a password against a stored hash",
	Run: func(cmd *cobra.Command, _ []string) {
		hash, _ := cmd.Flags().GetString("hash")

		pass, err := readSecret(cmd, "password", "Password")
		if err != nil {
			cli.LogFatal(logger, "failed to read password", err)
		}

		if !newPasswordHasher().Verify(pass, hash) {
			cli.LogFatal(logger, "verification failed", errors.New("password does not match"))
		}

		cli.PrintKV(os.Stdout, "Result", "match")
	},
}

func init() {
	secretCmd.AddCommand(secretHashCmd, secretVerifyCmd)

	secretHashCmd.Flags().String("password", "", "Password to hash")
	secretVerifyCmd.Flags().String("password", "", "Password to check")
	secretVerifyCmd.Flags().String("hash", "", "Stored hash")

	_ = secretVerifyCmd.MarkFlagRequired("hash")
}
