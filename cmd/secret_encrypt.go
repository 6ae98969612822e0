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

	"github.com/spf13/cobra"

	"github.com/retr0h/pantry/internal/cli"
)

// secretEncryptCmd represents the secretEncrypt command.
var secretEncryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt a field value",
	Run: func(cmd *cobra.Command, _ []string) {
		value, err := readSecret(cmd, "value", "Value")
		if err != nil {
			cli.LogFatal(logger, "failed to read value", err)
		}

		cipher, err := newFieldCipher()
		if err != nil {
			cli.LogFatal(logger, "failed to create field cipher", err)
		}

		blob, err := cipher.Encrypt(value)
		if err != nil {
			cli.LogFatal(logger, "failed to encrypt", err)
		}

		fmt.Println(blob)
	},
}

// secretDecryptCmd represents the secretDecrypt command.
var secretDecryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Decrypt a stored field value",
	Long: `Decrypt a stored field value. A blob that was altered or sealed
under another master secret fails with an integrity error.
`,
	Run: func(cmd *cobra.Command, _ []string) {
		blob, err := readSecret(cmd, "blob", "Blob")
		if err != nil {
			cli.LogFatal(logger, "failed to read blob", err)
		}

		cipher, err := newFieldCipher()
		if err != nil {
			cli.LogFatal(logger, "failed to create field cipher", err)
		}

		value, err := cipher.Decrypt(blob)
		if err != nil {
			cli.LogFatal(logger, "failed to decrypt", err)
		}

		fmt.Println(value)
	},
}

// secretIndexCmd represents the secretIndex command.
var secretIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Print the blind index of a value",
	Long: `Print the blind index of a value. For an email address this is the
account ID the API assigns at registration.
`,
	Run: func(cmd *cobra.Command, _ []string) {
		value, err := readSecret(cmd, "value", "Value")
		if err != nil {
			cli.LogFatal(logger, "failed to read value", err)
		}

		cipher, err := newFieldCipher()
		if err != nil {
			cli.LogFatal(logger, "failed to create field cipher", err)
		}

		fmt.Println(cipher.BlindIndex(value))
	},
}

func init() {
	secretCmd.AddCommand(secretEncryptCmd, secretDecryptCmd, secretIndexCmd)

	secretEncryptCmd.Flags().String("value", "", "Plaintext to encrypt")
	secretDecryptCmd.Flags().String("blob", "", "Encrypted blob to decrypt")
	secretIndexCmd.Flags().String("value", "", "Value to index")
}
