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
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/retr0h/pantry/internal/fieldcipher"
	"github.com/retr0h/pantry/internal/password"
)

// secretCmd represents the secret command.
var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Encrypt fields and hash passwords with the configured keys",
	Long: `Operate on stored values with the configured master secret and work factors.
Values not passed as flags are read from the terminal without echo, or from stdin.
`,
}

func init() {
	rootCmd.AddCommand(secretCmd)
}

func newFieldCipher() (*fieldcipher.Cipher, error) {
	return fieldcipher.New(
		[]byte(appConfig.API.Server.Security.MasterSecret),
		fieldcipher.WithIterations(appConfig.Crypto.FieldIterations),
	)
}

func newPasswordHasher() *password.Hasher {
	return password.New(
		password.WithIterations(appConfig.Crypto.PasswordIterations),
		password.WithSaltSize(appConfig.Crypto.PasswordSaltBytes),
		password.WithKeySize(appConfig.Crypto.PasswordKeyBytes),
	)
}

// readSecret returns the flag value, or prompts for it.
func readSecret(
	cmd *cobra.Command,
	flag string,
	prompt string,
) (string, error) {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v, nil
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt+": ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", flag, err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading %s from stdin: %w", flag, err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}
