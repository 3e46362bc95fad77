package cli

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"photo-rater/internal/auth"
)

func newHashPasswordCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for RATER_USERS",
		Long: `Prompts for a password without echo and prints its bcrypt hash. With
--user the output is a ready "user:hash" entry for RATER_USERS. When stdin
is not a terminal the password is read from its first line.`,
		Example: `  photo-rater hash-password --user alice
  echo 'secret' | photo-rater hash-password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return printHash(cmd.OutOrStdout(), user, password)
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Prefix the hash with this rater name")
	return cmd
}

// readPassword prompts twice on a terminal, or reads one line otherwise.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		password, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("error reading password: %w", err)
		}

		fmt.Fprint(prompt, "Confirm Password: ")
		confirm, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("error reading password: %w", err)
		}

		if !bytes.Equal(password, confirm) {
			return "", errors.New("passwords do not match")
		}
		return string(password), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("error reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printHash(out io.Writer, user, password string) error {
	if strings.ContainsAny(user, ":,") {
		return fmt.Errorf("user %q must not contain ':' or ','", user)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if user != "" {
		fmt.Fprintf(out, "%s:%s\n", user, hash)
		return nil
	}
	fmt.Fprintln(out, hash)
	return nil
}
