package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jrsteele09/hr-console/auth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long:  `Sign in with an admin or HR account. The password is prompted for when --password is not given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if password == "" {
				if password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
					return err
				}
			}

			s, err := a.gateway.Login(cmd.Context(), &auth.Credentials{Email: email, Password: password})
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Signed in as %s (%s)", s.User.Email, s.User.Role)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget it",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			a.gateway.Logout(cmd.Context())
			success(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}

			u := a.context.User()
			s, _ := a.context.Session()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "Name:\t%s\n", fallback(u.DisplayName(), "(none)"))
			_, _ = fmt.Fprintf(w, "Email:\t%s\n", u.Email)
			_, _ = fmt.Fprintf(w, "Role:\t%s\n", u.Role)
			_, _ = fmt.Fprintf(w, "Location:\t%s\n", fallback(u.Location, "(none)"))
			if !s.Expiry.IsZero() {
				_, _ = fmt.Fprintf(w, "Token expires:\t%s\n", s.Expiry.Local().Format("2006-01-02 15:04:05"))
			}
			_, _ = fmt.Fprintf(w, "Session file:\t%s\n", a.store.Path())
			return w.Flush()
		},
	}
}

// readPassword prompts without echo on a terminal and reads one line
// otherwise.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
