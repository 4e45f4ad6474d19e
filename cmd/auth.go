package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/booknook/bookfeed/internal/models"
	"github.com/booknook/bookfeed/internal/nav"
	"github.com/booknook/bookfeed/internal/ui"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Sign in to your account",
		Annotations: screen(nav.Login),
		Example: `  bookfeed login --email ann@example.com
  echo "$PASSWORD" | bookfeed login --email ann@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := mustApp(cmd)
			if password == "" {
				p, err := promptPassword(cmd)
				if err != nil {
					return err
				}
				password = p
			}

			user, err := a.Session.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			renderWelcome(cmd.OutOrStdout(), "Welcome back", user)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (read from stdin when empty)")

	return cmd
}

func newRegisterCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:         "register",
		Short:       "Create an account",
		Annotations: screen(nav.Register),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := mustApp(cmd)
			if password == "" {
				p, err := promptPassword(cmd)
				if err != nil {
					return err
				}
				password = p
			}

			user, err := a.Session.Register(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			renderWelcome(cmd.OutOrStdout(), "Welcome", user)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (read from stdin when empty)")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "logout",
		Short:       "Sign out and forget the stored session",
		Annotations: screen(nav.Profile),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := mustApp(cmd)
			if err := a.Session.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("failed to log out: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Alert("Success", "Signed out."))
			renderSignedOut(cmd.OutOrStdout())
			return nil
		},
	}
}

func promptPassword(cmd *cobra.Command) (string, error) {
	return readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
}

// readPassword reads without echo from a terminal and reads one line from
// anything else, such as a pipe.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	fmt.Fprint(prompt, "Password: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(f.Fd()) {
		secret, err := term.ReadPassword(f.Fd())
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(secret), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func renderWelcome(w io.Writer, greeting string, user *models.User) {
	fmt.Fprintln(w, ui.Screen(greeting+", "+user.Name, user.Email,
		ui.Button("bookfeed books", ui.Primary, false),
		ui.Button("bookfeed create", ui.Secondary, false),
	))
}

func renderSignedOut(w io.Writer) {
	fmt.Fprintln(w, ui.Screen("Welcome to Bookfeed", "Sign in to see what everyone is reading",
		ui.Button("bookfeed login", ui.Primary, false),
		ui.Button("bookfeed register", ui.Secondary, false),
	))
}
