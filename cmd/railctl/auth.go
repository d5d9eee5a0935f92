package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"railctl/cmd/railctl/cli"
	"railctl/internal/errors"
	"railctl/internal/session"

	"github.com/spf13/cobra"
)

// prompt reads one line from in after printing label.
func prompt(in io.Reader, out io.Writer, label string) string {
	fmt.Fprint(out, label+": ")
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line)
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Long: `Sign in and store the session token in the token file, where every
railctl process (including running consoles) picks it up.
The password may also come from RAILCTL_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if email == "" {
				email = prompt(a.in, out, "Email")
			}
			if password == "" {
				password = os.Getenv("RAILCTL_PASSWORD")
			}
			if password == "" {
				password = prompt(a.in, out, "Password")
			}
			if email == "" || password == "" {
				return errors.NewValidationError("email", "email and password are required", nil)
			}

			c, err := a.apiClient()
			if err != nil {
				return err
			}
			u, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			cli.PrintSuccess(out, fmt.Sprintf("logged in as %s <%s> (%s)", u.Name, u.Email, u.Role))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a passenger account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			u, err := c.Register(cmd.Context(), email, password, name)
			if err != nil {
				return err
			}
			cli.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("registered %s; run `railctl login -e %s`", u.Email, u.Email))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password, at least 6 characters")
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			if err := sess.Logout(); err != nil {
				return err
			}
			cli.PrintSuccess(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the claims of the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			token := sess.Token()
			if token == "" {
				return errors.New("not logged in; run `railctl login`")
			}
			claims, err := session.ParseClaims(token)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			pairs := [][2]string{
				{"email", claims.Email},
				{"role", claims.Role},
				{"subject", claims.Subject},
			}
			if name, ok := claims.Raw["name"].(string); ok {
				pairs = append(pairs, [2]string{"name", name})
			}
			if !claims.ExpiresAt.IsZero() {
				pairs = append(pairs, [2]string{"expires", claims.ExpiresAt.Local().Format(time.DateTime)})
			}
			fmt.Fprintln(out, cli.Fields(pairs))
			if claims.Expired(time.Now()) {
				cli.PrintWarning(out, "token has expired; run `railctl login`")
			}
			return nil
		},
	}
}
