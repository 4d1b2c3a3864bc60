package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/onemorerev/client/internal/api"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			st, err := a.auth.Login(cmd.Context(), a.client, email, password)
			if api.IsUnauthorized(err) {
				return fmt.Errorf("invalid email or password")
			}
			if err != nil {
				return err
			}
			a.logger().Info("Logged in", "user", st.User.Email)
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", st.User.Name, st.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when empty)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.auth.Logout(cmd.Context(), a.client); err != nil {
				a.logger().Warn("Logout call failed, local session cleared", "error", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user, checking the session with the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.auth.Refresh(cmd.Context(), a.client)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.format, st.User, func() table {
				t := table{header: []string{"ID", "NAME", "EMAIL", "ROLE"}}
				t.add(st.User.ID, st.User.Name, st.User.Email, st.User.Role)
				return t
			})
		},
	}
}
