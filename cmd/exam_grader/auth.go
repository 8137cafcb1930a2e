package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/exam-grader/internal/observability"
	"github.com/jonathan/exam-grader/internal/types"
)

func (a *app) newRegisterCmd() *cobra.Command {
	var req types.RegisterRequest
	var role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Password == "" {
				password, err := a.prompt("Password: ")
				if err != nil {
					return err
				}
				req.Password = password
			}
			req.Role = types.Role(role)

			c, err := a.client()
			if err != nil {
				return err
			}
			user, err := c.Register(cmd.Context(), &req)
			if err != nil {
				return err
			}
			return a.render(user, func(p *observability.Printer) error {
				p.PrintUser(user)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&req.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&role, "role", "", "admin, professor or student (server default: student)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Long:  `Log in with email and password. The token is kept in the session file (mode 0600) until logout or expiry.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = a.v.GetString("password")
			}
			if password == "" {
				var err error
				if password, err = a.prompt("Password: "); err != nil {
					return err
				}
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			user, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return a.printer().PrintJSON(user)
			}
			a.say("Logged in as %s (%s)", user.Email, user.Role)
			if store, err := a.tokenStore(); err == nil && a.v.GetString("token") == "" {
				a.say("Session saved to %s", store.Path())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "password (env EXAM_GRADER_PASSWORD, prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			if err := c.Logout(); err != nil {
				return err
			}
			a.say("Logged out")
			return nil
		},
	}
}

func (a *app) newMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			user, err := c.Me(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(user, func(p *observability.Printer) error {
				p.PrintUser(user)
				return nil
			})
		},
	}
}

// prompt reads one line from the command's input.
func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label) //nolint:errcheck
	line, err := bufio.NewReader(a.in).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" && err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return line, nil
}
