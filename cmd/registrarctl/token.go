package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/academic-registrar-api/internal/app"
)

func tokenCmd() *cobra.Command {
	var ttl time.Duration

	issue := &cobra.Command{
		Use:   "issue <user-id>",
		Short: "Mint an access token for an existing user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
				user, err := c.Users.FindByID(ctx, args[0])
				if err != nil {
					return fmt.Errorf("find user: %w", err)
				}
				token, expires, err := c.Tokens.Issue(user, ttl)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				fmt.Fprintf(cmd.ErrOrStderr(), "role %s, expires %s\n", user.Role, expires.Format(time.RFC3339))
				return nil
			})
		},
	}
	issue.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to JWT_EXPIRATION")

	cmd := &cobra.Command{Use: "token", Short: "Access tokens"}
	cmd.AddCommand(issue)
	return cmd
}
